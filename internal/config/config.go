package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Tokens     `yaml:"tokens"`
	Google     `yaml:"google"`
	Login      `yaml:"login"`
	Postgres   `yaml:"postgres"`
	RabbitMQ   `yaml:"rabbitmq"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"0.0.0.0:33333"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	// PublicPaths are served without an access token. Each entry matches the
	// path itself and everything below it.
	PublicPaths []string `yaml:"public_paths" env:"HTTP_PUBLIC_PATHS" env-default:"/login,/token/refresh,/health_check"`
}

type Postgres struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env:"POSTGRES_MAX_CONNS" env-default:"5"`
	Migrate  bool   `yaml:"migrate" env:"POSTGRES_MIGRATE" env-default:"true"`
}

type Tokens struct {
	AccessSecret    string        `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"1h"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	RefreshHashCost int           `yaml:"refresh_hash_cost" env:"REFRESH_HASH_COST" env-default:"10"`
}

type Google struct {
	TokenInfoURL    string        `yaml:"tokeninfo_url" env:"GOOGLE_TOKENINFO_URL" env-default:"https://oauth2.googleapis.com/tokeninfo"`
	ClientID        string        `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	EnforceAudience bool          `yaml:"enforce_audience" env:"GOOGLE_ENFORCE_AUDIENCE" env-default:"false"`
	Timeout         time.Duration `yaml:"timeout" env:"GOOGLE_TIMEOUT" env-default:"10s"`
}

type Login struct {
	AcceptResolvedIdentity bool `yaml:"accept_resolved_identity" env:"LOGIN_ACCEPT_RESOLVED_IDENTITY" env-default:"false"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-default:"account_events"`
}

// Load reads configPath when it is set and then applies environment
// overrides. With an empty path only the environment is used.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read env: %w", err)
		}

		return cfg.validated()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return cfg.validated()
}

// validated catches secrets that are present in the environment but empty.
func (c Config) validated() (*Config, error) {
	if c.Tokens.AccessSecret == "" || c.Tokens.RefreshSecret == "" {
		return nil, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}

	return &c, nil
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}
