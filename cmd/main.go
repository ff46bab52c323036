package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kairos/internal/auth"
	"kairos/internal/config"
	httpserver "kairos/internal/http_server"
	"kairos/internal/identity/google"
	"kairos/internal/lib/jwt"
	sl "kairos/internal/lib/logger"
	"kairos/internal/models"
	"kairos/internal/rabbitmq"
	"kairos/internal/storage/postgres"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad(configPath())

	log := setupLogger(cfg.Env)

	log.Info("starting kairos", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	if cfg.Postgres.Migrate {
		if err := storage.Migrate(ctx); err != nil {
			log.Error("failed to migrate postgres", sl.Err(err))
			os.Exit(1)
		}
		log.Info("postgres schema is up to date")
	}

	var publisher auth.Publisher
	if cfg.RabbitMQ.URL != "" {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", sl.Err(err))
			os.Exit(1)
		}
		defer msgBroker.Close()

		publisher = msgBroker
	} else {
		log.Warn("rabbitmq url is empty, account events are disabled")
	}

	codec, err := jwt.New(
		cfg.Tokens.AccessSecret,
		cfg.Tokens.RefreshSecret,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
	)
	if err != nil {
		log.Error("invalid token configuration", sl.Err(err))
		os.Exit(1)
	}

	if cfg.Google.ClientID == "" {
		log.Warn("google client id is empty, audience is not checked")
	}

	googleVerifier := google.New(
		log,
		&http.Client{Timeout: cfg.Google.Timeout},
		cfg.Google.TokenInfoURL,
		cfg.Google.ClientID,
		cfg.Google.EnforceAudience,
	)

	authService := auth.New(
		log,
		map[models.Provider]auth.IdentityVerifier{
			models.ProviderGoogle: googleVerifier,
		},
		storage,
		storage,
		codec,
		publisher,
		cfg.Tokens.RefreshHashCost,
	)

	router := httpserver.NewRouter(log, authService, codec, httpserver.Options{
		PublicPaths:            cfg.HTTPServer.PublicPaths,
		AcceptResolvedIdentity: cfg.Login.AcceptResolvedIdentity,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("http server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down http server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", sl.Err(err))
	} else {
		log.Info("server stopped gracefully")
	}

	log.Info("kairos stopped")
}

// configPath prefers the -config flag over CONFIG_PATH. An empty result
// means configuration comes from the environment only.
func configPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	return path
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
