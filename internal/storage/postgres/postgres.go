package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"kairos/internal/config"
	"kairos/internal/models"
	"kairos/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation  = "23505"
	accountsEmailKey = "accounts_email_key"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = cfg.Postgres.MaxConns
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent, so running it on each start is safe.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("%s: read %s: %w", op, name, err)
		}

		if _, err := r.pool.Exec(ctx, string(script)); err != nil {
			return fmt.Errorf("%s: apply %s: %w", op, name, err)
		}
	}

	return nil
}

// CreateAccount inserts the account and its default workspace in one
// transaction. A duplicate email yields storage.ErrAccountExists and leaves
// nothing behind.
func (r *PostgresRepo) CreateAccount(ctx context.Context, acc models.Account, ws models.Workspace) error {
	const op = "storage.postgres.CreateAccount"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertAccount = `
		INSERT INTO accounts (account_id, name, email, provider, avatar_url, plan)
		VALUES ($1, $2, $3, $4, $5, $6);
	`

	_, err = tx.Exec(ctx, insertAccount,
		acc.ID, acc.Name, acc.Email, string(acc.Provider), acc.AvatarURL, string(acc.Plan),
	)
	if err != nil {
		if isUniqueViolation(err, accountsEmailKey) {
			return storage.ErrAccountExists
		}

		return fmt.Errorf("%s: insert account: %w", op, err)
	}

	const insertWorkspace = `
		INSERT INTO workspaces (workspace_id, account_id, name, colour, deadline, priority)
		VALUES ($1, $2, $3, $4, $5, $6);
	`

	_, err = tx.Exec(ctx, insertWorkspace,
		ws.ID, ws.AccountID, ws.Name, ws.Colour, ws.Deadline, ws.Priority,
	)
	if err != nil {
		return fmt.Errorf("%s: insert workspace: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `
		SELECT account_id, name, email, provider, avatar_url, plan
		FROM accounts
		WHERE email = $1;
	`

	return scanAccount(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) AccountByID(ctx context.Context, id string) (models.Account, error) {
	const query = `
		SELECT account_id, name, email, provider, avatar_url, plan
		FROM accounts
		WHERE account_id = $1;
	`

	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) SaveRefreshToken(ctx context.Context, rt models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	const query = `
		INSERT INTO refresh_tokens (token_id, account_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4);
	`

	if _, err := r.pool.Exec(ctx, query, rt.ID, rt.AccountID, rt.TokenHash, rt.ExpiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) RefreshToken(ctx context.Context, tokenID string) (models.RefreshToken, error) {
	const op = "storage.postgres.RefreshToken"

	const query = `
		SELECT token_id, account_id, token_hash, expires_at
		FROM refresh_tokens
		WHERE token_id = $1;
	`

	var rt models.RefreshToken

	err := r.pool.QueryRow(ctx, query, tokenID).Scan(&rt.ID, &rt.AccountID, &rt.TokenHash, &rt.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
		}

		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return rt, nil
}

// DeleteRefreshToken removes exactly one record. When two callers race to
// delete the same token only the first succeeds; the second gets
// storage.ErrRefreshTokenNotFound.
func (r *PostgresRepo) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	const op = "storage.postgres.DeleteRefreshToken"

	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_id = $1`, tokenID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrRefreshTokenNotFound
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var (
		acc      models.Account
		provider string
		plan     string
	)

	err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &provider, &acc.AvatarURL, &plan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("storage.postgres.scanAccount: %w", err)
	}

	acc.Provider = models.Provider(provider)
	acc.Plan = models.Plan(plan)

	return acc, nil
}

// isUniqueViolation reports whether err is a unique violation of constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

// dsn prefers a full connection URL and falls back to discrete settings.
func dsn(cfg *config.Config) string {
	if cfg.Postgres.URL != "" {
		return cfg.Postgres.URL
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
