package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"kairos/internal/config"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"}

	assert.True(t, isUniqueViolation(unique, accountsEmailKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("exec: %w", unique), accountsEmailKey))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503", ConstraintName: accountsEmailKey}, accountsEmailKey))
	assert.False(t, isUniqueViolation(errors.New("23505"), accountsEmailKey))
	assert.False(t, isUniqueViolation(nil, accountsEmailKey))

	primaryKey := &pgconn.PgError{Code: "23505", ConstraintName: "accounts_pkey"}
	assert.False(t, isUniqueViolation(primaryKey, accountsEmailKey))
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.Postgres = config.Postgres{
		Host:     "db",
		Port:     5432,
		User:     "kairos",
		Password: "pw",
		DBName:   "kairos",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=kairos password=pw database=kairos sslmode=disable", dsn(cfg))

	cfg.Postgres.URL = "postgres://u:p@localhost/kairos"
	assert.Equal(t, "postgres://u:p@localhost/kairos", dsn(cfg))
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	script, err := migrations.ReadFile(names[0])
	require.NoError(t, err)

	for _, table := range []string{"accounts", "workspaces", "refresh_tokens"} {
		assert.True(t, strings.Contains(string(script), "CREATE TABLE IF NOT EXISTS "+table), table)
	}
	assert.Regexp(t, `email\s+TEXT NOT NULL CONSTRAINT `+accountsEmailKey+` UNIQUE`, string(script))
}
