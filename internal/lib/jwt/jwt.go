// Package jwt issues and verifies the service's own session tokens.
//
// Access and refresh tokens are HS256 JWTs signed with two different
// secrets, so a leaked access secret cannot mint refresh tokens.
package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrConfiguration   = errors.New("signing secret is not configured")
	ErrEncoding        = errors.New("failed to sign token")
	ErrUnauthenticated = errors.New("invalid or expired token")
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var signingMethod = jwt.SigningMethodHS256

// Pair is the result of a successful Issue. RefreshTokenID is also the
// refresh token's jti claim and the key of its stored record.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	RefreshTokenID   string
	RefreshExpiresAt time.Time
}

// RefreshClaims is what VerifyRefresh extracts from a refresh token.
type RefreshClaims struct {
	AccountID string
	TokenID   string
	ExpiresAt time.Time
}

type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// New builds a codec. Zero TTLs fall back to the defaults.
func New(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	const op = "jwt.New"

	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrConfiguration)
	}

	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("%s: access and refresh secrets must differ: %w", op, ErrConfiguration)
	}

	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}

	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (c *Codec) Issue(accountID string) (Pair, error) {
	const op = "jwt.Issue"

	if len(c.accessSecret) == 0 || len(c.refreshSecret) == 0 || bytes.Equal(c.accessSecret, c.refreshSecret) {
		return Pair{}, fmt.Errorf("%s: %w", op, ErrConfiguration)
	}

	now := c.clock()

	accessToken, err := sign(jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
	}, c.accessSecret)
	if err != nil {
		return Pair{}, fmt.Errorf("%s: access: %w", op, err)
	}

	tokenID := uuid.NewString()
	refreshExpiresAt := now.Add(c.refreshTTL)

	refreshToken, err := sign(jwt.RegisteredClaims{
		ID:        tokenID,
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(refreshExpiresAt),
	}, c.refreshSecret)
	if err != nil {
		return Pair{}, fmt.Errorf("%s: refresh: %w", op, err)
	}

	return Pair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshTokenID:   tokenID,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// VerifyAccess returns the account id carried by a valid access token.
func (c *Codec) VerifyAccess(token string) (string, error) {
	const op = "jwt.VerifyAccess"

	claims, err := c.parse(token, c.accessSecret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return claims.Subject, nil
}

func (c *Codec) VerifyRefresh(token string) (RefreshClaims, error) {
	const op = "jwt.VerifyRefresh"

	claims, err := c.parse(token, c.refreshSecret)
	if err != nil {
		return RefreshClaims{}, fmt.Errorf("%s: %w", op, err)
	}

	if claims.ID == "" {
		return RefreshClaims{}, fmt.Errorf("%s: missing jti: %w", op, ErrUnauthenticated)
	}

	return RefreshClaims{
		AccountID: claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) parse(token string, secret []byte) (*jwt.RegisteredClaims, error) {
	if len(secret) == 0 {
		return nil, ErrConfiguration
	}

	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("missing sub: %w", ErrUnauthenticated)
	}

	return claims, nil
}

func (c *Codec) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func sign(claims jwt.RegisteredClaims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return signed, nil
}
