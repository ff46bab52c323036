package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"kairos/internal/models"
	"kairos/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

const DefaultRefreshHashCost = 10

var errRefreshRevoked = errors.New("refresh token revoked or unknown")

type RefreshTokenRepo interface {
	SaveRefreshToken(ctx context.Context, rt models.RefreshToken) error
	RefreshToken(ctx context.Context, tokenID string) (models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
}

// RefreshStore keeps a bcrypt hash of every issued refresh token.
type RefreshStore struct {
	repo RefreshTokenRepo
	cost int
	now  func() time.Time
}

func NewRefreshStore(repo RefreshTokenRepo, cost int) *RefreshStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultRefreshHashCost
	}

	return &RefreshStore{
		repo: repo,
		cost: cost,
		now:  time.Now,
	}
}

func (s *RefreshStore) Persist(
	ctx context.Context,
	accountID, tokenID, refreshToken string,
	expiresAt time.Time,
) error {
	const op = "auth.RefreshStore.Persist"

	hash, err := bcrypt.GenerateFromPassword(digest(refreshToken), s.cost)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrHashingFailed, err)
	}

	err = s.repo.SaveRefreshToken(ctx, models.RefreshToken{
		ID:        tokenID,
		AccountID: accountID,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrPersistenceFailed, err)
	}

	return nil
}

// Validate checks refreshToken against its stored record without spending it.
func (s *RefreshStore) Validate(ctx context.Context, accountID, tokenID, refreshToken string) error {
	const op = "auth.RefreshStore.Validate"

	rt, err := s.repo.RefreshToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return fmt.Errorf("%s: %w", op, errRefreshRevoked)
		}

		return fmt.Errorf("%s: %w: %v", op, ErrPersistenceFailed, err)
	}

	if rt.AccountID != accountID || !s.now().Before(rt.ExpiresAt) {
		return fmt.Errorf("%s: %w", op, errRefreshRevoked)
	}

	if err := bcrypt.CompareHashAndPassword(rt.TokenHash, digest(refreshToken)); err != nil {
		return fmt.Errorf("%s: %w", op, errRefreshRevoked)
	}

	return nil
}

// Revoke deletes the record. Only one caller can revoke a given record;
// the others get errRefreshRevoked.
func (s *RefreshStore) Revoke(ctx context.Context, tokenID string) error {
	const op = "auth.RefreshStore.Revoke"

	if err := s.repo.DeleteRefreshToken(ctx, tokenID); err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return fmt.Errorf("%s: %w", op, errRefreshRevoked)
		}

		return fmt.Errorf("%s: %w: %v", op, ErrPersistenceFailed, err)
	}

	return nil
}

// Consume validates refreshToken and revokes its record, so a refresh token
// can be spent at most once.
func (s *RefreshStore) Consume(ctx context.Context, accountID, tokenID, refreshToken string) error {
	if err := s.Validate(ctx, accountID, tokenID, refreshToken); err != nil {
		return err
	}

	return s.Revoke(ctx, tokenID)
}

// digest shrinks a token to 64 bytes: bcrypt rejects input over 72 bytes and
// signed tokens are longer than that.
func digest(token string) []byte {
	sum := sha256.Sum256([]byte(token))

	return []byte(hex.EncodeToString(sum[:]))
}
