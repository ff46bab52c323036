package mocks

import (
	"context"

	"kairos/internal/models"

	"github.com/stretchr/testify/mock"
)

type RefreshTokenRepo struct{ mock.Mock }

func (m *RefreshTokenRepo) SaveRefreshToken(ctx context.Context, rt models.RefreshToken) error {
	return m.Called(ctx, rt).Error(0)
}

func (m *RefreshTokenRepo) RefreshToken(ctx context.Context, tokenID string) (models.RefreshToken, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(models.RefreshToken), args.Error(1)
}

func (m *RefreshTokenRepo) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return m.Called(ctx, tokenID).Error(0)
}
