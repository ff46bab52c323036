package mocks

import (
	"context"

	"kairos/internal/models"

	"github.com/stretchr/testify/mock"
)

// Authenticator stands in for *auth.Auth in handler tests.
type Authenticator struct{ mock.Mock }

func (m *Authenticator) Login(ctx context.Context, provider models.Provider, identityToken string) (models.Session, error) {
	args := m.Called(ctx, provider, identityToken)
	return args.Get(0).(models.Session), args.Error(1)
}

func (m *Authenticator) LoginWithIdentity(ctx context.Context, provider models.Provider, identity models.Identity) (models.Session, error) {
	args := m.Called(ctx, provider, identity)
	return args.Get(0).(models.Session), args.Error(1)
}

func (m *Authenticator) Refresh(ctx context.Context, refreshToken string) (models.Session, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(models.Session), args.Error(1)
}

func (m *Authenticator) Logout(ctx context.Context, accountID, refreshToken string) error {
	return m.Called(ctx, accountID, refreshToken).Error(0)
}

func (m *Authenticator) Account(ctx context.Context, accountID string) (models.Account, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(models.Account), args.Error(1)
}
