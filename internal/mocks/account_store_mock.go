package mocks

import (
	"context"

	"kairos/internal/models"

	"github.com/stretchr/testify/mock"
)

type AccountStore struct{ mock.Mock }

func (m *AccountStore) CreateAccount(ctx context.Context, acc models.Account, ws models.Workspace) error {
	return m.Called(ctx, acc, ws).Error(0)
}

func (m *AccountStore) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *AccountStore) AccountByID(ctx context.Context, id string) (models.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Account), args.Error(1)
}
