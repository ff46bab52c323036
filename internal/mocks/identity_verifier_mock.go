package mocks

import (
	"context"

	"kairos/internal/models"

	"github.com/stretchr/testify/mock"
)

type IdentityVerifier struct{ mock.Mock }

func (m *IdentityVerifier) Verify(ctx context.Context, identityToken string) (models.Identity, error) {
	args := m.Called(ctx, identityToken)
	return args.Get(0).(models.Identity), args.Error(1)
}
