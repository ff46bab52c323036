package mocks

import (
	"context"

	"kairos/internal/models"

	"github.com/stretchr/testify/mock"
)

type Publisher struct{ mock.Mock }

func (m *Publisher) SendMessage(ctx context.Context, msg models.Message) error {
	return m.Called(ctx, msg).Error(0)
}
