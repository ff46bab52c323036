package auth_test

import (
	"context"
	"errors"
	"testing"

	"kairos/internal/auth"
	"kairos/internal/mocks"
	"kairos/internal/models"
	"kairos/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var googleIdentity = models.Identity{
	Subject:   "g-1",
	Email:     "a@x.com",
	Name:      "A",
	AvatarURL: "http://example.com/a.png",
	Audience:  "client-1",
}

func TestProvisionCreatesAccountWithDefaultWorkspace(t *testing.T) {
	store := new(mocks.AccountStore)
	store.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	p := auth.NewProvisioner(discardLogger(), store)

	account, created, err := p.Provision(context.Background(), googleIdentity)
	require.NoError(t, err)
	assert.True(t, created)

	acc := store.Calls[0].Arguments.Get(1).(models.Account)
	ws := store.Calls[0].Arguments.Get(2).(models.Workspace)

	assert.Equal(t, acc, account)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, "A", acc.Name)
	assert.Equal(t, "a@x.com", acc.Email)
	assert.Equal(t, models.ProviderGoogle, acc.Provider)
	assert.Equal(t, models.PlanFree, acc.Plan)
	require.NotNil(t, acc.AvatarURL)
	assert.Equal(t, "http://example.com/a.png", *acc.AvatarURL)

	assert.NotEmpty(t, ws.ID)
	assert.NotEqual(t, acc.ID, ws.ID)
	assert.Equal(t, acc.ID, ws.AccountID)
	assert.Equal(t, "Unset", ws.Name)
	assert.Equal(t, "grey", ws.Colour)
	assert.Nil(t, ws.Deadline)
	assert.Nil(t, ws.Priority)

	store.AssertNotCalled(t, "AccountByEmail", mock.Anything, mock.Anything)
}

func TestProvisionReusesExistingAccount(t *testing.T) {
	existing := models.Account{ID: "acc-existing", Name: "A", Email: "a@x.com", Provider: models.ProviderGoogle, Plan: models.PlanPro}

	store := new(mocks.AccountStore)
	store.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(storage.ErrAccountExists).Once()
	store.On("AccountByEmail", mock.Anything, "a@x.com").Return(existing, nil).Once()

	p := auth.NewProvisioner(discardLogger(), store)

	account, created, err := p.Provision(context.Background(), googleIdentity)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, existing, account)
	store.AssertExpectations(t)
}

func TestProvisionAccountMissingAfterViolation(t *testing.T) {
	store := new(mocks.AccountStore)
	store.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(storage.ErrAccountExists)
	store.On("AccountByEmail", mock.Anything, "a@x.com").Return(models.Account{}, storage.ErrAccountNotFound).Once()

	p := auth.NewProvisioner(discardLogger(), store)

	_, _, err := p.Provision(context.Background(), googleIdentity)
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	store.AssertNumberOfCalls(t, "AccountByEmail", 1)
}

func TestProvisionFailures(t *testing.T) {
	t.Run("insert", func(t *testing.T) {
		store := new(mocks.AccountStore)
		store.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset"))

		p := auth.NewProvisioner(discardLogger(), store)

		_, _, err := p.Provision(context.Background(), googleIdentity)
		assert.ErrorIs(t, err, auth.ErrProvisioningFailed)
		store.AssertNotCalled(t, "AccountByEmail", mock.Anything, mock.Anything)
	})

	t.Run("lookup", func(t *testing.T) {
		store := new(mocks.AccountStore)
		store.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(storage.ErrAccountExists)
		store.On("AccountByEmail", mock.Anything, "a@x.com").Return(models.Account{}, errors.New("timeout"))

		p := auth.NewProvisioner(discardLogger(), store)

		_, _, err := p.Provision(context.Background(), googleIdentity)
		assert.ErrorIs(t, err, auth.ErrProvisioningFailed)
		assert.NotErrorIs(t, err, auth.ErrAccountNotFound)
	})
}

func TestProvisionWithoutAvatar(t *testing.T) {
	store := new(mocks.AccountStore)
	store.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	identity := googleIdentity
	identity.AvatarURL = ""

	account, _, err := auth.NewProvisioner(discardLogger(), store).Provision(context.Background(), identity)
	require.NoError(t, err)
	assert.Nil(t, account.AvatarURL)
}
