package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "kairos/internal/lib/logger"
	"kairos/internal/models"
	"kairos/internal/storage"

	"github.com/google/uuid"
)

type AccountStore interface {
	// CreateAccount stores the account together with its default workspace,
	// both or neither. It returns storage.ErrAccountExists when the email is
	// already taken.
	CreateAccount(ctx context.Context, acc models.Account, ws models.Workspace) error
	AccountByEmail(ctx context.Context, email string) (models.Account, error)
	AccountByID(ctx context.Context, id string) (models.Account, error)
}

// Provisioner maps a verified identity onto an account, creating it on first
// sight. The email unique constraint is the only guard against two first
// logins racing; there is no in-process lock.
type Provisioner struct {
	log   *slog.Logger
	store AccountStore
	newID func() string
}

func NewProvisioner(log *slog.Logger, store AccountStore) *Provisioner {
	return &Provisioner{
		log:   log,
		store: store,
		newID: uuid.NewString,
	}
}

// Provision returns the account for identity and whether this call created it.
func (p *Provisioner) Provision(ctx context.Context, identity models.Identity) (models.Account, bool, error) {
	const op = "auth.Provision"

	log := p.log.With(slog.String("op", op))

	account := models.Account{
		ID:       p.newID(),
		Name:     identity.Name,
		Email:    identity.Email,
		Provider: models.ProviderGoogle,
		Plan:     models.PlanFree,
	}
	if identity.AvatarURL != "" {
		avatar := identity.AvatarURL
		account.AvatarURL = &avatar
	}

	workspace := models.Workspace{
		ID:        p.newID(),
		AccountID: account.ID,
		Name:      models.DefaultWorkspaceName,
		Colour:    models.DefaultWorkspaceColour,
	}

	err := p.store.CreateAccount(ctx, account, workspace)
	if err == nil {
		log.Info("account created", slog.String("account_id", account.ID))

		return account, true, nil
	}

	if !errors.Is(err, storage.ErrAccountExists) {
		log.Error("failed to create account", sl.Err(err))

		return models.Account{}, false, fmt.Errorf("%s: %w: %v", op, ErrProvisioningFailed, err)
	}

	existing, err := p.store.AccountByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			// The insert saw the email but the read did not.
			log.Error("account missing after unique violation")

			return models.Account{}, false, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		log.Error("failed to load existing account", sl.Err(err))

		return models.Account{}, false, fmt.Errorf("%s: %w: %v", op, ErrProvisioningFailed, err)
	}

	log.Debug("account already exists", slog.String("account_id", existing.ID))

	return existing, false, nil
}
