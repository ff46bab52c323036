package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kairos/internal/lib/jwt"
	sl "kairos/internal/lib/logger"
	"kairos/internal/models"
	"kairos/internal/storage"
)

// Errors returned by Auth. Every failure leaving Auth matches exactly one of
// these with errors.Is.
var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrInvalidIdentity     = errors.New("invalid identity assertion")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountNotFound     = errors.New("account not found")
	ErrConflict            = errors.New("account already exists")
	ErrInternal            = errors.New("internal error")
)

// Component failures. Auth translates them before returning.
var (
	ErrProvisioningFailed = errors.New("provisioning failed")
	ErrHashingFailed      = errors.New("hashing failed")
	ErrPersistenceFailed  = errors.New("persistence failed")
)

type IdentityVerifier interface {
	Verify(ctx context.Context, identityToken string) (models.Identity, error)
}

type TokenCodec interface {
	Issue(accountID string) (jwt.Pair, error)
	VerifyRefresh(token string) (jwt.RefreshClaims, error)
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type Auth struct {
	log         *slog.Logger
	verifiers   map[models.Provider]IdentityVerifier
	accounts    AccountStore
	provisioner *Provisioner
	tokens      TokenCodec
	refresh     *RefreshStore
	publisher   Publisher
}

// New wires the login pipeline. A provider without an entry in verifiers is
// rejected before anything else happens. publisher may be nil.
func New(
	log *slog.Logger,
	verifiers map[models.Provider]IdentityVerifier,
	accounts AccountStore,
	refreshTokens RefreshTokenRepo,
	tokens TokenCodec,
	publisher Publisher,
	refreshHashCost int,
) *Auth {
	return &Auth{
		log:         log,
		verifiers:   verifiers,
		accounts:    accounts,
		provisioner: NewProvisioner(log, accounts),
		tokens:      tokens,
		refresh:     NewRefreshStore(refreshTokens, refreshHashCost),
		publisher:   publisher,
	}
}

// Login verifies identityToken with the provider and signs the caller in,
// creating the account on first use.
func (a *Auth) Login(ctx context.Context, provider models.Provider, identityToken string) (models.Session, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op), slog.String("provider", string(provider)))

	verifier, ok := a.verifiers[provider]
	if !ok {
		log.Info("login with unsupported provider")

		return models.Session{}, fmt.Errorf("%s: %w", op, ErrUnsupportedProvider)
	}

	identity, err := verifier.Verify(ctx, identityToken)
	if err != nil {
		log.Info("identity verification failed", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidIdentity, err)
	}

	return a.establish(ctx, log, op, identity)
}

// LoginWithIdentity signs the caller in from identity fields the client has
// already resolved with the provider. Nothing is re-verified here.
func (a *Auth) LoginWithIdentity(ctx context.Context, provider models.Provider, identity models.Identity) (models.Session, error) {
	const op = "auth.LoginWithIdentity"

	log := a.log.With(slog.String("op", op), slog.String("provider", string(provider)))

	if _, ok := a.verifiers[provider]; !ok {
		log.Info("login with unsupported provider")

		return models.Session{}, fmt.Errorf("%s: %w", op, ErrUnsupportedProvider)
	}

	return a.establish(ctx, log, op, identity)
}

// establish runs provisioning, token issuance and refresh persistence in that
// order and stops at the first failure. Nothing is undone on failure: an
// account created before a later step fails stays, and the next login
// reuses it.
func (a *Auth) establish(ctx context.Context, log *slog.Logger, op string, identity models.Identity) (models.Session, error) {
	account, created, err := a.provisioner.Provision(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return models.Session{}, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		return models.Session{}, fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}

	if created {
		a.announce(ctx, log, account)
	}

	session, _, err := a.issue(ctx, account)
	if err != nil {
		log.Error("failed to issue session", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}

	log.Info("user logged in successfully", slog.String("account_id", account.ID))

	return session, nil
}

// Refresh spends refreshToken and returns a new token pair. The old refresh
// token cannot be used again. The new pair is persisted before the old record
// is revoked, so a failure before that point leaves refreshToken usable.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (models.Session, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	claims, err := a.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		log.Info("invalid refresh token", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := refreshError(a.refresh.Validate(ctx, claims.AccountID, claims.TokenID, refreshToken)); err != nil {
		log.Warn("refresh token rejected", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	account, err := a.accounts.AccountByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("refresh for missing account", slog.String("account_id", claims.AccountID))

			return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		log.Error("failed to load account", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}

	session, tokenID, err := a.issue(ctx, account)
	if err != nil {
		log.Error("failed to issue session", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}

	if err := refreshError(a.refresh.Revoke(ctx, claims.TokenID)); err != nil {
		// Another caller spent the same token first, or the revoke failed.
		// The pair issued above is never handed out.
		if discardErr := a.refresh.Revoke(ctx, tokenID); discardErr != nil {
			log.Error("failed to discard unused refresh token", sl.Err(discardErr))
		}

		log.Warn("failed to revoke refresh token", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful", slog.String("account_id", account.ID))

	return session, nil
}

// Logout revokes refreshToken. It must belong to accountID.
func (a *Auth) Logout(ctx context.Context, accountID, refreshToken string) error {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op))

	claims, err := a.tokens.VerifyRefresh(refreshToken)
	if err != nil || claims.AccountID != accountID {
		log.Info("invalid refresh token for logout")

		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := refreshError(a.refresh.Consume(ctx, claims.AccountID, claims.TokenID, refreshToken)); err != nil {
		log.Warn("failed to revoke refresh token", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful", slog.String("account_id", accountID))

	return nil
}

func (a *Auth) Account(ctx context.Context, accountID string) (models.Account, error) {
	const op = "auth.Account"

	account, err := a.accounts.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return models.Account{}, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		return models.Account{}, fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}

	return account, nil
}

// issue signs a pair for account and persists its refresh record. It also
// returns the record id.
func (a *Auth) issue(ctx context.Context, account models.Account) (models.Session, string, error) {
	pair, err := a.tokens.Issue(account.ID)
	if err != nil {
		return models.Session{}, "", err
	}

	err = a.refresh.Persist(ctx, account.ID, pair.RefreshTokenID, pair.RefreshToken, pair.RefreshExpiresAt)
	if err != nil {
		return models.Session{}, "", err
	}

	return models.Session{
		Account:      account,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, pair.RefreshTokenID, nil
}

// refreshError maps RefreshStore failures onto Auth errors.
func refreshError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errRefreshRevoked):
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

// announce publishes the welcome event for a new account. Failures are logged
// and do not affect the login.
func (a *Auth) announce(ctx context.Context, log *slog.Logger, account models.Account) {
	if a.publisher == nil {
		return
	}

	msg := models.Message{
		Email:   account.Email,
		Name:    account.Name,
		Purpose: models.PurposeWelcome,
	}

	if err := a.publisher.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish account created event", sl.Err(err))
	}
}
