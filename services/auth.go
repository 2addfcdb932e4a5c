package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lborres/portero/core"
	"github.com/lborres/portero/pkg/crypto"
)

// AuthService composes the verifier and session manager into the surface
// the HTTP adapters consume.
type AuthService struct {
	accounts  core.AccountStore
	verifier  *CredentialVerifier
	sessions  *SessionManager
	passwords crypto.PasswordHandler
	clock     core.Clock
	logger    *slog.Logger

	// inflight collapses concurrent identical sign-ins (a client
	// double-submitting a login) into one issuer call sharing the outcome.
	inflight singleflight.Group
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

func NewAuthService(
	accounts core.AccountStore,
	verifier *CredentialVerifier,
	sessions *SessionManager,
	passwords crypto.PasswordHandler,
	clock core.Clock,
	logger *slog.Logger,
) *AuthService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthService{
		accounts:  accounts,
		verifier:  verifier,
		sessions:  sessions,
		passwords: passwords,
		clock:     clock,
		logger:    logger,
	}
}

// Register creates a password account and issues its first session.
func (s *AuthService) Register(ctx context.Context, input core.RegisterInput, ipAddress, userAgent string) (*core.AuthResult, error) {
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	email := NormalizeEmail(input.Email)

	// Cheap duplicate check first; the store's uniqueness constraint still
	// backstops the race between check and create.
	existing, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, core.ErrAccountNotFound) {
		return nil, classifyStoreErr(err)
	}
	if existing != nil {
		return nil, core.ErrAccountExists
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	account := &core.Account{
		ID:             uuid.NewString(),
		Email:          email,
		Status:         core.AccountActive,
		CredentialHash: &hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, classifyStoreErr(err)
	}

	s.logger.Info("account registered", "accountId", account.ID)

	return s.issue(ctx, account, ipAddress, userAgent)
}

// SignIn authenticates a password credential and issues a session.
// Concurrent identical submissions share one verification and one session.
func (s *AuthService) SignIn(ctx context.Context, input core.SignInInput, ipAddress, userAgent string) (*core.AuthResult, error) {
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, core.ErrPasswordRequired
	}

	key := NormalizeEmail(input.Email) + "\n" + crypto.HashProof(input.Password)
	result, err, _ := s.inflight.Do(key, func() (any, error) {
		account, err := s.verifier.VerifyPassword(ctx, input.Email, input.Password)
		if err != nil {
			return nil, err
		}
		return s.issue(ctx, account, ipAddress, userAgent)
	})
	if err != nil {
		return nil, err
	}
	return result.(*core.AuthResult), nil
}

// SignInDelegated signs in through a pre-validated external identity
// assertion. When the subject is unknown and input.Provision is set, a
// delegated-only account is created on the spot.
func (s *AuthService) SignInDelegated(ctx context.Context, input core.DelegatedInput, ipAddress, userAgent string) (*core.AuthResult, error) {
	account, err := s.verifier.VerifyDelegated(ctx, input.Subject)
	if err != nil {
		if !errors.Is(err, core.ErrAccountNotProvisioned) || !input.Provision {
			return nil, err
		}
		account, err = s.provisionDelegated(ctx, input)
		if err != nil {
			return nil, err
		}
	}

	return s.issue(ctx, account, ipAddress, userAgent)
}

// provisionDelegated creates a delegated-only account for a first-seen
// subject. A plain create, not part of the verifier's job.
func (s *AuthService) provisionDelegated(ctx context.Context, input core.DelegatedInput) (*core.Account, error) {
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}

	subject := input.Subject
	now := s.clock.Now()
	account := &core.Account{
		ID:               uuid.NewString(),
		Email:            NormalizeEmail(input.Email),
		Status:           core.AccountActive,
		DelegatedSubject: &subject,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, classifyStoreErr(err)
	}

	s.logger.Info("delegated account provisioned", "accountId", account.ID)
	return account, nil
}

// SignOut revokes the session named by the artifact. Expired artifacts
// with a valid signature are accepted; signing out twice is not an error.
func (s *AuthService) SignOut(ctx context.Context, artifact string) error {
	return s.sessions.RevokeArtifact(ctx, artifact)
}

// SignOutEverywhere revokes every session of the artifact's account and
// returns the number revoked. Unlike SignOut, the artifact must still be
// live: a dead session cannot speak for the whole account.
func (s *AuthService) SignOutEverywhere(ctx context.Context, artifact string) (int, error) {
	data, err := s.sessions.Validate(ctx, artifact)
	if err != nil {
		return 0, err
	}
	return s.sessions.RevokeAll(ctx, data.Account.ID)
}

// Session validates an artifact and returns the resolved account and
// session.
func (s *AuthService) Session(ctx context.Context, artifact string) (*core.SessionData, error) {
	return s.sessions.Validate(ctx, artifact)
}

// ChangePassword rotates the account's credential and signs the account
// out everywhere, current session included. The caller re-authenticates
// with the new password.
func (s *AuthService) ChangePassword(ctx context.Context, artifact, oldPassword, newPassword string) (int, error) {
	if err := validatePassword(newPassword); err != nil {
		return 0, err
	}

	data, err := s.sessions.Validate(ctx, artifact)
	if err != nil {
		return 0, err
	}

	if _, err := s.verifier.VerifyPassword(ctx, data.Account.Email, oldPassword); err != nil {
		return 0, err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdateCredentialHash(ctx, data.Account.ID, hash); err != nil {
		return 0, classifyStoreErr(err)
	}

	count, err := s.sessions.RevokeAll(ctx, data.Account.ID)
	if err != nil {
		return count, err
	}

	s.logger.Info("password changed", "accountId", data.Account.ID, "sessionsRevoked", count)
	return count, nil
}

// DisableAccount marks the account disabled and revokes all its sessions.
func (s *AuthService) DisableAccount(ctx context.Context, accountID string) (int, error) {
	if err := s.accounts.UpdateAccountStatus(ctx, accountID, core.AccountDisabled); err != nil {
		return 0, classifyStoreErr(err)
	}
	return s.sessions.RevokeAll(ctx, accountID)
}

// DeleteAccount marks the account deleted and revokes all its sessions.
// The row is retained; deletion is a status, not a hard delete.
func (s *AuthService) DeleteAccount(ctx context.Context, accountID string) (int, error) {
	if err := s.accounts.UpdateAccountStatus(ctx, accountID, core.AccountDeleted); err != nil {
		return 0, classifyStoreErr(err)
	}
	return s.sessions.RevokeAll(ctx, accountID)
}

func (s *AuthService) issue(ctx context.Context, account *core.Account, ipAddress, userAgent string) (*core.AuthResult, error) {
	issued, err := s.sessions.Issue(ctx, account, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	return &core.AuthResult{
		Account:  account,
		Session:  issued.Session,
		Artifact: issued.Artifact,
	}, nil
}
