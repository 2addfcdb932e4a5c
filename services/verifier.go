package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lborres/portero/core"
	"github.com/lborres/portero/pkg/crypto"
)

// CredentialVerifier confirms that an identity claim resolves to exactly
// one active account. It has no side effects; failed attempts are only
// visible in logs.
type CredentialVerifier struct {
	accounts  core.AccountStore
	passwords crypto.PasswordHandler
	logger    *slog.Logger
}

func NewCredentialVerifier(accounts core.AccountStore, passwords crypto.PasswordHandler, logger *slog.Logger) *CredentialVerifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CredentialVerifier{
		accounts:  accounts,
		passwords: passwords,
		logger:    logger,
	}
}

// NormalizeEmail canonicalizes an email for lookup and storage.
// Email uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// VerifyPassword resolves a normalized email and checks the supplied
// password against the stored argon2id hash in constant time.
//
// Unknown email, inactive account, and wrong password all return
// core.ErrInvalidCredentials so the caller cannot enumerate accounts.
// The distinct reason goes to the log only.
func (v *CredentialVerifier) VerifyPassword(ctx context.Context, email, password string) (*core.Account, error) {
	email = NormalizeEmail(email)

	account, err := v.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			v.logger.Debug("password verification rejected", "reason", "unknown email")
			return nil, core.ErrInvalidCredentials
		}
		return nil, classifyStoreErr(err)
	}

	if !account.Active() {
		v.logger.Debug("password verification rejected",
			"reason", "inactive account", "accountId", account.ID, "status", account.Status)
		return nil, core.ErrInvalidCredentials
	}

	if account.CredentialHash == nil {
		// Delegated-only account; no password to match against.
		v.logger.Debug("password verification rejected",
			"reason", "no password credential", "accountId", account.ID)
		return nil, core.ErrInvalidCredentials
	}

	valid, err := v.passwords.Verify(password, *account.CredentialHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		v.logger.Debug("password verification rejected",
			"reason", "wrong password", "accountId", account.ID)
		return nil, core.ErrInvalidCredentials
	}

	return account, nil
}

// VerifyDelegated maps a pre-validated external subject id to its account.
// Validating the provider's assertion itself (signature, issuer, audience)
// is the caller's responsibility; by the time the subject arrives here it
// is trusted.
//
// A subject with no linked account fails with core.ErrAccountNotProvisioned
// so the caller can decide to provision one.
func (v *CredentialVerifier) VerifyDelegated(ctx context.Context, subject string) (*core.Account, error) {
	if subject == "" {
		return nil, core.ErrSubjectRequired
	}

	account, err := v.accounts.GetAccountByDelegatedSubject(ctx, subject)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return nil, core.ErrAccountNotProvisioned
		}
		return nil, classifyStoreErr(err)
	}

	if !account.Active() {
		v.logger.Debug("delegated verification rejected",
			"reason", "inactive account", "accountId", account.ID, "status", account.Status)
		return nil, core.ErrAccountInactive
	}

	return account, nil
}
