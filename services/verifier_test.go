package services

import (
	"context"
	"errors"
	"testing"

	"github.com/lborres/portero/core"
	"github.com/lborres/portero/pkg/crypto"
)

func seedPasswordAccount(t *testing.T, storage *FakeStorage, id, email, password string, status core.AccountStatus) *core.Account {
	t.Helper()
	hash, err := crypto.NewArgon2().Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	account := &core.Account{
		ID:             id,
		Email:          email,
		Status:         status,
		CredentialHash: &hash,
	}
	if err := storage.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return account
}

// Requirement: VerifyPassword resolves valid credentials to the account and
// merges every rejection reason into one error so callers cannot tell an
// unknown email from a wrong password or a disabled account.
func TestCredentialVerifier_VerifyPassword(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*FakeStorage)
		email    string
		password string
		wantID   string
		wantErr  error
	}{
		{
			name: "valid credentials",
			setup: func(s *FakeStorage) {
				seedPasswordAccount(t, s, "acc-1", "alice@example.com", "SecurePass123!", core.AccountActive)
			},
			email:    "alice@example.com",
			password: "SecurePass123!",
			wantID:   "acc-1",
		},
		{
			name: "email is matched case-insensitively",
			setup: func(s *FakeStorage) {
				seedPasswordAccount(t, s, "acc-2", "bob@example.com", "SecurePass123!", core.AccountActive)
			},
			email:    "  BOB@Example.COM ",
			password: "SecurePass123!",
			wantID:   "acc-2",
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "SecurePass123!",
			wantErr:  core.ErrInvalidCredentials,
		},
		{
			name: "wrong password",
			setup: func(s *FakeStorage) {
				seedPasswordAccount(t, s, "acc-3", "carol@example.com", "CorrectPass123!", core.AccountActive)
			},
			email:    "carol@example.com",
			password: "WrongPass123!",
			wantErr:  core.ErrInvalidCredentials,
		},
		{
			name: "disabled account",
			setup: func(s *FakeStorage) {
				seedPasswordAccount(t, s, "acc-4", "dave@example.com", "SecurePass123!", core.AccountDisabled)
			},
			email:    "dave@example.com",
			password: "SecurePass123!",
			wantErr:  core.ErrInvalidCredentials,
		},
		{
			name: "delegated-only account has no password",
			setup: func(s *FakeStorage) {
				subject := "idp|eve"
				_ = s.CreateAccount(context.Background(), &core.Account{
					ID:               "acc-5",
					Email:            "eve@example.com",
					Status:           core.AccountActive,
					DelegatedSubject: &subject,
				})
			},
			email:    "eve@example.com",
			password: "anything-at-all",
			wantErr:  core.ErrInvalidCredentials,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			if test.setup != nil {
				test.setup(storage)
			}
			verifier := NewCredentialVerifier(storage, crypto.NewArgon2(), nil)

			// Act
			account, err := verifier.VerifyPassword(context.Background(), test.email, test.password)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("VerifyPassword() error = %v, want %v", err, test.wantErr)
				}
				if account != nil {
					t.Error("VerifyPassword() should not return an account on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyPassword() error = %v", err)
			}
			if account.ID != test.wantID {
				t.Errorf("Account.ID = %q, want %q", account.ID, test.wantID)
			}
		})
	}
}

// Requirement: a store fault during verification is reported as unavailable,
// not as bad credentials.
func TestCredentialVerifier_VerifyPassword_StoreDown(t *testing.T) {
	// Arrange
	storage := NewFakeStorage()
	storage.getAccountErr = errors.New("connection refused")
	verifier := NewCredentialVerifier(storage, crypto.NewArgon2(), nil)

	// Act
	_, err := verifier.VerifyPassword(context.Background(), "alice@example.com", "SecurePass123!")

	// Assert
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("VerifyPassword() error = %v, want %v", err, core.ErrStoreUnavailable)
	}
	if errors.Is(err, core.ErrInvalidCredentials) {
		t.Error("store fault must not look like a credential failure")
	}
}

// Requirement: VerifyDelegated maps a trusted subject to its account,
// distinguishing unprovisioned subjects from inactive accounts.
func TestCredentialVerifier_VerifyDelegated(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*FakeStorage)
		subject string
		wantID  string
		wantErr error
	}{
		{
			name: "known subject",
			setup: func(s *FakeStorage) {
				subject := "idp|alice"
				_ = s.CreateAccount(context.Background(), &core.Account{
					ID: "acc-1", Email: "alice@example.com",
					Status: core.AccountActive, DelegatedSubject: &subject,
				})
			},
			subject: "idp|alice",
			wantID:  "acc-1",
		},
		{
			name:    "unknown subject",
			subject: "idp|stranger",
			wantErr: core.ErrAccountNotProvisioned,
		},
		{
			name:    "empty subject",
			subject: "",
			wantErr: core.ErrSubjectRequired,
		},
		{
			name: "disabled account",
			setup: func(s *FakeStorage) {
				subject := "idp|bob"
				_ = s.CreateAccount(context.Background(), &core.Account{
					ID: "acc-2", Email: "bob@example.com",
					Status: core.AccountDisabled, DelegatedSubject: &subject,
				})
			},
			subject: "idp|bob",
			wantErr: core.ErrAccountInactive,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			if test.setup != nil {
				test.setup(storage)
			}
			verifier := NewCredentialVerifier(storage, crypto.NewArgon2(), nil)

			// Act
			account, err := verifier.VerifyDelegated(context.Background(), test.subject)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("VerifyDelegated() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyDelegated() error = %v", err)
			}
			if account.ID != test.wantID {
				t.Errorf("Account.ID = %q, want %q", account.ID, test.wantID)
			}
		})
	}
}

// Requirement: NormalizeEmail lowercases and trims so lookups and storage
// agree on one canonical form.
func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Alice@Example.COM", want: "alice@example.com"},
		{in: "  bob@example.com\t", want: "bob@example.com"},
		{in: "plain@example.com", want: "plain@example.com"},
	}

	for _, test := range tests {
		if got := NormalizeEmail(test.in); got != test.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
