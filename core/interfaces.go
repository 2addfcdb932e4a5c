package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// AccountStore defines account-related store operations.
//
// Emails are stored normalized (lowercased, trimmed); lookups receive
// already-normalized input. Implementations must enforce email uniqueness
// among non-deleted accounts and return ErrAccountExists on violation.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccountByDelegatedSubject(ctx context.Context, subject string) (*Account, error)
	UpdateAccountStatus(ctx context.Context, id string, status AccountStatus) error
	UpdateCredentialHash(ctx context.Context, id string, hash string) error
}

// SessionStore defines session-related store operations.
//
// Revoked and expired rows are retained for audit; reclamation is the
// backend's business (native TTL where available, DeleteExpiredSessions
// sweeps elsewhere).
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSessionByID(ctx context.Context, id string) (*Session, error)
	GetAccountSessions(ctx context.Context, accountID string) ([]*Session, error)

	// RevokeSession is idempotent: revoking an already-revoked or unknown
	// session is not an error.
	RevokeSession(ctx context.Context, id string) error

	// RevokeAccountSessions revokes every session owned by the account and
	// returns the number of sessions that transitioned from live to revoked.
	RevokeAccountSessions(ctx context.Context, accountID string) (int, error)

	// DeleteExpiredSessions reclaims rows past their expiry, returning the
	// number removed. Backends with native TTL expiry may implement this
	// as a no-op.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// AuthStorage combines the two stores for backends that serve both.
type AuthStorage interface {
	AccountStore
	SessionStore
}

// ============================================
// CACHE PORT
// ============================================

// VerdictCache remembers terminal validation outcomes (revoked, expired,
// unknown session) so repeated presentations of a dead artifact skip the
// store lookup. Revocation and expiry are one-way, which is what makes
// these outcomes safe to cache; a successful validation never is.
type VerdictCache interface {
	Get(sessionID string) (verdict error, ok bool)
	Set(sessionID string, verdict error)
	Delete(sessionID string)
	Clear()
}

// CacheWithStats extends VerdictCache with statistics tracking.
type CacheWithStats interface {
	VerdictCache
	Stats() CacheStats
}

// CacheStats tracks cache performance metrics.
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}

// ============================================
// CLOCK PORT
// ============================================

// Clock supplies the current time. Injectable so expiry behavior is
// testable without sleeping.
type Clock interface {
	Now() time.Time
}

// ============================================
// AUTH HANDLER (for HTTP adapters)
// ============================================

// AuthHandler provides authentication operations for HTTP adapters.
type AuthHandler interface {
	Register(ctx context.Context, input RegisterInput, ipAddress, userAgent string) (*AuthResult, error)
	SignIn(ctx context.Context, input SignInInput, ipAddress, userAgent string) (*AuthResult, error)
	SignInDelegated(ctx context.Context, input DelegatedInput, ipAddress, userAgent string) (*AuthResult, error)
	SignOut(ctx context.Context, artifact string) error
	SignOutEverywhere(ctx context.Context, artifact string) (int, error)
	Session(ctx context.Context, artifact string) (*SessionData, error)
}

// RegisterInput contains the data needed to register a new account.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInInput contains the credentials for password authentication.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DelegatedInput carries a pre-validated external identity assertion.
// The caller must have checked the assertion's signature, issuer, and
// audience before this subject id is trusted here.
type DelegatedInput struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`

	// Provision creates an account on first sight of an unknown subject
	// instead of failing with ErrAccountNotProvisioned.
	Provision bool `json:"-"`
}

// AuthResult contains the authenticated account, its new session, and the
// bearer artifact. The artifact is handed out exactly once and never stored
// verbatim.
type AuthResult struct {
	Account  *Account `json:"account"`
	Session  *Session `json:"session"`
	Artifact string   `json:"artifact"`
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(handler AuthHandler, basePath string) error
}
