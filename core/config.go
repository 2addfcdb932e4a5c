package core

import (
	"log/slog"
	"time"

	"github.com/lborres/portero/pkg/crypto"
)

// SessionConfig holds session lifetime policy.
type SessionConfig struct {
	// TTL is the session lifetime; ExpiresAt = IssuedAt + TTL. Zero means
	// the 24 hour default.
	TTL time.Duration

	// MaxConcurrentSessions caps live sessions per account. Zero means
	// unlimited. When the cap would be exceeded, the oldest live session
	// by IssuedAt is revoked to make room.
	MaxConcurrentSessions int
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL: 24 * time.Hour,
	}
}

// Config wires the session authority's dependencies. Accounts, Sessions,
// and Secret are required; everything else has a sensible default.
type Config struct {
	// Secret signs bearer artifacts. Process-wide, read-only after init,
	// rotated out-of-band.
	Secret string

	Accounts AccountStore
	Sessions SessionStore

	// HTTP registers the authentication routes. Optional: leave nil to
	// drive the services programmatically.
	HTTP HTTPAdapter

	// Optional config
	Cache          VerdictCache
	DisableCache   bool
	SessionConfig  *SessionConfig
	PasswordHasher crypto.PasswordHandler
	Clock          Clock
	Logger         *slog.Logger
	BasePath       string
}
