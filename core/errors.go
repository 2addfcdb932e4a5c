package core

import "errors"

// Credential verification errors
var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// inactive account alike so callers cannot enumerate accounts.
	// The distinct reason is only ever logged.
	ErrInvalidCredentials    = errors.New("invalid email or password") // 401 Unauthorized
	ErrAccountExists         = errors.New("account already exists")    // 409 Conflict
	ErrAccountNotFound       = errors.New("account not found")         // 404 Not Found
	ErrAccountInactive       = errors.New("account is not active")     // 401
	ErrAccountNotProvisioned = errors.New("delegated identity has no linked account")
)

// Bearer artifact / session errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")     // 401
	ErrMalformedArtifact = errors.New("malformed bearer artifact")        // 401
	ErrArtifactExpired   = errors.New("bearer artifact expired")          // 401
	ErrSessionNotFound   = errors.New("session not found")                // 401
	ErrSessionExpired    = errors.New("session expired")                  // 401
	ErrSessionRevoked    = errors.New("session revoked")                  // 401
)

// ErrStoreUnavailable marks a transient infrastructure failure. It is the
// only retryable kind; every other error above is terminal for the request.
// A timed-out store call is reported as this, never as revoked or expired.
var ErrStoreUnavailable = errors.New("store unavailable")

// Validation errors (client input)
var (
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'") // 401
	ErrEmailRequired     = errors.New("email is required")                                       // 400
	ErrInvalidEmail      = errors.New("invalid email format")                                    // 400
	ErrPasswordRequired  = errors.New("password is required")                                    // 400
	ErrPasswordTooShort  = errors.New("password is too short")                                   // 400
	ErrPasswordTooLong   = errors.New("password is too long")                                    // 400
	ErrSubjectRequired   = errors.New("delegated subject is required")                           // 400
)

// Config errors (server-side configuration)
var (
	ErrAccountStoreRequired = errors.New("account store is required") // 500
	ErrSessionStoreRequired = errors.New("session store is required") // 500
	ErrSecretRequired       = errors.New("secret is required")        // 500
	ErrSecretTooShort       = errors.New("secret too short")          // 500
)

// Terminal reports whether an authorization failure is final for the
// presented artifact. Clients must drop the artifact and re-authenticate
// rather than retry; only ErrStoreUnavailable warrants a retry.
func Terminal(err error) bool {
	for _, e := range []error{
		ErrInvalidCredentials,
		ErrAccountInactive,
		ErrAccountNotFound,
		ErrMalformedArtifact,
		ErrArtifactExpired,
		ErrSessionNotFound,
		ErrSessionExpired,
		ErrSessionRevoked,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
