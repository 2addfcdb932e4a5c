// Package portero is an embeddable session authority: it issues,
// validates, and revokes authentication sessions against pluggable account
// and session stores, and hands clients a signed bearer artifact checked in
// two tiers (cheap signature rejection first, authoritative store state
// second).
package portero

import (
	"fmt"
	"time"

	"github.com/lborres/portero/core"
	"github.com/lborres/portero/pkg/cache"
	"github.com/lborres/portero/pkg/crypto"
	"github.com/lborres/portero/services"
	"github.com/lborres/portero/token"
)

// interfaces
type (
	AccountStore = core.AccountStore
	SessionStore = core.SessionStore
	AuthStorage  = core.AuthStorage
	VerdictCache = core.VerdictCache
	Clock        = core.Clock

	HTTPAdapter = core.HTTPAdapter
	AuthHandler = core.AuthHandler

	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	Config        = core.Config
	SessionConfig = core.SessionConfig

	Account       = core.Account
	AccountStatus = core.AccountStatus
	Session       = core.Session
	SessionData   = core.SessionData
	AuthResult    = core.AuthResult
	CacheStats    = core.CacheStats

	RegisterInput  = core.RegisterInput
	SignInInput    = core.SignInInput
	DelegatedInput = core.DelegatedInput
)

// account status values
const (
	AccountActive   = core.AccountActive
	AccountDisabled = core.AccountDisabled
	AccountDeleted  = core.AccountDeleted
)

const (
	defaultBasePath  = "/api/auth"
	defaultSecretLen = 32
)

// Constructors & helpers (convenience re-exports)
var (
	NewInMemoryCache     = cache.NewInMemoryCache
	NewArgon2            = crypto.NewArgon2
	DefaultSessionConfig = core.DefaultSessionConfig
	NormalizeEmail       = services.NormalizeEmail
)

var (
	ErrInvalidCredentials    = core.ErrInvalidCredentials
	ErrAccountExists         = core.ErrAccountExists
	ErrAccountNotFound       = core.ErrAccountNotFound
	ErrAccountInactive       = core.ErrAccountInactive
	ErrAccountNotProvisioned = core.ErrAccountNotProvisioned
)

var (
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrMalformedArtifact = core.ErrMalformedArtifact
	ErrArtifactExpired   = core.ErrArtifactExpired
	ErrSessionNotFound   = core.ErrSessionNotFound
	ErrSessionExpired    = core.ErrSessionExpired
	ErrSessionRevoked    = core.ErrSessionRevoked
	ErrStoreUnavailable  = core.ErrStoreUnavailable
)

var (
	ErrInvalidAuthHeader = core.ErrInvalidAuthHeader
	ErrEmailRequired     = core.ErrEmailRequired
	ErrInvalidEmail      = core.ErrInvalidEmail
	ErrPasswordRequired  = core.ErrPasswordRequired
	ErrPasswordTooShort  = core.ErrPasswordTooShort
	ErrPasswordTooLong   = core.ErrPasswordTooLong
	ErrSubjectRequired   = core.ErrSubjectRequired
)

var (
	ErrAccountStoreRequired = core.ErrAccountStoreRequired
	ErrSessionStoreRequired = core.ErrSessionStoreRequired
	ErrSecretRequired       = core.ErrSecretRequired
	ErrSecretTooShort       = core.ErrSecretTooShort
)

// Terminal reports whether an authorization failure is final for the
// presented artifact (drop it and re-authenticate) as opposed to a
// retryable store fault.
var Terminal = core.Terminal

// Portero bundles the configured services. Hosting applications may hold
// one per process, but nothing here is a singleton: every dependency is
// injected through Config.
type Portero struct {
	Auth     *services.AuthService
	Sessions *services.SessionManager
	Verifier *services.CredentialVerifier
	BasePath string
}

// New validates the configuration, fills defaults, and wires the session
// authority. The signing secret must be at least 32 bytes; the account and
// session stores are required; the HTTP adapter is optional for
// programmatic use.
func New(config Config) (*Portero, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Accounts == nil {
		return nil, ErrAccountStoreRequired
	}
	if config.Sessions == nil {
		return nil, ErrSessionStoreRequired
	}

	// Set Defaults

	verdictCache := config.Cache
	if verdictCache == nil && !config.DisableCache {
		verdictCache = cache.NewInMemoryCache(5*time.Minute, 500)
	}

	sessionConfig := config.SessionConfig
	if sessionConfig == nil {
		defaults := core.DefaultSessionConfig()
		sessionConfig = &defaults
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	clock := config.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	signer := token.NewSigner([]byte(config.Secret), clock)

	sessionManager := services.NewSessionManager(
		*sessionConfig,
		config.Accounts,
		config.Sessions,
		signer,
		verdictCache,
		clock,
		config.Logger,
	)

	verifier := services.NewCredentialVerifier(config.Accounts, passwordHasher, config.Logger)

	authService := services.NewAuthService(
		config.Accounts,
		verifier,
		sessionManager,
		passwordHasher,
		clock,
		config.Logger,
	)

	p := &Portero{
		Auth:     authService,
		Sessions: sessionManager,
		Verifier: verifier,
		BasePath: basePath,
	}

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(authService, basePath); err != nil {
			return nil, err
		}
	}

	return p, nil
}
