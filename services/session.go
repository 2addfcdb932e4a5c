package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lborres/portero/core"
	"github.com/lborres/portero/pkg/crypto"
	"github.com/lborres/portero/token"
)

// SessionManager is the issuer, validator, and revoker over the session
// store. It is stateless compute: no in-process lock is held across a store
// call, and every operation is either idempotent or exclusive by
// construction (a fresh session id cannot collide in practice).
type SessionManager struct {
	config   core.SessionConfig
	accounts core.AccountStore
	sessions core.SessionStore
	signer   *token.Signer
	cache    core.VerdictCache // optional, can be nil if caching is disabled
	idgen    *crypto.IDGenerator
	clock    core.Clock
	logger   *slog.Logger
}

// IssueResult carries the persisted session and the signed artifact.
// The artifact is returned exactly once and never stored verbatim.
type IssueResult struct {
	Session  *core.Session `json:"session"`
	Artifact string        `json:"artifact"`
}

func NewSessionManager(
	config core.SessionConfig,
	accounts core.AccountStore,
	sessions core.SessionStore,
	signer *token.Signer,
	cache core.VerdictCache,
	clock core.Clock,
	logger *slog.Logger,
) *SessionManager {
	if config.TTL <= 0 {
		config.TTL = core.DefaultSessionConfig().TTL
	}
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SessionManager{
		config:   config,
		accounts: accounts,
		sessions: sessions,
		signer:   signer,
		cache:    cache,
		idgen:    crypto.NewIDGenerator(),
		clock:    clock,
		logger:   logger,
	}
}

// Issue mints a session for an active account and returns the signed
// artifact. The session row is persisted before the artifact is signed:
// a validator in another replica must never see an artifact whose session
// is not yet durable.
func (sm *SessionManager) Issue(ctx context.Context, account *core.Account, ipAddress, userAgent string) (*IssueResult, error) {
	if account == nil || !account.Active() {
		return nil, core.ErrAccountInactive
	}

	if limit := sm.config.MaxConcurrentSessions; limit > 0 {
		if err := sm.evictForCap(ctx, account.ID, limit); err != nil {
			return nil, err
		}
	}

	id, err := sm.idgen.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := sm.clock.Now()
	session := &core.Session{
		ID:        id,
		AccountID: account.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(sm.config.TTL),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	if err := sm.sessions.CreateSession(ctx, session); err != nil {
		return nil, classifyStoreErr(err)
	}

	artifact, err := sm.signer.Sign(session)
	if err != nil {
		return nil, err
	}

	sm.logger.Debug("session issued",
		"sessionId", session.ID, "accountId", account.ID, "expiresAt", session.ExpiresAt)

	return &IssueResult{Session: session, Artifact: artifact}, nil
}

// evictForCap revokes the oldest live sessions by IssuedAt until one slot
// is free under the concurrency cap.
func (sm *SessionManager) evictForCap(ctx context.Context, accountID string, limit int) error {
	all, err := sm.sessions.GetAccountSessions(ctx, accountID)
	if err != nil {
		return classifyStoreErr(err)
	}

	now := sm.clock.Now()
	var live []*core.Session
	for _, s := range all {
		if !s.Revoked && !s.Expired(now) {
			live = append(live, s)
		}
	}
	if len(live) < limit {
		return nil
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].IssuedAt.Before(live[j].IssuedAt)
	})

	for _, s := range live[:len(live)-limit+1] {
		if err := sm.RevokeOne(ctx, s.ID); err != nil {
			return err
		}
		sm.logger.Debug("session evicted for concurrency cap",
			"sessionId", s.ID, "accountId", accountID)
	}
	return nil
}

// Validate confirms a bearer artifact maps to a live session and resolves
// the owning account. Two tiers:
//
// Tier 1, no I/O: signature and structural expiry checks on the artifact
// itself, then the verdict cache for already-dead sessions.
//
// Tier 2, authoritative: one session read and one account read. Stored
// state always wins over the artifact's embedded claims when they
// disagree. The successful outcome is never cached: revocation or an
// account status change must take effect on the very next call.
func (sm *SessionManager) Validate(ctx context.Context, artifact string) (*core.SessionData, error) {
	claims, err := sm.signer.Parse(artifact)
	if err != nil && !errors.Is(err, core.ErrArtifactExpired) {
		return nil, core.ErrMalformedArtifact
	}
	if err != nil {
		// Authentic but structurally expired: no store access needed.
		return nil, core.ErrArtifactExpired
	}

	sessionID := claims.SessionID()
	if sm.cache != nil {
		if verdict, ok := sm.cache.Get(sessionID); ok {
			return nil, verdict
		}
	}

	session, err := sm.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			// Purged or never-existing session: dead for good.
			sm.cacheVerdict(sessionID, core.ErrSessionNotFound)
			return nil, core.ErrSessionNotFound
		}
		return nil, classifyStoreErr(err)
	}

	if session.AccountID != claims.AccountID() {
		return nil, core.ErrMalformedArtifact
	}

	if session.Revoked {
		sm.cacheVerdict(sessionID, core.ErrSessionRevoked)
		return nil, core.ErrSessionRevoked
	}

	if session.Expired(sm.clock.Now()) {
		sm.cacheVerdict(sessionID, core.ErrSessionExpired)
		return nil, core.ErrSessionExpired
	}

	account, err := sm.accounts.GetAccountByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return nil, core.ErrAccountNotFound
		}
		return nil, classifyStoreErr(err)
	}

	// Account status is never cached: a disabled account can be re-enabled,
	// and its sessions must come back with it.
	if !account.Active() {
		sm.logger.Debug("validation rejected",
			"reason", "inactive account", "sessionId", session.ID,
			"accountId", account.ID, "status", account.Status)
		return nil, core.ErrAccountInactive
	}

	return &core.SessionData{Account: account, Session: session}, nil
}

// RevokeOne invalidates a single session. Idempotent: revoking an
// already-revoked or unknown session succeeds.
func (sm *SessionManager) RevokeOne(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return core.ErrSessionNotFound
	}

	if err := sm.sessions.RevokeSession(ctx, sessionID); err != nil {
		if !errors.Is(err, core.ErrSessionNotFound) {
			return classifyStoreErr(err)
		}
	}

	sm.cacheVerdict(sessionID, core.ErrSessionRevoked)
	return nil
}

// RevokeAll invalidates every session owned by the account and returns the
// number of sessions that actually transitioned from live to revoked.
//
// A session issued concurrently with the sweep may survive if its write
// lands after the sweep's read; callers needing a hard guarantee must
// serialize issuance and revocation per account.
func (sm *SessionManager) RevokeAll(ctx context.Context, accountID string) (int, error) {
	if accountID == "" {
		return 0, core.ErrAccountNotFound
	}

	count, err := sm.sessions.RevokeAccountSessions(ctx, accountID)
	if err != nil {
		return 0, classifyStoreErr(err)
	}

	// No cache invalidation needed: only terminal verdicts are cached, and
	// revocation only adds terminal states.
	sm.logger.Info("account sessions revoked", "accountId", accountID, "count", count)
	return count, nil
}

// RevokeArtifact revokes the session named by an artifact's claims. An
// expired artifact with a valid signature still works here: signing out an
// already-expired session is a reasonable client request.
func (sm *SessionManager) RevokeArtifact(ctx context.Context, artifact string) error {
	claims, err := sm.signer.Parse(artifact)
	if err != nil && !errors.Is(err, core.ErrArtifactExpired) {
		return core.ErrMalformedArtifact
	}
	return sm.RevokeOne(ctx, claims.SessionID())
}

func (sm *SessionManager) cacheVerdict(sessionID string, verdict error) {
	if sm.cache != nil {
		sm.cache.Set(sessionID, verdict)
	}
}

// classifyStoreErr passes the package's sentinel kinds through untouched
// and wraps everything else, including context timeouts and cancellations,
// as ErrStoreUnavailable. A store fault must never masquerade as an
// authorization failure, or a transient outage would sign users out.
func classifyStoreErr(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		core.ErrAccountNotFound,
		core.ErrAccountExists,
		core.ErrSessionNotFound,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
}
