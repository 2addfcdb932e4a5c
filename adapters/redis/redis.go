// Package redis provides a Redis-backed session store. Rows expire through
// Redis's own TTL, so DeleteExpiredSessions is a no-op here: reclamation is
// the store's business.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lborres/portero"
)

type Store struct {
	client *redis.Client
	prefix string
	clock  portero.Clock
}

var _ portero.SessionStore = (*Store)(nil)

// New creates a Redis-backed session store. A nil clock means wall time.
func New(client *redis.Client, clock portero.Clock) *Store {
	if clock == nil {
		clock = systemClock{}
	}
	return &Store{
		client: client,
		prefix: "portero:",
		clock:  clock,
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (s *Store) sessionKey(id string) string {
	return s.prefix + "session:" + id
}

func (s *Store) accountKey(accountID string) string {
	return s.prefix + "account-sessions:" + accountID
}

// sessionTTL is the remaining lifetime the session's row and index entry
// are stored under.
func (s *Store) sessionTTL(session *portero.Session) (time.Duration, error) {
	ttl := session.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return 0, fmt.Errorf("session %s already expired at creation", session.ID)
	}
	return ttl, nil
}

func (s *Store) CreateSession(ctx context.Context, session *portero.Session) error {
	ttl, err := s.sessionTTL(session)
	if err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(session.ID), data, ttl)
	pipe.SAdd(ctx, s.accountKey(session.AccountID), session.ID)
	// The index must outlive its longest-lived member.
	pipe.Expire(ctx, s.accountKey(session.AccountID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) GetSessionByID(ctx context.Context, id string) (*portero.Session, error) {
	val, err := s.client.Get(ctx, s.sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, portero.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	session := &portero.Session{}
	if err := json.Unmarshal([]byte(val), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

func (s *Store) GetAccountSessions(ctx context.Context, accountID string) ([]*portero.Session, error) {
	ids, err := s.client.SMembers(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		return nil, err
	}

	var sessions []*portero.Session
	var dead []any
	for _, id := range ids {
		session, err := s.GetSessionByID(ctx, id)
		if errors.Is(err, portero.ErrSessionNotFound) {
			// Expired out from under the index; prune it.
			dead = append(dead, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if len(dead) > 0 {
		s.client.SRem(ctx, s.accountKey(accountID), dead...)
	}
	return sessions, nil
}

// RevokeSession marks the session revoked in place, keeping the remaining
// TTL so the record stays visible for audit until natural expiry.
// Unknown sessions are not an error.
func (s *Store) RevokeSession(ctx context.Context, id string) error {
	session, err := s.GetSessionByID(ctx, id)
	if errors.Is(err, portero.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if session.Revoked {
		return nil
	}

	session.Revoked = true
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.client.Set(ctx, s.sessionKey(id), data, redis.KeepTTL).Err()
}

func (s *Store) RevokeAccountSessions(ctx context.Context, accountID string) (int, error) {
	ids, err := s.client.SMembers(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		session, err := s.GetSessionByID(ctx, id)
		if errors.Is(err, portero.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return count, err
		}
		if session.Revoked {
			continue
		}

		session.Revoked = true
		data, err := json.Marshal(session)
		if err != nil {
			return count, fmt.Errorf("failed to marshal session: %w", err)
		}
		if err := s.client.Set(ctx, s.sessionKey(id), data, redis.KeepTTL).Err(); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// DeleteExpiredSessions is a no-op: Redis reclaims expired keys itself.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
