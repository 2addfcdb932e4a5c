// Package memory provides a map-backed store adapter for tests, examples,
// and throwaway deployments. Not durable.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lborres/portero"
)

type Store struct {
	mu       sync.RWMutex
	accounts map[string]*portero.Account
	sessions map[string]*portero.Session
	clock    portero.Clock
}

var _ portero.AuthStorage = (*Store)(nil)

func New(clock portero.Clock) *Store {
	if clock == nil {
		clock = systemClock{}
	}
	return &Store{
		accounts: make(map[string]*portero.Account),
		sessions: make(map[string]*portero.Session),
		clock:    clock,
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (s *Store) CreateAccount(ctx context.Context, account *portero.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Status == portero.AccountDeleted {
			continue
		}
		if existing.Email == account.Email {
			return portero.ErrAccountExists
		}
		if existing.DelegatedSubject != nil && account.DelegatedSubject != nil &&
			*existing.DelegatedSubject == *account.DelegatedSubject {
			return portero.ErrAccountExists
		}
	}

	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*portero.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, portero.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*portero.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.Email == email && account.Status != portero.AccountDeleted {
			cp := *account
			return &cp, nil
		}
	}
	return nil, portero.ErrAccountNotFound
}

func (s *Store) GetAccountByDelegatedSubject(ctx context.Context, subject string) (*portero.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.DelegatedSubject != nil && *account.DelegatedSubject == subject &&
			account.Status != portero.AccountDeleted {
			cp := *account
			return &cp, nil
		}
	}
	return nil, portero.ErrAccountNotFound
}

func (s *Store) UpdateAccountStatus(ctx context.Context, id string, status portero.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return portero.ErrAccountNotFound
	}
	account.Status = status
	account.UpdatedAt = s.clock.Now()
	return nil
}

func (s *Store) UpdateCredentialHash(ctx context.Context, id string, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return portero.ErrAccountNotFound
	}
	account.CredentialHash = &hash
	account.UpdatedAt = s.clock.Now()
	return nil
}

func (s *Store) CreateSession(ctx context.Context, session *portero.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *Store) GetSessionByID(ctx context.Context, id string) (*portero.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, portero.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *Store) GetAccountSessions(ctx context.Context, accountID string) ([]*portero.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*portero.Session
	for _, session := range s.sessions {
		if session.AccountID == accountID {
			cp := *session
			sessions = append(sessions, &cp)
		}
	}
	return sessions, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		session.Revoked = true
	}
	return nil
}

func (s *Store) RevokeAccountSessions(ctx context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	count := 0
	for _, session := range s.sessions {
		if session.AccountID == accountID && !session.Revoked && now.Before(session.ExpiresAt) {
			session.Revoked = true
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}
