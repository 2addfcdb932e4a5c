package services

import (
	"context"
	"sync"
	"time"

	"github.com/lborres/portero/core"
)

// FakeStorage is a test-only fake implementing core.AuthStorage. It keeps
// accounts and sessions in maps and exposes error fields for behavior
// injection.
type FakeStorage struct {
	mu       sync.RWMutex
	accounts map[string]*core.Account // key: account id
	sessions map[string]*core.Session // key: session id

	createAccountErr error
	getAccountErr    error
	updateErr        error
	createSessionErr error
	getSessionErr    error
	revokeErr        error
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		accounts: make(map[string]*core.Account),
		sessions: make(map[string]*core.Session),
	}
}

func (f *FakeStorage) CreateAccount(ctx context.Context, a *core.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createAccountErr != nil {
		return f.createAccountErr
	}
	for _, existing := range f.accounts {
		if existing.Email == a.Email && existing.Status != core.AccountDeleted {
			return core.ErrAccountExists
		}
	}
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *FakeStorage) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getAccountErr != nil {
		return nil, f.getAccountErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *FakeStorage) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getAccountErr != nil {
		return nil, f.getAccountErr
	}
	for _, a := range f.accounts {
		if a.Email == email && a.Status != core.AccountDeleted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeStorage) GetAccountByDelegatedSubject(ctx context.Context, subject string) (*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getAccountErr != nil {
		return nil, f.getAccountErr
	}
	for _, a := range f.accounts {
		if a.DelegatedSubject != nil && *a.DelegatedSubject == subject &&
			a.Status != core.AccountDeleted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeStorage) UpdateAccountStatus(ctx context.Context, id string, status core.AccountStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return core.ErrAccountNotFound
	}
	a.Status = status
	return nil
}

func (f *FakeStorage) UpdateCredentialHash(ctx context.Context, id string, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return core.ErrAccountNotFound
	}
	a.CredentialHash = &hash
	return nil
}

func (f *FakeStorage) CreateSession(ctx context.Context, s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createSessionErr != nil {
		return f.createSessionErr
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *FakeStorage) GetSessionByID(ctx context.Context, id string) (*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *FakeStorage) GetAccountSessions(ctx context.Context, accountID string) ([]*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	var sessions []*core.Session
	for _, s := range f.sessions {
		if s.AccountID == accountID {
			cp := *s
			sessions = append(sessions, &cp)
		}
	}
	return sessions, nil
}

func (f *FakeStorage) RevokeSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	if s, ok := f.sessions[id]; ok {
		s.Revoked = true
	}
	return nil
}

func (f *FakeStorage) RevokeAccountSessions(ctx context.Context, accountID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return 0, f.revokeErr
	}
	count := 0
	now := time.Now()
	for _, s := range f.sessions {
		if s.AccountID == accountID && !s.Revoked && now.Before(s.ExpiresAt) {
			s.Revoked = true
			count++
		}
	}
	return count, nil
}

func (f *FakeStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for id, s := range f.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

// SessionCount reports how many stored sessions pass the given filter.
func (f *FakeStorage) SessionCount(filter func(*core.Session) bool) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	count := 0
	for _, s := range f.sessions {
		if filter == nil || filter(s) {
			count++
		}
	}
	return count
}

var _ core.AuthStorage = (*FakeStorage)(nil)

// FakeClock is a manually-advanced core.Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ core.Clock = (*FakeClock)(nil)
