package redis

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lborres/portero"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newOfflineStore returns a store whose client points nowhere. Only paths
// that return before issuing a command may be exercised with it.
func newOfflineStore(clock portero.Clock) *Store {
	return New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), clock)
}

// Requirement: keys are namespaced under a fixed prefix so one Redis can
// host several applications.
func TestStore_Keys(t *testing.T) {
	store := newOfflineStore(nil)

	if got := store.sessionKey("s-1"); got != "portero:session:s-1" {
		t.Errorf("sessionKey() = %q, want portero:session:s-1", got)
	}
	if got := store.accountKey("acc-1"); got != "portero:account-sessions:acc-1" {
		t.Errorf("accountKey() = %q, want portero:account-sessions:acc-1", got)
	}
}

// Requirement: a session row's TTL is its remaining lifetime on the
// injected clock, so rows vanish from Redis exactly at ExpiresAt.
func TestStore_SessionTTL(t *testing.T) {
	// Arrange
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newOfflineStore(clock)
	session := &portero.Session{
		ID:        "s-1",
		AccountID: "acc-1",
		IssuedAt:  clock.Now(),
		ExpiresAt: clock.Now().Add(time.Hour),
	}

	// Act
	ttl, err := store.sessionTTL(session)

	// Assert
	if err != nil {
		t.Fatalf("sessionTTL() error = %v", err)
	}
	if ttl != time.Hour {
		t.Errorf("sessionTTL() = %v, want %v", ttl, time.Hour)
	}

	// Halfway through the lifetime, half the TTL remains.
	clock.Advance(30 * time.Minute)
	ttl, err = store.sessionTTL(session)
	if err != nil {
		t.Fatalf("sessionTTL() error = %v", err)
	}
	if ttl != 30*time.Minute {
		t.Errorf("sessionTTL() after advance = %v, want %v", ttl, 30*time.Minute)
	}
}

// Requirement: a session that is already expired on the store's clock is
// rejected before any command is sent.
func TestStore_CreateSession_ExpiredAtCreation(t *testing.T) {
	// Arrange
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newOfflineStore(clock)
	session := &portero.Session{
		ID:        "s-dead",
		AccountID: "acc-1",
		IssuedAt:  clock.Now().Add(-2 * time.Hour),
		ExpiresAt: clock.Now().Add(-time.Hour),
	}

	// Act
	err := store.CreateSession(context.Background(), session)

	// Assert
	if err == nil {
		t.Fatal("CreateSession() should reject an already-expired session")
	}
	if !strings.Contains(err.Error(), "already expired") {
		t.Errorf("CreateSession() error = %v, want already-expired rejection", err)
	}
}
