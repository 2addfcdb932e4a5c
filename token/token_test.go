package token

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lborres/portero/core"
)

var testSecret = []byte("test-secret-test-secret-test-secret!")

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

func testSession(now time.Time) *core.Session {
	return &core.Session{
		ID:        "sess-123",
		AccountID: "acc-456",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

// Requirement: a signed artifact parses back to the session's claims.
func TestSigner_SignParse_Roundtrip(t *testing.T) {
	// Arrange
	clock := &fakeClock{now: time.Now()}
	signer := NewSigner(testSecret, clock)
	session := testSession(clock.Now())

	// Act
	artifact, err := signer.Sign(session)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	claims, err := signer.Parse(artifact)

	// Assert
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.SessionID() != session.ID {
		t.Errorf("SessionID() = %q, want %q", claims.SessionID(), session.ID)
	}
	if claims.AccountID() != session.AccountID {
		t.Errorf("AccountID() = %q, want %q", claims.AccountID(), session.AccountID)
	}
	if !claims.ExpiresAt.Time.Equal(session.ExpiresAt.Truncate(time.Second)) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt.Time, session.ExpiresAt.Truncate(time.Second))
	}
}

// Requirement: an expired artifact with a valid signature still yields its
// claims, flagged with the expiry error, so the session can be revoked.
func TestSigner_Parse_Expired(t *testing.T) {
	// Arrange
	clock := &fakeClock{now: time.Now()}
	signer := NewSigner(testSecret, clock)
	session := testSession(clock.Now())
	artifact, err := signer.Sign(session)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	// Act
	clock.Advance(2 * time.Hour)
	claims, err := signer.Parse(artifact)

	// Assert
	if !errors.Is(err, core.ErrArtifactExpired) {
		t.Fatalf("Parse() error = %v, want %v", err, core.ErrArtifactExpired)
	}
	if claims == nil {
		t.Fatal("Parse() should return claims for an authentic expired artifact")
	}
	if claims.SessionID() != session.ID {
		t.Errorf("SessionID() = %q, want %q", claims.SessionID(), session.ID)
	}
}

// Requirement: anything that fails signature or structural checks is
// malformed with nil claims. Forgery and expiry are never confused.
func TestSigner_Parse_Malformed(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	signer := NewSigner(testSecret, clock)
	session := testSession(clock.Now())
	artifact, err := signer.Sign(session)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	otherSigner := NewSigner([]byte("another-secret-another-secret-ok"), clock)
	forged, _ := otherSigner.Sign(session)

	expiredForged, _ := otherSigner.Sign(&core.Session{
		ID: "sess-123", AccountID: "acc-456",
		IssuedAt:  clock.Now().Add(-2 * time.Hour),
		ExpiresAt: clock.Now().Add(-time.Hour),
	})

	noExpiry := func() string {
		s := NewSigner(testSecret, clock)
		// Sign with zero expiry; WithExpirationRequired must reject it.
		a, _ := s.Sign(&core.Session{ID: "sess-123", AccountID: "acc-456"})
		return a
	}()

	tests := []struct {
		name     string
		artifact string
	}{
		{name: "empty string", artifact: ""},
		{name: "not a token at all", artifact: "hello world"},
		{name: "truncated token", artifact: artifact[:len(artifact)/2]},
		{name: "tampered signature", artifact: artifact + "x"},
		{name: "signed with wrong secret", artifact: forged},
		{name: "expired and wrong secret", artifact: expiredForged},
		{name: "stripped signature", artifact: strings.Join(strings.Split(artifact, ".")[:2], ".") + "."},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			claims, err := signer.Parse(test.artifact)
			if !errors.Is(err, core.ErrMalformedArtifact) {
				t.Fatalf("Parse() error = %v, want %v", err, core.ErrMalformedArtifact)
			}
			if claims != nil {
				t.Error("Parse() must not return claims for a malformed artifact")
			}
		})
	}

	t.Run("missing expiry claim", func(t *testing.T) {
		claims, err := signer.Parse(noExpiry)
		if !errors.Is(err, core.ErrMalformedArtifact) {
			t.Fatalf("Parse() error = %v, want %v", err, core.ErrMalformedArtifact)
		}
		if claims != nil {
			t.Error("Parse() must not return claims without an expiry")
		}
	})
}

// Requirement: artifacts missing the session or account identity are
// rejected even when the signature verifies.
func TestSigner_Parse_MissingIdentity(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	signer := NewSigner(testSecret, clock)

	tests := []struct {
		name    string
		session *core.Session
	}{
		{name: "missing session id", session: &core.Session{AccountID: "acc-456", IssuedAt: clock.Now(), ExpiresAt: clock.Now().Add(time.Hour)}},
		{name: "missing account id", session: &core.Session{ID: "sess-123", IssuedAt: clock.Now(), ExpiresAt: clock.Now().Add(time.Hour)}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			artifact, err := signer.Sign(test.session)
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}
			if _, err := signer.Parse(artifact); !errors.Is(err, core.ErrMalformedArtifact) {
				t.Fatalf("Parse() error = %v, want %v", err, core.ErrMalformedArtifact)
			}
		})
	}
}
