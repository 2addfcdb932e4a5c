// Package token signs and parses bearer artifacts. An artifact is a compact
// HS256-signed claims token embedding the session id, owning account id, and
// the issue/expiry instants, so a forged or corrupted artifact is rejected
// without touching the session store. Liveness still requires the store:
// signature validity says nothing about revocation or account status.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lborres/portero/core"
)

// Claims are the artifact's embedded claims. The session id rides in the
// registered ID (jti) claim and the account id in Subject.
type Claims struct {
	jwt.RegisteredClaims
}

// SessionID returns the claimed session id.
func (c *Claims) SessionID() string { return c.ID }

// AccountID returns the claimed account id.
func (c *Claims) AccountID() string { return c.Subject }

// Signer mints and verifies bearer artifacts with a single process-wide
// secret. The secret is read-only after construction; rotation happens
// out-of-band by restarting with a new one.
type Signer struct {
	secret []byte
	clock  core.Clock
}

func NewSigner(secret []byte, clock core.Clock) *Signer {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Signer{secret: secret, clock: clock}
}

// Sign serializes the session's public fields into a signed artifact.
func (s *Signer) Sign(session *core.Session) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.AccountID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	artifact, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign artifact: %w", err)
	}

	return artifact, nil
}

// Parse verifies an artifact's signature and structure without any store
// access. On core.ErrArtifactExpired the returned claims are still usable:
// the signature checked out, only the embedded expiry has passed. Callers
// may rely on that to revoke a session from an expired artifact. Every
// other failure returns nil claims and core.ErrMalformedArtifact.
func (s *Signer) Parse(artifact string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(artifact, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
		// fine
	case errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid):
		if claims.ID == "" || claims.Subject == "" {
			return nil, core.ErrMalformedArtifact
		}
		return claims, core.ErrArtifactExpired
	default:
		return nil, core.ErrMalformedArtifact
	}

	if claims.ID == "" || claims.Subject == "" {
		return nil, core.ErrMalformedArtifact
	}

	return claims, nil
}
