package core

import "time"

// AccountStatus gates both credential verification and session validation.
// Disabled and deleted accounts fail either check.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountDisabled AccountStatus = "disabled"
	AccountDeleted  AccountStatus = "deleted"
)

// Account represents a registered identity.
//
// An account carries at least one of CredentialHash (password login) or
// DelegatedSubject (sign-in through an external identity provider).
type Account struct {
	ID               string        `json:"id"`
	Email            string        `json:"email"` // stored normalized: lowercased, trimmed
	Status           AccountStatus `json:"status"`
	CredentialHash   *string       `json:"-"` // Never expose in JSON
	DelegatedSubject *string       `json:"-"` // external provider's subject id
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Active reports whether the account may verify credentials or own live sessions.
func (a *Account) Active() bool {
	return a.Status == AccountActive
}

// Session represents one authenticated login instance.
//
// A session is live iff it is not revoked, not past ExpiresAt, and its owning
// account is active. Liveness is recomputed on every validation, never cached.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Revoked   bool      `json:"revoked"` // one-way: set by the revoker, never unset
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
}

// Expired reports whether the session is past its stored expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Live reports full session liveness against the owning account.
func (s *Session) Live(now time.Time, owner *Account) bool {
	return !s.Revoked && !s.Expired(now) && owner != nil && owner.Active()
}

// SessionData combines the resolved account and session.
// The model returned to callers after a successful validation.
type SessionData struct {
	Account *Account `json:"account"`
	Session *Session `json:"session"`
}
