// Package bbolt provides a BBolt-backed store adapter for single-node
// deployments that want durability without an external database.
package bbolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/lborres/portero"
)

var (
	bucketAccounts        = []byte("accounts")         // account id -> json
	bucketEmails          = []byte("accounts_email")   // normalized email -> account id, live accounts only
	bucketSubjects        = []byte("accounts_subject") // delegated subject -> account id, live accounts only
	bucketSessions        = []byte("sessions")         // session id -> json
	bucketAccountSessions = []byte("account_sessions") // "<account id>/<session id>" -> session id
)

type Store struct {
	db *bbolt.DB
}

var _ portero.AuthStorage = (*Store)(nil)

// New returns a store backed by the given BBolt database, creating the
// buckets it needs.
func New(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketAccounts, bucketEmails, bucketSubjects,
			bucketSessions, bucketAccountSessions,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromFile opens a BBolt database at the given path.
func NewFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db)
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func accountSessionKey(accountID, sessionID string) []byte {
	return []byte(accountID + "/" + sessionID)
}

func (s *Store) CreateAccount(ctx context.Context, account *portero.Account) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket(bucketEmails)
		if emails.Get([]byte(account.Email)) != nil {
			return portero.ErrAccountExists
		}
		if account.DelegatedSubject != nil {
			if tx.Bucket(bucketSubjects).Get([]byte(*account.DelegatedSubject)) != nil {
				return portero.ErrAccountExists
			}
		}

		data, err := json.Marshal(account)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketAccounts).Put([]byte(account.ID), data); err != nil {
			return err
		}
		if err := emails.Put([]byte(account.Email), []byte(account.ID)); err != nil {
			return err
		}
		if account.DelegatedSubject != nil {
			return tx.Bucket(bucketSubjects).Put([]byte(*account.DelegatedSubject), []byte(account.ID))
		}
		return nil
	})
}

func getAccount(tx *bbolt.Tx, id []byte) (*portero.Account, error) {
	data := tx.Bucket(bucketAccounts).Get(id)
	if data == nil {
		return nil, portero.ErrAccountNotFound
	}
	account := &portero.Account{}
	if err := json.Unmarshal(data, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*portero.Account, error) {
	var account *portero.Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		account, err = getAccount(tx, []byte(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Store) getAccountByIndex(bucket, key []byte) (*portero.Account, error) {
	var account *portero.Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucket).Get(key)
		if id == nil {
			return portero.ErrAccountNotFound
		}
		var err error
		account, err = getAccount(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*portero.Account, error) {
	return s.getAccountByIndex(bucketEmails, []byte(email))
}

func (s *Store) GetAccountByDelegatedSubject(ctx context.Context, subject string) (*portero.Account, error) {
	return s.getAccountByIndex(bucketSubjects, []byte(subject))
}

func (s *Store) updateAccount(id string, mutate func(*portero.Account) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		account, err := getAccount(tx, []byte(id))
		if err != nil {
			return err
		}
		if err := mutate(account); err != nil {
			return err
		}
		account.UpdatedAt = time.Now()

		data, err := json.Marshal(account)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketAccounts).Put([]byte(id), data); err != nil {
			return err
		}

		// Deleted accounts leave the email and subject indexes so both can
		// be reused; they stay reachable by id for audit.
		if account.Status == portero.AccountDeleted {
			if err := tx.Bucket(bucketEmails).Delete([]byte(account.Email)); err != nil {
				return err
			}
			if account.DelegatedSubject != nil {
				return tx.Bucket(bucketSubjects).Delete([]byte(*account.DelegatedSubject))
			}
			return nil
		}
		if err := tx.Bucket(bucketEmails).Put([]byte(account.Email), []byte(id)); err != nil {
			return err
		}
		if account.DelegatedSubject != nil {
			return tx.Bucket(bucketSubjects).Put([]byte(*account.DelegatedSubject), []byte(id))
		}
		return nil
	})
}

func (s *Store) UpdateAccountStatus(ctx context.Context, id string, status portero.AccountStatus) error {
	return s.updateAccount(id, func(a *portero.Account) error {
		a.Status = status
		return nil
	})
}

func (s *Store) UpdateCredentialHash(ctx context.Context, id string, hash string) error {
	return s.updateAccount(id, func(a *portero.Account) error {
		a.CredentialHash = &hash
		return nil
	})
}

func (s *Store) CreateSession(ctx context.Context, session *portero.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(session)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketSessions).Put([]byte(session.ID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketAccountSessions).Put(
			accountSessionKey(session.AccountID, session.ID), []byte(session.ID))
	})
}

func getSession(tx *bbolt.Tx, id []byte) (*portero.Session, error) {
	data := tx.Bucket(bucketSessions).Get(id)
	if data == nil {
		return nil, portero.ErrSessionNotFound
	}
	session := &portero.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Store) GetSessionByID(ctx context.Context, id string) (*portero.Session, error) {
	var session *portero.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		session, err = getSession(tx, []byte(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Store) GetAccountSessions(ctx context.Context, accountID string) ([]*portero.Session, error) {
	var sessions []*portero.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := []byte(accountID + "/")
		c := tx.Bucket(bucketAccountSessions).Cursor()
		for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
			session, err := getSession(tx, id)
			if err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func putSession(tx *bbolt.Tx, session *portero.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketSessions).Put([]byte(session.ID), data)
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		session, err := getSession(tx, []byte(id))
		if err != nil {
			// Idempotent: unknown session is not an error.
			return nil
		}
		if session.Revoked {
			return nil
		}
		session.Revoked = true
		return putSession(tx, session)
	})
}

func (s *Store) RevokeAccountSessions(ctx context.Context, accountID string) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		now := time.Now()
		prefix := []byte(accountID + "/")
		c := tx.Bucket(bucketAccountSessions).Cursor()
		for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
			session, err := getSession(tx, id)
			if err != nil {
				continue
			}
			if session.Revoked || !now.Before(session.ExpiresAt) {
				continue
			}
			session.Revoked = true
			if err := putSession(tx, session); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		index := tx.Bucket(bucketAccountSessions)

		var expired []*portero.Session
		c := sessions.Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			session := &portero.Session{}
			if err := json.Unmarshal(data, session); err != nil {
				return err
			}
			if !now.Before(session.ExpiresAt) {
				expired = append(expired, session)
			}
		}

		for _, session := range expired {
			if err := sessions.Delete([]byte(session.ID)); err != nil {
				return err
			}
			if err := index.Delete(accountSessionKey(session.AccountID, session.ID)); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
