package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lborres/portero"
)

const sessionColumns = `id, account_id, issued_at, expires_at, revoked, ip_address, user_agent`

func (a *Adapter) CreateSession(ctx context.Context, session *portero.Session) error {
	query := `INSERT INTO sessions (id, account_id, issued_at, expires_at, revoked, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := a.pool.Exec(ctx, query,
		session.ID, session.AccountID, session.IssuedAt, session.ExpiresAt,
		session.Revoked, session.IPAddress, session.UserAgent)
	return err
}

func (a *Adapter) scanSession(row pgx.Row) (*portero.Session, error) {
	session := &portero.Session{}
	err := row.Scan(&session.ID, &session.AccountID, &session.IssuedAt,
		&session.ExpiresAt, &session.Revoked, &session.IPAddress, &session.UserAgent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, portero.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (a *Adapter) GetSessionByID(ctx context.Context, id string) (*portero.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return a.scanSession(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) GetAccountSessions(ctx context.Context, accountID string) ([]*portero.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE account_id = $1 ORDER BY issued_at`

	rows, err := a.pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*portero.Session
	for rows.Next() {
		session := &portero.Session{}
		err := rows.Scan(&session.ID, &session.AccountID, &session.IssuedAt,
			&session.ExpiresAt, &session.Revoked, &session.IPAddress, &session.UserAgent)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// RevokeSession is idempotent: zero rows affected is not an error.
func (a *Adapter) RevokeSession(ctx context.Context, id string) error {
	q := `UPDATE sessions SET revoked = TRUE WHERE id = $1`
	_, err := a.pool.Exec(ctx, q, id)
	return err
}

// RevokeAccountSessions revokes every live session of the account; the
// WHERE clause counts only live-to-revoked transitions.
func (a *Adapter) RevokeAccountSessions(ctx context.Context, accountID string) (int, error) {
	q := `UPDATE sessions SET revoked = TRUE
		WHERE account_id = $1 AND revoked = FALSE AND expires_at > now()`

	tag, err := a.pool.Exec(ctx, q, accountID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	q := `DELETE FROM sessions WHERE expires_at <= $1`

	tag, err := a.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
