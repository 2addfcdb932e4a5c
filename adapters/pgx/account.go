package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lborres/portero"
)

const accountColumns = `id, email, status, credential_hash, delegated_subject, created_at, updated_at`

func (a *Adapter) CreateAccount(ctx context.Context, account *portero.Account) error {
	query := `INSERT INTO accounts (id, email, status, credential_hash, delegated_subject, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := a.pool.Exec(ctx, query,
		account.ID, account.Email, account.Status,
		account.CredentialHash, account.DelegatedSubject,
		account.CreatedAt, account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return portero.ErrAccountExists
		}
		return err
	}
	return nil
}

func (a *Adapter) scanAccount(row pgx.Row) (*portero.Account, error) {
	account := &portero.Account{}
	err := row.Scan(&account.ID, &account.Email, &account.Status,
		&account.CredentialHash, &account.DelegatedSubject,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, portero.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (a *Adapter) GetAccountByID(ctx context.Context, id string) (*portero.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return a.scanAccount(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (*portero.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND status <> 'deleted'`
	return a.scanAccount(a.pool.QueryRow(ctx, q, email))
}

func (a *Adapter) GetAccountByDelegatedSubject(ctx context.Context, subject string) (*portero.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE delegated_subject = $1 AND status <> 'deleted'`
	return a.scanAccount(a.pool.QueryRow(ctx, q, subject))
}

func (a *Adapter) UpdateAccountStatus(ctx context.Context, id string, status portero.AccountStatus) error {
	q := `UPDATE accounts SET status = $1, updated_at = now() WHERE id = $2`
	tag, err := a.pool.Exec(ctx, q, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return portero.ErrAccountNotFound
	}
	return nil
}

func (a *Adapter) UpdateCredentialHash(ctx context.Context, id string, hash string) error {
	q := `UPDATE accounts SET credential_hash = $1, updated_at = now() WHERE id = $2`
	tag, err := a.pool.Exec(ctx, q, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return portero.ErrAccountNotFound
	}
	return nil
}
