// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const accountColumns = `id, owner_id, type, balance, created_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Type,
		&a.Balance,
		&a.CreatedAt,
	)

	return a, err
}

const addBalanceQuery = `
UPDATE accounts
SET balance = balance + $1
WHERE id = $2
RETURNING ` + accountColumns

// AddBalance changes the account's balance and returns the changed account.
func (r *RepoPGS) AddBalance(ctx context.Context, amount decimal.Decimal, id uuid.UUID) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, addBalanceQuery, amount, id))
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_balance_check" {
				return domain.Account{}, domain.ErrInsufficientFunds
			}
		}

		return domain.Account{}, dbpkg.Classify(err)
	}

	return a, nil
}

const createQuery = `
INSERT INTO
    accounts (id, owner_id, type, balance)
VALUES
    ($1, $2, $3, $4)
RETURNING ` + accountColumns

// Create creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, uuid.New(), arg.OwnerID, arg.Type, arg.Balance)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "accounts_owner_id_fkey":
				return domain.Account{}, domain.ErrOwnerNotFound
			case "accounts_type_check":
				return domain.Account{}, domain.ErrInvalidAccountType
			case "accounts_balance_check":
				return domain.Account{}, domain.ErrInsufficientFunds
			}
		}

		return domain.Account{}, dbpkg.Classify(err)
	}

	return a, nil
}

const getQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.get(ctx, getQuery, id)
}

const getForUpdateQuery = getQuery + `FOR NO KEY UPDATE`

// GetForUpdate returns the account with the given id and locks its row until the end of the transaction.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

const getDefaultQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE owner_id = $1 AND type = 'checking'
ORDER BY created_at, id
LIMIT 1
`

// GetDefault returns the oldest checking account of the owner, the one incoming external transfers land on.
func (r *RepoPGS) GetDefault(ctx context.Context, ownerID string) (domain.Account, error) {
	return r.get(ctx, getDefaultQuery, ownerID)
}

func (r *RepoPGS) get(ctx context.Context, query string, arg any) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return domain.Account{}, dbpkg.Classify(err)
	}

	return a, nil
}
