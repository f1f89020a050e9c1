// Package userrepo manages repository layer of users.
package userrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
)

// RepoPGS facilitates user repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns user RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO users (
    id,
    account_number
) VALUES (
    $1, $2
) RETURNING id, account_number, created_at
`

// Create registers the identity provider user with its public account number.
func (r *RepoPGS) Create(ctx context.Context, id, accountNumber string) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, id, domain.NormalizeAccountNumber(accountNumber))

	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.AccountNumber,
		&u.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				switch pqErr.Constraint {
				case "users_pkey":
					return domain.User{}, domain.ErrUserAlreadyExists
				case "users_account_number_key":
					return domain.User{}, domain.ErrAccountNumberAlreadyExists
				}
			}
		}

		return domain.User{}, dbpkg.Classify(err)
	}

	return u, nil
}

const getByAccountNumberQuery = `
SELECT id, account_number, created_at
FROM users
WHERE account_number = $1
`

// GetByAccountNumber returns the user owning the public account number.
func (r *RepoPGS) GetByAccountNumber(ctx context.Context, accountNumber string) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getByAccountNumberQuery, domain.NormalizeAccountNumber(accountNumber))

	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.AccountNumber,
		&u.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}

		l.Error().Err(err).Send()

		return domain.User{}, dbpkg.Classify(err)
	}

	return u, nil
}
