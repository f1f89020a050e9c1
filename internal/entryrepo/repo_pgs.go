// Package entryrepo manages repository layer of entries.
package entryrepo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
)

// RepoPGS facilitates entry repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns entry RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const createQuery = `
INSERT INTO
    entries (account_id, transaction_id, amount)
VALUES
    ($1, $2, $3)
RETURNING id, account_id, transaction_id, amount, created_at
`

// Create creates the entry and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateEntryParams) (domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, arg.AccountID, arg.TransactionID, arg.Amount)

	var e domain.Entry

	err := row.Scan(
		&e.ID,
		&e.AccountID,
		&e.TransactionID,
		&e.Amount,
		&e.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "entries_account_id_fkey":
				return domain.Entry{}, domain.ErrAccountNotFound
			case "entries_transaction_id_fkey":
				return domain.Entry{}, domain.ErrTransactionNotFound
			}
		}

		return domain.Entry{}, dbpkg.Classify(err)
	}

	return e, nil
}

const listByTransactionQuery = `
SELECT id, account_id, transaction_id, amount, created_at
FROM entries
WHERE transaction_id = $1
ORDER BY id
`

// ListByTransaction returns the entries written by the settlement of the given transaction.
func (r *RepoPGS) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByTransactionQuery, transactionID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, dbpkg.Classify(err)
	}
	defer rows.Close()

	return scanEntries(ctx, rows)
}

func scanEntries(ctx context.Context, rows *sql.Rows) ([]domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	items := []domain.Entry{}

	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.TransactionID,
			&e.Amount,
			&e.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, dbpkg.Classify(err)
		}

		items = append(items, e)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, dbpkg.Classify(err)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, dbpkg.Classify(err)
	}

	return items, nil
}
