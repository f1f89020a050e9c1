// Package challengerepo manages repository layer of TAN challenges.
package challengerepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
)

// RepoPGS facilitates challenge repository layer logic.
type RepoPGS struct {
	db     dbpkg.SQLInterface
	runner *dbpkg.TxRunner
}

// NewRepoPGS returns challenge RepoPGS.
func NewRepoPGS(runner *dbpkg.TxRunner) *RepoPGS {
	return &RepoPGS{
		db:     runner.Conn(),
		runner: runner,
	}
}

const challengeColumns = `
    id, user_id, transaction_id, tan_type, code_hash, dynamic_link, expires_at,
    status, attempts, created_at, used_at, cancelled_at`

func scanChallenge(row interface{ Scan(...any) error }) (domain.TANChallenge, error) {
	var c domain.TANChallenge

	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.TransactionID,
		&c.Type,
		&c.CodeHash,
		&c.DynamicLink,
		&c.ExpiresAt,
		&c.Status,
		&c.Attempts,
		&c.CreatedAt,
		&c.UsedAt,
		&c.CancelledAt,
	)

	return c, err
}

const createQuery = `
INSERT INTO tan_challenges (
    id, user_id, transaction_id, tan_type, code_hash, dynamic_link, expires_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7
) RETURNING` + challengeColumns

// Create stores a new PENDING challenge and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateChallengeRecord) (domain.TANChallenge, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		uuid.New(),
		arg.UserID,
		arg.TransactionID,
		arg.Type,
		arg.CodeHash,
		arg.DynamicLink,
		arg.ExpiresAt,
	)

	c, err := scanChallenge(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "tan_challenges_user_id_fkey":
				return domain.TANChallenge{}, domain.ErrUserNotFound
			case "tan_challenges_transaction_id_fkey":
				return domain.TANChallenge{}, domain.ErrTransactionNotFound
			case "tan_challenges_tan_type_check":
				return domain.TANChallenge{}, domain.ErrInvalidTANType
			}
		}

		return domain.TANChallenge{}, dbpkg.Classify(err)
	}

	return c, nil
}

const getQuery = `
SELECT` + challengeColumns + `
FROM tan_challenges
WHERE id = $1
`

// Get returns the challenge with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.TANChallenge, error) {
	return get(ctx, r.db, getQuery, id)
}

const getForUpdateQuery = getQuery + `FOR UPDATE`

func get(ctx context.Context, db dbpkg.SQLInterface, query string, id uuid.UUID) (domain.TANChallenge, error) {
	l := zerolog.Ctx(ctx)

	c, err := scanChallenge(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.TANChallenge{}, domain.ErrChallengeNotFound
		}

		l.Error().Err(err).Send()

		return domain.TANChallenge{}, dbpkg.Classify(err)
	}

	return c, nil
}

const saveQuery = `
UPDATE tan_challenges
SET status = $2, attempts = $3, used_at = $4, cancelled_at = $5
WHERE id = $1
`

// Update locks the challenge, lets fn change it and persists the result.
//
// The mutable fields (status, attempts, used_at, cancelled_at) are written
// even when fn returns an error, so a failed check can record its own
// transition. fn's error is returned after the commit.
func (r *RepoPGS) Update(ctx context.Context, id uuid.UUID, fn func(c *domain.TANChallenge) error) (domain.TANChallenge, error) {
	l := zerolog.Ctx(ctx)

	var (
		c     domain.TANChallenge
		fnErr error
	)

	err := r.runner.ExecTx(ctx, func(tx *sql.Tx) error {
		var err error

		c, err = get(ctx, tx, getForUpdateQuery, id)
		if err != nil {
			return err
		}

		before := c
		fnErr = fn(&c)

		if c.Status == before.Status && c.Attempts == before.Attempts {
			return nil
		}

		_, err = tx.ExecContext(ctx, saveQuery, c.ID, c.Status, c.Attempts, c.UsedAt, c.CancelledAt)
		if err != nil {
			l.Error().Err(err).Send()
			return dbpkg.Classify(err)
		}

		return nil
	})
	if err != nil {
		return domain.TANChallenge{}, err
	}

	return c, fnErr
}

const cancelForTransactionQuery = `
UPDATE tan_challenges
SET status = 'CANCELLED', cancelled_at = $2
WHERE transaction_id = $1 AND status = 'PENDING'
`

// CancelForTransaction cancels every pending challenge issued for the transaction.
func (r *RepoPGS) CancelForTransaction(ctx context.Context, transactionID uuid.UUID, at time.Time) (int64, error) {
	return r.exec(ctx, cancelForTransactionQuery, transactionID, at)
}

const expirePendingQuery = `
UPDATE tan_challenges
SET status = 'EXPIRED'
WHERE status = 'PENDING' AND expires_at < $1
`

// ExpirePending moves every pending challenge past its expiry to EXPIRED.
func (r *RepoPGS) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, expirePendingQuery, now)
}

func (r *RepoPGS) exec(ctx context.Context, query string, args ...any) (int64, error) {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		l.Error().Err(err).Send()
		return 0, dbpkg.Classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return 0, dbpkg.Classify(err)
	}

	return n, nil
}
