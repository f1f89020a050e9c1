// Package standingorderrepo manages repository layer of standing orders.
package standingorderrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/internal/ledgerrepo"
	"github.com/go-petr/sca-bank/internal/transferrepo"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
)

// RepoPGS facilitates standing order repository layer logic.
type RepoPGS struct {
	db     dbpkg.SQLInterface
	runner *dbpkg.TxRunner
}

// NewRepoPGS returns standing order RepoPGS.
func NewRepoPGS(runner *dbpkg.TxRunner) *RepoPGS {
	return &RepoPGS{
		db:     runner.Conn(),
		runner: runner,
	}
}

// dateArg renders t as a DATE literal so the session time zone cannot shift it.
func dateArg(t time.Time) string {
	return t.Format(time.DateOnly)
}

func nullDateArg(t *time.Time) *string {
	if t == nil {
		return nil
	}

	s := dateArg(*t)

	return &s
}

const orderColumns = `
    id, owner_id, from_account_id, to_account_id, amount, reference, frequency,
    start_date, end_date, execution_day, status, next_execution, last_executed,
    created_at, cancelled_at, last_failed_for`

func scanOrder(row interface{ Scan(...any) error }) (domain.StandingOrder, error) {
	var o domain.StandingOrder

	err := row.Scan(
		&o.ID,
		&o.OwnerID,
		&o.FromAccountID,
		&o.ToAccountID,
		&o.Amount,
		&o.Reference,
		&o.Frequency,
		&o.StartDate,
		&o.EndDate,
		&o.ExecutionDay,
		&o.Status,
		&o.NextExecution,
		&o.LastExecuted,
		&o.CreatedAt,
		&o.CancelledAt,
		&o.LastFailedFor,
	)

	return o, err
}

func scanOrders(ctx context.Context, rows *sql.Rows) ([]domain.StandingOrder, error) {
	l := zerolog.Ctx(ctx)

	items := []domain.StandingOrder{}

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, dbpkg.Classify(err)
		}

		items = append(items, o)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, dbpkg.Classify(err)
	}

	return items, nil
}

const createQuery = `
INSERT INTO standing_orders (
    id, owner_id, from_account_id, to_account_id, amount, reference, frequency,
    start_date, end_date, execution_day, next_execution
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
) RETURNING` + orderColumns

// Create creates an ACTIVE standing order and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateStandingOrderRecord) (domain.StandingOrder, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		uuid.New(),
		arg.OwnerID,
		arg.FromAccountID,
		arg.ToAccountID,
		arg.Amount,
		arg.Reference,
		arg.Frequency,
		dateArg(arg.StartDate),
		nullDateArg(arg.EndDate),
		arg.ExecutionDay,
		dateArg(arg.NextExecution),
	)

	o, err := scanOrder(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "standing_orders_owner_id_fkey":
				return domain.StandingOrder{}, domain.ErrOwnerNotFound
			case "standing_orders_from_account_id_fkey", "standing_orders_to_account_id_fkey":
				return domain.StandingOrder{}, domain.ErrAccountNotFound
			case "standing_orders_amount_check":
				return domain.StandingOrder{}, domain.ErrNonPositiveAmount
			case "standing_orders_frequency_check":
				return domain.StandingOrder{}, domain.ErrInvalidFrequency
			case "standing_orders_execution_day_check":
				return domain.StandingOrder{}, domain.ErrInvalidExecutionDay
			case "standing_orders_dates_check":
				return domain.StandingOrder{}, domain.ErrEndBeforeStart
			}
		}

		return domain.StandingOrder{}, dbpkg.Classify(err)
	}

	return o, nil
}

const getQuery = `
SELECT` + orderColumns + `
FROM standing_orders
WHERE id = $1
`

// Get returns the standing order with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.StandingOrder, error) {
	return get(ctx, r.db, id)
}

func get(ctx context.Context, db dbpkg.SQLInterface, id uuid.UUID) (domain.StandingOrder, error) {
	l := zerolog.Ctx(ctx)

	o, err := scanOrder(db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.StandingOrder{}, domain.ErrStandingOrderNotFound
		}

		l.Error().Err(err).Send()

		return domain.StandingOrder{}, dbpkg.Classify(err)
	}

	return o, nil
}

const listByOwnerQuery = `
SELECT` + orderColumns + `
FROM standing_orders
WHERE owner_id = $1
ORDER BY created_at DESC, id
`

// ListByOwner returns all standing orders of the owner, newest first.
func (r *RepoPGS) ListByOwner(ctx context.Context, ownerID string) ([]domain.StandingOrder, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByOwnerQuery, ownerID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, dbpkg.Classify(err)
	}
	defer rows.Close()

	return scanOrders(ctx, rows)
}

const listDueQuery = `
SELECT` + orderColumns + `
FROM standing_orders
WHERE status = 'ACTIVE' AND next_execution <= $1 AND id > $2
ORDER BY id
LIMIT $3
`

// ListDue returns up to limit ACTIVE orders due on asOf with ids greater than afterID.
func (r *RepoPGS) ListDue(ctx context.Context, asOf time.Time, afterID uuid.UUID, limit int) ([]domain.StandingOrder, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listDueQuery, dateArg(asOf), afterID, limit)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, dbpkg.Classify(err)
	}
	defer rows.Close()

	return scanOrders(ctx, rows)
}

const cancelQuery = `
UPDATE standing_orders
SET status = 'CANCELLED', cancelled_at = $2, lease_owner = NULL, lease_expires_at = NULL
WHERE id = $1 AND status = 'ACTIVE'
RETURNING` + orderColumns

// Cancel moves an ACTIVE standing order to CANCELLED.
func (r *RepoPGS) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (domain.StandingOrder, error) {
	l := zerolog.Ctx(ctx)

	o, err := scanOrder(r.db.QueryRowContext(ctx, cancelQuery, id, at))
	if err != nil {
		if err == sql.ErrNoRows {
			if _, getErr := r.Get(ctx, id); getErr != nil {
				return domain.StandingOrder{}, getErr
			}

			return domain.StandingOrder{}, domain.ErrStandingOrderNotActive
		}

		l.Error().Err(err).Send()

		return domain.StandingOrder{}, dbpkg.Classify(err)
	}

	return o, nil
}

const claimQuery = `
UPDATE standing_orders
SET lease_owner = $2, lease_expires_at = $5
WHERE id = $1
  AND status = 'ACTIVE'
  AND next_execution <= $3
  AND (lease_expires_at IS NULL OR lease_expires_at < $4 OR lease_owner = $2)
RETURNING` + orderColumns

// Claim leases a due order to arg.LeaseOwner until arg.Until.
//
// It fails with ErrLeaseNotAcquired when the order is no longer due, no longer
// active or leased to another live scheduler instance.
func (r *RepoPGS) Claim(ctx context.Context, arg domain.ClaimStandingOrderParams) (domain.StandingOrder, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, claimQuery, arg.ID, arg.LeaseOwner, dateArg(arg.AsOf), arg.Now, arg.Until)

	o, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.StandingOrder{}, domain.ErrLeaseNotAcquired
		}

		l.Error().Err(err).Send()

		return domain.StandingOrder{}, dbpkg.Classify(err)
	}

	return o, nil
}

const releaseQuery = `
UPDATE standing_orders
SET lease_owner = NULL, lease_expires_at = NULL
WHERE id = $1 AND lease_owner = $2
`

// Release drops the lease held by leaseOwner, if any.
func (r *RepoPGS) Release(ctx context.Context, id uuid.UUID, leaseOwner string) error {
	return release(ctx, r.db, id, leaseOwner)
}

func release(ctx context.Context, db dbpkg.SQLInterface, id uuid.UUID, leaseOwner string) error {
	l := zerolog.Ctx(ctx)

	if _, err := db.ExecContext(ctx, releaseQuery, id, leaseOwner); err != nil {
		l.Error().Err(err).Send()
		return dbpkg.Classify(err)
	}

	return nil
}

const lockClaimedQuery = `
SELECT COALESCE(last_failed_for = next_execution, false)
FROM standing_orders
WHERE id = $1 AND status = 'ACTIVE' AND lease_owner = $2 AND next_execution = $3
FOR UPDATE
`

const markFailedQuery = `
UPDATE standing_orders
SET last_failed_for = next_execution, lease_owner = NULL, lease_expires_at = NULL
WHERE id = $1
`

// errFailureRecorded rolls back a retry of an occurrence whose failure is already on record.
var errFailureRecorded = errors.New("failure already recorded for occurrence")

const advanceQuery = `
UPDATE standing_orders
SET next_execution = $2, last_executed = $3, status = $4,
    lease_owner = NULL, lease_expires_at = NULL
WHERE id = $1
RETURNING` + orderColumns

// Execute runs a claimed order in a single database transaction.
//
// The order row must still be ACTIVE, leased to arg.LeaseOwner and due on the
// claimed date. A transaction record tagged with the order id is written in
// the same database transaction as the settlement. On success the order is
// advanced to arg.NextExecution and arg.NextStatus; when the settlement fails
// with insufficient funds or an unresolved recipient the lease is dropped and
// next_execution is left as is. Only the first failure of an occurrence leaves
// a FAILED record; later retries of the same occurrence roll back and return a
// run without a transaction id. The settlement error is returned alongside the
// run in both cases.
func (r *RepoPGS) Execute(ctx context.Context, arg domain.ExecuteStandingOrderParams) (domain.StandingOrderRun, error) {
	l := zerolog.Ctx(ctx).With().Str("standing_order_id", arg.Order.ID.String()).Logger()

	var (
		run       domain.StandingOrderRun
		settleErr error
	)

	err := r.runner.ExecTx(ctx, func(tx *sql.Tx) error {
		settleErr = nil

		var failedBefore bool

		err := tx.QueryRowContext(ctx, lockClaimedQuery, arg.Order.ID, arg.LeaseOwner, dateArg(arg.Order.NextExecution)).Scan(&failedBefore)
		if err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrLeaseNotAcquired
			}

			l.Error().Err(err).Send()

			return dbpkg.Classify(err)
		}

		txRepo := transferrepo.NewTxRepoPGS(tx)

		record, err := txRepo.Create(ctx, domain.CreateTransactionParams{
			OwnerID:       arg.Order.OwnerID,
			FromAccountID: arg.Order.FromAccountID,
			Amount:        arg.Order.Amount,
			Recipient: domain.Recipient{
				Type:      domain.RecipientTypeInternal,
				AccountID: arg.Order.ToAccountID,
			},
			Reference:       arg.Order.Reference,
			Status:          domain.TransactionStatusPendingSCA,
			StandingOrderID: uuid.NullUUID{UUID: arg.Order.ID, Valid: true},
		})
		if err != nil {
			return err
		}

		_, err = ledgerrepo.NewRepoPGS(tx).Settle(ctx, domain.SettleParams{
			TransactionID: record.ID,
			FromAccountID: record.FromAccountID,
			Amount:        record.Amount,
			Recipient:     record.Recipient,
		})

		reason := domain.FailureReasonOf(err)

		switch {
		case err == nil:
			record, err = txRepo.Finish(ctx, record.ID, domain.TransactionStatusCompleted, domain.FailureReasonNone, arg.Now)
			if err != nil {
				return err
			}

			o, err := scanOrder(tx.QueryRowContext(ctx, advanceQuery,
				arg.Order.ID, dateArg(arg.NextExecution), arg.Now, arg.NextStatus))
			if err != nil {
				l.Error().Err(err).Send()
				return dbpkg.Classify(err)
			}

			run = domain.StandingOrderRun{
				OrderID:       o.ID,
				TransactionID: record.ID,
				Status:        record.Status,
				NextExecution: o.NextExecution,
				OrderStatus:   o.Status,
			}

			return nil
		case reason != domain.FailureReasonNone:
			settleErr = err

			if failedBefore {
				return errFailureRecorded
			}

			record, err = txRepo.Finish(ctx, record.ID, domain.TransactionStatusFailed, reason, arg.Now)
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, markFailedQuery, arg.Order.ID); err != nil {
				l.Error().Err(err).Send()
				return dbpkg.Classify(err)
			}

			run = domain.StandingOrderRun{
				OrderID:       arg.Order.ID,
				TransactionID: record.ID,
				Status:        record.Status,
				FailureReason: record.FailureReason,
				NextExecution: arg.Order.NextExecution,
				OrderStatus:   arg.Order.Status,
			}

			return nil
		}

		return err
	})
	if errors.Is(err, errFailureRecorded) {
		if err := release(ctx, r.db, arg.Order.ID, arg.LeaseOwner); err != nil {
			return domain.StandingOrderRun{}, err
		}

		return domain.StandingOrderRun{
			OrderID:       arg.Order.ID,
			Status:        domain.TransactionStatusFailed,
			FailureReason: domain.FailureReasonOf(settleErr),
			NextExecution: arg.Order.NextExecution,
			OrderStatus:   arg.Order.Status,
		}, settleErr
	}

	if err != nil {
		if !errors.Is(err, domain.ErrLeaseNotAcquired) {
			l.Error().Err(err).Msg("standing order execution rolled back")
		}

		return domain.StandingOrderRun{}, err
	}

	return run, settleErr
}

const lapseQuery = `
UPDATE standing_orders
SET next_execution = $4, status = $5, lease_owner = NULL, lease_expires_at = NULL
WHERE id = $1 AND status = 'ACTIVE' AND lease_owner = $2 AND next_execution = $3
  AND last_failed_for = next_execution
RETURNING` + orderColumns

// Lapse moves a claimed order past an occurrence that already failed, without
// another settlement attempt, to arg.NextExecution and arg.NextStatus.
//
// It fails with ErrLeaseNotAcquired when the order is not leased to
// arg.LeaseOwner, has moved on, or has no failure recorded for the occurrence.
func (r *RepoPGS) Lapse(ctx context.Context, arg domain.ExecuteStandingOrderParams) (domain.StandingOrder, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, lapseQuery, arg.Order.ID, arg.LeaseOwner,
		dateArg(arg.Order.NextExecution), dateArg(arg.NextExecution), arg.NextStatus)

	o, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.StandingOrder{}, domain.ErrLeaseNotAcquired
		}

		l.Error().Err(err).Send()

		return domain.StandingOrder{}, dbpkg.Classify(err)
	}

	return o, nil
}
