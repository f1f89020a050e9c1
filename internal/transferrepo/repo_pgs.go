// Package transferrepo manages repository layer of transfer transactions.
package transferrepo

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
	"github.com/go-petr/sca-bank/pkg/dbpkg"
	"github.com/go-petr/sca-bank/pkg/errorspkg"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db     dbpkg.SQLInterface
	runner *dbpkg.TxRunner
}

// NewTxRepoPGS returns transaction RepoPGS scoped to an open transaction.
//
// The returned repo cannot Execute, since Execute opens its own transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns transaction RepoPGS with a runner to start transactions.
func NewRepoPGS(runner *dbpkg.TxRunner) *RepoPGS {
	return &RepoPGS{
		db:     runner.Conn(),
		runner: runner,
	}
}

const transactionColumns = `
    id, owner_id, from_account_id, amount, recipient_type, to_account_id,
    recipient_account_number, reference, status, failure_reason,
    standing_order_id, created_at, completed_at`

func scanTransaction(row interface{ Scan(...any) error }) (domain.Transaction, error) {
	var (
		t           domain.Transaction
		toAccountID uuid.NullUUID
	)

	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.FromAccountID,
		&t.Amount,
		&t.Recipient.Type,
		&toAccountID,
		&t.Recipient.AccountNumber,
		&t.Reference,
		&t.Status,
		&t.FailureReason,
		&t.StandingOrderID,
		&t.CreatedAt,
		&t.CompletedAt,
	)

	t.Recipient.AccountID = toAccountID.UUID

	return t, err
}

const createQuery = `
INSERT INTO transactions (
    id, owner_id, from_account_id, amount, recipient_type, to_account_id,
    recipient_account_number, reference, status, failure_reason,
    standing_order_id, completed_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
) RETURNING` + transactionColumns

// Create creates the transaction and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	var toAccountID uuid.NullUUID
	if arg.Recipient.Type == domain.RecipientTypeInternal {
		toAccountID = uuid.NullUUID{UUID: arg.Recipient.AccountID, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, createQuery,
		uuid.New(),
		arg.OwnerID,
		arg.FromAccountID,
		arg.Amount,
		arg.Recipient.Type,
		toAccountID,
		arg.Recipient.AccountNumber,
		arg.Reference,
		arg.Status,
		arg.FailureReason,
		arg.StandingOrderID,
		arg.CompletedAt,
	)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transactions_owner_id_fkey":
				return domain.Transaction{}, domain.ErrOwnerNotFound
			case "transactions_from_account_id_fkey":
				return domain.Transaction{}, domain.ErrAccountNotFound
			case "transactions_to_account_id_fkey":
				return domain.Transaction{}, domain.ErrAccountNotFound
			case "transactions_standing_order_id_fkey":
				return domain.Transaction{}, domain.ErrStandingOrderNotFound
			case "transactions_amount_check":
				return domain.Transaction{}, domain.ErrNonPositiveAmount
			case "transactions_recipient_type_check":
				return domain.Transaction{}, domain.ErrInvalidRecipient
			}
		}

		return domain.Transaction{}, dbpkg.Classify(err)
	}

	return t, nil
}

const getQuery = `
SELECT` + transactionColumns + `
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return r.get(ctx, getQuery, id)
}

const getForUpdateQuery = getQuery + `FOR UPDATE`

func (r *RepoPGS) getForUpdate(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) get(ctx context.Context, query string, id uuid.UUID) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Transaction{}, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return domain.Transaction{}, dbpkg.Classify(err)
	}

	return t, nil
}

const deleteQuery = `
DELETE FROM transactions
WHERE id = $1 AND status = 'PENDING_SCA'
`

// Delete removes a pending transaction, used when no challenge could be issued for it.
func (r *RepoPGS) Delete(ctx context.Context, id uuid.UUID) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		l.Error().Err(err).Send()
		return dbpkg.Classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if n == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

const finishQuery = `
UPDATE transactions
SET status = $2, failure_reason = $3, completed_at = $4
WHERE id = $1 AND status = 'PENDING_SCA'
RETURNING` + transactionColumns

// Cancel moves a pending transaction to CANCELLED.
func (r *RepoPGS) Cancel(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return r.Finish(ctx, id, domain.TransactionStatusCancelled, domain.FailureReasonNone, time.Now())
}

// Fail moves a pending transaction to FAILED with reason, without touching balances.
func (r *RepoPGS) Fail(ctx context.Context, id uuid.UUID, reason domain.FailureReason) (domain.Transaction, error) {
	return r.Finish(ctx, id, domain.TransactionStatusFailed, reason, time.Now())
}

// Finish sets the terminal status of a pending transaction exactly once.
//
// It returns ErrTransactionNotPending when the transaction is already terminal.
func (r *RepoPGS) Finish(
	ctx context.Context,
	id uuid.UUID,
	status domain.TransactionStatus,
	reason domain.FailureReason,
	at time.Time,
) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, finishQuery, id, status, reason, at))
	if err != nil {
		if err == sql.ErrNoRows {
			if _, getErr := r.Get(ctx, id); getErr != nil {
				return domain.Transaction{}, getErr
			}

			return domain.Transaction{}, domain.ErrTransactionNotPending
		}

		l.Error().Err(err).Send()

		return domain.Transaction{}, dbpkg.Classify(err)
	}

	return t, nil
}

// Execute settles a pending transaction in a single database transaction.
//
// The transaction row is locked and must still be PENDING_SCA. When the
// settlement fails with insufficient funds or an unresolved recipient the
// transaction is committed as FAILED with the reason recorded, balances are
// untouched and the settlement error is returned alongside the failed
// transaction. Any other error rolls everything back.
func (r *RepoPGS) Execute(ctx context.Context, id uuid.UUID) (domain.Transaction, domain.SettleResult, error) {
	l := zerolog.Ctx(ctx)

	if r.runner == nil {
		l.Error().Msg("Execute called on a transaction scoped repo")
		return domain.Transaction{}, domain.SettleResult{}, errorspkg.ErrInternal
	}

	var (
		t         domain.Transaction
		result    domain.SettleResult
		settleErr error
	)

	err := r.runner.ExecTx(ctx, func(tx *sql.Tx) error {
		txRepo := NewTxRepoPGS(tx)
		settleErr = nil

		pending, err := txRepo.getForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if pending.IsTerminal() {
			return domain.ErrTransactionNotPending
		}

		result, err = ledgerrepo.NewRepoPGS(tx).Settle(ctx, domain.SettleParams{
			TransactionID: pending.ID,
			FromAccountID: pending.FromAccountID,
			Amount:        pending.Amount,
			Recipient:     pending.Recipient,
		})

		reason := domain.FailureReasonOf(err)

		switch {
		case err == nil:
			t, err = txRepo.Finish(ctx, id, domain.TransactionStatusCompleted, domain.FailureReasonNone, time.Now())
			return err
		case reason != domain.FailureReasonNone:
			settleErr = err
			result = domain.SettleResult{}
			t, err = txRepo.Finish(ctx, id, domain.TransactionStatusFailed, reason, time.Now())

			return err
		}

		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrTransactionNotPending) {
			l.Error().Err(err).Str("transaction_id", id.String()).Msg("settlement rolled back")
		}

		return domain.Transaction{}, domain.SettleResult{}, err
	}

	return t, result, settleErr
}
