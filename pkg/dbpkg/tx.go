package dbpkg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-petr/sca-bank/pkg/errorspkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// DefaultTxRetries is the number of retries ExecTx performs after a transient failure.
const DefaultTxRetries = 3

// SQLSTATE codes that indicate a conflicting concurrent transaction.
var transientCodes = map[pq.ErrorCode]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// IsTransient reports whether err is a store fault worth retrying.
func IsTransient(err error) bool {
	if errors.Is(err, errorspkg.ErrTransientStorage) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		_, ok := transientCodes[pqErr.Code]
		return ok
	}

	return false
}

// Classify maps a store error that no repository recognized.
//
// Transient failures stay retryable as errorspkg.ErrTransientStorage, everything
// else becomes errorspkg.ErrInternal.
func Classify(err error) error {
	if IsTransient(err) {
		if errors.Is(err, errorspkg.ErrTransientStorage) {
			return err
		}

		return fmt.Errorf("%w: %v", errorspkg.ErrTransientStorage, err)
	}

	return errorspkg.ErrInternal
}

// TxRunner runs functions inside database transactions and retries them on transient failures.
type TxRunner struct {
	conn    *sql.DB
	retries uint64
	backoff func() backoff.BackOff
}

// NewTxRunner returns TxRunner over the given connection retrying up to retries times.
func NewTxRunner(conn *sql.DB, retries int) *TxRunner {
	if retries < 0 {
		retries = 0
	}

	return &TxRunner{
		conn:    conn,
		retries: uint64(retries),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 20 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 0

			return b
		},
	}
}

// Conn returns the underlying connection pool.
func (r *TxRunner) Conn() *sql.DB {
	return r.conn
}

// ExecTx executes fn within a database transaction.
//
// fn may run several times, so it must not have side effects outside of tx.
// Transient failures are retried with exponential backoff; when the retries are
// exhausted errorspkg.ErrTransientStorage is returned. Any other error returned
// by fn rolls the transaction back and is returned as is.
func (r *TxRunner) ExecTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	l := zerolog.Ctx(ctx)

	var fnErr error

	op := func() error {
		err := execTx(ctx, r.conn, fn)
		if err == nil {
			return nil
		}

		if IsTransient(err) {
			l.Warn().Err(err).Msg("transient storage error, retrying")
			return err
		}

		fnErr = err

		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.backoff(), r.retries), ctx)

	err := backoff.Retry(op, b)
	if err == nil {
		return nil
	}

	if fnErr != nil {
		return fnErr
	}

	l.Error().Err(err).Msg("storage retries exhausted")

	return Classify(err)
}

func execTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w, rb err: %v", err, rbErr)
		}

		return err
	}

	return tx.Commit()
}
