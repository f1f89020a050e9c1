//go:build integration

package transferrepo_test

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/go-petr/sca-bank/internal/accountrepo"
	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/internal/entryrepo"
	"github.com/go-petr/sca-bank/internal/integrationtest"
	"github.com/go-petr/sca-bank/internal/integrationtest/helpers"
	"github.com/go-petr/sca-bank/internal/transferrepo"
	"github.com/go-petr/sca-bank/pkg/configpkg"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	dbDriver string
	dbSource string
	ctx      context.Context
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load(integrationtest.ConfigPath)
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource
	ctx = integrationtest.Context()

	os.Exit(m.Run())
}

var cmpTransaction = []cmp.Option{
	cmpopts.IgnoreFields(domain.Transaction{}, "ID", "CreatedAt"),
	cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) }),
}

func TestCreate(t *testing.T) {
	testCases := []struct {
		name    string
		arg     func(tx *sql.Tx) domain.CreateTransactionParams
		wantErr error
	}{
		{
			name: "Internal",
			arg: func(tx *sql.Tx) domain.CreateTransactionParams {
				user := helpers.SeedUser(t, tx)
				from := helpers.SeedCheckingAccount(t, tx, user.ID, "100")
				to := helpers.SeedAccount(t, tx, user.ID, domain.AccountTypeSavings, "0")

				return domain.CreateTransactionParams{
					OwnerID:       user.ID,
					FromAccountID: from.ID,
					Amount:        decimal.RequireFromString("12.34"),
					Recipient:     domain.Recipient{Type: domain.RecipientTypeInternal, AccountID: to.ID},
					Reference:     "rent",
					Status:        domain.TransactionStatusPendingSCA,
				}
			},
		},
		{
			name: "External",
			arg: func(tx *sql.Tx) domain.CreateTransactionParams {
				user := helpers.SeedUser(t, tx)
				from := helpers.SeedCheckingAccount(t, tx, user.ID, "100")

				return domain.CreateTransactionParams{
					OwnerID:       user.ID,
					FromAccountID: from.ID,
					Amount:        decimal.RequireFromString("1"),
					Recipient:     domain.Recipient{Type: domain.RecipientTypeExternal, AccountNumber: "DE00123456780000000000"},
					Status:        domain.TransactionStatusPendingSCA,
				}
			},
		},
		{
			name: "FromAccountNotFound",
			arg: func(tx *sql.Tx) domain.CreateTransactionParams {
				user := helpers.SeedUser(t, tx)
				to := helpers.SeedCheckingAccount(t, tx, user.ID, "0")

				return domain.CreateTransactionParams{
					OwnerID:       user.ID,
					FromAccountID: uuid.New(),
					Amount:        decimal.RequireFromString("1"),
					Recipient:     domain.Recipient{Type: domain.RecipientTypeInternal, AccountID: to.ID},
					Status:        domain.TransactionStatusPendingSCA,
				}
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "ToAccountNotFound",
			arg: func(tx *sql.Tx) domain.CreateTransactionParams {
				user := helpers.SeedUser(t, tx)
				from := helpers.SeedCheckingAccount(t, tx, user.ID, "100")

				return domain.CreateTransactionParams{
					OwnerID:       user.ID,
					FromAccountID: from.ID,
					Amount:        decimal.RequireFromString("1"),
					Recipient:     domain.Recipient{Type: domain.RecipientTypeInternal, AccountID: uuid.New()},
					Status:        domain.TransactionStatusPendingSCA,
				}
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "NonPositiveAmount",
			arg: func(tx *sql.Tx) domain.CreateTransactionParams {
				user := helpers.SeedUser(t, tx)
				from := helpers.SeedCheckingAccount(t, tx, user.ID, "100")
				to := helpers.SeedAccount(t, tx, user.ID, domain.AccountTypeSavings, "0")

				return domain.CreateTransactionParams{
					OwnerID:       user.ID,
					FromAccountID: from.ID,
					Amount:        decimal.Zero,
					Recipient:     domain.Recipient{Type: domain.RecipientTypeInternal, AccountID: to.ID},
					Status:        domain.TransactionStatusPendingSCA,
				}
			},
			wantErr: domain.ErrNonPositiveAmount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			repo := transferrepo.NewTxRepoPGS(tx)

			arg := tc.arg(tx)

			got, err := repo.Create(ctx, arg)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("repo.Create(ctx, %+v) returned error: %v, want %v", arg, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			want := domain.Transaction{
				OwnerID:       arg.OwnerID,
				FromAccountID: arg.FromAccountID,
				Amount:        arg.Amount,
				Recipient:     arg.Recipient,
				Reference:     arg.Reference,
				Status:        arg.Status,
			}

			if diff := cmp.Diff(want, got, cmpTransaction...); diff != "" {
				t.Errorf("repo.Create(ctx, %+v) returned unexpected difference (-want +got):\n%s", arg, diff)
			}

			stored, err := repo.Get(ctx, got.ID)
			if err != nil {
				t.Fatalf("repo.Get(ctx, %v) returned error: %v", got.ID, err)
			}

			if diff := cmp.Diff(got, stored, cmpTransaction...); diff != "" {
				t.Errorf("repo.Get(ctx, %v) returned unexpected difference (-want +got):\n%s", got.ID, diff)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)

	id := uuid.New()

	_, err := transferrepo.NewTxRepoPGS(tx).Get(ctx, id)
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("repo.Get(ctx, %v) returned error: %v, want %v", id, err, domain.ErrTransactionNotFound)
	}
}

func TestDelete(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	repo := transferrepo.NewTxRepoPGS(tx)

	user := helpers.SeedUser(t, tx)
	from := helpers.SeedCheckingAccount(t, tx, user.ID, "100")
	to := helpers.SeedAccount(t, tx, user.ID, domain.AccountTypeSavings, "0")

	pending := helpers.SeedPendingTransfer(t, tx, from, to, "5")
	cancelled := helpers.SeedPendingTransfer(t, tx, from, to, "5")

	if _, err := repo.Cancel(ctx, cancelled.ID); err != nil {
		t.Fatalf("repo.Cancel(ctx, %v) returned error: %v", cancelled.ID, err)
	}

	if err := repo.Delete(ctx, pending.ID); err != nil {
		t.Fatalf("repo.Delete(ctx, %v) returned error: %v", pending.ID, err)
	}

	if _, err := repo.Get(ctx, pending.ID); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("repo.Get(ctx, %v) after delete returned error: %v, want %v", pending.ID, err, domain.ErrTransactionNotFound)
	}

	if err := repo.Delete(ctx, cancelled.ID); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("repo.Delete(ctx, %v) of a terminal transaction returned error: %v, want %v", cancelled.ID, err, domain.ErrTransactionNotFound)
	}
}

func TestFinish(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	repo := transferrepo.NewTxRepoPGS(tx)

	user := helpers.SeedUser(t, tx)
	from := helpers.SeedCheckingAccount(t, tx, user.ID, "100")
	to := helpers.SeedAccount(t, tx, user.ID, domain.AccountTypeSavings, "0")

	pending := helpers.SeedPendingTransfer(t, tx, from, to, "5")

	got, err := repo.Cancel(ctx, pending.ID)
	if err != nil {
		t.Fatalf("repo.Cancel(ctx, %v) returned error: %v", pending.ID, err)
	}

	if got.Status != domain.TransactionStatusCancelled || got.CompletedAt == nil {
		t.Errorf("repo.Cancel(ctx, %v) = status %s completed_at %v, want CANCELLED with completed_at", pending.ID, got.Status, got.CompletedAt)
	}

	_, err = repo.Cancel(ctx, pending.ID)
	if !errors.Is(err, domain.ErrTransactionNotPending) {
		t.Errorf("second repo.Cancel(ctx, %v) returned error: %v, want %v", pending.ID, err, domain.ErrTransactionNotPending)
	}

	missing := uuid.New()

	_, err = repo.Cancel(ctx, missing)
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("repo.Cancel(ctx, %v) returned error: %v, want %v", missing, err, domain.ErrTransactionNotFound)
	}
}

func TestFail(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	repo := transferrepo.NewTxRepoPGS(tx)

	user := helpers.SeedUser(t, tx)
	from := helpers.SeedCheckingAccount(t, tx, user.ID, "100")
	to := helpers.SeedAccount(t, tx, user.ID, domain.AccountTypeSavings, "0")

	pending := helpers.SeedPendingTransfer(t, tx, from, to, "5")

	got, err := repo.Fail(ctx, pending.ID, domain.FailureReasonExecutionError)
	if err != nil {
		t.Fatalf("repo.Fail(ctx, %v) returned error: %v", pending.ID, err)
	}

	if got.Status != domain.TransactionStatusFailed || got.FailureReason != domain.FailureReasonExecutionError {
		t.Errorf("repo.Fail(ctx, %v) = %s/%s, want FAILED/%s", pending.ID, got.Status, got.FailureReason, domain.FailureReasonExecutionError)
	}

	assertBalance(t, accountrepo.NewRepoPGS(tx), from.ID, "100")

	if _, err := repo.Fail(ctx, pending.ID, domain.FailureReasonExecutionError); !errors.Is(err, domain.ErrTransactionNotPending) {
		t.Errorf("second repo.Fail(ctx, %v) returned error: %v, want %v", pending.ID, err, domain.ErrTransactionNotPending)
	}
}

func TestExecute(t *testing.T) {
	testCases := []struct {
		name          string
		balance       string
		amount        string
		external      string
		ownNumber     bool
		finishFirst   bool
		wantErr       error
		wantStatus    domain.TransactionStatus
		wantReason    domain.FailureReason
		wantFromAfter string
		wantToAfter   string
		wantEntries   int
	}{
		{
			name:          "Completed",
			balance:       "100",
			amount:        "30",
			wantStatus:    domain.TransactionStatusCompleted,
			wantFromAfter: "70",
			wantToAfter:   "30",
			wantEntries:   2,
		},
		{
			name:          "InsufficientFundsRecordsFailure",
			balance:       "10",
			amount:        "30",
			wantErr:       domain.ErrInsufficientFunds,
			wantStatus:    domain.TransactionStatusFailed,
			wantReason:    domain.FailureReasonInsufficientFundsChanged,
			wantFromAfter: "10",
			wantToAfter:   "0",
		},
		{
			name:          "UnresolvedRecipientRecordsFailure",
			balance:       "100",
			amount:        "30",
			external:      "ZZ00000000000000000000",
			wantErr:       domain.ErrRecipientUnresolved,
			wantStatus:    domain.TransactionStatusFailed,
			wantReason:    domain.FailureReasonRecipientUnresolved,
			wantFromAfter: "100",
			wantToAfter:   "0",
		},
		{
			name:          "OwnAccountNumberRecordsFailure",
			balance:       "100",
			amount:        "30",
			ownNumber:     true,
			wantErr:       domain.ErrSameAccount,
			wantStatus:    domain.TransactionStatusFailed,
			wantReason:    domain.FailureReasonSameAccount,
			wantFromAfter: "100",
			wantToAfter:   "0",
		},
		{
			name:          "AlreadyTerminal",
			balance:       "100",
			amount:        "30",
			finishFirst:   true,
			wantErr:       domain.ErrTransactionNotPending,
			wantStatus:    domain.TransactionStatusCancelled,
			wantFromAfter: "100",
			wantToAfter:   "0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := integrationtest.SetupDB(t, dbDriver, dbSource)
			repo := transferrepo.NewRepoPGS(dbpkg.NewTxRunner(db, 3))

			user := helpers.SeedUser(t, db)
			from := helpers.SeedCheckingAccount(t, db, user.ID, tc.balance)
			to := helpers.SeedAccount(t, db, user.ID, domain.AccountTypeSavings, "0")

			var pending domain.Transaction
			switch {
			case tc.ownNumber:
				pending = seedExternalTransfer(t, db, from, tc.amount, user.AccountNumber)
			case tc.external != "":
				pending = seedExternalTransfer(t, db, from, tc.amount, tc.external)
			default:
				pending = helpers.SeedPendingTransfer(t, db, from, to, tc.amount)
			}

			if tc.finishFirst {
				if _, err := repo.Cancel(ctx, pending.ID); err != nil {
					t.Fatalf("repo.Cancel(ctx, %v) returned error: %v", pending.ID, err)
				}
			}

			got, result, err := repo.Execute(ctx, pending.ID)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("repo.Execute(ctx, %v) returned error: %v, want %v", pending.ID, err, tc.wantErr)
			}

			stored, getErr := repo.Get(ctx, pending.ID)
			if getErr != nil {
				t.Fatalf("repo.Get(ctx, %v) returned error: %v", pending.ID, getErr)
			}

			if stored.Status != tc.wantStatus || stored.FailureReason != tc.wantReason {
				t.Errorf("stored status = %s/%q, want %s/%q", stored.Status, stored.FailureReason, tc.wantStatus, tc.wantReason)
			}

			if !errors.Is(tc.wantErr, domain.ErrTransactionNotPending) && got.Status != tc.wantStatus {
				t.Errorf("returned status = %s, want %s", got.Status, tc.wantStatus)
			}

			if tc.wantStatus == domain.TransactionStatusCompleted {
				if stored.CompletedAt == nil {
					t.Errorf("completed transaction has no completed_at")
				}

				if !result.FromAccount.Balance.Equal(decimal.RequireFromString(tc.wantFromAfter)) {
					t.Errorf("result from balance = %s, want %s", result.FromAccount.Balance, tc.wantFromAfter)
				}
			}

			accounts := accountrepo.NewRepoPGS(db)
			assertBalance(t, accounts, from.ID, tc.wantFromAfter)
			assertBalance(t, accounts, to.ID, tc.wantToAfter)

			entries, err := entryrepo.NewRepoPGS(db).ListByTransaction(ctx, pending.ID)
			if err != nil {
				t.Fatalf("ListByTransaction(ctx, %v) returned error: %v", pending.ID, err)
			}

			if len(entries) != tc.wantEntries {
				t.Errorf("got %d entries, want %d", len(entries), tc.wantEntries)
			}
		})
	}
}

func TestExecuteConcurrentConfirmations(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	repo := transferrepo.NewRepoPGS(dbpkg.NewTxRunner(db, 3))

	user := helpers.SeedUser(t, db)
	from := helpers.SeedCheckingAccount(t, db, user.ID, "100")
	to := helpers.SeedAccount(t, db, user.ID, domain.AccountTypeSavings, "0")
	pending := helpers.SeedPendingTransfer(t, db, from, to, "60")

	const n = 5

	errs := make(chan error, n)

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _, err := repo.Execute(ctx, pending.ID)
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	var succeeded int

	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrTransactionNotPending):
		default:
			t.Errorf("repo.Execute(ctx, %v) returned unexpected error: %v", pending.ID, err)
		}
	}

	if succeeded != 1 {
		t.Errorf("%d executions succeeded, want exactly 1", succeeded)
	}

	accounts := accountrepo.NewRepoPGS(db)
	assertBalance(t, accounts, from.ID, "40")
	assertBalance(t, accounts, to.ID, "60")
}

func TestExecuteOpposingTransfersDoNotDeadlock(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	repo := transferrepo.NewRepoPGS(dbpkg.NewTxRunner(db, 3))

	user1 := helpers.SeedUser(t, db)
	account1 := helpers.SeedCheckingAccount(t, db, user1.ID, "1000")
	user2 := helpers.SeedUser(t, db)
	account2 := helpers.SeedCheckingAccount(t, db, user2.ID, "1000")

	const n = 10

	ids := make([]uuid.UUID, 0, n)

	for i := range n {
		from, to := account1, account2
		if i%2 == 1 {
			from, to = account2, account1
		}

		ids = append(ids, helpers.SeedPendingTransfer(t, db, from, to, "10").ID)
	}

	errs := make(chan error, n)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)

		go func(id uuid.UUID) {
			defer wg.Done()

			_, _, err := repo.Execute(ctx, id)
			errs <- err
		}(id)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("repo.Execute returned error: %v", err)
		}
	}

	accounts := accountrepo.NewRepoPGS(db)
	assertBalance(t, accounts, account1.ID, "1000")
	assertBalance(t, accounts, account2.ID, "1000")
}

func seedExternalTransfer(t *testing.T, db dbpkg.SQLInterface, from domain.Account, amount, accountNumber string) domain.Transaction {
	t.Helper()

	arg := domain.CreateTransactionParams{
		OwnerID:       from.OwnerID,
		FromAccountID: from.ID,
		Amount:        decimal.RequireFromString(amount),
		Recipient:     domain.Recipient{Type: domain.RecipientTypeExternal, AccountNumber: accountNumber},
		Status:        domain.TransactionStatusPendingSCA,
	}

	transaction, err := transferrepo.NewTxRepoPGS(db).Create(ctx, arg)
	if err != nil {
		t.Fatalf("repo.Create(ctx, %+v) returned error: %v", arg, err)
	}

	return transaction
}

func assertBalance(t *testing.T, repo *accountrepo.RepoPGS, id uuid.UUID, want string) {
	t.Helper()

	account, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("accountRepo.Get(ctx, %v) returned error: %v", id, err)
	}

	if w := decimal.RequireFromString(want); !account.Balance.Equal(w) {
		t.Errorf("balance of %v = %s, want %s", id, account.Balance, w)
	}
}
