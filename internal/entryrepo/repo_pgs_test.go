//go:build integration

package entryrepo_test

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/internal/entryrepo"
	"github.com/go-petr/sca-bank/internal/integrationtest"
	"github.com/go-petr/sca-bank/internal/integrationtest/helpers"
	"github.com/go-petr/sca-bank/pkg/configpkg"
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

var cmpEntry = []cmp.Option{
	cmpopts.IgnoreFields(domain.Entry{}, "ID", "CreatedAt"),
	cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) }),
}

func TestCreate(t *testing.T) {
	testCases := []struct {
		name    string
		arg     func(tx *sql.Tx) domain.CreateEntryParams
		wantErr error
	}{
		{
			name: "OK",
			arg: func(tx *sql.Tx) domain.CreateEntryParams {
				from, to := seedAccounts(t, tx)
				transaction := helpers.SeedPendingTransfer(t, tx, from, to, "10")

				return domain.CreateEntryParams{
					AccountID:     from.ID,
					TransactionID: transaction.ID,
					Amount:        decimal.RequireFromString("-10"),
				}
			},
		},
		{
			name: "AccountNotFound",
			arg: func(tx *sql.Tx) domain.CreateEntryParams {
				from, to := seedAccounts(t, tx)
				transaction := helpers.SeedPendingTransfer(t, tx, from, to, "10")

				return domain.CreateEntryParams{
					AccountID:     uuid.New(),
					TransactionID: transaction.ID,
					Amount:        decimal.RequireFromString("10"),
				}
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "TransactionNotFound",
			arg: func(tx *sql.Tx) domain.CreateEntryParams {
				from, _ := seedAccounts(t, tx)

				return domain.CreateEntryParams{
					AccountID:     from.ID,
					TransactionID: uuid.New(),
					Amount:        decimal.RequireFromString("10"),
				}
			},
			wantErr: domain.ErrTransactionNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			repo := entryrepo.NewRepoPGS(tx)

			arg := tc.arg(tx)

			got, err := repo.Create(ctx, arg)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("repo.Create(ctx, %+v) returned error: %v, want %v", arg, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			want := domain.Entry{
				AccountID:     arg.AccountID,
				TransactionID: arg.TransactionID,
				Amount:        arg.Amount,
			}

			if diff := cmp.Diff(want, got, cmpEntry...); diff != "" {
				t.Errorf("repo.Create(ctx, %+v) returned unexpected difference (-want +got):\n%s", arg, diff)
			}

			if got.ID == 0 {
				t.Errorf("repo.Create(ctx, %+v) returned zero entry id", arg)
			}
		})
	}
}

func TestListByTransaction(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	repo := entryrepo.NewRepoPGS(tx)

	from, to := seedAccounts(t, tx)
	transaction := helpers.SeedPendingTransfer(t, tx, from, to, "25.50")
	other := helpers.SeedPendingTransfer(t, tx, from, to, "1")

	want := []domain.Entry{
		{AccountID: from.ID, TransactionID: transaction.ID, Amount: decimal.RequireFromString("-25.50")},
		{AccountID: to.ID, TransactionID: transaction.ID, Amount: decimal.RequireFromString("25.50")},
	}

	for _, e := range want {
		if _, err := repo.Create(ctx, domain.CreateEntryParams{
			AccountID:     e.AccountID,
			TransactionID: e.TransactionID,
			Amount:        e.Amount,
		}); err != nil {
			t.Fatalf("repo.Create(ctx, %+v) returned error: %v", e, err)
		}
	}

	got, err := repo.ListByTransaction(ctx, transaction.ID)
	if err != nil {
		t.Fatalf("repo.ListByTransaction(ctx, %v) returned error: %v", transaction.ID, err)
	}

	if diff := cmp.Diff(want, got, cmpEntry...); diff != "" {
		t.Errorf("repo.ListByTransaction(ctx, %v) returned unexpected difference (-want +got):\n%s", transaction.ID, diff)
	}

	got, err = repo.ListByTransaction(ctx, other.ID)
	if err != nil {
		t.Fatalf("repo.ListByTransaction(ctx, %v) returned error: %v", other.ID, err)
	}

	if got == nil || len(got) != 0 {
		t.Errorf("repo.ListByTransaction(ctx, %v) = %v, want empty slice", other.ID, got)
	}
}

func seedAccounts(t *testing.T, tx *sql.Tx) (domain.Account, domain.Account) {
	t.Helper()

	user := helpers.SeedUser(t, tx)
	from := helpers.SeedCheckingAccount(t, tx, user.ID, "1000")
	to := helpers.SeedAccount(t, tx, user.ID, domain.AccountTypeSavings, "0")

	return from, to
}
