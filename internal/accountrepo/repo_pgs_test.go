//go:build integration

package accountrepo_test

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sca-bank/internal/accountrepo"
	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/internal/integrationtest"
	"github.com/go-petr/sca-bank/internal/integrationtest/helpers"
	"github.com/go-petr/sca-bank/pkg/configpkg"
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

var cmpAccount = []cmp.Option{
	cmpopts.IgnoreFields(domain.Account{}, "ID", "CreatedAt"),
	cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) }),
}

func TestCreate(t *testing.T) {
	testCases := []struct {
		name    string
		arg     func(ownerID string) domain.CreateAccountParams
		wantErr error
	}{
		{
			name: "OK",
			arg: func(ownerID string) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					OwnerID: ownerID,
					Type:    domain.AccountTypeChecking,
					Balance: decimal.RequireFromString("250.50"),
				}
			},
		},
		{
			name: "OwnerNotFound",
			arg: func(string) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					OwnerID: "missing-" + uuid.NewString(),
					Type:    domain.AccountTypeChecking,
				}
			},
			wantErr: domain.ErrOwnerNotFound,
		},
		{
			name: "InvalidType",
			arg: func(ownerID string) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					OwnerID: ownerID,
					Type:    domain.AccountType("brokerage"),
				}
			},
			wantErr: domain.ErrInvalidAccountType,
		},
		{
			name: "NegativeBalance",
			arg: func(ownerID string) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					OwnerID: ownerID,
					Type:    domain.AccountTypeSavings,
					Balance: decimal.RequireFromString("-1"),
				}
			},
			wantErr: domain.ErrInsufficientFunds,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			repo := accountrepo.NewRepoPGS(tx)

			user := helpers.SeedUser(t, tx)
			arg := tc.arg(user.ID)

			got, err := repo.Create(ctx, arg)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("repo.Create(ctx, %+v) returned error: %v, want %v", arg, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			want := domain.Account{
				OwnerID: arg.OwnerID,
				Type:    arg.Type,
				Balance: arg.Balance,
			}

			if diff := cmp.Diff(want, got, cmpAccount...); diff != "" {
				t.Errorf("repo.Create(ctx, %+v) returned unexpected difference (-want +got):\n%s", arg, diff)
			}

			if got.ID == uuid.Nil {
				t.Errorf("repo.Create(ctx, %+v) returned nil account id", arg)
			}

			if d := time.Since(got.CreatedAt); d > time.Minute || d < -time.Minute {
				t.Errorf("CreatedAt = %v, want about now", got.CreatedAt)
			}
		})
	}
}

func TestGet(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	repo := accountrepo.NewRepoPGS(tx)

	user := helpers.SeedUser(t, tx)
	account := helpers.SeedCheckingAccount(t, tx, user.ID, "100")

	testCases := []struct {
		name    string
		id      uuid.UUID
		want    domain.Account
		wantErr error
	}{
		{
			name: "OK",
			id:   account.ID,
			want: account,
		},
		{
			name:    "NotFound",
			id:      uuid.New(),
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.Get(ctx, tc.id)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("repo.Get(ctx, %v) returned error: %v, want %v", tc.id, err, tc.wantErr)
			}

			opts := []cmp.Option{
				cmpopts.EquateApproxTime(time.Second),
				cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) }),
			}
			if diff := cmp.Diff(tc.want, got, opts...); diff != "" {
				t.Errorf("repo.Get(ctx, %v) returned unexpected difference (-want +got):\n%s", tc.id, diff)
			}
		})
	}
}

func TestGetDefault(t *testing.T) {
	// now() is fixed within a transaction, so the accounts are seeded outside one.
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	repo := accountrepo.NewRepoPGS(db)

	user := helpers.SeedUser(t, db)
	helpers.SeedAccount(t, db, user.ID, domain.AccountTypeSavings, "10")
	first := helpers.SeedCheckingAccount(t, db, user.ID, "20")
	time.Sleep(10 * time.Millisecond)
	helpers.SeedCheckingAccount(t, db, user.ID, "30")

	onlySavings := helpers.SeedUser(t, db)
	helpers.SeedAccount(t, db, onlySavings.ID, domain.AccountTypeSavings, "10")

	got, err := repo.GetDefault(ctx, user.ID)
	if err != nil {
		t.Fatalf("repo.GetDefault(ctx, %q) returned error: %v", user.ID, err)
	}

	if got.ID != first.ID {
		t.Errorf("repo.GetDefault(ctx, %q) = %v, want oldest checking account %v", user.ID, got.ID, first.ID)
	}

	_, err = repo.GetDefault(ctx, onlySavings.ID)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("repo.GetDefault(ctx, %q) returned error: %v, want %v", onlySavings.ID, err, domain.ErrAccountNotFound)
	}
}

func TestAddBalance(t *testing.T) {
	testCases := []struct {
		name        string
		amount      string
		missing     bool
		wantBalance string
		wantErr     error
	}{
		{
			name:        "Credit",
			amount:      "50.25",
			wantBalance: "150.25",
		},
		{
			name:        "DebitToZero",
			amount:      "-100",
			wantBalance: "0",
		},
		{
			name:    "Overdraft",
			amount:  "-100.01",
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name:    "NotFound",
			amount:  "1",
			missing: true,
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			repo := accountrepo.NewRepoPGS(tx)

			user := helpers.SeedUser(t, tx)
			account := helpers.SeedCheckingAccount(t, tx, user.ID, "100")

			id := account.ID
			if tc.missing {
				id = uuid.New()
			}

			got, err := repo.AddBalance(ctx, decimal.RequireFromString(tc.amount), id)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("repo.AddBalance(ctx, %s, %v) returned error: %v, want %v", tc.amount, id, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			if want := decimal.RequireFromString(tc.wantBalance); !got.Balance.Equal(want) {
				t.Errorf("balance = %s, want %s", got.Balance, want)
			}
		})
	}
}

func TestGetForUpdate(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)

	user := helpers.SeedUser(t, db)
	account := helpers.SeedCheckingAccount(t, db, user.ID, "100")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("db.BeginTx() returned error: %v", err)
	}
	defer tx.Rollback()

	got, err := accountrepo.NewRepoPGS(tx).GetForUpdate(ctx, account.ID)
	if err != nil {
		t.Fatalf("repo.GetForUpdate(ctx, %v) returned error: %v", account.ID, err)
	}

	if got.ID != account.ID {
		t.Errorf("repo.GetForUpdate(ctx, %v) returned account %v", account.ID, got.ID)
	}

	lockCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	_, err = accountrepo.NewRepoPGS(db).AddBalance(lockCtx, decimal.NewFromInt(1), account.ID)
	if err == nil {
		t.Errorf("AddBalance on a locked account succeeded while the lock was held")
	}
}
