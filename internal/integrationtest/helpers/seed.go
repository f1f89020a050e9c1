// Package helpers provides seeders for integration tests.
package helpers

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/go-petr/sca-bank/internal/accountrepo"
	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/internal/transferrepo"
	"github.com/go-petr/sca-bank/internal/userrepo"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
	"github.com/go-petr/sca-bank/pkg/randompkg"
)

// SeedUser creates a random enrolled user.
func SeedUser(t *testing.T, db dbpkg.SQLInterface) domain.User {
	t.Helper()

	id := randompkg.Owner() + "-" + randompkg.String(8)
	accountNumber := randompkg.AccountNumber()

	user, err := userrepo.NewRepoPGS(db).Create(context.Background(), id, accountNumber)
	if err != nil {
		t.Fatalf("userRepo.Create(ctx, %q, %q) returned error: %v", id, accountNumber, err)
	}

	return user
}

// SeedAccount creates an account of the given type and balance for the owner.
func SeedAccount(t *testing.T, db dbpkg.SQLInterface, ownerID string, accountType domain.AccountType, balance string) domain.Account {
	t.Helper()

	arg := domain.CreateAccountParams{
		OwnerID: ownerID,
		Type:    accountType,
		Balance: decimal.RequireFromString(balance),
	}

	account, err := accountrepo.NewRepoPGS(db).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("accountRepo.Create(ctx, %+v) returned error: %v", arg, err)
	}

	return account
}

// SeedCheckingAccount creates a checking account holding balance for the owner.
func SeedCheckingAccount(t *testing.T, db dbpkg.SQLInterface, ownerID, balance string) domain.Account {
	t.Helper()

	return SeedAccount(t, db, ownerID, domain.AccountTypeChecking, balance)
}

// SeedPendingTransfer creates a PENDING_SCA internal transfer between two accounts.
func SeedPendingTransfer(t *testing.T, db dbpkg.SQLInterface, from, to domain.Account, amount string) domain.Transaction {
	t.Helper()

	arg := domain.CreateTransactionParams{
		OwnerID:       from.OwnerID,
		FromAccountID: from.ID,
		Amount:        decimal.RequireFromString(amount),
		Recipient: domain.Recipient{
			Type:      domain.RecipientTypeInternal,
			AccountID: to.ID,
		},
		Status: domain.TransactionStatusPendingSCA,
	}

	transaction, err := transferrepo.NewTxRepoPGS(db).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("transferRepo.Create(ctx, %+v) returned error: %v", arg, err)
	}

	return transaction
}
