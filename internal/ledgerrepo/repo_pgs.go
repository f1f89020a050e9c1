// Package ledgerrepo implements the balance mutation shared by confirmed transfers and standing orders.
package ledgerrepo

import (
	"bytes"
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/accountrepo"
	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/internal/entryrepo"
	"github.com/go-petr/sca-bank/internal/userrepo"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
)

// RepoPGS facilitates ledger repository layer logic.
//
// It must be built over a *sql.Tx: Settle relies on row locks held until commit.
type RepoPGS struct {
	accounts *accountrepo.RepoPGS
	entries  *entryrepo.RepoPGS
	users    *userrepo.RepoPGS
}

// NewRepoPGS returns ledger RepoPGS scoped to the given transaction.
func NewRepoPGS(tx dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		accounts: accountrepo.NewRepoPGS(tx),
		entries:  entryrepo.NewRepoPGS(tx),
		users:    userrepo.NewRepoPGS(tx),
	}
}

// Settle moves arg.Amount from the source account to the recipient.
//
// Both account rows are locked in id order and the source balance is re-read
// under the lock. ErrInsufficientFunds, ErrRecipientUnresolved and
// ErrSameAccount are returned before anything is written, so the caller may
// still record the failure in the same transaction.
func (r *RepoPGS) Settle(ctx context.Context, arg domain.SettleParams) (domain.SettleResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.SettleResult

	toAccountID, err := r.resolve(ctx, arg.Recipient)
	if err != nil {
		return result, err
	}

	// An external account number may resolve back to the source account.
	if toAccountID == arg.FromAccountID {
		l.Info().
			Str("account_id", arg.FromAccountID.String()).
			Str("transaction_id", arg.TransactionID.String()).
			Msg("recipient resolved to source account")

		return result, domain.ErrSameAccount
	}

	fromAccount, toAccount, err := r.lockAccounts(ctx, arg.FromAccountID, toAccountID)
	if err != nil {
		return result, err
	}

	if fromAccount.Balance.LessThan(arg.Amount) {
		l.Info().
			Str("account_id", fromAccount.ID.String()).
			Str("transaction_id", arg.TransactionID.String()).
			Msg("insufficient funds at settlement")

		return result, domain.ErrInsufficientFunds
	}

	result.FromAccount, err = r.accounts.AddBalance(ctx, arg.Amount.Neg(), fromAccount.ID)
	if err != nil {
		return result, err
	}

	result.ToAccount, err = r.accounts.AddBalance(ctx, arg.Amount, toAccount.ID)
	if err != nil {
		return result, err
	}

	result.FromEntry, err = r.entries.Create(ctx, domain.CreateEntryParams{
		AccountID:     fromAccount.ID,
		TransactionID: arg.TransactionID,
		Amount:        arg.Amount.Neg(),
	})
	if err != nil {
		return result, err
	}

	result.ToEntry, err = r.entries.Create(ctx, domain.CreateEntryParams{
		AccountID:     toAccount.ID,
		TransactionID: arg.TransactionID,
		Amount:        arg.Amount,
	})
	if err != nil {
		return result, err
	}

	return result, nil
}

// resolve returns the id of the account to credit.
//
// External recipients land on the default account of the user owning the public account number.
func (r *RepoPGS) resolve(ctx context.Context, recipient domain.Recipient) (uuid.UUID, error) {
	if recipient.Type == domain.RecipientTypeInternal {
		return recipient.AccountID, nil
	}

	user, err := r.users.GetByAccountNumber(ctx, recipient.AccountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return uuid.Nil, domain.ErrRecipientUnresolved
		}

		return uuid.Nil, err
	}

	account, err := r.accounts.GetDefault(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return uuid.Nil, domain.ErrRecipientUnresolved
		}

		return uuid.Nil, err
	}

	return account.ID, nil
}

// lockAccounts locks two distinct accounts in a consistent order to avoid deadlocks.
func (r *RepoPGS) lockAccounts(ctx context.Context, fromID, toID uuid.UUID) (domain.Account, domain.Account, error) {
	firstID, secondID := fromID, toID
	if bytes.Compare(toID[:], fromID[:]) < 0 {
		firstID, secondID = toID, fromID
	}

	first, err := r.lockAccount(ctx, firstID, toID)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	second, err := r.lockAccount(ctx, secondID, toID)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	if first.ID == fromID {
		return first, second, nil
	}

	return second, first, nil
}

func (r *RepoPGS) lockAccount(ctx context.Context, id, toID uuid.UUID) (domain.Account, error) {
	a, err := r.accounts.GetForUpdate(ctx, id)
	if err != nil && id == toID && errors.Is(err, domain.ErrAccountNotFound) {
		return a, domain.ErrRecipientUnresolved
	}

	return a, err
}
