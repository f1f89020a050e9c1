// Package transferservice manages business logic layer of transfers.
package transferservice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
)

// Repo provides data access layer interface needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
	Fail(ctx context.Context, id uuid.UUID, reason domain.FailureReason) (domain.Transaction, error)
	Execute(ctx context.Context, id uuid.UUID) (domain.Transaction, domain.SettleResult, error)
}

// AccountService provides account lookups needed by transfer service layer.
type AccountService interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Account, error)
	GetOwned(ctx context.Context, ownerID string, id uuid.UUID) (domain.Account, error)
}

// TANService provides challenge operations needed by transfer service layer.
type TANService interface {
	Create(ctx context.Context, arg domain.CreateChallengeParams) (domain.ChallengeInfo, error)
	Validate(ctx context.Context, arg domain.ValidateChallengeParams) error
	CancelForTransaction(ctx context.Context, transactionID uuid.UUID) error
}

// Service facilitates transfer service layer logic.
type Service struct {
	repo           Repo
	accountService AccountService
	tanService     TANService
}

// New return transfer service struct to manage transfer bussines logic.
func New(tr Repo, as AccountService, ts TANService) *Service {
	return &Service{
		repo:           tr,
		accountService: as,
		tanService:     ts,
	}
}

// Initiate validates the transfer, persists it as PENDING_SCA and issues a TAN challenge for it.
//
// The balance check here is advisory only, it is repeated under lock on confirmation.
func (s *Service) Initiate(ctx context.Context, ownerID string, arg domain.InitiateTransferParams) (domain.InitiateResult, error) {
	l := zerolog.Ctx(ctx)

	amount, err := domain.ParseAmount(arg.Amount)
	if err != nil {
		l.Info().Err(err).Str("amount", arg.Amount).Send()
		return domain.InitiateResult{}, err
	}

	tanType := arg.TANType
	if tanType == "" {
		tanType = domain.TANTypePush
	}

	if !tanType.Valid() {
		return domain.InitiateResult{}, domain.ErrInvalidTANType
	}

	recipient := arg.Recipient
	if recipient.Type == domain.RecipientTypeExternal {
		recipient.AccountID = uuid.Nil
		recipient.AccountNumber = domain.NormalizeAccountNumber(recipient.AccountNumber)
	} else if recipient.Type == domain.RecipientTypeInternal {
		recipient.AccountNumber = ""
	}

	if err := recipient.Validate(); err != nil {
		return domain.InitiateResult{}, err
	}

	fromAccount, err := s.accountService.GetOwned(ctx, ownerID, arg.FromAccountID)
	if err != nil {
		l.Info().Err(err).Str("from_account_id", arg.FromAccountID.String()).Send()
		return domain.InitiateResult{}, err
	}

	if recipient.Type == domain.RecipientTypeInternal {
		if recipient.AccountID == fromAccount.ID {
			return domain.InitiateResult{}, domain.ErrSameAccount
		}

		if _, err := s.accountService.Get(ctx, recipient.AccountID); err != nil {
			l.Info().Err(err).Str("to_account_id", recipient.AccountID.String()).Send()
			return domain.InitiateResult{}, err
		}
	}

	if fromAccount.Balance.LessThan(amount) {
		return domain.InitiateResult{}, domain.ErrInsufficientFunds
	}

	t, err := s.repo.Create(ctx, domain.CreateTransactionParams{
		OwnerID:       ownerID,
		FromAccountID: fromAccount.ID,
		Amount:        amount,
		Recipient:     recipient,
		Reference:     arg.Reference,
		Status:        domain.TransactionStatusPendingSCA,
	})
	if err != nil {
		return domain.InitiateResult{}, err
	}

	challenge, err := s.tanService.Create(ctx, domain.CreateChallengeParams{
		UserID:        ownerID,
		TransactionID: t.ID,
		Amount:        t.Amount,
		Recipient:     t.Recipient.Identifier(),
		Type:          tanType,
	})
	if err != nil {
		if delErr := s.repo.Delete(context.WithoutCancel(ctx), t.ID); delErr != nil {
			l.Error().Err(delErr).Str("transaction_id", t.ID.String()).Msg("failed to remove unchallenged transaction")
		}

		return domain.InitiateResult{}, err
	}

	l.Info().
		Str("transaction_id", t.ID.String()).
		Str("challenge_id", challenge.ID.String()).
		Msg("transfer initiated")

	return domain.InitiateResult{Transaction: t, Challenge: challenge}, nil
}

// Confirm validates the TAN against the stored transaction and settles it.
//
// When settlement fails on insufficient funds or an unresolved recipient the
// FAILED transaction is returned together with the error.
func (s *Service) Confirm(ctx context.Context, requesterID string, arg domain.ConfirmTransferParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := s.getOwned(ctx, requesterID, arg.TransactionID)
	if err != nil {
		return domain.Transaction{}, err
	}

	if t.IsTerminal() {
		return domain.Transaction{}, domain.ErrTransactionNotPending
	}

	err = s.tanService.Validate(ctx, domain.ValidateChallengeParams{
		ChallengeID:   arg.ChallengeID,
		Code:          arg.Code,
		TransactionID: t.ID,
		Amount:        t.Amount,
		Recipient:     t.Recipient.Identifier(),
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	// The code is consumed, so settlement must reach a terminal status even if the client goes away.
	settleCtx := context.WithoutCancel(ctx)

	t, _, err = s.repo.Execute(settleCtx, arg.TransactionID)
	if err != nil {
		l.Info().Err(err).Str("transaction_id", arg.TransactionID.String()).Msg("transfer not completed")

		if domain.FailureReasonOf(err) == domain.FailureReasonNone && !errors.Is(err, domain.ErrTransactionNotPending) {
			t = s.failAfterConsume(settleCtx, arg.TransactionID)
		}

		return t, err
	}

	l.Info().Str("transaction_id", t.ID.String()).Msg("transfer completed")

	return t, nil
}

// failAfterConsume records a settlement that rolled back after its TAN was used.
// The challenge cannot be validated again, so the transaction is closed as FAILED.
// It only applies while the transaction is still PENDING_SCA.
func (s *Service) failAfterConsume(ctx context.Context, id uuid.UUID) domain.Transaction {
	l := zerolog.Ctx(ctx)

	t, err := s.repo.Fail(ctx, id, domain.FailureReasonExecutionError)
	if err != nil {
		l.Error().Err(err).Str("transaction_id", id.String()).Msg("failed to close transfer after settlement error")
		return domain.Transaction{}
	}

	return t
}

// Cancel abandons a pending transfer and its challenge.
func (s *Service) Cancel(ctx context.Context, requesterID string, id uuid.UUID) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if _, err := s.getOwned(ctx, requesterID, id); err != nil {
		return domain.Transaction{}, err
	}

	t, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := s.tanService.CancelForTransaction(ctx, id); err != nil {
		l.Error().Err(err).Str("transaction_id", id.String()).Msg("failed to cancel challenge")
	}

	return t, nil
}

// Get returns the transfer when it belongs to the requester.
func (s *Service) Get(ctx context.Context, requesterID string, id uuid.UUID) (domain.Transaction, error) {
	return s.getOwned(ctx, requesterID, id)
}

func (s *Service) getOwned(ctx context.Context, requesterID string, id uuid.UUID) (domain.Transaction, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	if t.OwnerID != requesterID {
		zerolog.Ctx(ctx).Info().
			Str("transaction_id", id.String()).
			Str("requester_id", requesterID).
			Msg("transaction requested by non owner")

		return domain.Transaction{}, domain.ErrInvalidOwner
	}

	return t, nil
}
