package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sca-bank/pkg/moneypkg"
)

var (
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionNotPending indicates that the transaction already reached a terminal status.
	ErrTransactionNotPending = errors.New("transaction is not pending authentication")
	// ErrInvalidOwner indicates that the user does not own the account or transaction.
	ErrInvalidOwner = errors.New("unauthorized owner")
	// ErrInvalidAmount indicates a malformed amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNonPositiveAmount indicates zero or negative amount.
	ErrNonPositiveAmount = errors.New("amount must be positive")
	// ErrInsufficientFunds indicates that the account does not have sufficient balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidRecipient indicates a malformed recipient descriptor.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrSameAccount indicates a transfer whose source and destination are the same account.
	ErrSameAccount = errors.New("source and destination accounts must differ")
	// ErrRecipientUnresolved indicates that no account could be credited for the recipient.
	ErrRecipientUnresolved = errors.New("recipient could not be resolved")
)

// TransactionStatus is the persisted state of a Transaction.
type TransactionStatus string

// Transaction statuses. Everything but PENDING_SCA is terminal.
const (
	TransactionStatusPendingSCA TransactionStatus = "PENDING_SCA"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
)

// FailureReason explains why a transaction ended FAILED.
type FailureReason string

// Failure reasons recorded by settlement.
const (
	FailureReasonNone                     FailureReason = ""
	FailureReasonInsufficientFundsChanged FailureReason = "INSUFFICIENT_FUNDS_CHANGED"
	FailureReasonRecipientUnresolved      FailureReason = "RECIPIENT_UNRESOLVED"
	FailureReasonSameAccount              FailureReason = "SAME_ACCOUNT"
	// FailureReasonExecutionError is recorded when settlement broke off after the
	// code was consumed and the transaction can no longer be confirmed.
	FailureReasonExecutionError FailureReason = "EXECUTION_ERROR"
)

// FailureReasonOf returns the reason recorded for a settlement error.
func FailureReasonOf(err error) FailureReason {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return FailureReasonInsufficientFundsChanged
	case errors.Is(err, ErrRecipientUnresolved):
		return FailureReasonRecipientUnresolved
	case errors.Is(err, ErrSameAccount):
		return FailureReasonSameAccount
	}

	return FailureReasonNone
}

// ParseAmount parses a positive money amount with at most two decimals.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := moneypkg.ParseAmount(s)

	switch {
	case errors.Is(err, moneypkg.ErrNonPositiveAmount):
		return decimal.Zero, ErrNonPositiveAmount
	case err != nil:
		return decimal.Zero, ErrInvalidAmount
	}

	return d, nil
}

// RecipientType tells how the destination of a transfer is addressed.
type RecipientType string

// Recipient types.
const (
	RecipientTypeInternal RecipientType = "internal"
	RecipientTypeExternal RecipientType = "external"
)

// Recipient is the destination of a transfer.
//
// Internal recipients are addressed by account id, external ones by public account number.
type Recipient struct {
	Type          RecipientType `json:"type"`
	AccountID     uuid.UUID     `json:"account_id"`
	AccountNumber string        `json:"account_number,omitempty"`
}

// Identifier returns the value the recipient is bound by in a dynamic link.
func (r Recipient) Identifier() string {
	if r.Type == RecipientTypeExternal {
		return r.AccountNumber
	}

	return r.AccountID.String()
}

// Validate checks that the descriptor is complete for its type.
func (r Recipient) Validate() error {
	switch r.Type {
	case RecipientTypeInternal:
		if r.AccountID == uuid.Nil {
			return ErrInvalidRecipient
		}
	case RecipientTypeExternal:
		if r.AccountNumber == "" {
			return ErrInvalidRecipient
		}
	default:
		return ErrInvalidRecipient
	}

	return nil
}

// Transaction holds a money movement from an owned account to a recipient.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	OwnerID         string            `json:"owner_id"`
	FromAccountID   uuid.UUID         `json:"from_account_id"`
	Amount          decimal.Decimal   `json:"amount"` // must be positive
	Recipient       Recipient         `json:"recipient"`
	Reference       string            `json:"reference"`
	Status          TransactionStatus `json:"status"`
	FailureReason   FailureReason     `json:"failure_reason,omitempty"`
	StandingOrderID uuid.NullUUID     `json:"standing_order_id"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the transaction can no longer change.
func (t Transaction) IsTerminal() bool {
	return t.Status != TransactionStatusPendingSCA
}

// CreateTransactionParams holds data needed for Transaction creation.
type CreateTransactionParams struct {
	OwnerID         string
	FromAccountID   uuid.UUID
	Amount          decimal.Decimal
	Recipient       Recipient
	Reference       string
	Status          TransactionStatus
	FailureReason   FailureReason
	StandingOrderID uuid.NullUUID
	CompletedAt     *time.Time
}

// InitiateTransferParams is the input data to start a transfer.
type InitiateTransferParams struct {
	FromAccountID uuid.UUID `json:"from_account_id"`
	Amount        string    `json:"amount"`
	Recipient     Recipient `json:"recipient"`
	Reference     string    `json:"reference"`
	TANType       TANType   `json:"tan_type"`
}

// InitiateResult is returned to the client after a transfer was initiated.
type InitiateResult struct {
	Transaction Transaction   `json:"transaction"`
	Challenge   ChallengeInfo `json:"challenge"`
}

// ConfirmTransferParams is the input data to confirm a pending transfer.
type ConfirmTransferParams struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	ChallengeID   uuid.UUID `json:"challenge_id"`
	Code          string    `json:"code"`
}
