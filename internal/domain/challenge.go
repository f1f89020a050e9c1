package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sca-bank/pkg/moneypkg"
)

// MaxTANAttempts is the number of wrong codes a challenge tolerates before it locks.
const MaxTANAttempts = 3

var (
	// ErrChallengeNotFound indicates that the challenge is not found.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeUsed indicates that the challenge was already consumed.
	ErrChallengeUsed = errors.New("challenge already used")
	// ErrChallengeExpired indicates that the challenge is past its expiry.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrChallengeLocked indicates that the attempt limit was reached.
	ErrChallengeLocked = errors.New("challenge locked after too many attempts")
	// ErrChallengeCancelled indicates that the challenge was cancelled.
	ErrChallengeCancelled = errors.New("challenge cancelled")
	// ErrChallengeNotPending indicates an operation that requires a pending challenge.
	ErrChallengeNotPending = errors.New("challenge is not pending")
	// ErrDynamicLinkMismatch indicates that transaction details differ from the ones the code was issued for.
	ErrDynamicLinkMismatch = errors.New("transaction details do not match the challenge")
	// ErrWrongCode indicates an incorrect TAN.
	ErrWrongCode = errors.New("wrong code")
	// ErrInvalidTANType indicates unknown TAN type.
	ErrInvalidTANType = errors.New("invalid tan type")
)

// TANType is the out of band channel the code is delivered through.
type TANType string

// Supported TAN types.
const (
	TANTypePush  TANType = "pushTAN"
	TANTypePhoto TANType = "photoTAN"
	TANTypeChip  TANType = "chipTAN"
)

// Valid reports whether t is a supported TAN type.
func (t TANType) Valid() bool {
	switch t {
	case TANTypePush, TANTypePhoto, TANTypeChip:
		return true
	}

	return false
}

// ChallengeStatus is the persisted state of a TANChallenge.
type ChallengeStatus string

// Challenge statuses. Everything but PENDING is terminal.
const (
	ChallengeStatusPending   ChallengeStatus = "PENDING"
	ChallengeStatusUsed      ChallengeStatus = "USED"
	ChallengeStatusExpired   ChallengeStatus = "EXPIRED"
	ChallengeStatusLocked    ChallengeStatus = "LOCKED"
	ChallengeStatusCancelled ChallengeStatus = "CANCELLED"
)

// Err returns the error reported when a challenge in status s is validated.
func (s ChallengeStatus) Err() error {
	switch s {
	case ChallengeStatusPending:
		return nil
	case ChallengeStatusUsed:
		return ErrChallengeUsed
	case ChallengeStatusExpired:
		return ErrChallengeExpired
	case ChallengeStatusLocked:
		return ErrChallengeLocked
	case ChallengeStatusCancelled:
		return ErrChallengeCancelled
	}

	return ErrChallengeNotPending
}

// TANChallenge is a one time code bound to a single pending transaction.
type TANChallenge struct {
	ID            uuid.UUID       `json:"id"`
	UserID        string          `json:"user_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          TANType         `json:"tan_type"`
	CodeHash      string          `json:"-"`
	DynamicLink   string          `json:"-"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Status        ChallengeStatus `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	UsedAt        *time.Time      `json:"used_at,omitempty"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
}

// DynamicLink binds a code to the transaction id, amount and recipient.
//
// The amount is rendered with two decimals so equal amounts always link equally.
func DynamicLink(transactionID uuid.UUID, amount decimal.Decimal, recipient string) string {
	data := fmt.Sprintf("%s:%s:%s", transactionID, moneypkg.Canonical(amount), recipient)
	sum := sha256.Sum256([]byte(data))

	return hex.EncodeToString(sum[:])
}

// CreateChallengeParams is the input data to issue a challenge.
type CreateChallengeParams struct {
	UserID        string
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	Recipient     string
	Type          TANType
}

// CreateChallengeRecord is what the challenge store persists on issuance.
type CreateChallengeRecord struct {
	UserID        string
	TransactionID uuid.UUID
	Type          TANType
	CodeHash      string
	DynamicLink   string
	ExpiresAt     time.Time
}

// ChallengeInfo is the non secret challenge metadata handed to the client.
type ChallengeInfo struct {
	ID        uuid.UUID       `json:"challenge_id"`
	Type      TANType         `json:"tan_type"`
	ExpiresAt time.Time       `json:"expires_at"`
	ExpiresIn int64           `json:"expires_in"`
	Amount    decimal.Decimal `json:"amount"`
	Recipient string          `json:"recipient"`
	DebugCode string          `json:"mock_tan,omitempty"`
}

// ValidateChallengeParams is the input data to consume a challenge.
//
// TransactionID, Amount and Recipient must come from the stored transaction.
type ValidateChallengeParams struct {
	ChallengeID   uuid.UUID
	Code          string
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	Recipient     string
}

// WrongCodeError is returned for an incorrect code while attempts remain.
type WrongCodeError struct {
	Remaining int
}

func (e *WrongCodeError) Error() string {
	return fmt.Sprintf("wrong code, %d attempts remaining", e.Remaining)
}

// Is makes errors.Is(err, ErrWrongCode) hold.
func (e *WrongCodeError) Is(target error) bool {
	return target == ErrWrongCode
}
