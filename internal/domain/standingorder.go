package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrStandingOrderNotFound indicates that the standing order is not found.
	ErrStandingOrderNotFound = errors.New("standing order not found")
	// ErrStandingOrderNotActive indicates an operation that requires an active standing order.
	ErrStandingOrderNotActive = errors.New("standing order is not active")
	// ErrInvalidFrequency indicates unknown frequency.
	ErrInvalidFrequency = errors.New("invalid frequency")
	// ErrInvalidExecutionDay indicates execution day outside of 1..31.
	ErrInvalidExecutionDay = errors.New("execution day must be between 1 and 31")
	// ErrEndBeforeStart indicates an end date before the start date.
	ErrEndBeforeStart = errors.New("end date must not be before start date")
	// ErrLeaseNotAcquired indicates that another scheduler instance holds the order.
	ErrLeaseNotAcquired = errors.New("standing order is claimed by another scheduler")
)

// Frequency is how often a standing order runs.
type Frequency string

// Supported frequencies.
const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}

	return false
}

// StandingOrderStatus is the persisted state of a StandingOrder.
type StandingOrderStatus string

// Standing order statuses.
const (
	StandingOrderStatusActive    StandingOrderStatus = "ACTIVE"
	StandingOrderStatusCancelled StandingOrderStatus = "CANCELLED"
	StandingOrderStatusCompleted StandingOrderStatus = "COMPLETED"
)

// DefaultExecutionDay is used when no execution day is given.
const DefaultExecutionDay = 1

// StandingOrder is a pre-authorized recurring transfer between two accounts.
type StandingOrder struct {
	ID            uuid.UUID           `json:"id"`
	OwnerID       string              `json:"owner_id"`
	FromAccountID uuid.UUID           `json:"from_account_id"`
	ToAccountID   uuid.UUID           `json:"to_account_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Reference     string              `json:"reference"`
	Frequency     Frequency           `json:"frequency"`
	StartDate     time.Time           `json:"start_date"`
	EndDate       *time.Time          `json:"end_date,omitempty"`
	ExecutionDay  int                 `json:"execution_day"`
	Status        StandingOrderStatus `json:"status"`
	NextExecution time.Time           `json:"next_execution"`
	LastExecuted  *time.Time          `json:"last_executed,omitempty"`
	LastFailedFor *time.Time          `json:"last_failed_for,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
}

// FailedCurrentOccurrence reports whether a FAILED run was already recorded for NextExecution.
func (o StandingOrder) FailedCurrentOccurrence() bool {
	return o.LastFailedFor != nil && o.LastFailedFor.Format(time.DateOnly) == o.NextExecution.Format(time.DateOnly)
}

// CreateStandingOrderParams is the input data to create a standing order.
type CreateStandingOrderParams struct {
	FromAccountID uuid.UUID  `json:"from_account_id"`
	ToAccountID   uuid.UUID  `json:"to_account_id"`
	Amount        string     `json:"amount"`
	Reference     string     `json:"reference"`
	Frequency     Frequency  `json:"frequency"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	ExecutionDay  int        `json:"execution_day"`
}

// CreateStandingOrderRecord is what the standing order store persists on creation.
type CreateStandingOrderRecord struct {
	OwnerID       string
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	Reference     string
	Frequency     Frequency
	StartDate     time.Time
	EndDate       *time.Time
	ExecutionDay  int
	NextExecution time.Time
}

// ClaimStandingOrderParams is the input data to lease a due order to one scheduler instance.
type ClaimStandingOrderParams struct {
	ID         uuid.UUID
	LeaseOwner string
	AsOf       time.Time
	Now        time.Time
	Until      time.Time
}

// ExecuteStandingOrderParams is the input data to run a claimed order.
//
// NextExecution and NextStatus are applied only when the settlement commits.
type ExecuteStandingOrderParams struct {
	Order         StandingOrder
	LeaseOwner    string
	Now           time.Time
	NextExecution time.Time
	NextStatus    StandingOrderStatus
}

// StandingOrderRun is the outcome of executing one due standing order.
type StandingOrderRun struct {
	OrderID       uuid.UUID           `json:"order_id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	Status        TransactionStatus   `json:"status"`
	FailureReason FailureReason       `json:"failure_reason,omitempty"`
	NextExecution time.Time           `json:"next_execution"`
	OrderStatus   StandingOrderStatus `json:"order_status"`
	// Lapsed is set when a failed occurrence was given up without another attempt.
	Lapsed bool `json:"lapsed,omitempty"`
}

// RunSummary aggregates a RunDue pass.
type RunSummary struct {
	Due       int `json:"due"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Lapsed    int `json:"lapsed"`
	Errored   int `json:"errored"`
}
