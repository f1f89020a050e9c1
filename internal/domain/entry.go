package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry holds balance change data for an account.
type Entry struct {
	ID            int64           `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"` // can be negative or positive
	CreatedAt     time.Time       `json:"created_at"`
}

// CreateEntryParams holds data needed for Entry creation.
type CreateEntryParams struct {
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Amount        decimal.Decimal
}
