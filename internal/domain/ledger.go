package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettleParams is the input of the atomic debit and credit primitive.
type SettleParams struct {
	TransactionID uuid.UUID
	FromAccountID uuid.UUID
	Amount        decimal.Decimal
	Recipient     Recipient
}

// SettleResult is the result of a committed settlement.
type SettleResult struct {
	FromAccount Account `json:"from_account"`
	ToAccount   Account `json:"to_account"`
	FromEntry   Entry   `json:"from_entry"`
	ToEntry     Entry   `json:"to_entry"`
}
