// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrOwnerNotFound indicates that the owner for the account is not found.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrInvalidAccountType indicates unknown account type.
	ErrInvalidAccountType = errors.New("invalid account type")
)

// AccountType distinguishes the products a user can hold.
type AccountType string

// Supported account types.
const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeInvestment AccountType = "investment"
)

// Valid reports whether t is a supported account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeInvestment:
		return true
	}

	return false
}

// Account holds user balance data.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateAccountParams holds data needed for Account creation.
type CreateAccountParams struct {
	OwnerID string
	Type    AccountType
	Balance decimal.Decimal
}
