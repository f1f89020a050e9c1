package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrUserNotFound indicates the the user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists indicates that the user with the given id already exists.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrAccountNumberAlreadyExists indicates that the public account number is taken.
	ErrAccountNumberAlreadyExists = errors.New("account number already exists")
)

// User links an identity provider subject to its public account number.
type User struct {
	ID            string    `json:"id"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// NormalizeAccountNumber strips whitespace and upper cases a public account number.
func NormalizeAccountNumber(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// Enrollment is the result of registering a user with the bank.
type Enrollment struct {
	User    User    `json:"user"`
	Account Account `json:"account"`
}
