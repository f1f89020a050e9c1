// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/go-petr/sca-bank/internal/domain"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo) *Service {
	return &Service{repo: ar}
}

// Create creates and returns an empty account of the given type for the owner.
func (s *Service) Create(ctx context.Context, ownerID string, accountType domain.AccountType) (domain.Account, error) {
	if !accountType.Valid() {
		return domain.Account{}, domain.ErrInvalidAccountType
	}

	return s.repo.Create(ctx, domain.CreateAccountParams{
		OwnerID: ownerID,
		Type:    accountType,
	})
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return account, err
	}

	return account, nil
}

// GetOwned returns the account only when it belongs to ownerID.
func (s *Service) GetOwned(ctx context.Context, ownerID string, id uuid.UUID) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	if account.OwnerID != ownerID {
		return domain.Account{}, domain.ErrInvalidOwner
	}

	return account, nil
}
