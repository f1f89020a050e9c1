// Package userservice manages business logic layer of users.
package userservice

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/randompkg"
)

const accountNumberAttempts = 3

// Repo provides data access layer interface needed by user service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package userservice
type Repo interface {
	Create(ctx context.Context, id, accountNumber string) (domain.User, error)
}

// AccountService provides account creation needed by user service layer.
type AccountService interface {
	Create(ctx context.Context, ownerID string, accountType domain.AccountType) (domain.Account, error)
}

// Service facilitates user service layer logic.
type Service struct {
	repo           Repo
	accountService AccountService
}

// New return user service struct to manage user bussines logic.
func New(ur Repo, as AccountService) *Service {
	return &Service{
		repo:           ur,
		accountService: as,
	}
}

// Enroll registers the identity provider user under a fresh public account
// number and opens the checking account external transfers land on.
func (s *Service) Enroll(ctx context.Context, userID string) (domain.Enrollment, error) {
	l := zerolog.Ctx(ctx)

	var (
		user domain.User
		err  error
	)

	for range accountNumberAttempts {
		user, err = s.repo.Create(ctx, userID, randompkg.AccountNumber())
		if !errors.Is(err, domain.ErrAccountNumberAlreadyExists) {
			break
		}

		l.Warn().Err(err).Msg("account number collision")
	}

	if err != nil {
		return domain.Enrollment{}, err
	}

	account, err := s.accountService.Create(ctx, userID, domain.AccountTypeChecking)
	if err != nil {
		l.Error().Err(err).Str("user_id", userID).Msg("cannot open checking account")
		return domain.Enrollment{}, err
	}

	return domain.Enrollment{User: user, Account: account}, nil
}
