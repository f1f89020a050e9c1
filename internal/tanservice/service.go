// Package tanservice issues and validates TAN challenges bound to a single transaction.
package tanservice

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/configpkg"
	"github.com/go-petr/sca-bank/pkg/errorspkg"
	"github.com/go-petr/sca-bank/pkg/passpkg"
	"github.com/go-petr/sca-bank/pkg/randompkg"
)

// Repo provides data access layer interface needed by the TAN service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package tanservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateChallengeRecord) (domain.TANChallenge, error)
	Update(ctx context.Context, id uuid.UUID, fn func(c *domain.TANChallenge) error) (domain.TANChallenge, error)
	CancelForTransaction(ctx context.Context, transactionID uuid.UUID, at time.Time) (int64, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

// Sender delivers a freshly issued code to the user out of band.
type Sender interface {
	Send(ctx context.Context, c domain.TANChallenge, code string) error
}

// Service facilitates TAN challenge service layer logic.
type Service struct {
	repo       Repo
	sender     Sender
	codeLength int
	ttl        time.Duration
	echoCodes  bool
	now        func() time.Time
}

// New returns TAN challenge service.
//
// Codes are echoed back in ChallengeInfo.DebugCode only when TAN_DEBUG_ECHO is set,
// which configpkg rejects outside of development.
func New(repo Repo, sender Sender, config configpkg.Config) *Service {
	return &Service{
		repo:       repo,
		sender:     sender,
		codeLength: config.TANLength,
		ttl:        config.TANTTL,
		echoCodes:  config.TANDebugEcho,
		now:        time.Now,
	}
}

// Create issues a challenge for the given transaction details and hands the code to the sender.
func (s *Service) Create(ctx context.Context, arg domain.CreateChallengeParams) (domain.ChallengeInfo, error) {
	l := zerolog.Ctx(ctx)

	if !arg.Type.Valid() {
		return domain.ChallengeInfo{}, domain.ErrInvalidTANType
	}

	code := randompkg.Digits(s.codeLength)

	codeHash, err := passpkg.Hash(code)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.ChallengeInfo{}, errorspkg.ErrInternal
	}

	now := s.now()

	c, err := s.repo.Create(ctx, domain.CreateChallengeRecord{
		UserID:        arg.UserID,
		TransactionID: arg.TransactionID,
		Type:          arg.Type,
		CodeHash:      codeHash,
		DynamicLink:   domain.DynamicLink(arg.TransactionID, arg.Amount, arg.Recipient),
		ExpiresAt:     now.Add(s.ttl),
	})
	if err != nil {
		return domain.ChallengeInfo{}, err
	}

	if err := s.sender.Send(ctx, c, code); err != nil {
		l.Error().Err(err).Str("challenge_id", c.ID.String()).Msg("tan delivery failed")
		return domain.ChallengeInfo{}, errorspkg.ErrInternal
	}

	info := domain.ChallengeInfo{
		ID:        c.ID,
		Type:      c.Type,
		ExpiresAt: c.ExpiresAt,
		ExpiresIn: int64(c.ExpiresAt.Sub(now).Seconds()),
		Amount:    arg.Amount,
		Recipient: arg.Recipient,
	}

	if s.echoCodes {
		info.DebugCode = code
	}

	return info, nil
}

// Validate consumes the challenge when code and transaction details match.
//
// Checks run in this order under a row lock: status, expiry, dynamic link,
// attempt limit, code. Expiry and the attempt limit are persisted when hit,
// a wrong code increments the attempts and reports how many remain.
func (s *Service) Validate(ctx context.Context, arg domain.ValidateChallengeParams) error {
	l := zerolog.Ctx(ctx)

	link := domain.DynamicLink(arg.TransactionID, arg.Amount, arg.Recipient)

	c, err := s.repo.Update(ctx, arg.ChallengeID, func(c *domain.TANChallenge) error {
		if err := c.Status.Err(); err != nil {
			return err
		}

		now := s.now()

		if !now.Before(c.ExpiresAt) {
			c.Status = domain.ChallengeStatusExpired
			return domain.ErrChallengeExpired
		}

		if subtle.ConstantTimeCompare([]byte(link), []byte(c.DynamicLink)) != 1 {
			return domain.ErrDynamicLinkMismatch
		}

		if c.Attempts >= domain.MaxTANAttempts {
			c.Status = domain.ChallengeStatusLocked
			return domain.ErrChallengeLocked
		}

		if err := passpkg.Check(arg.Code, c.CodeHash); err != nil {
			c.Attempts++
			return &domain.WrongCodeError{Remaining: domain.MaxTANAttempts - c.Attempts}
		}

		c.Status = domain.ChallengeStatusUsed
		c.UsedAt = &now

		return nil
	})
	if err != nil {
		l.Info().Err(err).
			Str("challenge_id", arg.ChallengeID.String()).
			Int("attempts", c.Attempts).
			Msg("tan validation failed")

		return err
	}

	return nil
}

// Cancel moves a pending challenge to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	_, err := s.repo.Update(ctx, id, func(c *domain.TANChallenge) error {
		if c.Status != domain.ChallengeStatusPending {
			return domain.ErrChallengeNotPending
		}

		now := s.now()
		c.Status = domain.ChallengeStatusCancelled
		c.CancelledAt = &now

		return nil
	})

	return err
}

// CancelForTransaction cancels every pending challenge of the transaction.
func (s *Service) CancelForTransaction(ctx context.Context, transactionID uuid.UUID) error {
	_, err := s.repo.CancelForTransaction(ctx, transactionID, s.now())
	return err
}

// SweepExpired moves every pending challenge past its expiry to EXPIRED and returns how many moved.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	l := zerolog.Ctx(ctx)

	n, err := s.repo.ExpirePending(ctx, s.now())
	if err != nil {
		return 0, err
	}

	if n > 0 {
		l.Info().Int64("expired", n).Msg("expired challenges swept")
	}

	return n, nil
}
