// Package standingorderservice manages business logic layer of standing orders
// and runs the ones that are due.
package standingorderservice

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/configpkg"
)

const duePageSize = 100

// Repo provides data access layer interface needed by standing order service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package standingorderservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateStandingOrderRecord) (domain.StandingOrder, error)
	Get(ctx context.Context, id uuid.UUID) (domain.StandingOrder, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.StandingOrder, error)
	ListDue(ctx context.Context, asOf time.Time, afterID uuid.UUID, limit int) ([]domain.StandingOrder, error)
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (domain.StandingOrder, error)
	Claim(ctx context.Context, arg domain.ClaimStandingOrderParams) (domain.StandingOrder, error)
	Release(ctx context.Context, id uuid.UUID, leaseOwner string) error
	Execute(ctx context.Context, arg domain.ExecuteStandingOrderParams) (domain.StandingOrderRun, error)
	Lapse(ctx context.Context, arg domain.ExecuteStandingOrderParams) (domain.StandingOrder, error)
}

// AccountService provides account lookups needed by standing order service layer.
type AccountService interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Account, error)
	GetOwned(ctx context.Context, ownerID string, id uuid.UUID) (domain.Account, error)
}

// Service facilitates standing order service layer logic.
type Service struct {
	repo           Repo
	accountService AccountService
	instanceID     string
	lease          time.Duration
	pageSize       int
	now            func() time.Time
}

// New returns standing order service.
//
// Orders are leased under config.SchedulerInstanceID for config.StandingOrderLease while they run.
func New(repo Repo, as AccountService, config configpkg.Config) *Service {
	return &Service{
		repo:           repo,
		accountService: as,
		instanceID:     config.SchedulerInstanceID,
		lease:          config.StandingOrderLease,
		pageSize:       duePageSize,
		now:            time.Now,
	}
}

// Create validates and stores an ACTIVE standing order whose first run is on the start date.
func (s *Service) Create(ctx context.Context, ownerID string, arg domain.CreateStandingOrderParams) (domain.StandingOrder, error) {
	l := zerolog.Ctx(ctx)

	amount, err := domain.ParseAmount(arg.Amount)
	if err != nil {
		l.Info().Err(err).Str("amount", arg.Amount).Send()
		return domain.StandingOrder{}, err
	}

	if !arg.Frequency.Valid() {
		return domain.StandingOrder{}, domain.ErrInvalidFrequency
	}

	executionDay := arg.ExecutionDay
	if executionDay == 0 {
		executionDay = domain.DefaultExecutionDay
	}

	if executionDay < 1 || executionDay > 31 {
		return domain.StandingOrder{}, domain.ErrInvalidExecutionDay
	}

	start := dateOf(arg.StartDate)
	if arg.StartDate.IsZero() {
		start = dateOf(s.now())
	}

	var end *time.Time

	if arg.EndDate != nil {
		e := dateOf(*arg.EndDate)
		if e.Before(start) {
			return domain.StandingOrder{}, domain.ErrEndBeforeStart
		}

		end = &e
	}

	if arg.FromAccountID == arg.ToAccountID {
		return domain.StandingOrder{}, domain.ErrSameAccount
	}

	if _, err := s.accountService.GetOwned(ctx, ownerID, arg.FromAccountID); err != nil {
		l.Info().Err(err).Str("from_account_id", arg.FromAccountID.String()).Send()
		return domain.StandingOrder{}, err
	}

	if _, err := s.accountService.Get(ctx, arg.ToAccountID); err != nil {
		l.Info().Err(err).Str("to_account_id", arg.ToAccountID.String()).Send()
		return domain.StandingOrder{}, err
	}

	return s.repo.Create(ctx, domain.CreateStandingOrderRecord{
		OwnerID:       ownerID,
		FromAccountID: arg.FromAccountID,
		ToAccountID:   arg.ToAccountID,
		Amount:        amount,
		Reference:     arg.Reference,
		Frequency:     arg.Frequency,
		StartDate:     start,
		EndDate:       end,
		ExecutionDay:  executionDay,
		NextExecution: start,
	})
}

// List returns the standing orders of the owner.
func (s *Service) List(ctx context.Context, ownerID string) ([]domain.StandingOrder, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Cancel stops an ACTIVE standing order of the owner.
func (s *Service) Cancel(ctx context.Context, ownerID string, id uuid.UUID) (domain.StandingOrder, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.StandingOrder{}, err
	}

	if o.OwnerID != ownerID {
		return domain.StandingOrder{}, domain.ErrInvalidOwner
	}

	return s.repo.Cancel(ctx, id, s.now())
}

// DueOrders yields the ACTIVE orders due on asOf, a page at a time.
//
// Every call starts a fresh query. Iteration stops after the first error.
func (s *Service) DueOrders(ctx context.Context, asOf time.Time) iter.Seq2[domain.StandingOrder, error] {
	return func(yield func(domain.StandingOrder, error) bool) {
		afterID := uuid.Nil

		for {
			page, err := s.repo.ListDue(ctx, asOf, afterID, s.pageSize)
			if err != nil {
				yield(domain.StandingOrder{}, err)
				return
			}

			for _, o := range page {
				if !yield(o, nil) {
					return
				}
			}

			if len(page) < s.pageSize {
				return
			}

			afterID = page[len(page)-1].ID
		}
	}
}

// Execute runs one due order without SCA.
//
// The order is leased first, so concurrent schedulers never run the same
// occurrence twice. A settlement failure is returned with the FAILED run and
// leaves next_execution unchanged, so the occurrence is retried on later passes
// until it lapses: once the following occurrence is due, or the end date has
// passed with no occurrence left, a failed occurrence is skipped and the order
// moves on.
func (s *Service) Execute(ctx context.Context, order domain.StandingOrder, asOf time.Time) (domain.StandingOrderRun, error) {
	l := zerolog.Ctx(ctx).With().Str("standing_order_id", order.ID.String()).Logger()

	now := s.now()

	claimed, err := s.repo.Claim(ctx, domain.ClaimStandingOrderParams{
		ID:         order.ID,
		LeaseOwner: s.instanceID,
		AsOf:       asOf,
		Now:        now,
		Until:      now.Add(s.lease),
	})
	if err != nil {
		return domain.StandingOrderRun{}, err
	}

	next, err := NextExecution(claimed.NextExecution, claimed.Frequency, claimed.ExecutionDay)
	if err != nil {
		s.release(ctx, claimed.ID)
		return domain.StandingOrderRun{}, err
	}

	status := domain.StandingOrderStatusActive
	if claimed.EndDate != nil && next.After(*claimed.EndDate) {
		status = domain.StandingOrderStatusCompleted
	}

	arg := domain.ExecuteStandingOrderParams{
		Order:         claimed,
		LeaseOwner:    s.instanceID,
		Now:           now,
		NextExecution: next,
		NextStatus:    status,
	}

	if claimed.FailedCurrentOccurrence() && lapsed(claimed, next, asOf) {
		return s.lapse(ctx, arg)
	}

	// A claimed run must settle or roll back as a whole, even during shutdown.
	run, err := s.repo.Execute(context.WithoutCancel(ctx), arg)
	if err != nil {
		if domain.FailureReasonOf(err) == domain.FailureReasonNone {
			s.release(ctx, claimed.ID)
		}

		l.Info().Err(err).Str("failure_reason", string(run.FailureReason)).Msg("standing order not executed")

		return run, err
	}

	l.Info().
		Str("transaction_id", run.TransactionID.String()).
		Time("next_execution", run.NextExecution).
		Str("order_status", string(run.OrderStatus)).
		Msg("standing order executed")

	return run, nil
}

// lapsed reports whether the failed occurrence of o can no longer be retried.
func lapsed(o domain.StandingOrder, next, asOf time.Time) bool {
	today := dateOf(asOf)

	if !today.Before(dateOf(next)) {
		return true
	}

	return o.EndDate != nil && today.After(dateOf(*o.EndDate))
}

func (s *Service) lapse(ctx context.Context, arg domain.ExecuteStandingOrderParams) (domain.StandingOrderRun, error) {
	l := zerolog.Ctx(ctx)

	o, err := s.repo.Lapse(context.WithoutCancel(ctx), arg)
	if err != nil {
		if !errors.Is(err, domain.ErrLeaseNotAcquired) {
			s.release(ctx, arg.Order.ID)
		}

		return domain.StandingOrderRun{}, err
	}

	l.Info().
		Str("standing_order_id", o.ID.String()).
		Time("missed", arg.Order.NextExecution).
		Time("next_execution", o.NextExecution).
		Str("order_status", string(o.Status)).
		Msg("standing order occurrence lapsed")

	return domain.StandingOrderRun{
		OrderID:       o.ID,
		NextExecution: o.NextExecution,
		OrderStatus:   o.Status,
		Lapsed:        true,
	}, nil
}

func (s *Service) release(ctx context.Context, id uuid.UUID) {
	if err := s.repo.Release(context.WithoutCancel(ctx), id, s.instanceID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("standing_order_id", id.String()).Msg("failed to release lease")
	}
}

// RunDue executes every order due on asOf once.
//
// Orders claimed by another scheduler are skipped. Domain failures such as
// insufficient funds are counted and do not stop the run; it stops early only
// when listing fails or ctx is done.
func (s *Service) RunDue(ctx context.Context, asOf time.Time) (domain.RunSummary, error) {
	l := zerolog.Ctx(ctx)

	var summary domain.RunSummary

	for order, err := range s.DueOrders(ctx, asOf) {
		if err != nil {
			return summary, err
		}

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Due++

		run, err := s.Execute(ctx, order, asOf)

		switch {
		case err == nil && run.Lapsed:
			summary.Lapsed++
		case err == nil:
			summary.Completed++
		case errors.Is(err, domain.ErrLeaseNotAcquired):
			summary.Skipped++
		case domain.FailureReasonOf(err) != domain.FailureReasonNone:
			summary.Failed++
		default:
			summary.Errored++
			l.Error().Err(err).Str("standing_order_id", order.ID.String()).Msg("standing order errored")
		}
	}

	l.Info().
		Int("due", summary.Due).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int("lapsed", summary.Lapsed).
		Int("errored", summary.Errored).
		Msg("standing orders run")

	return summary, nil
}
