// Package scheduler runs the periodic jobs of the bank: due standing orders
// and expiry of stale TAN challenges.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/configpkg"
)

// Job names used in log fields.
const (
	JobStandingOrders = "standing_orders"
	JobChallengeSweep = "challenge_sweep"
)

// StandingOrderService provides the standing order runner needed by the scheduler.
//
//go:generate mockgen -source scheduler.go -destination scheduler_mock.go -package scheduler
type StandingOrderService interface {
	RunDue(ctx context.Context, asOf time.Time) (domain.RunSummary, error)
}

// ChallengeService provides the challenge sweeper needed by the scheduler.
type ChallengeService interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Scheduler triggers the periodic jobs.
type Scheduler struct {
	orders        StandingOrderService
	challenges    ChallengeService
	instanceID    string
	orderInterval time.Duration
	sweepInterval time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// New returns scheduler.
func New(orders StandingOrderService, challenges ChallengeService, logger zerolog.Logger, config configpkg.Config) *Scheduler {
	return &Scheduler{
		orders:        orders,
		challenges:    challenges,
		instanceID:    config.SchedulerInstanceID,
		orderInterval: config.StandingOrderInterval,
		sweepInterval: config.ChallengeSweepInterval,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Scheduler) jobContext(ctx context.Context, job string) (context.Context, *zerolog.Logger) {
	l := s.logger.With().Str("job", job).Str("instance", s.instanceID).Logger()
	return l.WithContext(ctx), &l
}

// RunStandingOrders executes the standing orders due today.
func (s *Scheduler) RunStandingOrders(ctx context.Context) (domain.RunSummary, error) {
	return s.RunStandingOrdersAsOf(ctx, s.now())
}

// RunStandingOrdersAsOf executes the standing orders due on asOf.
func (s *Scheduler) RunStandingOrdersAsOf(ctx context.Context, asOf time.Time) (domain.RunSummary, error) {
	ctx, l := s.jobContext(ctx, JobStandingOrders)

	summary, err := s.orders.RunDue(ctx, asOf)
	if err != nil {
		l.Error().Err(err).Msg("standing order run stopped")
	}

	return summary, err
}

// SweepChallenges expires PENDING challenges past their expiry.
func (s *Scheduler) SweepChallenges(ctx context.Context) (int64, error) {
	ctx, l := s.jobContext(ctx, JobChallengeSweep)

	n, err := s.challenges.SweepExpired(ctx)
	if err != nil {
		l.Error().Err(err).Msg("challenge sweep failed")
		return 0, err
	}

	l.Debug().Int64("expired", n).Send()

	return n, nil
}

// Run triggers both jobs right away and then on their intervals until ctx is done.
//
// A job never overlaps with itself; a tick that fires while the previous run
// is still going is dropped.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Str("instance", s.instanceID).
		Dur("standing_order_interval", s.orderInterval).
		Dur("challenge_sweep_interval", s.sweepInterval).
		Msg("scheduler started")

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()
		every(ctx, s.orderInterval, func() {
			_, _ = s.RunStandingOrders(ctx)
		})
	}()

	go func() {
		defer wg.Done()
		every(ctx, s.sweepInterval, func() {
			_, _ = s.SweepChallenges(ctx)
		})
	}()

	wg.Wait()

	s.logger.Info().Str("instance", s.instanceID).Msg("scheduler stopped")
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	if ctx.Err() != nil {
		return
	}

	fn()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
