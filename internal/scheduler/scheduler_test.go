package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/configpkg"
)

func newTestScheduler(t *testing.T, buf *bytes.Buffer) (*Scheduler, *MockStandingOrderService, *MockChallengeService) {
	t.Helper()

	ctrl := gomock.NewController(t)

	orders := NewMockStandingOrderService(ctrl)
	challenges := NewMockChallengeService(ctrl)

	config := configpkg.Config{
		SchedulerInstanceID:    "node-1",
		StandingOrderInterval:  10 * time.Millisecond,
		ChallengeSweepInterval: 10 * time.Millisecond,
	}

	logger := zerolog.New(zerolog.SyncWriter(buf)).Level(zerolog.DebugLevel)

	return New(orders, challenges, logger, config), orders, challenges
}

func TestRunStandingOrders(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	s, orders, _ := newTestScheduler(t, &buf)

	now := time.Date(2026, time.March, 31, 6, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	want := domain.RunSummary{Due: 2, Completed: 1, Failed: 1}

	orders.EXPECT().
		RunDue(gomock.Any(), gomock.Eq(now)).
		Times(1).
		DoAndReturn(func(ctx context.Context, _ time.Time) (domain.RunSummary, error) {
			zerolog.Ctx(ctx).Info().Msg("inside")
			return want, nil
		})

	got, err := s.RunStandingOrders(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.Contains(t, buf.String(), `"job":"standing_orders"`)
	require.Contains(t, buf.String(), `"instance":"node-1"`)
}

func TestRunStandingOrdersError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	s, orders, _ := newTestScheduler(t, &buf)

	wantErr := errors.New("listing failed")

	orders.EXPECT().
		RunDue(gomock.Any(), gomock.Any()).
		Times(1).
		Return(domain.RunSummary{}, wantErr)

	_, err := s.RunStandingOrders(context.Background())
	require.ErrorIs(t, err, wantErr)
	require.Contains(t, buf.String(), "standing order run stopped")
}

func TestSweepChallenges(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	s, _, challenges := newTestScheduler(t, &buf)

	challenges.EXPECT().
		SweepExpired(gomock.Any()).
		Times(1).
		Return(int64(3), nil)

	n, err := s.SweepChallenges(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Contains(t, buf.String(), `"job":"challenge_sweep"`)
	require.Contains(t, buf.String(), `"expired":3`)
}

func TestRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	s, orders, challenges := newTestScheduler(t, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu         sync.Mutex
		orderRuns  int
		sweepRuns  int
		reachedTwo = make(chan struct{})
		once       sync.Once
	)

	check := func() {
		if orderRuns >= 2 && sweepRuns >= 2 {
			once.Do(func() { close(reachedTwo) })
		}
	}

	orders.EXPECT().
		RunDue(gomock.Any(), gomock.Any()).
		MinTimes(2).
		DoAndReturn(func(context.Context, time.Time) (domain.RunSummary, error) {
			mu.Lock()
			defer mu.Unlock()
			orderRuns++
			check()

			return domain.RunSummary{}, nil
		})

	challenges.EXPECT().
		SweepExpired(gomock.Any()).
		MinTimes(2).
		DoAndReturn(func(context.Context) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			sweepRuns++
			check()

			return 0, nil
		})

	done := make(chan struct{})

	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-reachedTwo:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not run twice within 5s")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	require.Contains(t, buf.String(), "scheduler stopped")
}

func TestRunCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	s, orders, challenges := newTestScheduler(t, &buf)

	orders.EXPECT().RunDue(gomock.Any(), gomock.Any()).Times(0)
	challenges.EXPECT().SweepExpired(gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Run(ctx)
}
