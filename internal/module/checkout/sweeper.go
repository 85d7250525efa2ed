package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/utils/metrics"
	"go.uber.org/zap"
)

// Sweeper expires payments stuck in pending. It only ever moves rows
// out of pending, and it moves them through the same transition gate as
// the webhooks, so a sweep racing a late confirmation still yields one
// winner.
type Sweeper struct {
	repo     Repository
	machine  *StateMachine
	metrics  *metrics.Metrics
	window   time.Duration
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a new expiry sweeper.
func NewSweeper(repo Repository, machine *StateMachine, m *metrics.Metrics, window, interval time.Duration, logger *zap.Logger) *Sweeper {
	if window == 0 {
		window = 30 * time.Minute
	}
	if interval == 0 {
		interval = time.Minute
	}
	return &Sweeper{
		repo:     repo,
		machine:  machine,
		metrics:  m,
		window:   window,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Stop terminates the loop and waits for the in-flight sweep.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Sweep expires every pending payment older than the window. Losing the
// race to a concurrent webhook is the expected outcome for a payment
// confirmed at the last moment.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.metrics.SweepLastRun.SetToCurrentTime()

	cutoff := time.Now().Add(-s.window)
	payments, err := s.repo.ListExpiredPending(ctx, cutoff)
	if err != nil {
		s.logger.Error("expiry sweep query failed", zap.Error(err))
		return
	}

	expired := 0
	for _, payment := range payments {
		err := s.machine.Transition(ctx, payment, StatusExpired, "sweep")
		if errors.Is(err, ErrAlreadyTransitioned) {
			continue
		}
		if err != nil {
			s.logger.Error("expiry transition failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
			continue
		}
		expired++
		s.metrics.PaymentsExpiredTotal.Inc()
	}

	if expired > 0 {
		s.logger.Info("expiry sweep completed", zap.Int("expired", expired))
	}
}
