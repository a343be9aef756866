package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SweepFunc runs one reconciliation pass over disputed orders and returns
// how many orders were flipped to their final status.
type SweepFunc func(ctx context.Context) (int, error)

// ReconciliationSchedulerConfig holds configuration for the periodic
// order status reconciliation sweep.
type ReconciliationSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// SyncInterval is the fixed interval between sweeps
	SyncInterval time.Duration
	// JobTimeout is the maximum time a single sweep can run
	JobTimeout time.Duration
}

// DefaultReconciliationSchedulerConfig returns default configuration
func DefaultReconciliationSchedulerConfig() ReconciliationSchedulerConfig {
	return ReconciliationSchedulerConfig{
		Enabled:      true,
		SyncInterval: 5 * time.Minute,
		JobTimeout:   2 * time.Minute,
	}
}

// Validate validates the configuration
func (c *ReconciliationSchedulerConfig) Validate() error {
	if c.SyncInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ReconciliationScheduler periodically runs the order status sweep. The
// event-driven path flips most orders promptly; this sweep catches orders
// whose handler run was lost to a crash or a concurrency conflict.
type ReconciliationScheduler struct {
	config ReconciliationSchedulerConfig
	sweep  SweepFunc
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  atomic.Bool
}

// NewReconciliationScheduler creates a new reconciliation scheduler
func NewReconciliationScheduler(config ReconciliationSchedulerConfig, sweep SweepFunc, logger *zap.Logger) (*ReconciliationScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ReconciliationScheduler{
		config: config,
		sweep:  sweep,
		logger: logger,
	}, nil
}

// Start starts the interval loop. When the scheduler is disabled by
// configuration nothing runs and RunNow reports ErrSchedulerNotRunning.
func (s *ReconciliationScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Reconciliation scheduler disabled by configuration")
		return nil
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Reconciliation scheduler started",
		zap.Duration("sync_interval", s.config.SyncInterval),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *ReconciliationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reconciliation scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reconciliation scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow triggers a sweep outside the interval, for admin-initiated syncs.
// Returns ErrSweepInProgress when a sweep is already running.
func (s *ReconciliationScheduler) RunNow(ctx context.Context) (int, error) {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return 0, ErrSchedulerNotRunning
	}

	if !s.sweeping.CompareAndSwap(false, true) {
		return 0, ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	return s.runSweep(ctx)
}

// run is the interval loop
func (s *ReconciliationScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.sweeping.CompareAndSwap(false, true) {
				s.logger.Warn("Skipping reconciliation tick, previous sweep still running")
				continue
			}
			if _, err := s.runSweep(ctx); err != nil {
				s.logger.Error("Reconciliation sweep failed", zap.Error(err))
			}
			s.sweeping.Store(false)
		}
	}
}

// runSweep executes a single sweep with the configured timeout
func (s *ReconciliationScheduler) runSweep(ctx context.Context) (int, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	start := time.Now()
	synced, err := s.sweep(sweepCtx)
	if err != nil {
		return synced, err
	}

	if synced > 0 {
		s.logger.Info("Reconciliation sweep completed",
			zap.Int("orders_synced", synced),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return synced, nil
}
