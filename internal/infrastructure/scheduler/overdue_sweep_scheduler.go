package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garage/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// OverdueSweeper is the invoicing work run on every tick
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
	ResumePendingReplacements(ctx context.Context, limit int) (int, error)
}

// SweepResult summarizes one run
type SweepResult struct {
	MarkedOverdue       int64
	ResumedReplacements int
	Duration            time.Duration
	SweepErr            error
	ResumeErr           error
}

// Err returns the first failure of the run
func (r SweepResult) Err() error {
	if r.SweepErr != nil {
		return r.SweepErr
	}
	return r.ResumeErr
}

// OverdueSweepScheduler periodically moves unpaid invoices past their due
// date to overdue and finishes replacements left pending by a crash.
type OverdueSweepScheduler struct {
	sweeper OverdueSweeper
	logger  *zap.Logger
	config  config.SchedulerConfig

	runMu     sync.Mutex // one run at a time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewOverdueSweepScheduler creates a new scheduler
func NewOverdueSweepScheduler(sweeper OverdueSweeper, cfg config.SchedulerConfig, logger *zap.Logger) (*OverdueSweepScheduler, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("%w: sweeper is required", ErrInvalidConfig)
	}
	if cfg.Enabled && cfg.OverdueInterval <= 0 {
		return nil, fmt.Errorf("%w: overdue interval must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueSweepScheduler{
		sweeper: sweeper,
		logger:  logger,
		config:  cfg,
	}, nil
}

// Start launches the ticker loop. It is a no-op when disabled or already running.
func (s *OverdueSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Overdue sweep scheduler is disabled")
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(ctx)

	s.logger.Info("Overdue sweep scheduler started",
		zap.Duration("interval", s.config.OverdueInterval),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight run, bounded by ctx
func (s *OverdueSweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs a sweep immediately and waits for it
func (s *OverdueSweepScheduler) TriggerNow(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return SweepResult{}, ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.logger.Info("Triggering immediate overdue sweep")
	result := s.run(ctx)
	return result, result.Err()
}

// IsRunning returns whether the scheduler is running
func (s *OverdueSweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *OverdueSweepScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.config.OverdueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Overdue sweep loop stopping")
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

// run executes one sweep followed by one resume batch
func (s *OverdueSweepScheduler) run(ctx context.Context) SweepResult {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	var result SweepResult

	result.MarkedOverdue, result.SweepErr = s.sweeper.SweepOverdue(ctx)
	if result.SweepErr != nil {
		s.logger.Error("Overdue sweep failed", zap.Error(result.SweepErr))
	}

	if s.config.ResumeBatchSize > 0 {
		result.ResumedReplacements, result.ResumeErr = s.sweeper.ResumePendingReplacements(ctx, s.config.ResumeBatchSize)
		if result.ResumeErr != nil {
			s.logger.Error("Resuming pending invoice replacements failed", zap.Error(result.ResumeErr))
		}
	}

	result.Duration = time.Since(start)
	s.logger.Info("Overdue sweep completed",
		zap.Int64("marked_overdue", result.MarkedOverdue),
		zap.Int("resumed_replacements", result.ResumedReplacements),
		zap.Duration("duration", result.Duration),
	)
	return result
}
