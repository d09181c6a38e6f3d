// Package scheduler provides cron-based triggering of the reminder batch run.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/loanserve/backend/internal/model"
	"github.com/robfig/cron/v3"
)

// Dispatcher runs one reminder batch and reports its summary.
type Dispatcher interface {
	Run(ctx context.Context) (*model.RunSummary, error)
}

// Config holds the scheduler configuration
type Config struct {
	// Schedule is a cron expression for when to run the batch (e.g., "* * * * *" for every minute)
	Schedule string
	// Timeout is the maximum duration for one complete batch run
	Timeout time.Duration
	// Enabled determines if the scheduler should run
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Schedule: "* * * * *", // Every minute
		Timeout:  5 * time.Minute,
		Enabled:  true,
	}
}

// Scheduler runs the reminder batch dispatcher on a cron schedule. Ticks that
// fire while a run is still in flight are skipped, so runs never overlap from
// this process.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	config     Config
	logger     *slog.Logger
	entryID    cron.EntryID
	inFlight   atomic.Bool
}

// New creates a new Scheduler instance
func New(cfg Config, dispatcher Dispatcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		dispatcher: dispatcher,
		config:     cfg,
		logger:     logger,
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Reminder scheduler is disabled, skipping start")
		return nil
	}

	// Convert standard cron (5 fields) to cron with seconds (6 fields)
	// Add "0" at the beginning for seconds
	schedule := "0 " + s.config.Schedule

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runBatchJob()
	})
	if err != nil {
		return err
	}

	s.entryID = entryID
	s.cron.Start()

	s.logger.Info("Reminder scheduler started",
		slog.String("schedule", s.config.Schedule),
		slog.Duration("timeout", s.config.Timeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping reminder scheduler...")
	return s.cron.Stop()
}

// RunNow triggers an immediate batch run (useful for manual triggers)
func (s *Scheduler) RunNow() {
	go s.runBatchJob()
}

// runBatchJob executes one reminder batch run
func (s *Scheduler) runBatchJob() {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("Previous batch run still in flight, skipping this tick")
		return
	}
	defer s.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Info("Starting scheduled reminder batch run",
		slog.Time("start_time", startTime),
	)

	summary, err := s.dispatcher.Run(ctx)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Reminder batch run failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return
	}

	s.logger.Info("Reminder batch run completed",
		slog.String("run_id", summary.RunID.String()),
		slog.Int("processed", summary.Processed),
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed),
		slog.Int("scheduled", summary.Scheduled),
		slog.Duration("duration", duration),
	)
}

// GetNextRunTime returns the next scheduled run time
func (s *Scheduler) GetNextRunTime() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	entry := s.cron.Entry(s.entryID)
	return entry.Next
}

// GetLastRunTime returns the last run time
func (s *Scheduler) GetLastRunTime() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	entry := s.cron.Entry(s.entryID)
	return entry.Prev
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
