package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/loanserve/backend/internal/logger"
	"github.com/loanserve/backend/internal/mailer"
	"github.com/loanserve/backend/internal/model"
)

const (
	defaultBatchSize   = 100
	defaultSendTimeout = 15 * time.Second
)

// BatchUnitOfWork is the transaction a single dispatcher run operates in.
// repository.BatchTx satisfies it.
type BatchUnitOfWork interface {
	SchedulingStore
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.DueReminder, error)
	MarkSent(ctx context.Context, ids []int64, at time.Time) error
	MarkFailed(ctx context.Context, ids []int64) error
	Commit() error
	Rollback() error
}

// BatchStoreInterface opens the unit of work for a run.
type BatchStoreInterface interface {
	Begin(ctx context.Context) (BatchUnitOfWork, error)
}

// BatchDispatcher executes one reminder batch run: send everything due, then
// schedule the next wave, all inside one transaction. Individual send failures
// are recorded and do not abort the run; any other error rolls the whole run
// back.
type BatchDispatcher struct {
	store       BatchStoreInterface
	notifier    mailer.Notifier
	batchSize   int
	sendTimeout time.Duration
	now         func() time.Time
}

func NewBatchDispatcher(store BatchStoreInterface, notifier mailer.Notifier, batchSize int, sendTimeout time.Duration) *BatchDispatcher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &BatchDispatcher{
		store:       store,
		notifier:    notifier,
		batchSize:   batchSize,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// Run performs one batch run and returns its summary. The returned error is
// non-nil only when the run was rolled back; per-notification send failures
// are reflected in the summary's Failed count.
func (d *BatchDispatcher) Run(ctx context.Context) (*model.RunSummary, error) {
	runID := uuid.New()
	ctx = logger.WithRunID(ctx, runID.String())
	log := logger.FromContext(ctx)

	uow, err := d.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning batch run: %w", err)
	}
	// No-op after a successful commit.
	defer func() { _ = uow.Rollback() }()

	now := d.now()
	due, err := uow.ListDue(ctx, now, d.batchSize)
	if err != nil {
		return nil, fmt.Errorf("loading due reminders: %w", err)
	}

	var sentIDs, failedIDs []int64
	for _, reminder := range due {
		if err := d.send(ctx, reminder); err != nil {
			log.Warn("reminder send failed",
				"notification_id", reminder.NotificationID,
				"loan_no", reminder.LoanNo,
				"error", err,
			)
			failedIDs = append(failedIDs, reminder.NotificationID)
			continue
		}
		sentIDs = append(sentIDs, reminder.NotificationID)
	}

	if err := uow.MarkSent(ctx, sentIDs, now); err != nil {
		return nil, fmt.Errorf("marking reminders sent: %w", err)
	}
	if err := uow.MarkFailed(ctx, failedIDs); err != nil {
		return nil, fmt.Errorf("marking reminders failed: %w", err)
	}

	scheduled, err := NewReminderScheduler(uow).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling new reminders: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch run: %w", err)
	}

	summary := &model.RunSummary{
		RunID:     runID,
		Processed: len(due),
		Sent:      len(sentIDs),
		Failed:    len(failedIDs),
		Scheduled: scheduled,
	}
	log.Info("reminder batch run completed",
		"processed", summary.Processed,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"scheduled", summary.Scheduled,
	)
	return summary, nil
}

// send delivers one reminder under its own deadline so a slow provider call
// cannot stall the whole batch.
func (d *BatchDispatcher) send(ctx context.Context, reminder model.DueReminder) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.notifier.Notify(sendCtx, reminder)
}
