package service

import (
	"context"
	"fmt"

	"github.com/loanserve/backend/internal/logger"
	"github.com/loanserve/backend/internal/model"
	"github.com/loanserve/backend/pkg/datetime"
)

// SchedulingStore is the data access the scheduling pass needs. During a batch
// run it is satisfied by the run's transaction, so newly scheduled rows commit
// or roll back together with the rest of the run.
type SchedulingStore interface {
	ActiveLoanNumbers(ctx context.Context) ([]string, error)
	NextUnpaid(ctx context.Context, loanNo string) (*model.ScheduleEntry, error)
	EnabledRulesByLoan(ctx context.Context, loanNo string) ([]model.NotificationRule, error)
	NotificationExists(ctx context.Context, scheduleID, ruleID int64) (bool, error)
	CreatePending(ctx context.Context, n *model.Notification) error
}

// ReminderScheduler creates pending reminders for upcoming due dates. It is
// idempotent: each (schedule entry, rule) pair gets at most one notification,
// no matter how many times the pass runs.
type ReminderScheduler struct {
	store SchedulingStore
}

func NewReminderScheduler(store SchedulingStore) *ReminderScheduler {
	return &ReminderScheduler{store: store}
}

// Run scans every active loan, resolves its next unpaid schedule entry, and
// inserts a PENDING notification per enabled rule that does not already have
// one for that entry. The send time is interval_days before the due date.
// Returns how many notifications were created.
func (s *ReminderScheduler) Run(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)
	resolver := NewDueDateResolver(s.store)

	loans, err := s.store.ActiveLoanNumbers(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active loans: %w", err)
	}

	created := 0
	for _, loanNo := range loans {
		entry, err := resolver.NextDue(ctx, loanNo)
		if err != nil {
			return created, err
		}
		if entry == nil {
			continue
		}

		rules, err := s.store.EnabledRulesByLoan(ctx, loanNo)
		if err != nil {
			return created, fmt.Errorf("listing rules for loan %s: %w", loanNo, err)
		}

		for _, rule := range rules {
			exists, err := s.store.NotificationExists(ctx, entry.ID, rule.ID)
			if err != nil {
				return created, fmt.Errorf("checking notification for rule %d: %w", rule.ID, err)
			}
			if exists {
				continue
			}

			interval := rule.IntervalDays
			if interval <= 0 {
				interval = model.DefaultIntervalDays
			}

			n := &model.Notification{
				RuleID:            rule.ID,
				ScheduleID:        entry.ID,
				ScheduledSendTime: datetime.DaysBefore(entry.DueDate, interval),
			}
			if err := s.store.CreatePending(ctx, n); err != nil {
				return created, fmt.Errorf("creating notification for rule %d: %w", rule.ID, err)
			}
			created++

			log.Debug("scheduled reminder",
				"loan_no", loanNo,
				"rule_id", rule.ID,
				"schedule_id", entry.ID,
				"send_at", n.ScheduledSendTime,
			)
		}
	}

	return created, nil
}
