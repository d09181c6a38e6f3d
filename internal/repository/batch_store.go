package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/loanserve/backend/internal/model"
)

// BatchStore opens the unit of work for one dispatcher run. Both phases of a
// run (sending due reminders and scheduling new ones) share the transaction,
// so an escalated failure in either discards everything.
type BatchStore struct {
	db *sqlx.DB
}

func NewBatchStore(db *sqlx.DB) *BatchStore {
	return &BatchStore{db: db}
}

// Begin starts the run's transaction.
func (s *BatchStore) Begin(ctx context.Context) (*BatchTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &BatchTx{tx: tx}, nil
}

// BatchTx is the transaction-scoped data access for a single batch run.
type BatchTx struct {
	tx *sqlx.Tx
}

func (t *BatchTx) Commit() error {
	return t.tx.Commit()
}

func (t *BatchTx) Rollback() error {
	return t.tx.Rollback()
}

// ActiveLoanNumbers lists loans with at least one active schedule entry.
func (t *BatchTx) ActiveLoanNumbers(ctx context.Context) ([]string, error) {
	return activeLoanNumbers(ctx, t.tx)
}

// NextUnpaid resolves the next due schedule entry for a loan; (nil, nil)
// means no upcoming due date.
func (t *BatchTx) NextUnpaid(ctx context.Context, loanNo string) (*model.ScheduleEntry, error) {
	return nextUnpaid(ctx, t.tx, loanNo)
}

// EnabledRulesByLoan returns every enabled rule attached to the loan.
func (t *BatchTx) EnabledRulesByLoan(ctx context.Context, loanNo string) ([]model.NotificationRule, error) {
	var rules []model.NotificationRule
	query := `
		SELECT * FROM notification_rules
		WHERE loan_no = $1 AND is_enabled = true
		ORDER BY id`
	err := t.tx.SelectContext(ctx, &rules, query, loanNo)
	return rules, err
}

// NotificationExists reports whether any notification already exists for the
// (schedule entry, rule) pair. This is the idempotence guard: one reminder
// per pair, regardless of how often the scheduling pass runs.
func (t *BatchTx) NotificationExists(ctx context.Context, scheduleID, ruleID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications WHERE schedule_id = $1 AND rule_id = $2
		)`
	err := t.tx.GetContext(ctx, &exists, query, scheduleID, ruleID)
	return exists, err
}

// CreatePending inserts a new PENDING notification.
func (t *BatchTx) CreatePending(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (rule_id, schedule_id, status, scheduled_send_time, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`

	n.Status = model.StatusPending
	return t.tx.QueryRowxContext(ctx, query,
		n.RuleID, n.ScheduleID, n.Status, n.ScheduledSendTime,
	).Scan(&n.ID, &n.CreatedAt)
}

// ListDue loads PENDING notifications whose scheduled send time has arrived,
// joined to rule and recipient context. Rows are claimed with SKIP LOCKED so
// two overlapping runs cannot pick up the same notifications.
func (t *BatchTx) ListDue(ctx context.Context, now time.Time, limit int) ([]model.DueReminder, error) {
	var due []model.DueReminder
	query := `
		SELECT n.id AS notification_id,
			n.rule_id,
			r.email,
			u.first_name AS recipient_name,
			r.loan_no,
			lp.nickname AS loan_nickname,
			s.sp_no,
			s.due_date,
			s.due_amount,
			lp.role,
			r.notification_type
		FROM notifications n
		JOIN notification_rules r ON r.id = n.rule_id
		JOIN schedule_entries s ON s.id = n.schedule_id
		JOIN loan_parties lp ON lp.loan_no = r.loan_no AND lp.user_id = r.user_id
		JOIN users u ON u.id = r.user_id
		WHERE n.status = $1
			AND n.scheduled_send_time <= $2
			AND r.is_enabled = true
		ORDER BY n.scheduled_send_time
		LIMIT $3
		FOR UPDATE OF n SKIP LOCKED`
	err := t.tx.SelectContext(ctx, &due, query, model.StatusPending, now, limit)
	return due, err
}

// MarkSent flips the given notifications to SENT in one statement.
func (t *BatchTx) MarkSent(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE notifications
		SET status = $1, actual_send_time = $2
		WHERE id = ANY($3)`
	_, err := t.tx.ExecContext(ctx, query, model.StatusSent, at, pq.Array(ids))
	return err
}

// MarkFailed flips the given notifications to FAILED in one statement.
// FAILED is terminal; failed sends are not re-queued.
func (t *BatchTx) MarkFailed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE notifications SET status = $1 WHERE id = ANY($2)`
	_, err := t.tx.ExecContext(ctx, query, model.StatusFailed, pq.Array(ids))
	return err
}
