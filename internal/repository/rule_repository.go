package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/loanserve/backend/internal/model"
)

var (
	ErrRuleNotFound = errors.New("notification rule not found")
	// ErrRuleConflict means a rule already exists for the same
	// (user, loan, notification type) tuple.
	ErrRuleConflict = errors.New("notification rule already exists")
	// ErrNoRuleFields means an update carried none of the recognized
	// mutable fields.
	ErrNoRuleFields = errors.New("no recognized fields to update")
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// RuleRepository persists notification rules. Every mutation runs in its own
// transaction together with an audit row recording the acting user.
type RuleRepository struct {
	db *sqlx.DB
}

func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) recordAudit(ctx context.Context, tx *sqlx.Tx, ruleID, actorID int64, action string) error {
	query := `
		INSERT INTO rule_audit_log (rule_id, actor_id, action, occurred_at)
		VALUES ($1, $2, $3, NOW())`
	_, err := tx.ExecContext(ctx, query, ruleID, actorID, action)
	return err
}

// Create inserts a new rule. Returns ErrRuleConflict if a rule already exists
// for the same (user, loan, notification type) tuple.
func (r *RuleRepository) Create(ctx context.Context, actorID int64, rule *model.NotificationRule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	checkQuery := `
		SELECT id FROM notification_rules
		WHERE user_id = $1 AND loan_no = $2 AND notification_type = $3`
	err = tx.GetContext(ctx, &existingID, checkQuery, rule.UserID, rule.LoanNo, rule.NotificationType)
	if err == nil {
		return ErrRuleConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	insertQuery := `
		INSERT INTO notification_rules (user_id, loan_no, email, notification_type, delivery_method, is_enabled, interval_days, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	rule.CreatedBy = actorID
	err = tx.QueryRowxContext(ctx, insertQuery,
		rule.UserID, rule.LoanNo, rule.Email, rule.NotificationType,
		rule.DeliveryMethod, rule.IsEnabled, rule.IntervalDays, actorID,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		// The unique index backstops the pre-check under concurrency.
		if isUniqueViolation(err) {
			return ErrRuleConflict
		}
		return err
	}

	if err := r.recordAudit(ctx, tx, rule.ID, actorID, "create"); err != nil {
		return err
	}

	return tx.Commit()
}

// RuleUpdate carries the recognized mutable fields of a rule. Nil fields are
// left untouched.
type RuleUpdate struct {
	UserID           *int64
	LoanNo           *string
	Email            *string
	NotificationType *string
	DeliveryMethod   *string
	IsEnabled        *bool
	IntervalDays     *int
}

func (u RuleUpdate) isEmpty() bool {
	return u.UserID == nil && u.LoanNo == nil && u.Email == nil &&
		u.NotificationType == nil && u.DeliveryMethod == nil &&
		u.IsEnabled == nil && u.IntervalDays == nil
}

// Update applies the non-nil fields of upd to the rule. Returns
// ErrNoRuleFields if upd carries nothing to apply, ErrRuleNotFound if no rule
// matches, ErrRuleConflict if the update would violate the (user, loan, type)
// uniqueness.
func (r *RuleRepository) Update(ctx context.Context, ruleID, actorID int64, upd RuleUpdate) error {
	if upd.isEmpty() {
		return ErrNoRuleFields
	}

	set := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	args = append(args, ruleID)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.UserID != nil {
		add("user_id", *upd.UserID)
	}
	if upd.LoanNo != nil {
		add("loan_no", *upd.LoanNo)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.NotificationType != nil {
		add("notification_type", *upd.NotificationType)
	}
	if upd.DeliveryMethod != nil {
		add("delivery_method", *upd.DeliveryMethod)
	}
	if upd.IsEnabled != nil {
		add("is_enabled", *upd.IsEnabled)
	}
	if upd.IntervalDays != nil {
		add("interval_days", *upd.IntervalDays)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(
		`UPDATE notification_rules SET %s, updated_at = NOW() WHERE id = $1`,
		strings.Join(set, ", "),
	)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRuleConflict
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRuleNotFound
	}

	if err := r.recordAudit(ctx, tx, ruleID, actorID, "update"); err != nil {
		return err
	}

	return tx.Commit()
}

// Upsert creates the rule or, if one exists for the same (user, loan, type)
// tuple, updates its mutable fields. Returns true when a new rule was created.
func (r *RuleRepository) Upsert(ctx context.Context, actorID int64, rule *model.NotificationRule) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	checkQuery := `
		SELECT id FROM notification_rules
		WHERE user_id = $1 AND loan_no = $2 AND notification_type = $3`
	err = tx.GetContext(ctx, &existingID, checkQuery, rule.UserID, rule.LoanNo, rule.NotificationType)

	switch {
	case err == nil:
		updateQuery := `
			UPDATE notification_rules
			SET email = $2, delivery_method = $3, is_enabled = $4, interval_days = $5, updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at`
		rule.ID = existingID
		if err := tx.QueryRowxContext(ctx, updateQuery,
			existingID, rule.Email, rule.DeliveryMethod, rule.IsEnabled, rule.IntervalDays,
		).Scan(&rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return false, err
		}
		if err := r.recordAudit(ctx, tx, existingID, actorID, "update"); err != nil {
			return false, err
		}
		return false, tx.Commit()

	case errors.Is(err, sql.ErrNoRows):
		insertQuery := `
			INSERT INTO notification_rules (user_id, loan_no, email, notification_type, delivery_method, is_enabled, interval_days, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id, created_at, updated_at`
		rule.CreatedBy = actorID
		if err := tx.QueryRowxContext(ctx, insertQuery,
			rule.UserID, rule.LoanNo, rule.Email, rule.NotificationType,
			rule.DeliveryMethod, rule.IsEnabled, rule.IntervalDays, actorID,
		).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return false, ErrRuleConflict
			}
			return false, err
		}
		if err := r.recordAudit(ctx, tx, rule.ID, actorID, "create"); err != nil {
			return false, err
		}
		return true, tx.Commit()

	default:
		return false, err
	}
}

// Delete removes a rule. Returns ErrRuleNotFound if it does not exist.
func (r *RuleRepository) Delete(ctx context.Context, ruleID, actorID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM notification_rules WHERE id = $1`, ruleID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRuleNotFound
	}

	if err := r.recordAudit(ctx, tx, ruleID, actorID, "delete"); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByOwnerAndType returns the rule for (userID, notificationType), or
// (nil, nil) when there is none. Absence is a signal, not an error.
func (r *RuleRepository) GetByOwnerAndType(ctx context.Context, userID int64, notificationType string) (*model.NotificationRule, error) {
	var rule model.NotificationRule
	query := `
		SELECT * FROM notification_rules
		WHERE user_id = $1 AND notification_type = $2`
	err := r.db.GetContext(ctx, &rule, query, userID, notificationType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListByOwner returns all rules owned by the user, newest first.
func (r *RuleRepository) ListByOwner(ctx context.Context, userID int64) ([]model.NotificationRule, error) {
	var rules []model.NotificationRule
	query := `SELECT * FROM notification_rules WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &rules, query, userID)
	return rules, err
}
