package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/loanserve/backend/internal/model"
)

const nextUnpaidQuery = `
	SELECT s.id, s.loan_no, s.sp_no, s.due_date, s.due_amount, s.payor_role, s.is_active
	FROM schedule_entries s
	LEFT JOIN payments p ON p.schedule_id = s.id
	WHERE s.loan_no = $1
		AND s.is_active = true
		AND p.schedule_id IS NULL
	ORDER BY s.due_date ASC
	LIMIT 1`

const activeLoanNumbersQuery = `
	SELECT DISTINCT loan_no FROM schedule_entries WHERE is_active = true`

// nextUnpaid returns the earliest active schedule entry for the loan with no
// linked payment, or (nil, nil) when the loan has nothing upcoming.
func nextUnpaid(ctx context.Context, q sqlx.QueryerContext, loanNo string) (*model.ScheduleEntry, error) {
	var entry model.ScheduleEntry
	err := sqlx.GetContext(ctx, q, &entry, nextUnpaidQuery, loanNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func activeLoanNumbers(ctx context.Context, q sqlx.QueryerContext) ([]string, error) {
	var loans []string
	err := sqlx.SelectContext(ctx, q, &loans, activeLoanNumbersQuery)
	return loans, err
}

// ScheduleRepository reads the loan amortization schedule. The schedule and
// payment tables belong to the wider loan-servicing domain; this service
// never writes them.
type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// NextUnpaid resolves the next due schedule entry for a loan; (nil, nil)
// means no upcoming due date.
func (r *ScheduleRepository) NextUnpaid(ctx context.Context, loanNo string) (*model.ScheduleEntry, error) {
	return nextUnpaid(ctx, r.db, loanNo)
}

// ActiveLoanNumbers lists every distinct loan with at least one active
// schedule entry.
func (r *ScheduleRepository) ActiveLoanNumbers(ctx context.Context) ([]string, error) {
	return activeLoanNumbers(ctx, r.db)
}
