package service

import (
	"context"
	"fmt"

	"github.com/loanserve/backend/internal/model"
)

// ScheduleSource resolves upcoming due schedule entries.
type ScheduleSource interface {
	// NextUnpaid returns the earliest active, unpaid schedule entry for the
	// loan, or (nil, nil) when the loan has no upcoming due date.
	NextUnpaid(ctx context.Context, loanNo string) (*model.ScheduleEntry, error)
}

// DueDateResolver answers "what is the next payment due on this loan?".
// Absence of an upcoming due date is a signal, not an error.
type DueDateResolver struct {
	schedules ScheduleSource
}

func NewDueDateResolver(schedules ScheduleSource) *DueDateResolver {
	return &DueDateResolver{schedules: schedules}
}

// NextDue resolves the loan's next due schedule entry: the earliest entry
// whose active flag is set and which has no linked payment. Returns
// (nil, nil) when nothing is upcoming.
func (r *DueDateResolver) NextDue(ctx context.Context, loanNo string) (*model.ScheduleEntry, error) {
	entry, err := r.schedules.NextUnpaid(ctx, loanNo)
	if err != nil {
		return nil, fmt.Errorf("resolving next due date for loan %s: %w", loanNo, err)
	}
	return entry, nil
}
