package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loanserve/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBatchUOW is an in-memory BatchUnitOfWork tracking status transitions and
// transaction outcome.
type fakeBatchUOW struct {
	*fakeSchedulingStore

	due        []model.DueReminder
	listErr    error
	markErr    error
	commitErr  error
	sentIDs    []int64
	failedIDs  []int64
	committed  bool
	rolledBack bool
}

func (f *fakeBatchUOW) ListDue(ctx context.Context, now time.Time, limit int) ([]model.DueReminder, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeBatchUOW) MarkSent(ctx context.Context, ids []int64, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.sentIDs = append(f.sentIDs, ids...)
	return nil
}

func (f *fakeBatchUOW) MarkFailed(ctx context.Context, ids []int64) error {
	f.failedIDs = append(f.failedIDs, ids...)
	return nil
}

func (f *fakeBatchUOW) Commit() error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeBatchUOW) Rollback() error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBatchStore struct {
	uow      *fakeBatchUOW
	beginErr error
}

func (f *fakeBatchStore) Begin(ctx context.Context) (BatchUnitOfWork, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.uow, nil
}

// fakeNotifier fails sends for the notification IDs in failFor, or blocks
// until the context expires when slow is set.
type fakeNotifier struct {
	failFor map[int64]bool
	slow    bool
	sent    []model.DueReminder
}

func (f *fakeNotifier) Notify(ctx context.Context, reminder model.DueReminder) error {
	if f.slow {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.failFor[reminder.NotificationID] {
		return errors.New("provider rejected")
	}
	f.sent = append(f.sent, reminder)
	return nil
}

func dueReminders(ids ...int64) []model.DueReminder {
	out := make([]model.DueReminder, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.DueReminder{
			NotificationID: id,
			Email:          "ada@example.com",
			LoanNo:         "L100",
			Role:           model.RoleBorrower,
		})
	}
	return out
}

func TestBatchDispatcher_Run(t *testing.T) {
	t.Parallel()

	t.Run("partial send failure does not abort the run", func(t *testing.T) {
		t.Parallel()

		uow := &fakeBatchUOW{fakeSchedulingStore: newFakeSchedulingStore(), due: dueReminders(1, 2, 3)}
		notifier := &fakeNotifier{failFor: map[int64]bool{2: true}}
		d := NewBatchDispatcher(&fakeBatchStore{uow: uow}, notifier, 100, time.Second)

		summary, err := d.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3, summary.Processed)
		assert.Equal(t, 2, summary.Sent)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, []int64{1, 3}, uow.sentIDs)
		assert.Equal(t, []int64{2}, uow.failedIDs)
		assert.True(t, uow.committed)
		assert.False(t, uow.rolledBack)
	})

	t.Run("scheduling runs in the same transaction", func(t *testing.T) {
		t.Parallel()

		store := newFakeSchedulingStore()
		store.loans = []string{"L100"}
		store.nextDue["L100"] = &model.ScheduleEntry{
			ID: 31, LoanNo: "L100",
			DueDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		}
		store.rules["L100"] = []model.NotificationRule{{ID: 1, LoanNo: "L100", IsEnabled: true}}

		uow := &fakeBatchUOW{fakeSchedulingStore: store}
		d := NewBatchDispatcher(&fakeBatchStore{uow: uow}, &fakeNotifier{}, 100, time.Second)

		summary, err := d.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 0, summary.Processed)
		assert.Equal(t, 1, summary.Scheduled)
		assert.True(t, uow.committed)
	})

	t.Run("load failure rolls the run back", func(t *testing.T) {
		t.Parallel()

		uow := &fakeBatchUOW{fakeSchedulingStore: newFakeSchedulingStore(), listErr: errors.New("db down")}
		d := NewBatchDispatcher(&fakeBatchStore{uow: uow}, &fakeNotifier{}, 100, time.Second)

		summary, err := d.Run(context.Background())
		assert.Error(t, err)
		assert.Nil(t, summary)
		assert.True(t, uow.rolledBack)
		assert.False(t, uow.committed)
	})

	t.Run("status update failure rolls the run back", func(t *testing.T) {
		t.Parallel()

		uow := &fakeBatchUOW{
			fakeSchedulingStore: newFakeSchedulingStore(),
			due:                 dueReminders(1),
			markErr:             errors.New("update failed"),
		}
		d := NewBatchDispatcher(&fakeBatchStore{uow: uow}, &fakeNotifier{}, 100, time.Second)

		_, err := d.Run(context.Background())
		assert.Error(t, err)
		assert.True(t, uow.rolledBack)
	})

	t.Run("commit failure is reported", func(t *testing.T) {
		t.Parallel()

		uow := &fakeBatchUOW{fakeSchedulingStore: newFakeSchedulingStore(), commitErr: errors.New("commit failed")}
		d := NewBatchDispatcher(&fakeBatchStore{uow: uow}, &fakeNotifier{}, 100, time.Second)

		summary, err := d.Run(context.Background())
		assert.Error(t, err)
		assert.Nil(t, summary)
	})

	t.Run("begin failure", func(t *testing.T) {
		t.Parallel()

		d := NewBatchDispatcher(&fakeBatchStore{beginErr: errors.New("no conn")}, &fakeNotifier{}, 100, time.Second)

		_, err := d.Run(context.Background())
		assert.Error(t, err)
	})

	t.Run("slow provider counts as failure", func(t *testing.T) {
		t.Parallel()

		uow := &fakeBatchUOW{fakeSchedulingStore: newFakeSchedulingStore(), due: dueReminders(1)}
		d := NewBatchDispatcher(&fakeBatchStore{uow: uow}, &fakeNotifier{slow: true}, 100, 10*time.Millisecond)

		summary, err := d.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 0, summary.Sent)
		assert.Equal(t, []int64{1}, uow.failedIDs)
		assert.True(t, uow.committed)
	})

	t.Run("batch size caps the claimed rows", func(t *testing.T) {
		t.Parallel()

		uow := &fakeBatchUOW{fakeSchedulingStore: newFakeSchedulingStore(), due: dueReminders(1, 2, 3, 4, 5)}
		d := NewBatchDispatcher(&fakeBatchStore{uow: uow}, &fakeNotifier{}, 2, time.Second)

		summary, err := d.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Processed)
		assert.Equal(t, 2, summary.Sent)
	})
}
