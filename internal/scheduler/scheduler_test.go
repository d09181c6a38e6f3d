package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/loanserve/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	runs    int
	block   chan struct{}
	started chan struct{}
}

func (f *fakeDispatcher) Run(ctx context.Context) (*model.RunSummary, error) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return &model.RunSummary{RunID: uuid.New()}, nil
}

func (f *fakeDispatcher) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func TestScheduler_DisabledDoesNotStart(t *testing.T) {
	t.Parallel()

	s := New(Config{Schedule: "* * * * *", Enabled: false}, &fakeDispatcher{}, nil)
	require.NoError(t, s.Start())
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRunTime().IsZero())
}

func TestScheduler_StartAndStop(t *testing.T) {
	t.Parallel()

	s := New(Config{Schedule: "* * * * *", Timeout: time.Minute, Enabled: true}, &fakeDispatcher{}, nil)
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.GetNextRunTime().IsZero())

	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := New(Config{Schedule: "not a cron expression", Enabled: true}, &fakeDispatcher{}, nil)
	assert.Error(t, s.Start())
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{started: make(chan struct{}, 1)}
	s := New(Config{Schedule: "* * * * *", Timeout: time.Minute, Enabled: true}, dispatcher, nil)

	s.RunNow()

	select {
	case <-dispatcher.started:
	case <-time.After(time.Second):
		t.Fatal("batch run was not triggered")
	}
	assert.Equal(t, 1, dispatcher.runCount())
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := New(Config{Schedule: "* * * * *", Timeout: time.Minute, Enabled: true}, dispatcher, nil)

	s.RunNow()
	<-dispatcher.started

	// First run is still blocked; this tick must be skipped.
	s.runBatchJob()
	assert.Equal(t, 1, dispatcher.runCount())

	close(dispatcher.block)
}
