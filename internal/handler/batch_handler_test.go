package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/loanserve/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockDispatcher implements DispatcherInterface for testing
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Run(ctx context.Context) (*model.RunSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunSummary), args.Error(1)
}

func TestBatchHandler_Run(t *testing.T) {
	t.Parallel()

	t.Run("returns the run summary", func(t *testing.T) {
		t.Parallel()

		summary := &model.RunSummary{
			RunID:     uuid.New(),
			Processed: 3,
			Sent:      2,
			Failed:    1,
			Scheduled: 4,
		}
		dispatcher := new(MockDispatcher)
		dispatcher.On("Run", mock.Anything).Return(summary, nil)
		h := NewBatchHandler(dispatcher)

		req := httptest.NewRequest(http.MethodPost, "/api/reminders/run", nil)
		w := httptest.NewRecorder()
		h.Run(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var got model.RunSummary
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 3, got.Processed)
		assert.Equal(t, 2, got.Sent)
		assert.Equal(t, 1, got.Failed)
		assert.Equal(t, 4, got.Scheduled)
	})

	t.Run("rolled-back run is a 500", func(t *testing.T) {
		t.Parallel()

		dispatcher := new(MockDispatcher)
		dispatcher.On("Run", mock.Anything).Return(nil, errors.New("db down"))
		h := NewBatchHandler(dispatcher)

		req := httptest.NewRequest(http.MethodPost, "/api/reminders/run", nil)
		w := httptest.NewRecorder()
		h.Run(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
	})
}
