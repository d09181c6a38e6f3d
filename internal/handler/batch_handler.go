package handler

import (
	"net/http"

	"github.com/loanserve/backend/internal/logger"
)

type BatchHandler struct {
	dispatcher DispatcherInterface
}

func NewBatchHandler(dispatcher DispatcherInterface) *BatchHandler {
	return &BatchHandler{dispatcher: dispatcher}
}

// Run handles POST /api/reminders/run: one synchronous batch run, triggered
// by an external cron behind the shared-secret middleware.
func (h *BatchHandler) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dispatcher.Run(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("reminder batch run failed", "error", err)
		respondError(w, http.StatusInternalServerError, "reminder batch run failed")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
