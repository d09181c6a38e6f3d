package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/loanserve/backend/internal/model"
	"github.com/loanserve/backend/internal/service"
)

type NotificationRuleHandler struct {
	service RuleServiceInterface
}

func NewNotificationRuleHandler(service RuleServiceInterface) *NotificationRuleHandler {
	return &NotificationRuleHandler{service: service}
}

// Create handles POST /api/notification-rules. The rule's owner defaults to
// the acting user when the body omits it.
func (h *NotificationRuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID := GetUserID(r.Context())

	var input service.CreateRuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.UserID == 0 {
		input.UserID = actorID
	}

	rule, err := h.service.Create(r.Context(), actorID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

// Update handles PUT /api/notification-rules/{id} with a partial body.
func (h *NotificationRuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID := GetUserID(r.Context())

	ruleID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	var input service.UpdateRuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Update(r.Context(), ruleID, actorID, input); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"id": ruleID})
}

// Delete handles DELETE /api/notification-rules/{id}.
func (h *NotificationRuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID := GetUserID(r.Context())

	ruleID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := h.service.Delete(r.Context(), ruleID, actorID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListByUser handles GET /api/notification-rules/user/{userId}.
func (h *NotificationRuleHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	rules, err := h.service.ListByOwner(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if rules == nil {
		rules = []model.NotificationRule{}
	}

	respondJSON(w, http.StatusOK, rules)
}

// GetSettings handles GET /api/notification-rules/settings/{userId}. A user
// with no rule configured gets a 200 with a null body, not a 404.
func (h *NotificationRuleHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	rule, err := h.service.GetByOwnerAndType(r.Context(), userID, r.URL.Query().Get("type"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// rule may be a typed nil here, which encodes as JSON null.
	respondJSON(w, http.StatusOK, rule)
}

// UpsertSettings handles PUT /api/notification-rules/settings: create the
// acting user's rule or update the existing one in place.
func (h *NotificationRuleHandler) UpsertSettings(w http.ResponseWriter, r *http.Request) {
	actorID := GetUserID(r.Context())

	var input service.CreateRuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.UserID == 0 {
		input.UserID = actorID
	}

	rule, created, err := h.service.Upsert(r.Context(), actorID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, rule)
}
