// Package service provides the business logic for loan payment reminders.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/loanserve/backend/internal/apperror"
	"github.com/loanserve/backend/internal/model"
	"github.com/loanserve/backend/internal/repository"
)

// RuleRepositoryInterface defines the contract for notification rule storage.
type RuleRepositoryInterface interface {
	Create(ctx context.Context, actorID int64, rule *model.NotificationRule) error
	Update(ctx context.Context, ruleID, actorID int64, upd repository.RuleUpdate) error
	Upsert(ctx context.Context, actorID int64, rule *model.NotificationRule) (bool, error)
	Delete(ctx context.Context, ruleID, actorID int64) error
	GetByOwnerAndType(ctx context.Context, userID int64, notificationType string) (*model.NotificationRule, error)
	ListByOwner(ctx context.Context, userID int64) ([]model.NotificationRule, error)
}

// RuleService manages notification rules. Every mutation is attributed to the
// acting user passed by the caller; there is no ambient session identity.
type RuleService struct {
	repo RuleRepositoryInterface
}

func NewRuleService(repo RuleRepositoryInterface) *RuleService {
	return &RuleService{repo: repo}
}

type CreateRuleInput struct {
	UserID           int64  `json:"userId"`
	LoanNo           string `json:"loanNo"`
	Email            string `json:"email"`
	NotificationType string `json:"notificationType"`
	DeliveryMethod   string `json:"deliveryMethod"`
	IsEnabled        bool   `json:"isEnabled"`
	IntervalDays     int    `json:"intervalDays"`
}

type UpdateRuleInput struct {
	UserID           *int64  `json:"userId"`
	LoanNo           *string `json:"loanNo"`
	Email            *string `json:"email"`
	NotificationType *string `json:"notificationType"`
	DeliveryMethod   *string `json:"deliveryMethod"`
	IsEnabled        *bool   `json:"isEnabled"`
	IntervalDays     *int    `json:"intervalDays"`
}

func (in *CreateRuleInput) validate() error {
	if in.UserID <= 0 {
		return apperror.ValidationError("userId", "owner user id is required")
	}
	if strings.TrimSpace(in.LoanNo) == "" {
		return apperror.ValidationError("loanNo", "loan number is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return apperror.ValidationError("email", "must be a valid email address")
	}
	if in.IntervalDays < 0 {
		return apperror.ValidationError("intervalDays", "must be a positive number of days")
	}
	return nil
}

func (in *CreateRuleInput) toRule() *model.NotificationRule {
	rule := &model.NotificationRule{
		UserID:           in.UserID,
		LoanNo:           strings.TrimSpace(in.LoanNo),
		Email:            in.Email,
		NotificationType: in.NotificationType,
		DeliveryMethod:   in.DeliveryMethod,
		IsEnabled:        in.IsEnabled,
		IntervalDays:     in.IntervalDays,
	}
	if rule.NotificationType == "" {
		rule.NotificationType = model.DefaultNotificationType
	}
	if rule.DeliveryMethod == "" {
		rule.DeliveryMethod = model.DefaultDeliveryMethod
	}
	if rule.IntervalDays == 0 {
		rule.IntervalDays = model.DefaultIntervalDays
	}
	return rule
}

// Create inserts a new rule owned by input.UserID and attributed to actorID.
// Returns Conflict when a rule already exists for the same
// (owner, loan, notification type) tuple.
func (s *RuleService) Create(ctx context.Context, actorID int64, input CreateRuleInput) (*model.NotificationRule, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	rule := input.toRule()
	if err := s.repo.Create(ctx, actorID, rule); err != nil {
		if errors.Is(err, repository.ErrRuleConflict) {
			return nil, apperror.Conflict("a notification rule already exists for this user, loan, and notification type")
		}
		return nil, fmt.Errorf("creating notification rule: %w", err)
	}
	return rule, nil
}

// Update applies the recognized non-nil fields of input to the rule.
func (s *RuleService) Update(ctx context.Context, ruleID, actorID int64, input UpdateRuleInput) error {
	if input.Email != nil {
		if _, err := mail.ParseAddress(*input.Email); err != nil {
			return apperror.ValidationError("email", "must be a valid email address")
		}
	}
	if input.IntervalDays != nil && *input.IntervalDays <= 0 {
		return apperror.ValidationError("intervalDays", "must be a positive number of days")
	}
	if input.LoanNo != nil && strings.TrimSpace(*input.LoanNo) == "" {
		return apperror.ValidationError("loanNo", "loan number cannot be blank")
	}

	upd := repository.RuleUpdate{
		UserID:           input.UserID,
		LoanNo:           input.LoanNo,
		Email:            input.Email,
		NotificationType: input.NotificationType,
		DeliveryMethod:   input.DeliveryMethod,
		IsEnabled:        input.IsEnabled,
		IntervalDays:     input.IntervalDays,
	}

	if err := s.repo.Update(ctx, ruleID, actorID, upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoRuleFields):
			return apperror.BadRequest("no recognized fields to update")
		case errors.Is(err, repository.ErrRuleNotFound):
			return apperror.NotFound("notification rule")
		case errors.Is(err, repository.ErrRuleConflict):
			return apperror.Conflict("updating these fields would duplicate an existing rule")
		default:
			return fmt.Errorf("updating notification rule %d: %w", ruleID, err)
		}
	}
	return nil
}

// Upsert creates the rule or updates the existing one for the same
// (owner, loan, notification type) tuple. The returned bool reports whether
// a new rule was created.
func (s *RuleService) Upsert(ctx context.Context, actorID int64, input CreateRuleInput) (*model.NotificationRule, bool, error) {
	if err := input.validate(); err != nil {
		return nil, false, err
	}

	rule := input.toRule()
	created, err := s.repo.Upsert(ctx, actorID, rule)
	if err != nil {
		if errors.Is(err, repository.ErrRuleConflict) {
			return nil, false, apperror.Conflict("a notification rule already exists for this user, loan, and notification type")
		}
		return nil, false, fmt.Errorf("upserting notification rule: %w", err)
	}
	return rule, created, nil
}

// Delete removes the rule. Returns NotFound when it does not exist.
func (s *RuleService) Delete(ctx context.Context, ruleID, actorID int64) error {
	if err := s.repo.Delete(ctx, ruleID, actorID); err != nil {
		if errors.Is(err, repository.ErrRuleNotFound) {
			return apperror.NotFound("notification rule")
		}
		return fmt.Errorf("deleting notification rule %d: %w", ruleID, err)
	}
	return nil
}

// GetByOwnerAndType returns the user's rule for the notification type, or
// (nil, nil) when there is none.
func (s *RuleService) GetByOwnerAndType(ctx context.Context, userID int64, notificationType string) (*model.NotificationRule, error) {
	if notificationType == "" {
		notificationType = model.DefaultNotificationType
	}
	rule, err := s.repo.GetByOwnerAndType(ctx, userID, notificationType)
	if err != nil {
		return nil, fmt.Errorf("fetching notification rule for user %d: %w", userID, err)
	}
	return rule, nil
}

// ListByOwner returns all rules owned by the user.
func (s *RuleService) ListByOwner(ctx context.Context, userID int64) ([]model.NotificationRule, error) {
	rules, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notification rules for user %d: %w", userID, err)
	}
	return rules, nil
}
