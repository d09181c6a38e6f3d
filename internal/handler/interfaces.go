package handler

import (
	"context"

	"github.com/loanserve/backend/internal/model"
	"github.com/loanserve/backend/internal/service"
)

// RuleServiceInterface for handler testing
type RuleServiceInterface interface {
	Create(ctx context.Context, actorID int64, input service.CreateRuleInput) (*model.NotificationRule, error)
	Update(ctx context.Context, ruleID, actorID int64, input service.UpdateRuleInput) error
	Upsert(ctx context.Context, actorID int64, input service.CreateRuleInput) (*model.NotificationRule, bool, error)
	Delete(ctx context.Context, ruleID, actorID int64) error
	GetByOwnerAndType(ctx context.Context, userID int64, notificationType string) (*model.NotificationRule, error)
	ListByOwner(ctx context.Context, userID int64) ([]model.NotificationRule, error)
}

// DispatcherInterface for handler testing
type DispatcherInterface interface {
	Run(ctx context.Context) (*model.RunSummary, error)
}
