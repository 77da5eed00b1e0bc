package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/logger"
	"github.com/kizunalab/machiba/internal/store/schema"
)

// Repository is the audit-log store view the service depends on
type Repository interface {
	CreateActivity(ctx context.Context, activity *schema.Activity) error
	ListRecentActivities(ctx context.Context, limit int) ([]*schema.Activity, error)
}

// Entry is one recorded admin action
type Entry struct {
	Actor      string
	Action     domain.ActivityAction
	EntityType string
	EntityID   string
	Detail     map[string]any
}

// Service records admin actions into the store-backed audit log
type Service struct {
	repo Repository
}

// NewService creates a new activity service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an audit entry. Failures are logged but never returned:
// auditing must not fail the action being audited.
func (s *Service) Record(ctx context.Context, entry Entry) {
	activity := &schema.Activity{
		Actor:      entry.Actor,
		Action:     entry.Action,
		EntityType: entry.EntityType,
	}
	if entry.EntityID != "" {
		activity.EntityID = &entry.EntityID
	}
	if len(entry.Detail) > 0 {
		raw, err := json.Marshal(entry.Detail)
		if err != nil {
			logger.WarnCtx(ctx, "failed to marshal activity detail", zap.Error(err))
		} else {
			activity.Detail = datatypes.JSON(raw)
		}
	}

	if err := s.repo.CreateActivity(ctx, activity); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("actor", entry.Actor),
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType))
	}
}

// Recent retrieves the most recent audit entries, newest first
func (s *Service) Recent(ctx context.Context, limit int) ([]*schema.Activity, error) {
	activities, err := s.repo.ListRecentActivities(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent activities: %w", err)
	}
	return activities, nil
}
