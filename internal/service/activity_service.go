package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/models"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
)

type activityStore interface {
	Append(ctx context.Context, entry *models.ActivityEntry) error
	List(ctx context.Context, limit int) ([]models.ActivityEntry, error)
}

// ActivityService exposes the capped planner audit trail.
type ActivityService struct {
	repo   activityStore
	logger *zap.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityStore, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// List returns recent entries, newest first.
func (s *ActivityService) List(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	entries, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity entries")
	}
	return entries, nil
}

// Record appends one entry, logging rather than failing on error.
func (s *ActivityService) Record(ctx context.Context, action, target, summary string) {
	entry := &models.ActivityEntry{Action: action, Target: target, Summary: summary}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}
