package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
	"github.com/draftmill-inc/draftmill-client/pkg/cache"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
	"github.com/draftmill-inc/draftmill-client/pkg/validate"
)

// ScheduleService defines the schedule operations the UI consumes. Schedules
// are inert recurrence definitions; firing them is an external concern.
type ScheduleService interface {
	// List returns all schedules, created_at descending.
	List(ctx context.Context) (*models.ScheduleList, error)

	// Get retrieves a single schedule.
	Get(ctx context.Context, id uuid.UUID) (*models.Schedule, error)

	// Create validates the cron expression, computes the first next_run
	// locally for optimistic display, and stores the schedule.
	Create(ctx context.Context, req models.CreateScheduleRequest) (*models.Schedule, error)

	// Update applies a partial update, re-validating the cron expression if
	// it changes.
	Update(ctx context.Context, id uuid.UUID, req models.UpdateScheduleRequest) (*models.Schedule, error)

	// ToggleActive flips only is_active, leaving every other field untouched.
	ToggleActive(ctx context.Context, id uuid.UUID, active bool) (*models.Schedule, error)

	// Delete removes a schedule.
	Delete(ctx context.Context, id uuid.UUID) error
}

type scheduleService struct {
	repo   ScheduleRepository
	cache  cache.Invalidator
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduleService creates a schedule service.
func NewScheduleService(repo ScheduleRepository, invalidator cache.Invalidator, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, cache: invalidator, logger: logger, now: time.Now}
}

func (s *scheduleService) List(ctx context.Context) (*models.ScheduleList, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return list, nil
}

func (s *scheduleService) Get(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	schedule, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *scheduleService) Create(ctx context.Context, req models.CreateScheduleRequest) (*models.Schedule, error) {
	if req.TemplateID == uuid.Nil {
		return nil, fmt.Errorf("%w: template is required", apperrors.ErrInvalidInput)
	}
	if err := validate.Cron(req.CronExpression); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err)
	}
	if err := validate.DataSource(req.DataSource); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err)
	}

	schedule, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	// The backend owns next_run; fill it locally only when it has not been
	// set yet so new schedules display a first run immediately.
	if schedule.NextRun == nil {
		if next, ok := nextRun(schedule.CronExpression, s.now()); ok {
			schedule.NextRun = &next
		}
	}

	s.cache.Invalidate(cache.Schedules)
	s.logger.Info("created schedule",
		zap.String("id", schedule.ID.String()),
		zap.String("cron", schedule.CronExpression),
	)
	return schedule, nil
}

func (s *scheduleService) Update(ctx context.Context, id uuid.UUID, req models.UpdateScheduleRequest) (*models.Schedule, error) {
	if req.CronExpression != nil {
		if err := validate.Cron(*req.CronExpression); err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err)
		}
	}
	if req.DataSource != nil {
		if err := validate.DataSource(*req.DataSource); err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err)
		}
	}

	schedule, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(cache.Schedules)
	s.logger.Info("updated schedule", zap.String("id", id.String()))
	return schedule, nil
}

func (s *scheduleService) ToggleActive(ctx context.Context, id uuid.UUID, active bool) (*models.Schedule, error) {
	schedule, err := s.repo.Update(ctx, id, models.UpdateScheduleRequest{IsActive: &active})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(cache.Schedules)
	s.logger.Info("toggled schedule",
		zap.String("id", id.String()),
		zap.Bool("is_active", active),
	)
	return schedule, nil
}

func (s *scheduleService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(cache.Schedules)
	s.logger.Info("deleted schedule", zap.String("id", id.String()))
	return nil
}

// nextRun computes the next firing time after now for a 5-field expression.
func nextRun(expr string, now time.Time) (time.Time, bool) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, false
	}
	return sched.Next(now), true
}

var _ ScheduleService = (*scheduleService)(nil)
