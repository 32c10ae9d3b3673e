package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// Backend contracts. Two interchangeable implementations exist - the generic
// REST client and the managed (Supabase-style) client - selected at
// composition time. Callers of the services never know which one is active.

// TemplateRepository is the backend surface for templates. Templates are
// managed out-of-band and read-only here.
type TemplateRepository interface {
	// List returns templates matching filters, sorted by name ascending.
	List(ctx context.Context, filters models.TemplateFilters) (*models.TemplateList, error)

	// Get returns one template or apperrors.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.Template, error)
}

// ReportRepository is the backend surface for reports. Reads and writes are
// scoped to the current session's user by the backend.
type ReportRepository interface {
	// List returns reports matching filters, newest first.
	List(ctx context.Context, filters models.ReportFilters) (*models.ReportList, error)

	// Get returns one report or apperrors.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.Report, error)

	// Create inserts a new report record in pending status.
	Create(ctx context.Context, req models.CreateReportRequest) (*models.Report, error)

	// Delete removes a report. Deleting an unknown id yields
	// apperrors.ErrNotFound, distinct from transport errors.
	Delete(ctx context.Context, id uuid.UUID) error

	// Download resolves the report's stored file reference to its bytes.
	Download(ctx context.Context, report *models.Report) ([]byte, error)
}

// ScheduleRepository is the backend surface for schedules.
type ScheduleRepository interface {
	// List returns all schedules for the user, created_at descending.
	List(ctx context.Context) (*models.ScheduleList, error)

	// Get returns one schedule or apperrors.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.Schedule, error)

	// Create inserts a new schedule.
	Create(ctx context.Context, req models.CreateScheduleRequest) (*models.Schedule, error)

	// Update applies a partial update and returns the updated row.
	Update(ctx context.Context, id uuid.UUID, req models.UpdateScheduleRequest) (*models.Schedule, error)

	// Delete removes a schedule.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProcessingJob is the processing backend's answer to a trigger request.
type ProcessingJob struct {
	JobID   string
	Status  string
	Message string
}

// ProcessingTrigger is the optional processing collaborator that actually
// produces report output. A nil trigger means no backend is configured,
// which is a normal condition, not an error.
type ProcessingTrigger interface {
	Trigger(ctx context.Context, reportID uuid.UUID, req models.CreateReportRequest) (*ProcessingJob, error)
}
