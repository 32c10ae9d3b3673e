package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
	"github.com/draftmill-inc/draftmill-client/pkg/cache"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// FileDownload is a resolved report output ready to hand to the host
// environment's save mechanism.
type FileDownload struct {
	Filename string
	Data     []byte
}

// ReportService defines the report operations the UI consumes.
type ReportService interface {
	// List returns reports matching filters, newest first, with pagination
	// defaults applied (page 1, size 10).
	List(ctx context.Context, filters models.ReportFilters) (*models.ReportList, error)

	// Get retrieves a single report.
	Get(ctx context.Context, id uuid.UUID) (*models.Report, error)

	// Delete removes a report and invalidates the cached collection.
	Delete(ctx context.Context, id uuid.UUID) error

	// Download resolves a completed report's output file. Reports without a
	// stored output fail with apperrors.ErrFileNotAvailable before any
	// network call is attempted.
	Download(ctx context.Context, id uuid.UUID, filename string) (*FileDownload, error)
}

type reportService struct {
	repo   ReportRepository
	cache  cache.Invalidator
	logger *zap.Logger
}

// NewReportService creates a report service.
func NewReportService(repo ReportRepository, invalidator cache.Invalidator, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, cache: invalidator, logger: logger}
}

func (s *reportService) List(ctx context.Context, filters models.ReportFilters) (*models.ReportList, error) {
	list, err := s.repo.List(ctx, filters.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return list, nil
}

func (s *reportService) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *reportService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(cache.Reports)
	s.logger.Info("deleted report", zap.String("id", id.String()))
	return nil
}

func (s *reportService) Download(ctx context.Context, id uuid.UUID, filename string) (*FileDownload, error) {
	report, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.FilePath == nil || *report.FilePath == "" {
		return nil, apperrors.ErrFileNotAvailable
	}

	data, err := s.repo.Download(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("failed to download report file: %w", err)
	}

	if filename == "" {
		filename = fmt.Sprintf("report-%s.pdf", id)
	}
	return &FileDownload{Filename: filename, Data: data}, nil
}

var _ ReportService = (*reportService)(nil)
