package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// TemplateService defines the template operations the UI consumes.
type TemplateService interface {
	// List returns templates matching filters, sorted by name ascending.
	List(ctx context.Context, filters models.TemplateFilters) (*models.TemplateList, error)

	// Get retrieves a single template.
	Get(ctx context.Context, id uuid.UUID) (*models.Template, error)
}

type templateService struct {
	repo   TemplateRepository
	logger *zap.Logger
}

// NewTemplateService creates a template service.
func NewTemplateService(repo TemplateRepository, logger *zap.Logger) TemplateService {
	return &templateService{repo: repo, logger: logger}
}

func (s *templateService) List(ctx context.Context, filters models.TemplateFilters) (*models.TemplateList, error) {
	list, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return list, nil
}

func (s *templateService) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	tpl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

var _ TemplateService = (*templateService)(nil)
