package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
	"github.com/draftmill-inc/draftmill-client/pkg/services"
)

// Row types mirror the backend tables. The embedded "templates" object comes
// from relational expansion (select=*,templates(name)) and denormalizes the
// template name that the flat REST backend returns inline.

type templateRef struct {
	Name string `json:"name"`
}

type reportRow struct {
	ID           uuid.UUID           `json:"id"`
	UserID       uuid.UUID           `json:"user_id"`
	TemplateID   uuid.UUID           `json:"template_id"`
	Status       models.ReportStatus `json:"status"`
	DataSource   models.DataSource   `json:"data_source"`
	Params       map[string]any      `json:"params"`
	FilePath     *string             `json:"file_path"`
	FileSize     *int64              `json:"file_size"`
	ErrorMessage *string             `json:"error_message"`
	CreatedAt    time.Time           `json:"created_at"`
	StartedAt    *time.Time          `json:"started_at"`
	CompletedAt  *time.Time          `json:"completed_at"`
	Template     *templateRef        `json:"templates"`
}

func (r reportRow) toModel() *models.Report {
	report := &models.Report{
		ID:           r.ID,
		UserID:       r.UserID,
		TemplateID:   r.TemplateID,
		Status:       r.Status,
		DataSource:   r.DataSource,
		Params:       r.Params,
		FilePath:     r.FilePath,
		FileSize:     r.FileSize,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
	if r.Template != nil {
		report.TemplateName = r.Template.Name
	}
	return report
}

type scheduleRow struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	TemplateID     uuid.UUID         `json:"template_id"`
	Name           string            `json:"name"`
	CronExpression string            `json:"cron_expression"`
	Params         map[string]any    `json:"params"`
	DataSource     models.DataSource `json:"data_source"`
	IsActive       bool              `json:"is_active"`
	NextRun        *time.Time        `json:"next_run"`
	LastRun        *time.Time        `json:"last_run"`
	CreatedAt      time.Time         `json:"created_at"`
	Template       *templateRef      `json:"templates"`
}

func (s scheduleRow) toModel() *models.Schedule {
	schedule := &models.Schedule{
		ID:             s.ID,
		UserID:         s.UserID,
		TemplateID:     s.TemplateID,
		Name:           s.Name,
		CronExpression: s.CronExpression,
		Params:         s.Params,
		DataSource:     s.DataSource,
		IsActive:       s.IsActive,
		NextRun:        s.NextRun,
		LastRun:        s.LastRun,
		CreatedAt:      s.CreatedAt,
	}
	if s.Template != nil {
		schedule.TemplateName = s.Template.Name
	}
	return schedule
}

// List returns the user's reports newest first. Status, template and date
// filters are pushed down as row filters; free-text search is applied
// client-side over id and template name because the row filter syntax cannot
// reach across the expanded relation.
func (c *Client) List(ctx context.Context, filters models.ReportFilters) (*models.ReportList, error) {
	filters = filters.Normalize()

	q := newQuery("reports").
		Select("*,templates(name)").
		Order("created_at", false)
	if status, ok := filters.StatusFilter(); ok {
		q.Eq("status", string(status))
	}
	if filters.TemplateID != uuid.Nil {
		q.Eq("template_id", filters.TemplateID.String())
	}
	if filters.DateFrom != nil {
		q.Gte("created_at", filters.DateFrom.Format(time.RFC3339))
	}
	if filters.DateTo != nil {
		q.Lte("created_at", filters.DateTo.Format(time.RFC3339))
	}
	lo := (filters.Page - 1) * filters.Limit
	q.Range(lo, lo+filters.Limit-1)

	var rows []reportRow
	total, err := c.run(ctx, q, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	items := make([]*models.Report, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	if filters.Search != "" {
		items = filterReportsBySearch(items, filters.Search)
		total = len(items)
	}
	if total < 0 {
		total = len(items)
	}

	return &models.ReportList{
		Items: items,
		Total: total,
		Page:  filters.Page,
		Limit: filters.Limit,
	}, nil
}

// filterReportsBySearch keeps reports whose id or template name contains the
// term, case-insensitively.
func filterReportsBySearch(items []*models.Report, term string) []*models.Report {
	term = strings.ToLower(term)
	matched := make([]*models.Report, 0, len(items))
	for _, r := range items {
		if strings.Contains(strings.ToLower(r.ID.String()), term) ||
			strings.Contains(strings.ToLower(r.TemplateName), term) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Get returns one report or apperrors.ErrNotFound.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	q := newQuery("reports").
		Select("*,templates(name)").
		Eq("id", id.String())

	var rows []reportRow
	if _, err := c.run(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return rows[0].toModel(), nil
}

// Create inserts a pending report row. The backend derives user_id from the
// session token.
func (c *Client) Create(ctx context.Context, req models.CreateReportRequest) (*models.Report, error) {
	insert := map[string]any{
		"template_id": req.TemplateID,
		"data_source": req.DataSource,
		"params":      req.Params,
		"status":      models.StatusPending,
	}

	var rows []reportRow
	if err := c.mutate(ctx, "POST", "reports", "select=*,templates(name)", insert, &rows); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create report returned no row")
	}
	return rows[0].toModel(), nil
}

// Delete removes a report row. A delete that matches no row is reported as
// apperrors.ErrNotFound, which return=representation makes observable.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	var rows []json.RawMessage
	if err := c.mutate(ctx, "DELETE", "reports", "id=eq."+id.String(), nil, &rows); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if len(rows) == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Download fetches the report's stored object from the bucket.
func (c *Client) Download(ctx context.Context, report *models.Report) ([]byte, error) {
	if report.FilePath == nil || *report.FilePath == "" {
		return nil, apperrors.ErrFileNotAvailable
	}
	data, err := c.DownloadObject(ctx, *report.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download report file: %w", err)
	}
	return data, nil
}

// Templates returns the template surface of this client.
func (c *Client) Templates() services.TemplateRepository { return templateAPI{c} }

// Schedules returns the schedule surface of this client.
func (c *Client) Schedules() services.ScheduleRepository { return scheduleAPI{c} }

type templateAPI struct{ c *Client }

func (a templateAPI) List(ctx context.Context, filters models.TemplateFilters) (*models.TemplateList, error) {
	q := newQuery("templates").
		Select("*").
		Order("name", true)
	if category, ok := filters.CategoryFilter(); ok {
		q.Eq("category", category)
	}

	var items []*models.Template
	if _, err := a.c.run(ctx, q, &items); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if filters.Search != "" {
		items = filterTemplatesBySearch(items, filters.Search)
	}
	return &models.TemplateList{Items: items, Total: len(items)}, nil
}

func filterTemplatesBySearch(items []*models.Template, term string) []*models.Template {
	term = strings.ToLower(term)
	matched := make([]*models.Template, 0, len(items))
	for _, t := range items {
		if strings.Contains(strings.ToLower(t.Name), term) ||
			strings.Contains(strings.ToLower(t.Description), term) {
			matched = append(matched, t)
		}
	}
	return matched
}

func (a templateAPI) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	q := newQuery("templates").
		Select("*").
		Eq("id", id.String())

	var items []*models.Template
	if _, err := a.c.run(ctx, q, &items); err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if len(items) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return items[0], nil
}

type scheduleAPI struct{ c *Client }

func (a scheduleAPI) List(ctx context.Context) (*models.ScheduleList, error) {
	q := newQuery("schedules").
		Select("*,templates(name)").
		Order("created_at", false)

	var rows []scheduleRow
	if _, err := a.c.run(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	items := make([]*models.Schedule, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return &models.ScheduleList{Items: items, Total: len(items)}, nil
}

func (a scheduleAPI) Get(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	q := newQuery("schedules").
		Select("*,templates(name)").
		Eq("id", id.String())

	var rows []scheduleRow
	if _, err := a.c.run(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return rows[0].toModel(), nil
}

func (a scheduleAPI) Create(ctx context.Context, req models.CreateScheduleRequest) (*models.Schedule, error) {
	insert := map[string]any{
		"template_id":     req.TemplateID,
		"name":            req.Name,
		"cron_expression": req.CronExpression,
		"data_source":     req.DataSource,
		"params":          req.Params,
		"is_active":       true,
	}

	var rows []scheduleRow
	if err := a.c.mutate(ctx, "POST", "schedules", "select=*,templates(name)", insert, &rows); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create schedule returned no row")
	}
	return rows[0].toModel(), nil
}

func (a scheduleAPI) Update(ctx context.Context, id uuid.UUID, req models.UpdateScheduleRequest) (*models.Schedule, error) {
	filter := "id=eq." + id.String() + "&select=*,templates(name)"

	var rows []scheduleRow
	if err := a.c.mutate(ctx, "PATCH", "schedules", filter, req, &rows); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return rows[0].toModel(), nil
}

func (a scheduleAPI) Delete(ctx context.Context, id uuid.UUID) error {
	var rows []json.RawMessage
	if err := a.c.mutate(ctx, "DELETE", "schedules", "id=eq."+id.String(), nil, &rows); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if len(rows) == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

var (
	_ services.ReportRepository   = (*Client)(nil)
	_ services.TemplateRepository = templateAPI{}
	_ services.ScheduleRepository = scheduleAPI{}
)
