package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
	"github.com/draftmill-inc/draftmill-client/pkg/services"
)

// List returns reports matching filters. Filters travel as query parameters;
// the sentinel "all" status is simply not sent.
func (c *Client) List(ctx context.Context, filters models.ReportFilters) (*models.ReportList, error) {
	filters = filters.Normalize()

	params := url.Values{}
	params.Set("page", strconv.Itoa(filters.Page))
	params.Set("limit", strconv.Itoa(filters.Limit))
	if status, ok := filters.StatusFilter(); ok {
		params.Set("status", string(status))
	}
	if filters.TemplateID != uuid.Nil {
		params.Set("template_id", filters.TemplateID.String())
	}
	if filters.DateFrom != nil {
		params.Set("date_from", filters.DateFrom.Format(time.RFC3339))
	}
	if filters.DateTo != nil {
		params.Set("date_to", filters.DateTo.Format(time.RFC3339))
	}
	if filters.Search != "" {
		params.Set("search", filters.Search)
	}

	var list models.ReportList
	if err := c.do(ctx, http.MethodGet, "/reports", params, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Get returns one report.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := c.do(ctx, http.MethodGet, "/reports/"+id.String(), nil, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// generateResponse is the backend's answer to a creation request.
type generateResponse struct {
	JobID    string    `json:"job_id"`
	ReportID uuid.UUID `json:"report_id"`
}

// Create submits a generation request. The backend answers with ids only, so
// the full record is fetched back; if that read races the backend and misses,
// a pending record is synthesized from the request. Any other read-back
// failure is a real error and propagates.
func (c *Client) Create(ctx context.Context, req models.CreateReportRequest) (*models.Report, error) {
	var resp generateResponse
	if err := c.do(ctx, http.MethodPost, "/reports/generate", nil, req, &resp); err != nil {
		return nil, err
	}

	report, err := c.Get(ctx, resp.ReportID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("failed to read back created report: %w", err)
		}
		c.logger.Warn("created report not readable yet, synthesizing pending record",
			zap.String("report_id", resp.ReportID.String()),
			zap.Error(err))
		return &models.Report{
			ID:         resp.ReportID,
			TemplateID: req.TemplateID,
			Status:     models.StatusPending,
			DataSource: req.DataSource,
			Params:     req.Params,
			CreatedAt:  time.Now(),
		}, nil
	}
	return report, nil
}

// Delete removes a report.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/reports/"+id.String(), nil, nil, nil)
}

// Download fetches the report's output file bytes.
func (c *Client) Download(ctx context.Context, report *models.Report) ([]byte, error) {
	return c.download(ctx, fmt.Sprintf("/reports/%s/download", report.ID))
}

// ListTemplates returns templates matching filters, name ascending.
func (c *Client) ListTemplates(ctx context.Context, filters models.TemplateFilters) (*models.TemplateList, error) {
	params := url.Values{}
	if filters.Search != "" {
		params.Set("search", filters.Search)
	}
	if category, ok := filters.CategoryFilter(); ok {
		params.Set("category", category)
	}

	var list models.TemplateList
	if err := c.do(ctx, http.MethodGet, "/templates", params, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetTemplate returns one template.
func (c *Client) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var tpl models.Template
	if err := c.do(ctx, http.MethodGet, "/templates/"+id.String(), nil, nil, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListSchedules returns all schedules for the user.
func (c *Client) ListSchedules(ctx context.Context) (*models.ScheduleList, error) {
	var list models.ScheduleList
	if err := c.do(ctx, http.MethodGet, "/schedules", nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetSchedule returns one schedule.
func (c *Client) GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := c.do(ctx, http.MethodGet, "/schedules/"+id.String(), nil, nil, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// CreateSchedule stores a new schedule.
func (c *Client) CreateSchedule(ctx context.Context, req models.CreateScheduleRequest) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := c.do(ctx, http.MethodPost, "/schedules", nil, req, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// UpdateSchedule applies a partial update.
func (c *Client) UpdateSchedule(ctx context.Context, id uuid.UUID, req models.UpdateScheduleRequest) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := c.do(ctx, http.MethodPut, "/schedules/"+id.String(), nil, req, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// DeleteSchedule removes a schedule.
func (c *Client) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/schedules/"+id.String(), nil, nil, nil)
}

// Adapter types so one Client satisfies the per-resource repository
// contracts without method-name collisions.

// Templates exposes the client as a services.TemplateRepository.
func (c *Client) Templates() services.TemplateRepository { return templateAPI{c} }

// Schedules exposes the client as a services.ScheduleRepository.
func (c *Client) Schedules() services.ScheduleRepository { return scheduleAPI{c} }

type templateAPI struct{ c *Client }

func (a templateAPI) List(ctx context.Context, filters models.TemplateFilters) (*models.TemplateList, error) {
	return a.c.ListTemplates(ctx, filters)
}

func (a templateAPI) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	return a.c.GetTemplate(ctx, id)
}

type scheduleAPI struct{ c *Client }

func (a scheduleAPI) List(ctx context.Context) (*models.ScheduleList, error) {
	return a.c.ListSchedules(ctx)
}

func (a scheduleAPI) Get(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	return a.c.GetSchedule(ctx, id)
}

func (a scheduleAPI) Create(ctx context.Context, req models.CreateScheduleRequest) (*models.Schedule, error) {
	return a.c.CreateSchedule(ctx, req)
}

func (a scheduleAPI) Update(ctx context.Context, id uuid.UUID, req models.UpdateScheduleRequest) (*models.Schedule, error) {
	return a.c.UpdateSchedule(ctx, id, req)
}

func (a scheduleAPI) Delete(ctx context.Context, id uuid.UUID) error {
	return a.c.DeleteSchedule(ctx, id)
}

var (
	_ services.ReportRepository   = (*Client)(nil)
	_ services.TemplateRepository = templateAPI{}
	_ services.ScheduleRepository = scheduleAPI{}
)
