package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportStatus tracks a report through its generation state machine:
// pending -> processing -> completed | failed, with pending -> failed
// allowed for reports rejected before processing starts. Transitions are
// driven by the processing backend and observed via polling; a report never
// transitions backward.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusProcessing ReportStatus = "processing"
	StatusCompleted  ReportStatus = "completed"
	StatusFailed     ReportStatus = "failed"
)

// Valid reports whether s is a known status value.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s admits no further transitions. Terminal
// reports are never polled.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal step in
// the state machine.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Report is one generation attempt: a template plus the data source and
// parameter values it was invoked with.
type Report struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	TemplateID   uuid.UUID      `json:"template_id"`
	TemplateName string         `json:"template_name,omitempty"`
	Status       ReportStatus   `json:"status"`
	DataSource   DataSource     `json:"data_source"`
	Params       map[string]any `json:"params"`
	FilePath     *string        `json:"file_path"`
	FileSize     *int64         `json:"file_size"`
	ErrorMessage *string        `json:"error_message"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at"`
}

// Validate enforces the report invariants: a known status, output file
// fields present iff completed, and an error message present iff failed.
func (r *Report) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("invalid report status %q", r.Status)
	}

	hasFile := r.FilePath != nil || r.FileSize != nil
	if r.Status == StatusCompleted {
		if r.FilePath == nil || r.FileSize == nil {
			return fmt.Errorf("completed report missing file_path or file_size")
		}
	} else if hasFile {
		return fmt.Errorf("file fields set on %s report", r.Status)
	}

	if r.Status == StatusFailed {
		if r.ErrorMessage == nil {
			return fmt.Errorf("failed report missing error_message")
		}
	} else if r.ErrorMessage != nil {
		return fmt.Errorf("error_message set on %s report", r.Status)
	}

	return nil
}

// CreateReportRequest is the payload for starting a generation attempt.
type CreateReportRequest struct {
	TemplateID uuid.UUID      `json:"template_id"`
	DataSource DataSource     `json:"data_source"`
	Params     map[string]any `json:"params"`
}

// ReportList is the envelope returned by report list operations.
type ReportList struct {
	Items []*Report `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// ReportFilters narrows a report list. The zero value means no filtering
// with default pagination.
type ReportFilters struct {
	// Status filters by exact match. Empty or the sentinel "all" disables
	// the filter.
	Status string
	// TemplateID filters by exact match; uuid.Nil disables it.
	TemplateID uuid.UUID
	// DateFrom/DateTo bound created_at inclusively.
	DateFrom *time.Time
	DateTo   *time.Time
	// Search matches case-insensitively against template name or report id.
	Search string
	// Page is 1-based; zero means page 1. Limit zero means the default size.
	Page  int
	Limit int
}

// DefaultPageSize is applied when a list request carries no explicit limit.
const DefaultPageSize = 10

// StatusFilter resolves the sentinel handling: it returns the status to
// filter on and whether filtering applies at all.
func (f ReportFilters) StatusFilter() (ReportStatus, bool) {
	if f.Status == "" || f.Status == "all" {
		return "", false
	}
	return ReportStatus(f.Status), true
}

// Normalize fills pagination defaults (page 1, DefaultPageSize).
func (f ReportFilters) Normalize() ReportFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	return f
}

// Active reports whether any narrowing filter is set, ignoring pagination.
// List views use this to distinguish "no data yet" from "no matches".
func (f ReportFilters) Active() bool {
	if _, ok := f.StatusFilter(); ok {
		return true
	}
	return f.TemplateID != uuid.Nil || f.DateFrom != nil || f.DateTo != nil || f.Search != ""
}
