package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Schedule is a stored recurrence definition for automatically creating
// reports. Firing scheduled runs is an external collaborator's concern; this
// system only stores and displays the definition and its toggle state.
type Schedule struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	TemplateID     uuid.UUID      `json:"template_id"`
	TemplateName   string         `json:"template_name,omitempty"`
	Name           string         `json:"name"`
	CronExpression string         `json:"cron_expression"`
	Params         map[string]any `json:"params"`
	DataSource     DataSource     `json:"data_source"`
	IsActive       bool           `json:"is_active"`
	NextRun        *time.Time     `json:"next_run"`
	LastRun        *time.Time     `json:"last_run"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate enforces the structural schedule invariant: a 5-field cron
// expression (minute, hour, day-of-month, month, day-of-week). Semantic
// validation of field values is the schedule service's concern.
func (s *Schedule) Validate() error {
	if fields := strings.Fields(s.CronExpression); len(fields) != 5 {
		return fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}
	return nil
}

// CreateScheduleRequest is the payload for defining a new schedule.
type CreateScheduleRequest struct {
	TemplateID     uuid.UUID      `json:"template_id"`
	Name           string         `json:"name,omitempty"`
	CronExpression string         `json:"cron_expression"`
	DataSource     DataSource     `json:"data_source"`
	Params         map[string]any `json:"params,omitempty"`
}

// UpdateScheduleRequest is a partial update; nil fields are left untouched.
type UpdateScheduleRequest struct {
	Name           *string        `json:"name,omitempty"`
	CronExpression *string        `json:"cron_expression,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	DataSource     *DataSource    `json:"data_source,omitempty"`
	IsActive       *bool          `json:"is_active,omitempty"`
}

// ScheduleList is the envelope returned by schedule list operations.
type ScheduleList struct {
	Items []*Schedule `json:"items"`
	Total int         `json:"total"`
}
