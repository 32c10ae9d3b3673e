package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ParameterType enumerates the input kinds a template parameter can declare.
type ParameterType string

const (
	ParamString  ParameterType = "string"
	ParamNumber  ParameterType = "number"
	ParamBoolean ParameterType = "boolean"
	ParamDate    ParameterType = "date"
	ParamSelect  ParameterType = "select"
)

// Valid reports whether t is a known parameter type.
func (t ParameterType) Valid() bool {
	switch t {
	case ParamString, ParamNumber, ParamBoolean, ParamDate, ParamSelect:
		return true
	}
	return false
}

// TemplateParameter is one declared input of a template.
type TemplateParameter struct {
	Name         string        `json:"name"`
	Type         ParameterType `json:"type"`
	Label        string        `json:"label"`
	Required     bool          `json:"required"`
	DefaultValue any           `json:"default_value,omitempty"`
	// Options are the allowed values when Type is select.
	Options     []string `json:"options,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Template is a reusable report definition. Templates are managed by an
// external collaborator and read-only from this client's perspective.
type Template struct {
	ID              uuid.UUID           `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	ThumbnailURL    *string             `json:"thumbnail_url"`
	Category        string              `json:"category"`
	Schema          []TemplateParameter `json:"schema"`
	SampleOutputURL string              `json:"sample_output_url,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// Validate enforces template invariants: parameter names are unique and
// select parameters declare their options.
func (t *Template) Validate() error {
	seen := make(map[string]struct{}, len(t.Schema))
	for _, p := range t.Schema {
		if !p.Type.Valid() {
			return fmt.Errorf("parameter %q has invalid type %q", p.Name, p.Type)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Type == ParamSelect && len(p.Options) == 0 {
			return fmt.Errorf("select parameter %q has no options", p.Name)
		}
	}
	return nil
}

// TemplateList is the envelope returned by template list operations.
type TemplateList struct {
	Items []*Template `json:"items"`
	Total int         `json:"total"`
}

// TemplateFilters narrows a template list: case-insensitive substring search
// over name and description, and exact category match with the sentinel
// "all" meaning no category filter.
type TemplateFilters struct {
	Search   string
	Category string
}

// CategoryFilter resolves the sentinel: the category to match and whether
// filtering applies.
func (f TemplateFilters) CategoryFilter() (string, bool) {
	if f.Category == "" || f.Category == "all" {
		return "", false
	}
	return f.Category, true
}

// Active reports whether any narrowing filter is set.
func (f TemplateFilters) Active() bool {
	_, ok := f.CategoryFilter()
	return ok || f.Search != ""
}
