package models

import "testing"

func TestTemplate_Validate(t *testing.T) {
	valid := Template{
		Name: "Sales Summary",
		Schema: []TemplateParameter{
			{Name: "region", Type: ParamSelect, Options: []string{"north", "south"}},
			{Name: "start", Type: ParamDate},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid template rejected: %v", err)
	}

	dup := Template{Schema: []TemplateParameter{
		{Name: "region", Type: ParamString},
		{Name: "region", Type: ParamString},
	}}
	if err := dup.Validate(); err == nil {
		t.Error("duplicate parameter names should be rejected")
	}

	selectNoOpts := Template{Schema: []TemplateParameter{
		{Name: "region", Type: ParamSelect},
	}}
	if err := selectNoOpts.Validate(); err == nil {
		t.Error("select parameter without options should be rejected")
	}

	badType := Template{Schema: []TemplateParameter{
		{Name: "x", Type: "enum"},
	}}
	if err := badType.Validate(); err == nil {
		t.Error("unknown parameter type should be rejected")
	}
}

func TestTemplateFilters_CategoryFilter(t *testing.T) {
	if _, ok := (TemplateFilters{Category: "all"}).CategoryFilter(); ok {
		t.Error("'all' should disable the category filter")
	}
	category, ok := (TemplateFilters{Category: "finance"}).CategoryFilter()
	if !ok || category != "finance" {
		t.Errorf("expected finance filter, got %q ok=%v", category, ok)
	}
}

func TestSchedule_Validate(t *testing.T) {
	ok := Schedule{CronExpression: "0 9 * * 1"}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid cron rejected: %v", err)
	}

	bad := Schedule{CronExpression: "0 9 * *"}
	if err := bad.Validate(); err == nil {
		t.Error("4-field cron should be rejected")
	}
}
