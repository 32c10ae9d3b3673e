package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReportStatus_IsTerminal(t *testing.T) {
	if StatusPending.IsTerminal() || StatusProcessing.IsTerminal() {
		t.Error("pending and processing must be non-terminal")
	}
	if !StatusCompleted.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("completed and failed must be terminal")
	}
}

func TestReportStatus_CanTransitionTo(t *testing.T) {
	allowed := []struct{ from, to ReportStatus }{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusFailed},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
	}
	for _, tr := range allowed {
		if !tr.from.CanTransitionTo(tr.to) {
			t.Errorf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to ReportStatus }{
		{StatusPending, StatusCompleted},
		{StatusCompleted, StatusProcessing},
		{StatusCompleted, StatusPending},
		{StatusFailed, StatusProcessing},
		{StatusProcessing, StatusPending},
	}
	for _, tr := range forbidden {
		if tr.from.CanTransitionTo(tr.to) {
			t.Errorf("%s -> %s should be forbidden", tr.from, tr.to)
		}
	}
}

func TestReport_Validate_FileFieldsOnlyWhenCompleted(t *testing.T) {
	path := "reports/out.pdf"
	size := int64(2048)
	msg := "render failed"

	completed := Report{Status: StatusCompleted, FilePath: &path, FileSize: &size}
	if err := completed.Validate(); err != nil {
		t.Errorf("valid completed report rejected: %v", err)
	}

	completedNoFile := Report{Status: StatusCompleted}
	if err := completedNoFile.Validate(); err == nil {
		t.Error("completed report without file fields should be invalid")
	}

	pendingWithFile := Report{Status: StatusPending, FilePath: &path}
	if err := pendingWithFile.Validate(); err == nil {
		t.Error("pending report with file fields should be invalid")
	}

	failed := Report{Status: StatusFailed, ErrorMessage: &msg}
	if err := failed.Validate(); err != nil {
		t.Errorf("valid failed report rejected: %v", err)
	}

	failedNoMsg := Report{Status: StatusFailed}
	if err := failedNoMsg.Validate(); err == nil {
		t.Error("failed report without error message should be invalid")
	}

	pendingWithMsg := Report{Status: StatusPending, ErrorMessage: &msg}
	if err := pendingWithMsg.Validate(); err == nil {
		t.Error("pending report with error message should be invalid")
	}
}

func TestReportFilters_StatusFilter_Sentinel(t *testing.T) {
	if _, ok := (ReportFilters{Status: ""}).StatusFilter(); ok {
		t.Error("empty status should disable the filter")
	}
	if _, ok := (ReportFilters{Status: "all"}).StatusFilter(); ok {
		t.Error("'all' should disable the filter")
	}
	status, ok := (ReportFilters{Status: "completed"}).StatusFilter()
	if !ok || status != StatusCompleted {
		t.Errorf("expected completed filter, got %q ok=%v", status, ok)
	}
}

func TestReportFilters_Normalize(t *testing.T) {
	f := ReportFilters{}.Normalize()
	if f.Page != 1 {
		t.Errorf("expected page 1, got %d", f.Page)
	}
	if f.Limit != DefaultPageSize {
		t.Errorf("expected limit %d, got %d", DefaultPageSize, f.Limit)
	}

	f = ReportFilters{Page: 3, Limit: 25}.Normalize()
	if f.Page != 3 || f.Limit != 25 {
		t.Error("explicit pagination must be preserved")
	}
}

func TestReportFilters_Active(t *testing.T) {
	now := time.Now()

	if (ReportFilters{Page: 2, Limit: 50}).Active() {
		t.Error("pagination alone must not count as an active filter")
	}
	if (ReportFilters{Status: "all"}).Active() {
		t.Error("sentinel status must not count as active")
	}
	active := []ReportFilters{
		{Status: "failed"},
		{TemplateID: uuid.New()},
		{DateFrom: &now},
		{DateTo: &now},
		{Search: "invoice"},
	}
	for i, f := range active {
		if !f.Active() {
			t.Errorf("case %d should be active", i)
		}
	}
}
