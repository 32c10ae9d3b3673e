package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// sequenceReportRepository returns a scripted sequence of results, one per
// Get call, holding the last entry once the script runs out.
type sequenceReportRepository struct {
	script []func() (*models.Report, error)
	calls  int
}

func (m *sequenceReportRepository) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	i := m.calls
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	m.calls++
	return m.script[i]()
}

func (m *sequenceReportRepository) List(ctx context.Context, filters models.ReportFilters) (*models.ReportList, error) {
	return nil, errors.New("not scripted")
}

func (m *sequenceReportRepository) Create(ctx context.Context, req models.CreateReportRequest) (*models.Report, error) {
	return nil, errors.New("not scripted")
}

func (m *sequenceReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("not scripted")
}

func (m *sequenceReportRepository) Download(ctx context.Context, report *models.Report) ([]byte, error) {
	return nil, errors.New("not scripted")
}

func reportWith(status models.ReportStatus) func() (*models.Report, error) {
	report := &models.Report{ID: uuid.New(), Status: status}
	if status == models.StatusFailed {
		msg := "render failed"
		report.ErrorMessage = &msg
	}
	return func() (*models.Report, error) { return report, nil }
}

func failWith(err error) func() (*models.Report, error) {
	return func() (*models.Report, error) { return nil, err }
}

func TestReportWatcher_PollsUntilTerminal(t *testing.T) {
	repo := &sequenceReportRepository{script: []func() (*models.Report, error){
		reportWith(models.StatusPending),
		reportWith(models.StatusProcessing),
		reportWith(models.StatusCompleted),
	}}
	w := NewReportWatcher(repo, 5*time.Millisecond, zap.NewNop())

	var observed []models.ReportStatus
	last, err := w.Watch(context.Background(), uuid.New(), func(r *models.Report) {
		observed = append(observed, r.Status)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if last == nil || last.Status != models.StatusCompleted {
		t.Errorf("expected completed final state, got %+v", last)
	}
	want := []models.ReportStatus{models.StatusPending, models.StatusProcessing, models.StatusCompleted}
	if len(observed) != len(want) {
		t.Fatalf("observed %v, want %v", observed, want)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Errorf("observed[%d] = %q, want %q", i, observed[i], want[i])
		}
	}
}

func TestReportWatcher_TerminalImmediately_NoFurtherFetches(t *testing.T) {
	repo := &sequenceReportRepository{script: []func() (*models.Report, error){
		reportWith(models.StatusCompleted),
	}}
	w := NewReportWatcher(repo, 5*time.Millisecond, zap.NewNop())

	if _, err := w.Watch(context.Background(), uuid.New(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Give any stray ticker a chance to fire.
	time.Sleep(25 * time.Millisecond)
	if repo.calls != 1 {
		t.Errorf("terminal report should stop polling, got %d fetches", repo.calls)
	}
}

func TestReportWatcher_TransientErrorRetried(t *testing.T) {
	repo := &sequenceReportRepository{script: []func() (*models.Report, error){
		failWith(errors.New("connection reset")),
		reportWith(models.StatusFailed),
	}}
	w := NewReportWatcher(repo, 5*time.Millisecond, zap.NewNop())

	last, err := w.Watch(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("transient error should be retried, got %v", err)
	}
	if last == nil || last.Status != models.StatusFailed {
		t.Errorf("expected failed final state, got %+v", last)
	}
}

func TestReportWatcher_NotFoundAborts(t *testing.T) {
	repo := &sequenceReportRepository{script: []func() (*models.Report, error){
		failWith(apperrors.ErrNotFound),
	}}
	w := NewReportWatcher(repo, 5*time.Millisecond, zap.NewNop())

	if _, err := w.Watch(context.Background(), uuid.New(), nil); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if repo.calls != 1 {
		t.Errorf("not-found should abort immediately, got %d fetches", repo.calls)
	}
}

func TestReportWatcher_CancellationStopsWatch(t *testing.T) {
	repo := &sequenceReportRepository{script: []func() (*models.Report, error){
		reportWith(models.StatusProcessing),
	}}
	w := NewReportWatcher(repo, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	last, err := w.Watch(ctx, uuid.New(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if last == nil || last.Status != models.StatusProcessing {
		t.Error("last observed state should be returned on cancellation")
	}
}
