package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// ReportWatcher polls a single report until it reaches a terminal status.
// One Watch call runs at most one fetch at a time - the loop is sequential,
// so in-flight requests never stack - and the watch dies with its context,
// leaving no orphaned timers when the viewing screen is torn down.
type ReportWatcher struct {
	repo     ReportRepository
	interval time.Duration
	logger   *zap.Logger
}

// NewReportWatcher creates a watcher polling at the given interval.
func NewReportWatcher(repo ReportRepository, interval time.Duration, logger *zap.Logger) *ReportWatcher {
	return &ReportWatcher{repo: repo, interval: interval, logger: logger}
}

// Watch fetches the report immediately, then on every interval tick while
// its status is non-terminal. onUpdate receives each observed state,
// including the final terminal one; after a terminal status is observed no
// further fetches are issued. Transient fetch failures are logged and
// retried on the next tick; not-found and auth rejections abort the watch.
//
// Returns the last observed report, or the context's error if cancelled.
func (w *ReportWatcher) Watch(ctx context.Context, id uuid.UUID, onUpdate func(*models.Report)) (*models.Report, error) {
	var last *models.Report

	fetch := func() (bool, error) {
		report, err := w.repo.Get(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) || apperrors.IsUnauthorized(err) {
				return true, err
			}
			w.logger.Warn("report poll failed, will retry",
				zap.String("report_id", id.String()),
				zap.Error(err))
			return false, nil
		}

		// A terminal status never regresses: ignore any out-of-order
		// non-terminal state arriving after one was observed.
		if last != nil && last.Status.IsTerminal() {
			return true, nil
		}

		last = report
		if onUpdate != nil {
			onUpdate(report)
		}
		return report.Status.IsTerminal(), nil
	}

	done, err := fetch()
	if err != nil {
		return last, err
	}
	if done {
		return last, nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
			done, err := fetch()
			if err != nil {
				return last, err
			}
			if done {
				return last, nil
			}
		}
	}
}
