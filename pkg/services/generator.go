package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
	"github.com/draftmill-inc/draftmill-client/pkg/cache"
	"github.com/draftmill-inc/draftmill-client/pkg/logging"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
	"github.com/draftmill-inc/draftmill-client/pkg/validate"
)

// WizardStep is a position in the generation wizard. Steps are strictly
// ordered; advancing requires the current step's guard to pass, and going
// back never loses entered values.
type WizardStep int

const (
	StepSelectTemplate   WizardStep = 1
	StepSelectSourceType WizardStep = 2
	StepConfigureSource  WizardStep = 3
)

// Outcome classifies a successful submission. The record is created in all
// three cases; only the processing hand-off differs. None of these is an
// error toward the user.
type Outcome string

const (
	// OutcomeProcessingStarted: record created and the processing backend
	// accepted the job.
	OutcomeProcessingStarted Outcome = "processing_started"
	// OutcomeProcessingPending: record created but the processing trigger
	// failed; the report stays pending and is not rolled back.
	OutcomeProcessingPending Outcome = "processing_pending"
	// OutcomeProcessingDisabled: record created and no processing backend is
	// configured at all - a normal condition.
	OutcomeProcessingDisabled Outcome = "processing_disabled"
)

// GenerationResult is what a completed submission reports back to the UI,
// which turns it into exactly one outcome notification.
type GenerationResult struct {
	Report  *models.Report
	Outcome Outcome
	JobID   string
	Message string
}

// Generator is the multi-step report-generation wizard state machine:
// template selection, source-type selection, source configuration, then a
// two-phase submission (create record, trigger processing).
type Generator struct {
	mu         sync.Mutex
	step       WizardStep
	submitting bool
	// resetEpoch guards deferred resets: a reset scheduled before the wizard
	// was reopened must not clobber the new session.
	resetEpoch int

	templateID uuid.UUID
	sourceType models.DataSourceType

	connectionString string
	query            string

	apiURL     string
	apiMethod  string
	apiHeaders map[string]string
	apiBody    string

	csvFilePath string
	csvFileName string

	reports    ReportRepository
	processing ProcessingTrigger
	cache      cache.Invalidator
	logger     *zap.Logger
}

// NewGenerator creates a wizard at step 1. processing may be nil when no
// processing backend is configured.
func NewGenerator(reports ReportRepository, processing ProcessingTrigger, invalidator cache.Invalidator, logger *zap.Logger) *Generator {
	return &Generator{
		step:       StepSelectTemplate,
		apiMethod:  "GET",
		reports:    reports,
		processing: processing,
		cache:      invalidator,
		logger:     logger,
	}
}

// Step returns the current wizard step.
func (g *Generator) Step() WizardStep {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.step
}

// touchLocked marks the wizard as in use again, which drops any reset still
// deferred from a previous session. Caller holds the lock.
func (g *Generator) touchLocked() {
	g.resetEpoch++
}

// SelectTemplate records the chosen template.
func (g *Generator) SelectTemplate(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touchLocked()
	g.templateID = id
}

// SelectSourceType records the chosen data-source kind.
func (g *Generator) SelectSourceType(t models.DataSourceType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touchLocked()
	g.sourceType = t
}

// SetSQLConfig records the sql source fields.
func (g *Generator) SetSQLConfig(connectionString, query string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touchLocked()
	g.connectionString = connectionString
	g.query = query
}

// SetAPIConfig records the api source fields.
func (g *Generator) SetAPIConfig(url, method string, headers map[string]string, body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touchLocked()
	g.apiURL = url
	if method != "" {
		g.apiMethod = method
	}
	g.apiHeaders = headers
	g.apiBody = body
}

// SetCSVUpload records the reference produced by the external upload step.
func (g *Generator) SetCSVUpload(filePath, fileName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touchLocked()
	g.csvFilePath = filePath
	g.csvFileName = fileName
}

// CanProceed reports whether the current step's guard passes.
func (g *Generator) CanProceed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.guardErr() == nil
}

// guardErr evaluates the current step's advancement guard. Caller holds the
// lock.
func (g *Generator) guardErr() error {
	switch g.step {
	case StepSelectTemplate:
		if g.templateID == uuid.Nil {
			return fmt.Errorf("%w: select a template", apperrors.ErrInvalidInput)
		}
	case StepSelectSourceType:
		if g.sourceType == "" {
			return fmt.Errorf("%w: select a data source type", apperrors.ErrInvalidInput)
		}
	case StepConfigureSource:
		switch g.sourceType {
		case models.DataSourceSQL:
			if g.connectionString == "" || g.query == "" {
				return fmt.Errorf("%w: connection string and query are required", apperrors.ErrInvalidInput)
			}
		case models.DataSourceAPI:
			if err := validate.URL(g.apiURL); err != nil {
				return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err)
			}
		case models.DataSourceCSV:
			// Upload completion is handled externally; no text fields to check.
		}
	}
	return nil
}

// Next advances one step after the guard passes. It is not valid past step 3
// - submission happens through Submit.
func (g *Generator) Next() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.step >= StepConfigureSource {
		return fmt.Errorf("%w: already at the final step", apperrors.ErrInvalidInput)
	}
	if err := g.guardErr(); err != nil {
		return err
	}
	g.step++
	return nil
}

// Back returns to the previous step, preserving every entered value.
func (g *Generator) Back() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.step > StepSelectTemplate {
		g.step--
	}
}

// Cancel discards all entered values immediately.
func (g *Generator) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked()
}

// ScheduleReset arranges for the wizard to return to its initial values
// after delay, once any closing transition has finished, so the user never
// sees a flash of cleared fields. A reset scheduled before the wizard is
// used again is dropped.
func (g *Generator) ScheduleReset(delay time.Duration) {
	g.mu.Lock()
	epoch := g.resetEpoch
	g.mu.Unlock()

	time.AfterFunc(delay, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.resetEpoch != epoch {
			return
		}
		g.resetLocked()
	})
}

// resetLocked restores initial values. Caller holds the lock.
func (g *Generator) resetLocked() {
	g.resetEpoch++
	g.step = StepSelectTemplate
	g.submitting = false
	g.templateID = uuid.Nil
	g.sourceType = ""
	g.connectionString = ""
	g.query = ""
	g.apiURL = ""
	g.apiMethod = "GET"
	g.apiHeaders = nil
	g.apiBody = ""
	g.csvFilePath = ""
	g.csvFileName = ""
}

// buildDataSource assembles the data-source payload for the selected type.
// Caller holds the lock.
func (g *Generator) buildDataSource() models.DataSource {
	switch g.sourceType {
	case models.DataSourceSQL:
		return models.NewSQLDataSource(g.connectionString, g.query)
	case models.DataSourceAPI:
		return models.NewAPIDataSource(g.apiURL, g.apiMethod, g.apiHeaders, g.apiBody)
	default:
		return models.NewCSVDataSource(g.csvFilePath, g.csvFileName)
	}
}

// Submit runs the two-phase submission from step 3.
//
// Phase 1 creates the report record in pending status. A phase-1 failure
// leaves the wizard open at step 3 for retry and is returned as an error.
//
// Phase 2 triggers the processing backend if one is configured. A phase-2
// failure never rolls back phase 1 and is not an error: the report stays
// pending and the outcome tells the caller processing is still ahead.
func (g *Generator) Submit(ctx context.Context) (*GenerationResult, error) {
	g.mu.Lock()
	if g.step != StepConfigureSource {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: submission requires the configuration step", apperrors.ErrInvalidInput)
	}
	if g.submitting {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: submission already in progress", apperrors.ErrInvalidInput)
	}
	if err := g.guardErr(); err != nil {
		g.mu.Unlock()
		return nil, err
	}

	dataSource := g.buildDataSource()
	templateID := g.templateID
	g.submitting = true
	g.mu.Unlock()

	finish := func() {
		g.mu.Lock()
		g.submitting = false
		g.mu.Unlock()
	}

	if err := validate.DataSource(dataSource); err != nil {
		finish()
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err)
	}

	if dataSource.Type == models.DataSourceSQL {
		g.logger.Debug("submitting sql data source",
			zap.String("connection", logging.SanitizeConnectionString(dataSource.SQL.ConnectionString)))
	}

	// Parameter collection is not part of this wizard yet; the map is
	// submitted empty.
	params := map[string]any{}

	// Flagged values are logged, not rejected; the backend screens again
	// before touching a database.
	for _, finding := range validate.ScreenSubmission(dataSource, params) {
		g.logger.Warn("submission value matches a sql injection pattern",
			zap.String("field", finding.ParamName),
			zap.String("fingerprint", finding.Fingerprint))
	}

	req := models.CreateReportRequest{
		TemplateID: templateID,
		DataSource: dataSource,
		Params:     params,
	}

	report, err := g.reports.Create(ctx, req)
	if err != nil {
		finish()
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	g.cache.Invalidate(cache.Reports)

	result := &GenerationResult{Report: report}

	if g.processing == nil {
		result.Outcome = OutcomeProcessingDisabled
		result.Message = "Report created. Enable the processing backend to generate output."
		g.logger.Info("report created without processing backend",
			zap.String("report_id", report.ID.String()))
		finish()
		return result, nil
	}

	job, err := g.processing.Trigger(ctx, report.ID, req)
	if err != nil {
		// Intentional downgrade: the record exists and stays pending.
		result.Outcome = OutcomeProcessingPending
		result.Message = "Report created. Processing is pending."
		g.logger.Warn("processing trigger failed, report stays pending",
			zap.String("report_id", report.ID.String()),
			zap.Error(err))
		finish()
		return result, nil
	}

	result.Outcome = OutcomeProcessingStarted
	result.JobID = job.JobID
	result.Message = job.Message
	g.logger.Info("report generation started",
		zap.String("report_id", report.ID.String()),
		zap.String("job_id", job.JobID))
	finish()
	return result, nil
}
