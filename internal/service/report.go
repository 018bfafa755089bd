package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amanihub/amani/internal/domain"
	"github.com/amanihub/amani/internal/logger"
	"github.com/amanihub/amani/internal/queue"
)

// ReportStore is the persistence surface the report service needs.
type ReportStore interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	Update(ctx context.Context, report *domain.Report) error
	TransitionStatus(ctx context.Context, id string, from, to domain.ReportStatus) error
	List(ctx context.Context, status domain.ReportStatus, reportType domain.ReportType, limit, offset int) ([]domain.Report, error)
	ListProcessingBefore(ctx context.Context, cutoff time.Time) ([]domain.Report, error)
	Delete(ctx context.Context, id string) error
}

// ReportService manages report records and their enqueue transition. Reports
// reach a terminal state only through worker-side writes; this service owns
// everything up to and including the optimistic pending -> processing move.
type ReportService struct {
	reports    ReportStore
	queue      TaskQueue
	logger     *logger.Logger
	staleAfter time.Duration
}

// ReportConfig holds configuration for the report service.
type ReportConfig struct {
	// StaleAfter is the age past which a report still in processing is
	// listed as stale. It only affects ListStale; nothing requeues stale
	// reports automatically.
	StaleAfter time.Duration
}

// NewReportService creates a new report service.
func NewReportService(reports ReportStore, taskQueue TaskQueue, log *logger.Logger, cfg *ReportConfig) *ReportService {
	if cfg == nil {
		cfg = &ReportConfig{}
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 30 * time.Minute
	}
	return &ReportService{
		reports:    reports,
		queue:      taskQueue,
		logger:     log,
		staleAfter: cfg.StaleAfter,
	}
}

func (s *ReportService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Create validates the filters against the report type and persists a new
// pending report. Validation happens before any other side effect: a
// community_activity report without a community name never reaches the store
// or the queue.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - reportType: fixed type of the report.
//   - filters: type-dependent filter set; dates are normalized in place.
// Returns:
//   - *domain.Report: the created pending report.
//   - error: ValidationError on bad type, filters, or dates.
func (s *ReportService) Create(ctx context.Context, reportType domain.ReportType, filters domain.ReportFilters) (*domain.Report, error) {
	if err := ValidateReportFilters(reportType, &filters); err != nil {
		return nil, err
	}

	report := &domain.Report{
		ID:      uuid.NewString(),
		Type:    reportType,
		Status:  domain.ReportPending,
		Filters: filters,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldReportID: report.ID,
		"report_type":        string(reportType),
	}).Info("Report created")

	return report, nil
}

// Enqueue pushes a generate_report task for a pending report and then moves
// it to processing. The transition is optimistic: a successful push is
// treated as "processing" before any worker has acknowledged anything. If the
// push fails the record stays pending and the error surfaces; if the push
// succeeds and the worker then dies, the record sits in processing until an
// operator acts on ListStale.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report ID to enqueue.
// Returns:
//   - int64: queue position reported by the broker at push time.
//   - error: NotFound for an unknown id, InvalidState unless the report is
//     pending, ValidationError if the stored filters no longer pass,
//     UpstreamError on push failure.
func (s *ReportService) Enqueue(ctx context.Context, id string) (int64, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	if report.Status != domain.ReportPending {
		return 0, fmt.Errorf("report %s is %s, enqueue requires pending: %w",
			id, report.Status, domain.ErrInvalidState)
	}

	// The record can be edited between creation and enqueue, so the stored
	// filters are re-validated rather than trusted.
	filters := report.Filters
	if err := ValidateReportFilters(report.Type, &filters); err != nil {
		return 0, err
	}

	position, err := s.queue.Push(ctx, queue.GenerateReportTask{
		ReportID:   report.ID,
		ReportType: report.Type,
		Filters:    filters,
	})
	if err != nil {
		return 0, err
	}

	if err := s.reports.TransitionStatus(ctx, id, domain.ReportPending, domain.ReportProcessing); err != nil {
		// The task is already on the list; the transition lost a race. The
		// worker will still find the record and write its outcome.
		s.log(ctx).WithError(err).WithField(logger.FieldReportID, id).
			Warn("Report enqueued but pending->processing transition failed")
		return position, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldReportID: id,
		logger.FieldCount:    position,
	}).Info("Report enqueued")

	return position, nil
}

// UpdateResult is the worker-facing write that finishes a report: processing
// to completed with a file URL, or processing/pending to failed with an
// error message.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report ID.
//   - status: "completed" or "failed".
//   - fileURL: generated artifact location; required for completed.
//   - errorMsg: failure reason; stored for failed.
// Returns:
//   - *domain.Report: the updated record.
//   - error: NotFound, ValidationError, or InvalidState.
func (s *ReportService) UpdateResult(ctx context.Context, id, status, fileURL, errorMsg string) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := domain.ReportStatus(status)
	switch next {
	case domain.ReportCompleted:
		if strings.TrimSpace(fileURL) == "" {
			return nil, domain.NewValidationError("file_url", "required when completing a report")
		}
		if report.Status != domain.ReportProcessing {
			return nil, fmt.Errorf("report %s is %s, completion requires processing: %w",
				id, report.Status, domain.ErrInvalidState)
		}
		report.FileURL = fileURL
		report.ErrorMsg = ""
	case domain.ReportFailed:
		if report.Status.IsTerminal() {
			return nil, fmt.Errorf("report %s is already %s: %w",
				id, report.Status, domain.ErrInvalidState)
		}
		report.ErrorMsg = errorMsg
	default:
		return nil, domain.NewValidationError("status", "must be completed or failed")
	}

	report.Status = next
	if err := s.reports.Update(ctx, report); err != nil {
		return nil, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldReportID: id,
		logger.FieldStatus:   string(next),
	}).Info("Report result recorded")

	return report, nil
}

// Get returns one report by id.
func (s *ReportService) Get(ctx context.Context, id string) (*domain.Report, error) {
	return s.reports.GetByID(ctx, id)
}

// List returns reports filtered by optional status and type, newest first.
func (s *ReportService) List(ctx context.Context, status domain.ReportStatus, reportType domain.ReportType, limit, offset int) ([]domain.Report, error) {
	if status != "" && !status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown status "+string(status))
	}
	if reportType != "" && !reportType.IsValid() {
		return nil, domain.NewValidationError("type", "unknown report type "+string(reportType))
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.reports.List(ctx, status, reportType, limit, offset)
}

// ListStale returns reports that have sat in processing longer than the
// configured staleness threshold. This is a read-only escape hatch for the
// optimistic enqueue transition; requeueing is an operator decision.
func (s *ReportService) ListStale(ctx context.Context) ([]domain.Report, error) {
	cutoff := time.Now().UTC().Add(-s.staleAfter)
	return s.reports.ListProcessingBefore(ctx, cutoff)
}

// Delete removes a report record. A report currently in processing cannot be
// deleted: a worker is presumed to be acting on it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report ID to delete.
// Returns:
//   - error: NotFound for an unknown id, InvalidState while processing.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if report.Status == domain.ReportProcessing {
		return fmt.Errorf("report %s is processing: %w", id, domain.ErrInvalidState)
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		return err
	}

	s.log(ctx).WithField(logger.FieldReportID, id).Info("Report deleted")
	return nil
}
