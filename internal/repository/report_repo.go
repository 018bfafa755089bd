package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amanihub/amani/internal/domain"
	"gorm.io/gorm"
)

// ReportRepository handles report data operations.
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ReportRepository: repository instance bound to db.
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report record.
func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// GetByID retrieves a report by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report ID.
// Returns:
//   - *domain.Report: report record if found.
//   - error: domain.ErrNotFound if the id does not exist.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	var report domain.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &report, nil
}

// Update persists the mutable fields of a report.
func (r *ReportRepository) Update(ctx context.Context, report *domain.Report) error {
	return r.db.WithContext(ctx).
		Model(report).
		Select("status", "file_url", "error_msg", "filters", "updated_at").
		Updates(report).Error
}

// TransitionStatus moves a report from one status to another only if it is
// currently in the expected source status. The guard runs in the UPDATE's
// WHERE clause so concurrent transitions cannot both win.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report ID.
//   - from: required current status.
//   - to: status to set.
// Returns:
//   - error: domain.ErrInvalidState if the report is not in from,
//     domain.ErrNotFound if the id does not exist.
func (r *ReportRepository) TransitionStatus(ctx context.Context, id string, from, to domain.ReportStatus) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Report{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Report{}).Where("id = ?", id).Count(&count).Error; err == nil && count == 0 {
			return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("report %s is not %s: %w", id, from, domain.ErrInvalidState)
	}
	return nil
}

// List retrieves reports filtered by optional status and type, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: report status to filter by; empty means all.
//   - reportType: report type to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Report: matching report records.
//   - error: non-nil if the query fails.
func (r *ReportRepository) List(ctx context.Context, status domain.ReportStatus, reportType domain.ReportType, limit, offset int) ([]domain.Report, error) {
	var reports []domain.Report
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if reportType != "" {
		query = query.Where("type = ?", reportType)
	}
	if err := query.
		Limit(limit).
		Offset(offset).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// ListProcessingBefore retrieves reports stuck in processing whose last update
// is older than cutoff. Used by the staleness extension point; nothing
// requeues these automatically.
func (r *ReportRepository) ListProcessingBefore(ctx context.Context, cutoff time.Time) ([]domain.Report, error) {
	var reports []domain.Report
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.ReportProcessing, cutoff).
		Order("updated_at ASC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// Delete removes a report by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report ID to delete.
// Returns:
//   - error: domain.ErrNotFound if the record does not exist.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&domain.Report{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
