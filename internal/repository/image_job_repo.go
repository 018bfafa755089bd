package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amanihub/amani/internal/domain"
	"gorm.io/gorm"
)

// ImageJobRepository handles image job data operations.
type ImageJobRepository struct {
	db *gorm.DB
}

// NewImageJobRepository creates a new ImageJobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ImageJobRepository: repository instance bound to db.
func NewImageJobRepository(db *gorm.DB) *ImageJobRepository {
	return &ImageJobRepository{db: db}
}

// Create inserts a new image job record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: image job record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ImageJobRepository) Create(ctx context.Context, job *domain.ImageJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves an image job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: image job ID.
// Returns:
//   - *domain.ImageJob: job record if found.
//   - error: domain.ErrNotFound if the id does not exist.
func (r *ImageJobRepository) GetByID(ctx context.Context, id string) (*domain.ImageJob, error) {
	var job domain.ImageJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("image job %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &job, nil
}

// Update persists a mutated image job with an optimistic version guard. The
// job's Version field must hold the version the caller read; on success the
// stored version is incremented.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job record carrying the mutation and the previously read version.
// Returns:
//   - error: domain.ErrStaleWrite if a concurrent writer advanced the record,
//     domain.ErrNotFound if the record disappeared.
func (r *ImageJobRepository) Update(ctx context.Context, job *domain.ImageJob) error {
	readVersion := job.Version
	job.Version = readVersion + 1

	res := r.db.WithContext(ctx).
		Model(&domain.ImageJob{}).
		Where("id = ? AND version = ?", job.ID, readVersion).
		Select("status", "output_image_url", "output_image_key", "error_msg", "processed_at", "version", "updated_at").
		Updates(job)
	if res.Error != nil {
		job.Version = readVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		job.Version = readVersion
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.ImageJob{}).Where("id = ?", job.ID).Count(&count).Error; err == nil && count == 0 {
			return fmt.Errorf("image job %s: %w", job.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("image job %s: %w", job.ID, domain.ErrStaleWrite)
	}
	return nil
}

// Delete removes an image job by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: image job ID to delete.
// Returns:
//   - error: domain.ErrNotFound if the record does not exist.
func (r *ImageJobRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&domain.ImageJob{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("image job %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByEntity retrieves image jobs belonging to one owning entity, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entityType: owning entity type.
//   - entityID: owning entity id.
// Returns:
//   - []domain.ImageJob: matching records ordered by creation descending.
//   - error: non-nil if the query fails.
func (r *ImageJobRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.ImageJob, error) {
	var jobs []domain.ImageJob
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountByStatus counts image jobs by status.
func (r *ImageJobRepository) CountByStatus(ctx context.Context, status domain.ImageJobStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ImageJob{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
