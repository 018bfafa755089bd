package domain

import "time"

// ImageJobStatus represents the processing status of an image job.
// Values include ImageJobPending, ImageJobProcessing, ImageJobCompleted, and ImageJobFailed.
type ImageJobStatus string

const (
	ImageJobPending    ImageJobStatus = "PENDING"
	ImageJobProcessing ImageJobStatus = "PROCESSING"
	ImageJobCompleted  ImageJobStatus = "COMPLETED"
	ImageJobFailed     ImageJobStatus = "FAILED"
)

// IsValid reports whether s is one of the known image job statuses.
func (s ImageJobStatus) IsValid() bool {
	switch s {
	case ImageJobPending, ImageJobProcessing, ImageJobCompleted, ImageJobFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is a terminal status.
func (s ImageJobStatus) IsTerminal() bool {
	return s == ImageJobCompleted || s == ImageJobFailed
}

// CanTransitionTo reports whether a worker-driven status update from s to next
// is legal. FAILED -> PENDING is deliberately excluded here: that edge exists
// only through an explicit retry.
func (s ImageJobStatus) CanTransitionTo(next ImageJobStatus) bool {
	switch s {
	case ImageJobPending:
		// A worker may fail a job before formally claiming it.
		return next == ImageJobProcessing || next == ImageJobFailed
	case ImageJobProcessing:
		return next == ImageJobCompleted || next == ImageJobFailed
	default:
		return false
	}
}

// EntityType identifies the kind of domain object an image job belongs to.
type EntityType string

const (
	EntityEvent  EntityType = "event"
	EntityReport EntityType = "report"
	EntityOther  EntityType = "other"
)

// IsValid reports whether t is one of the known entity types.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityEvent, EntityReport, EntityOther:
		return true
	}
	return false
}

// ImageJob represents one asynchronous image transformation and its outcome.
// The source fields are write-once; output fields are populated only when a
// worker reports completion. EntityID is a weak reference - no foreign key is
// enforced against the owning entity.
type ImageJob struct {
	ID               string         `gorm:"type:text;primaryKey" json:"id"`
	EntityType       EntityType     `gorm:"type:text;not null;index:idx_image_jobs_entity" json:"entity_type"`
	EntityID         string         `gorm:"type:text;not null;index:idx_image_jobs_entity" json:"entity_id"`
	SourceImageURL   string         `gorm:"type:text;not null" json:"source_image_url"`
	SourceImageKey   string         `gorm:"type:text;not null" json:"source_image_key"`
	OutputImageURL   string         `gorm:"type:text" json:"output_image_url,omitempty"`
	OutputImageKey   string         `gorm:"type:text" json:"output_image_key,omitempty"`
	Status           ImageJobStatus `gorm:"type:text;index:idx_image_jobs_status;default:PENDING" json:"status"`
	ErrorMsg         string         `json:"error_msg,omitempty"`
	OriginalFilename string         `gorm:"type:text" json:"original_filename"`
	Mimetype         string         `gorm:"type:text" json:"mimetype"`
	FileSize         int64          `json:"file_size"`
	Width            int            `json:"width,omitempty"`
	Height           int            `json:"height,omitempty"`
	Format           string         `gorm:"type:text" json:"format,omitempty"`
	Version          int64          `gorm:"not null;default:0" json:"version"`
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName returns the database table name for ImageJob.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ImageJob) TableName() string {
	return "image_jobs"
}
