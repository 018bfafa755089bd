package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/amanihub/amani/internal/domain"
	"github.com/amanihub/amani/internal/logger"
	"github.com/amanihub/amani/internal/queue"
	"github.com/amanihub/amani/internal/storage"
)

// ImageJobStore is the persistence surface the lifecycle manager needs.
type ImageJobStore interface {
	Create(ctx context.Context, job *domain.ImageJob) error
	GetByID(ctx context.Context, id string) (*domain.ImageJob, error)
	Update(ctx context.Context, job *domain.ImageJob) error
	Delete(ctx context.Context, id string) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.ImageJob, error)
	CountByStatus(ctx context.Context, status domain.ImageJobStatus) (int64, error)
}

// ObjectStage binds job payloads to object storage.
type ObjectStage interface {
	PutRaw(ctx context.Context, data []byte, contentType, filename string) (storage.StagedObject, error)
	DeleteMany(ctx context.Context, keys []string) []storage.KeyError
}

// TaskQueue pushes task envelopes to the broker list.
type TaskQueue interface {
	Push(ctx context.Context, task queue.Task) (int64, error)
}

// ImageJobService is the state machine governing image job records:
// PENDING -> PROCESSING -> {COMPLETED | FAILED}, with FAILED -> PENDING only
// through an explicit retry. Creation stages the raw object before the record
// exists; deletion cleans storage best-effort before removing the record.
type ImageJobService struct {
	jobs     ImageJobStore
	stage    ObjectStage
	queue    TaskQueue
	logger   *logger.Logger
	http     *resty.Client
	maxFetch int64
}

// ImageJobConfig holds configuration for the image job service.
type ImageJobConfig struct {
	// MaxFetchSize caps the payload size accepted from a remote source URL.
	MaxFetchSize int64

	// FetchTimeout bounds a remote source fetch.
	FetchTimeout time.Duration
}

// NewImageJobService creates a new image job service.
// Parameters:
//   - jobs: job record store.
//   - stage: object stage for raw/output payloads.
//   - taskQueue: broker producer.
//   - log: base logger.
//   - cfg: service configuration; nil uses defaults.
// Returns:
//   - *ImageJobService: initialized service.
func NewImageJobService(
	jobs ImageJobStore,
	stage ObjectStage,
	taskQueue TaskQueue,
	log *logger.Logger,
	cfg *ImageJobConfig,
) *ImageJobService {
	if cfg == nil {
		cfg = &ImageJobConfig{}
	}
	if cfg.MaxFetchSize <= 0 {
		cfg.MaxFetchSize = 20 << 20
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetTimeout(cfg.FetchTimeout).
		SetRetryCount(0)

	return &ImageJobService{
		jobs:     jobs,
		stage:    stage,
		queue:    taskQueue,
		logger:   log,
		http:     httpClient,
		maxFetch: cfg.MaxFetchSize,
	}
}

// log returns a logger from context if available, otherwise the service logger.
func (s *ImageJobService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// CreateImageJobInput carries one uploaded source image.
type CreateImageJobInput struct {
	EntityType domain.EntityType
	EntityID   string
	Data       []byte
	Mimetype   string
	Filename   string
}

// Create uploads the source payload to the raw prefix, persists a PENDING job
// record, and enqueues a process_image task referencing it. The order is
// deliberate: the object is durable before the record exists. If record
// persistence fails after a successful upload the object is orphaned - that
// is logged, not compensated. If the enqueue fails the record stays PENDING
// and unscheduled; Retry is the caller's re-enqueue path.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - in: upload payload and owning-entity reference.
// Returns:
//   - *domain.ImageJob: the created job record.
//   - error: ValidationError for bad input, UpstreamError for storage or
//     broker failures.
func (s *ImageJobService) Create(ctx context.Context, in CreateImageJobInput) (*domain.ImageJob, error) {
	if !in.EntityType.IsValid() {
		return nil, domain.NewValidationError("entity_type", "must be one of event, report, other")
	}
	if strings.TrimSpace(in.EntityID) == "" {
		return nil, domain.NewValidationError("entity_id", "required")
	}
	if len(in.Data) == 0 {
		return nil, domain.NewValidationError("file", "empty payload")
	}

	// Probe the payload before touching storage; a non-image never leaves
	// this process.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return nil, domain.NewValidationError("file", "payload does not decode as an image")
	}

	staged, err := s.stage.PutRaw(ctx, in.Data, in.Mimetype, in.Filename)
	if err != nil {
		return nil, domain.NewUpstreamError("storage upload", err)
	}

	job := &domain.ImageJob{
		ID:               uuid.NewString(),
		EntityType:       in.EntityType,
		EntityID:         in.EntityID,
		SourceImageURL:   staged.URL,
		SourceImageKey:   staged.Key,
		Status:           domain.ImageJobPending,
		OriginalFilename: in.Filename,
		Mimetype:         in.Mimetype,
		FileSize:         int64(len(in.Data)),
		Width:            cfg.Width,
		Height:           cfg.Height,
		Format:           format,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		// The uploaded object is now orphaned. Known gap: no compensating
		// delete, only a reapable log line.
		s.log(ctx).WithError(err).WithField(logger.FieldStorageKey, staged.Key).
			Error("Job record persistence failed after upload, raw object orphaned")
		return nil, fmt.Errorf("persist image job: %w", err)
	}

	if _, err := s.queue.Push(ctx, queue.ProcessImageTask{ImageJobID: job.ID}); err != nil {
		// Job exists but is not scheduled. Callers retry via Retry.
		s.log(ctx).WithError(err).WithField(logger.FieldJobID, job.ID).
			Warn("Image job created but enqueue failed, job is unscheduled")
		return job, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:  job.ID,
		logger.FieldEntity: string(job.EntityType) + ":" + job.EntityID,
	}).Info("Image job created")

	return job, nil
}

// CreateFromURL fetches a source image over HTTP and runs the standard
// creation path with the fetched bytes.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entityType, entityID: owning entity reference.
//   - sourceURL: HTTP(S) location of the image.
// Returns:
//   - *domain.ImageJob: the created job record.
//   - error: ValidationError for an unusable URL or payload, UpstreamError
//     for fetch failures.
func (s *ImageJobService) CreateFromURL(ctx context.Context, entityType domain.EntityType, entityID, sourceURL string) (*domain.ImageJob, error) {
	if !strings.HasPrefix(sourceURL, "http://") && !strings.HasPrefix(sourceURL, "https://") {
		return nil, domain.NewValidationError("source_url", "must be an http(s) URL")
	}

	// The body is streamed, not buffered by resty, so the size cap bounds
	// memory as well as the stored object.
	resp, err := s.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(sourceURL)
	if err != nil {
		return nil, domain.NewUpstreamError("source fetch", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.IsError() {
		return nil, domain.NewUpstreamError("source fetch",
			fmt.Errorf("unexpected status %d from %s", resp.StatusCode(), sourceURL))
	}
	if cl := resp.RawResponse.ContentLength; cl > s.maxFetch {
		return nil, domain.NewValidationError("source_url",
			fmt.Sprintf("payload exceeds %d bytes", s.maxFetch))
	}

	body, err := io.ReadAll(io.LimitReader(raw, s.maxFetch+1))
	if err != nil {
		return nil, domain.NewUpstreamError("source read", err)
	}
	if int64(len(body)) > s.maxFetch {
		return nil, domain.NewValidationError("source_url",
			fmt.Sprintf("payload exceeds %d bytes", s.maxFetch))
	}

	filename := ""
	if u, err := url.Parse(sourceURL); err == nil {
		filename = path.Base(u.Path)
	}

	return s.Create(ctx, CreateImageJobInput{
		EntityType: entityType,
		EntityID:   entityID,
		Data:       body,
		Mimetype:   resp.Header().Get("Content-Type"),
		Filename:   filename,
	})
}

// UpdateStatusInput is the partial mutation a worker callback carries. Only
// non-nil fields are applied; output fields are legal only alongside a
// COMPLETED status.
type UpdateStatusInput struct {
	Status         string
	OutputImageURL *string
	OutputImageKey *string
	ErrorMsg       *string
}

// UpdateStatus is the callback entry point a worker uses to report progress
// or outcome. Transitions are validated against the state machine; moving out
// of a terminal state or skipping PROCESSING on the way to COMPLETED is
// rejected. Terminal transitions stamp processedAt. The write is guarded by
// the record version, so a racing update loses instead of clobbering.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID the worker is reporting on.
//   - in: partial update.
// Returns:
//   - *domain.ImageJob: the updated record.
//   - error: NotFound for an unknown id, ValidationError for a bad status
//     value, InvalidState for an illegal transition.
func (s *ImageJobService) UpdateStatus(ctx context.Context, id string, in UpdateStatusInput) (*domain.ImageJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := domain.ImageJobStatus(in.Status)
	if !next.IsValid() {
		return nil, domain.NewValidationError("status", "unknown status "+in.Status)
	}
	if !job.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("image job %s cannot move %s -> %s: %w",
			id, job.Status, next, domain.ErrInvalidState)
	}

	// Output fields and COMPLETED imply each other: completion without an
	// output location is rejected, and so is an output location on any other
	// transition.
	if next == domain.ImageJobCompleted {
		if in.OutputImageURL == nil || *in.OutputImageURL == "" ||
			in.OutputImageKey == nil || *in.OutputImageKey == "" {
			return nil, domain.NewValidationError("output_image_url",
				"required when completing a job")
		}
	} else if (in.OutputImageURL != nil && *in.OutputImageURL != "") ||
		(in.OutputImageKey != nil && *in.OutputImageKey != "") {
		return nil, domain.NewValidationError("output_image_url",
			"only accepted when completing a job")
	}

	job.Status = next
	if next == domain.ImageJobCompleted {
		job.OutputImageURL = *in.OutputImageURL
		job.OutputImageKey = *in.OutputImageKey
	}
	if in.ErrorMsg != nil {
		job.ErrorMsg = *in.ErrorMsg
	}
	if next.IsTerminal() {
		now := time.Now().UTC()
		job.ProcessedAt = &now
	}

	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:  job.ID,
		logger.FieldStatus: string(job.Status),
	}).Info("Image job status updated")

	return job, nil
}

// Retry re-schedules a failed job: status back to PENDING, errorMsg cleared,
// and a fresh process_image task on the queue. Legal only from FAILED.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID to retry.
// Returns:
//   - *domain.ImageJob: the reset record.
//   - error: NotFound for an unknown id, InvalidState when the job is not
//     FAILED, UpstreamError when the re-enqueue fails.
func (s *ImageJobService) Retry(ctx context.Context, id string) (*domain.ImageJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.ImageJobFailed {
		return nil, fmt.Errorf("image job %s is %s, retry requires FAILED: %w",
			id, job.Status, domain.ErrInvalidState)
	}

	job.Status = domain.ImageJobPending
	job.ErrorMsg = ""
	job.ProcessedAt = nil
	job.OutputImageURL = ""
	job.OutputImageKey = ""

	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	if _, err := s.queue.Push(ctx, queue.ProcessImageTask{ImageJobID: job.ID}); err != nil {
		s.log(ctx).WithError(err).WithField(logger.FieldJobID, job.ID).
			Warn("Retry reset job to PENDING but enqueue failed")
		return job, err
	}

	s.log(ctx).WithField(logger.FieldJobID, job.ID).Info("Image job retried")

	return job, nil
}

// DeletionOutcome reports what a delete actually accomplished: the record is
// always removed when no error is returned, while storage cleanup is
// best-effort and its failures are surfaced here for callers that want to
// alert on leaked objects.
type DeletionOutcome struct {
	RecordDeleted bool               `json:"record_deleted"`
	StorageErrors []storage.KeyError `json:"-"`
}

// Delete removes the job's raw and output objects (best-effort, failures
// logged and collected) and then deletes the record. Storage failures never
// block record deletion: metadata cleanliness is chosen over storage-leak
// avoidance. A task already in flight for this job is not retracted; the
// worker's later callback will fail with NotFound.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID to delete.
// Returns:
//   - DeletionOutcome: record/storage results.
//   - error: NotFound for an unknown id.
func (s *ImageJobService) Delete(ctx context.Context, id string) (DeletionOutcome, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return DeletionOutcome{}, err
	}

	storageErrs := s.stage.DeleteMany(ctx, []string{job.SourceImageKey, job.OutputImageKey})
	for _, keyErr := range storageErrs {
		s.log(ctx).WithError(keyErr.Err).WithFields(logger.Fields{
			logger.FieldJobID:      id,
			logger.FieldStorageKey: keyErr.Key,
		}).Warn("Storage cleanup failed during job deletion")
	}

	if err := s.jobs.Delete(ctx, id); err != nil {
		return DeletionOutcome{StorageErrors: storageErrs}, err
	}

	s.log(ctx).WithField(logger.FieldJobID, id).Info("Image job deleted")

	return DeletionOutcome{RecordDeleted: true, StorageErrors: storageErrs}, nil
}

// ListByEntity returns all jobs owned by one entity, newest first.
func (s *ImageJobService) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.ImageJob, error) {
	if !entityType.IsValid() {
		return nil, domain.NewValidationError("entity_type", "must be one of event, report, other")
	}
	return s.jobs.ListByEntity(ctx, entityType, entityID)
}

// Get returns one job by id.
func (s *ImageJobService) Get(ctx context.Context, id string) (*domain.ImageJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// Stats returns the number of jobs currently in each status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[domain.ImageJobStatus]int64: count per status, all statuses present.
//   - error: non-nil if any count query fails.
func (s *ImageJobService) Stats(ctx context.Context) (map[domain.ImageJobStatus]int64, error) {
	statuses := []domain.ImageJobStatus{
		domain.ImageJobPending,
		domain.ImageJobProcessing,
		domain.ImageJobCompleted,
		domain.ImageJobFailed,
	}

	stats := make(map[domain.ImageJobStatus]int64, len(statuses))
	for _, status := range statuses {
		count, err := s.jobs.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, nil
}

// DeleteByEntity cascades a deletion from an owning entity to all of its
// image jobs. Per-job outcomes are aggregated; a missing job (already
// deleted concurrently) is skipped, anything else aborts.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entityType, entityID: owning entity reference.
// Returns:
//   - []DeletionOutcome: one outcome per deleted job.
//   - error: non-nil on the first non-NotFound failure.
func (s *ImageJobService) DeleteByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]DeletionOutcome, error) {
	jobs, err := s.jobs.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]DeletionOutcome, 0, len(jobs))
	for _, job := range jobs {
		outcome, err := s.Delete(ctx, job.ID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
