package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/amanihub/amani/internal/domain"
	"github.com/amanihub/amani/internal/logger"
)

// EventStore is the persistence surface the event service needs.
type EventStore interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, limit, offset int) ([]domain.Event, error)
	Delete(ctx context.Context, id string) error
}

// EventService owns the slice of event behavior the job subsystem cares
// about: events exist so image jobs have an owner, and deleting an event
// cascades to its jobs.
type EventService struct {
	events EventStore
	images *ImageJobService
	logger *logger.Logger
}

// NewEventService creates a new event service.
func NewEventService(events EventStore, images *ImageJobService, log *logger.Logger) *EventService {
	return &EventService{events: events, images: images, logger: log}
}

func (s *EventService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Create persists a new event.
func (s *EventService) Create(ctx context.Context, title, description string) (*domain.Event, error) {
	if strings.TrimSpace(title) == "" {
		return nil, domain.NewValidationError("title", "required")
	}

	event := &domain.Event{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get returns one event by id.
func (s *EventService) Get(ctx context.Context, id string) (*domain.Event, error) {
	return s.events.GetByID(ctx, id)
}

// List returns events, newest first.
func (s *EventService) List(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.events.List(ctx, limit, offset)
}

// Delete removes an event and cascades to every image job it owns, each with
// its own best-effort storage cleanup.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: event ID to delete.
// Returns:
//   - []DeletionOutcome: one outcome per cascade-deleted image job.
//   - error: NotFound for an unknown id.
func (s *EventService) Delete(ctx context.Context, id string) ([]DeletionOutcome, error) {
	if _, err := s.events.GetByID(ctx, id); err != nil {
		return nil, err
	}

	outcomes, err := s.images.DeleteByEntity(ctx, domain.EntityEvent, id)
	if err != nil {
		return outcomes, err
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return outcomes, err
	}

	s.log(ctx).WithField("event_id", id).
		WithField(logger.FieldCount, len(outcomes)).
		Info("Event deleted with image cascade")

	return outcomes, nil
}
