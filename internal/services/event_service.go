package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/validator"
)

var (
	// ErrEventNotFound indicates the requested event does not exist.
	ErrEventNotFound = apperrors.ErrNotFound.WithMessage("Event not found")
	// ErrEventSlugTaken is returned when another event already uses the slug.
	ErrEventSlugTaken = apperrors.ErrConflict.WithMessage("An event with this slug already exists")
)

// CreateEventInput describes a new event.
type CreateEventInput struct {
	Name             string     `json:"name" validate:"required,min=2,max=96"`
	Slug             string     `json:"slug" validate:"omitempty,max=96,slug"`
	Category         string     `json:"category" validate:"omitempty,oneof=technical non-technical workshop cultural gaming"`
	Description      string     `json:"description" validate:"max=4000"`
	Venue            string     `json:"venue" validate:"max=128"`
	StartsAt         *time.Time `json:"starts_at"`
	Fee              int        `json:"fee" validate:"gte=0"`
	TeamSize         int        `json:"team_size" validate:"gte=0,lte=10"`
	MaxParticipants  int        `json:"max_participants" validate:"gte=0"`
	IsActive         *bool      `json:"is_active"`
	RegistrationOpen *bool      `json:"registration_open"`
}

// UpdateEventInput enumerates mutable event attributes.
type UpdateEventInput struct {
	Name             *string    `json:"name" validate:"omitempty,min=2,max=96"`
	Slug             *string    `json:"slug" validate:"omitempty,max=96,slug"`
	Category         *string    `json:"category" validate:"omitempty,oneof=technical non-technical workshop cultural gaming"`
	Description      *string    `json:"description" validate:"omitempty,max=4000"`
	Venue            *string    `json:"venue" validate:"omitempty,max=128"`
	StartsAt         *time.Time `json:"starts_at"`
	Fee              *int       `json:"fee" validate:"omitempty,gte=0"`
	TeamSize         *int       `json:"team_size" validate:"omitempty,gte=1,lte=10"`
	MaxParticipants  *int       `json:"max_participants" validate:"omitempty,gte=0"`
	IsActive         *bool      `json:"is_active"`
	RegistrationOpen *bool      `json:"registration_open"`
}

// EventService manages the event catalogue.
type EventService struct {
	db    *gorm.DB
	audit *AuditService
	stats *StatsService
}

// NewEventService constructs an EventService.
func NewEventService(db *gorm.DB, audit *AuditService, stats *StatsService) (*EventService, error) {
	if db == nil {
		return nil, errors.New("event service: db is required")
	}
	return &EventService{db: db, audit: audit, stats: stats}, nil
}

// List returns events ordered by start time then name.
func (s *EventService) List(ctx context.Context, activeOnly bool) ([]models.Event, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Event{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var events []models.Event
	if err := query.Order("starts_at ASC").Order("name ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("event service: list events: %w", err)
	}
	return events, nil
}

// Get resolves an event by ID or slug.
func (s *EventService) Get(ctx context.Context, idOrSlug string) (*models.Event, error) {
	return s.get(ensureContext(ctx), s.db, idOrSlug)
}

func (s *EventService) get(ctx context.Context, db *gorm.DB, idOrSlug string) (*models.Event, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, ErrEventNotFound
	}

	var event models.Event
	err := db.WithContext(ctx).
		Where("id = ? OR slug = ?", idOrSlug, strings.ToLower(idOrSlug)).
		Take(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("event service: get event: %w", err)
	}
	return &event, nil
}

// Create adds a new event. The slug is derived from the name when not supplied.
func (s *EventService) Create(ctx context.Context, input CreateEventInput, actor Actor) (*models.Event, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = slugify(input.Name)
	}
	if slug == "" {
		return nil, apperrors.NewBadRequest("event name must contain letters or digits")
	}

	event := &models.Event{
		Name:             strings.TrimSpace(input.Name),
		Slug:             slug,
		Category:         input.Category,
		Description:      strings.TrimSpace(input.Description),
		Venue:            strings.TrimSpace(input.Venue),
		StartsAt:         input.StartsAt,
		Fee:              input.Fee,
		TeamSize:         input.TeamSize,
		MaxParticipants:  input.MaxParticipants,
		IsActive:         true,
		RegistrationOpen: true,
	}
	if event.TeamSize <= 0 {
		event.TeamSize = 1
	}
	if input.IsActive != nil {
		event.IsActive = *input.IsActive
	}
	if input.RegistrationOpen != nil {
		event.RegistrationOpen = *input.RegistrationOpen
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, translateWriteError(err, ErrEventSlugTaken, "event service: create event")
	}

	recordAudit(s.audit, ctx, actor.entry("event.create", "event:"+event.ID, AuditSuccess, map[string]any{"slug": event.Slug}))
	s.stats.Broadcast(ctx)
	return event, nil
}

// Update applies partial changes to an event.
func (s *EventService) Update(ctx context.Context, idOrSlug string, input UpdateEventInput, actor Actor) (*models.Event, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, err
	}

	event, err := s.Get(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		event.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		event.Slug = strings.TrimSpace(*input.Slug)
	}
	if input.Category != nil {
		event.Category = *input.Category
	}
	if input.Description != nil {
		event.Description = strings.TrimSpace(*input.Description)
	}
	if input.Venue != nil {
		event.Venue = strings.TrimSpace(*input.Venue)
	}
	if input.StartsAt != nil {
		event.StartsAt = input.StartsAt
	}
	if input.Fee != nil {
		event.Fee = *input.Fee
	}
	if input.TeamSize != nil {
		event.TeamSize = *input.TeamSize
	}
	if input.MaxParticipants != nil {
		event.MaxParticipants = *input.MaxParticipants
	}
	if input.IsActive != nil {
		event.IsActive = *input.IsActive
	}
	if input.RegistrationOpen != nil {
		event.RegistrationOpen = *input.RegistrationOpen
	}

	if err := s.db.WithContext(ctx).Save(event).Error; err != nil {
		return nil, translateWriteError(err, ErrEventSlugTaken, "event service: update event")
	}

	recordAudit(s.audit, ctx, actor.entry("event.update", "event:"+event.ID, AuditSuccess, nil))
	s.stats.Broadcast(ctx)
	return event, nil
}

// SetRegistrationOpen opens or closes sign-ups for a single event.
func (s *EventService) SetRegistrationOpen(ctx context.Context, idOrSlug string, open bool, actor Actor) (*models.Event, error) {
	return s.Update(ctx, idOrSlug, UpdateEventInput{RegistrationOpen: &open}, actor)
}
