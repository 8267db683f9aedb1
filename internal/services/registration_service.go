package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/metrics"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/validator"
)

// Registration kinds.
const (
	KindEvent = "event"
	KindFest  = "fest"
)

var (
	// ErrRegistrationNotFound indicates no registration of either kind has the ID.
	ErrRegistrationNotFound = apperrors.ErrNotFound.WithMessage("Registration not found")
	// ErrCancelCheckedIn is returned when cancelling a pass that was already admitted.
	ErrCancelCheckedIn = apperrors.ErrConflict.WithMessage("Checked-in passes cannot be cancelled")
)

// RegisterInput is a single event sign-up.
type RegisterInput struct {
	EventID     string   `json:"event_id" validate:"required"`
	FullName    string   `json:"full_name" validate:"required,min=2,max=96"`
	Email       string   `json:"email" validate:"required,email,max=254"`
	Phone       string   `json:"phone" validate:"required,phone"`
	College     string   `json:"college" validate:"required,max=160"`
	Year        int      `json:"year" validate:"omitempty,gte=1,lte=6"`
	TeamName    string   `json:"team_name" validate:"max=96"`
	TeamMembers []string `json:"team_members" validate:"max=9,dive,max=96"`
}

// FestRegisterInput is a bundle sign-up covering several events.
type FestRegisterInput struct {
	FullName string   `json:"full_name" validate:"required,min=2,max=96"`
	Email    string   `json:"email" validate:"required,email,max=254"`
	Phone    string   `json:"phone" validate:"required,phone"`
	College  string   `json:"college" validate:"required,max=160"`
	Year     int      `json:"year" validate:"omitempty,gte=1,lte=6"`
	EventIDs []string `json:"event_ids" validate:"required,min=1,max=32,dive,required"`
}

// normalised trims free-text fields and lowercases the email so validation
// sees what will be stored.
func (in RegisterInput) normalised() RegisterInput {
	in.EventID = strings.TrimSpace(in.EventID)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normaliseEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.College = strings.TrimSpace(in.College)
	in.TeamName = strings.TrimSpace(in.TeamName)
	return in
}

func (in FestRegisterInput) normalised() FestRegisterInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normaliseEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.College = strings.TrimSpace(in.College)
	return in
}

// lockEvent row-locks the event so concurrent sign-ups for the last seat
// count one at a time. SQLite drops the clause; its writer lock already
// serialises the transaction.
func lockEvent(tx *gorm.DB, eventID string) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("id").
		Where("id = ?", eventID)
}

// RegistrationResult is returned after an individual registration.
type RegistrationResult struct {
	Registration *models.Registration `json:"registration"`
	Pass         PassIssue            `json:"pass"`
}

// FestRegistrationResult is returned after a bundle registration.
type FestRegistrationResult struct {
	Registration *models.FestRegistration `json:"registration"`
	Events       []models.Event           `json:"events"`
	Pass         PassIssue                `json:"pass"`
}

// RegistrationFilters narrows registration listings.
type RegistrationFilters struct {
	EventID string
	Status  string
	Query   string
}

// ListRegistrationsOptions controls pagination for registration listings.
type ListRegistrationsOptions struct {
	Page     int
	PageSize int
	Filters  RegistrationFilters
}

// PassHolder is a kind-agnostic view of a registration used at the gate.
type PassHolder struct {
	Kind      string      `json:"kind"`
	ID        string      `json:"id"`
	FullName  string      `json:"full_name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	College   string      `json:"college"`
	EventID   string      `json:"event_id"`
	EventName string      `json:"event_name"`
	EventIDs  []string    `json:"event_ids,omitempty"`
	Pass      models.Pass `json:"pass"`
}

type registrationNotice struct {
	ID        string                    `json:"id"`
	Kind      string                    `json:"kind"`
	EventID   string                    `json:"event_id"`
	EventName string                    `json:"event_name"`
	FullName  string                    `json:"full_name"`
	College   string                    `json:"college"`
	Status    models.RegistrationStatus `json:"status"`
}

// RegistrationService handles event and fest sign-ups.
type RegistrationService struct {
	db        *gorm.DB
	events    *EventService
	settings  *SettingsService
	passes    *PassService
	stats     *StatsService
	audit     *AuditService
	publisher Publisher
}

// RegistrationServiceDeps bundles the collaborators of RegistrationService.
type RegistrationServiceDeps struct {
	DB        *gorm.DB
	Events    *EventService
	Settings  *SettingsService
	Passes    *PassService
	Stats     *StatsService
	Audit     *AuditService
	Publisher Publisher
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(deps RegistrationServiceDeps) (*RegistrationService, error) {
	switch {
	case deps.DB == nil:
		return nil, errors.New("registration service: db is required")
	case deps.Events == nil:
		return nil, errors.New("registration service: event service is required")
	case deps.Settings == nil:
		return nil, errors.New("registration service: settings service is required")
	case deps.Passes == nil:
		return nil, errors.New("registration service: pass service is required")
	}
	return &RegistrationService{
		db:        deps.DB,
		events:    deps.Events,
		settings:  deps.Settings,
		passes:    deps.Passes,
		stats:     deps.Stats,
		audit:     deps.Audit,
		publisher: publisherOrNop(deps.Publisher),
	}, nil
}

// Register signs a participant up for one event and issues their pass.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegistrationResult, error) {
	ctx = ensureContext(ctx)
	input = input.normalised()

	if err := validator.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}

	event, err := s.events.Get(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if !event.AcceptsRegistrations() {
		return nil, apperrors.ErrRegistrationClosed.WithMessage(fmt.Sprintf("Registrations for %s are closed", event.Name))
	}

	members := normaliseIDs(input.TeamMembers)
	if len(members)+1 > event.TeamSize {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("%s allows at most %d participant(s) per team", event.Name, event.TeamSize))
	}

	status := models.StatusConfirmed
	if event.Fee > 0 {
		status = models.StatusPending
	}

	reg := &models.Registration{
		EventID:     event.ID,
		FullName:    input.FullName,
		Email:       input.Email,
		Phone:       input.Phone,
		College:     input.College,
		Year:        input.Year,
		TeamName:    input.TeamName,
		TeamMembers: datatypes.JSONSlice[string](members),
	}

	var issue PassIssue
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Registration
		write := tx.Create
		err := tx.Where("event_id = ? AND email = ?", event.ID, reg.Email).Take(&existing).Error
		switch {
		case err == nil && existing.Status != models.StatusCancelled:
			return apperrors.ErrAlreadyRegistered.WithMessage("This email is already registered for " + event.Name)
		case err == nil:
			reg.ID = existing.ID
			reg.CreatedAt = existing.CreatedAt
			write = tx.Save
		case errors.Is(err, gorm.ErrRecordNotFound):
			reg.ID = uuid.NewString()
		default:
			return fmt.Errorf("registration service: load existing: %w", err)
		}

		if event.MaxParticipants > 0 {
			if err := lockEvent(tx, event.ID).Take(&models.Event{}).Error; err != nil {
				return fmt.Errorf("registration service: lock event: %w", err)
			}
			var count int64
			if err := tx.Model(&models.Registration{}).
				Where("event_id = ? AND status <> ?", event.ID, models.StatusCancelled).
				Count(&count).Error; err != nil {
				return fmt.Errorf("registration service: count registrations: %w", err)
			}
			if !event.HasCapacity(count) {
				return apperrors.ErrEventFull
			}
		}

		issue = s.passes.Issue(qrcodec.PayloadInput{
			RegistrationID: reg.ID,
			EventID:        event.ID,
			Name:           reg.FullName,
			Email:          reg.Email,
			Phone:          reg.Phone,
			EventName:      event.Name,
		})
		issue.Apply(&reg.Pass, status)

		if err := write(reg).Error; err != nil {
			return translateWriteError(err,
				apperrors.ErrAlreadyRegistered.WithMessage("This email is already registered for "+event.Name),
				"registration service: create registration")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reg.Event = event
	metrics.Registrations.WithLabelValues(KindEvent).Inc()
	s.publisher.Publish(StreamRegistrations, EventRegistrationCreated, registrationNotice{
		ID:        reg.ID,
		Kind:      KindEvent,
		EventID:   event.ID,
		EventName: event.Name,
		FullName:  reg.FullName,
		College:   reg.College,
		Status:    reg.Status,
	})
	s.stats.Broadcast(ctx)

	return &RegistrationResult{Registration: reg, Pass: issue}, nil
}

// RegisterFest signs a participant up for a bundle of events under one pass.
func (s *RegistrationService) RegisterFest(ctx context.Context, input FestRegisterInput) (*FestRegistrationResult, error) {
	ctx = ensureContext(ctx)
	input = input.normalised()

	if err := validator.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}

	var (
		events   []models.Event
		eventIDs []string
		seen     = make(map[string]struct{})
	)
	for _, ref := range normaliseIDs(input.EventIDs) {
		event, err := s.events.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !event.AcceptsRegistrations() {
			return nil, apperrors.ErrRegistrationClosed.WithMessage(fmt.Sprintf("Registrations for %s are closed", event.Name))
		}
		if _, dup := seen[event.ID]; dup {
			continue
		}
		seen[event.ID] = struct{}{}
		events = append(events, *event)
		eventIDs = append(eventIDs, event.ID)
	}
	if len(eventIDs) == 0 {
		return nil, apperrors.NewBadRequest("select at least one event")
	}

	reg := &models.FestRegistration{
		FullName: input.FullName,
		Email:    input.Email,
		Phone:    input.Phone,
		College:  input.College,
		Year:     input.Year,
		EventIDs: datatypes.JSONSlice[string](eventIDs),
	}

	var issue PassIssue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FestRegistration
		write := tx.Create
		err := tx.Where("email = ?", reg.Email).Take(&existing).Error
		switch {
		case err == nil && existing.Status != models.StatusCancelled:
			return apperrors.ErrAlreadyRegistered.WithMessage("This email already holds a fest pass")
		case err == nil:
			reg.ID = existing.ID
			reg.CreatedAt = existing.CreatedAt
			write = tx.Save
		case errors.Is(err, gorm.ErrRecordNotFound):
			reg.ID = uuid.NewString()
		default:
			return fmt.Errorf("registration service: load existing fest pass: %w", err)
		}

		issue = s.passes.Issue(qrcodec.PayloadInput{
			RegistrationID: reg.ID,
			EventID:        FestEventID,
			Name:           reg.FullName,
			Email:          reg.Email,
			Phone:          reg.Phone,
			EventName:      FestEventName,
		})
		issue.Apply(&reg.Pass, models.StatusConfirmed)

		if err := write(reg).Error; err != nil {
			return translateWriteError(err,
				apperrors.ErrAlreadyRegistered.WithMessage("This email already holds a fest pass"),
				"registration service: create fest registration")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Registrations.WithLabelValues(KindFest).Inc()
	s.publisher.Publish(StreamRegistrations, EventRegistrationCreated, registrationNotice{
		ID:        reg.ID,
		Kind:      KindFest,
		EventID:   FestEventID,
		EventName: FestEventName,
		FullName:  reg.FullName,
		College:   reg.College,
		Status:    reg.Status,
	})
	s.stats.Broadcast(ctx)

	return &FestRegistrationResult{Registration: reg, Events: events, Pass: issue}, nil
}

// Get returns an individual registration with its event.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.Registration, error) {
	ctx = ensureContext(ctx)

	var reg models.Registration
	err := s.db.WithContext(ctx).Preload("Event").Where("id = ?", strings.TrimSpace(id)).Take(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("registration service: get registration: %w", err)
	}
	return &reg, nil
}

// GetFest returns a fest registration.
func (s *RegistrationService) GetFest(ctx context.Context, id string) (*models.FestRegistration, error) {
	ctx = ensureContext(ctx)

	var reg models.FestRegistration
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Take(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("registration service: get fest registration: %w", err)
	}
	return &reg, nil
}

// List returns individual registrations, newest first.
func (s *RegistrationService) List(ctx context.Context, opts ListRegistrationsOptions) ([]models.Registration, int64, error) {
	ctx = ensureContext(ctx)
	_, perPage, offset := normalisePage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Registration{})
	if opts.Filters.EventID != "" {
		query = query.Where("event_id = ?", opts.Filters.EventID)
	}
	query = applyRegistrationFilters(query, opts.Filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("registration service: count registrations: %w", err)
	}

	var regs []models.Registration
	if err := query.Preload("Event").
		Order("created_at DESC").
		Offset(offset).
		Limit(perPage).
		Find(&regs).Error; err != nil {
		return nil, 0, fmt.Errorf("registration service: list registrations: %w", err)
	}
	return regs, total, nil
}

// ListFest returns fest registrations, newest first.
func (s *RegistrationService) ListFest(ctx context.Context, opts ListRegistrationsOptions) ([]models.FestRegistration, int64, error) {
	ctx = ensureContext(ctx)
	_, perPage, offset := normalisePage(opts.Page, opts.PageSize)

	query := applyRegistrationFilters(s.db.WithContext(ctx).Model(&models.FestRegistration{}), opts.Filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("registration service: count fest registrations: %w", err)
	}

	var regs []models.FestRegistration
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(perPage).
		Find(&regs).Error; err != nil {
		return nil, 0, fmt.Errorf("registration service: list fest registrations: %w", err)
	}
	return regs, total, nil
}

// Lookup resolves a registration of either kind by ID.
func (s *RegistrationService) Lookup(ctx context.Context, id string) (*PassHolder, error) {
	return s.lookup(ensureContext(ctx), s.db, id)
}

func (s *RegistrationService) lookup(ctx context.Context, db *gorm.DB, id string) (*PassHolder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRegistrationNotFound
	}

	var reg models.Registration
	err := db.WithContext(ctx).Preload("Event").Where("id = ?", id).Take(&reg).Error
	if err == nil {
		return holderFromRegistration(&reg), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("registration service: lookup registration: %w", err)
	}

	var fest models.FestRegistration
	err = db.WithContext(ctx).Where("id = ?", id).Take(&fest).Error
	if err == nil {
		return holderFromFest(&fest), nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRegistrationNotFound
	}
	return nil, fmt.Errorf("registration service: lookup fest registration: %w", err)
}

// Cancel voids a registration of either kind. Cancelling twice is a no-op.
func (s *RegistrationService) Cancel(ctx context.Context, id string, actor Actor) (*PassHolder, error) {
	ctx = ensureContext(ctx)

	holder, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	switch holder.Pass.Status {
	case models.StatusCancelled:
		return holder, nil
	case models.StatusCheckedIn:
		return nil, ErrCancelCheckedIn
	}

	result := s.db.WithContext(ctx).
		Model(holder.model()).
		Where("id = ? AND status <> ?", holder.ID, models.StatusCheckedIn).
		Update("status", models.StatusCancelled)
	if result.Error != nil {
		return nil, fmt.Errorf("registration service: cancel: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrCancelCheckedIn
	}
	holder.Pass.Status = models.StatusCancelled

	recordAudit(s.audit, ctx, actor.entry("registration.cancel", holder.Kind+":"+holder.ID, AuditSuccess, nil))
	s.publisher.Publish(StreamRegistrations, EventRegistrationUpdated, holder.notice())
	s.stats.Broadcast(ctx)
	return holder, nil
}

// ExpirePasses marks pending or confirmed passes whose validity ended before
// now as expired and returns how many rows changed.
func (s *RegistrationService) ExpirePasses(ctx context.Context, now time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	now = now.UTC()

	var total int64
	for _, model := range []any{&models.Registration{}, &models.FestRegistration{}} {
		result := s.db.WithContext(ctx).
			Model(model).
			Where("status IN ? AND pass_expires_at < ?", []models.RegistrationStatus{models.StatusPending, models.StatusConfirmed}, now).
			Update("status", models.StatusExpired)
		if result.Error != nil {
			return total, fmt.Errorf("registration service: expire passes: %w", result.Error)
		}
		total += result.RowsAffected
	}
	return total, nil
}

func (s *RegistrationService) ensureOpen(ctx context.Context) error {
	open, err := s.settings.RegistrationOpen(ctx)
	if err != nil {
		return err
	}
	if !open {
		return apperrors.ErrRegistrationClosed
	}
	return nil
}

func applyRegistrationFilters(query *gorm.DB, filters RegistrationFilters) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if q := strings.ToLower(strings.TrimSpace(filters.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR email LIKE ? OR LOWER(college) LIKE ?", like, like, like)
	}
	return query
}

func holderFromRegistration(reg *models.Registration) *PassHolder {
	holder := &PassHolder{
		Kind:     KindEvent,
		ID:       reg.ID,
		FullName: reg.FullName,
		Email:    reg.Email,
		Phone:    reg.Phone,
		College:  reg.College,
		EventID:  reg.EventID,
		Pass:     reg.Pass,
	}
	if reg.Event != nil {
		holder.EventName = reg.Event.Name
	}
	return holder
}

func holderFromFest(reg *models.FestRegistration) *PassHolder {
	return &PassHolder{
		Kind:      KindFest,
		ID:        reg.ID,
		FullName:  reg.FullName,
		Email:     reg.Email,
		Phone:     reg.Phone,
		College:   reg.College,
		EventID:   FestEventID,
		EventName: FestEventName,
		EventIDs:  []string(reg.EventIDs),
		Pass:      reg.Pass,
	}
}

func (h *PassHolder) model() any {
	if h.Kind == KindFest {
		return &models.FestRegistration{}
	}
	return &models.Registration{}
}

func (h *PassHolder) notice() registrationNotice {
	return registrationNotice{
		ID:        h.ID,
		Kind:      h.Kind,
		EventID:   h.EventID,
		EventName: h.EventName,
		FullName:  h.FullName,
		College:   h.College,
		Status:    h.Pass.Status,
	}
}
