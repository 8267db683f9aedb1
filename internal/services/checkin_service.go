package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/logger"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/metrics"
)

// Check-in methods.
const (
	CheckInMethodToken = "token"
	CheckInMethodCode  = "code"
)

var (
	errPassCancelled   = apperrors.ErrPassInvalid.WithMessage("This registration was cancelled")
	errPassWrongEvent  = apperrors.ErrPassInvalid.WithMessage("This pass was not issued for this registration's event")
	errPassNoHolder    = apperrors.ErrPassInvalid.WithMessage("No registration matches this pass")
	errPassCodeInvalid = apperrors.ErrPassInvalid.WithMessage("Verification code does not match")
)

// AlreadyCheckedInError reports a second admission attempt for a pass.
type AlreadyCheckedInError struct {
	Holder      *PassHolder
	CheckedInAt time.Time
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("%s at %s", apperrors.ErrAlreadyCheckedIn.Message, e.CheckedInAt.Format(time.RFC3339))
}

// Unwrap lets callers match the error against apperrors.ErrAlreadyCheckedIn.
func (e *AlreadyCheckedInError) Unwrap() error {
	return apperrors.ErrAlreadyCheckedIn
}

// CheckInResult describes a successful admission.
type CheckInResult struct {
	Holder      *PassHolder `json:"holder"`
	Method      string      `json:"method"`
	Strategy    string      `json:"strategy,omitempty"`
	CheckedInAt time.Time   `json:"checked_in_at"`
	Expired     bool        `json:"expired"`
}

// CheckInService admits pass holders at the gate.
type CheckInService struct {
	db            *gorm.DB
	passes        *PassService
	registrations *RegistrationService
	stats         *StatsService
	audit         *AuditService
	publisher     Publisher
	now           func() time.Time
}

// CheckInServiceDeps bundles the collaborators of CheckInService.
type CheckInServiceDeps struct {
	DB            *gorm.DB
	Passes        *PassService
	Registrations *RegistrationService
	Stats         *StatsService
	Audit         *AuditService
	Publisher     Publisher
}

// NewCheckInService constructs a CheckInService.
func NewCheckInService(deps CheckInServiceDeps) (*CheckInService, error) {
	switch {
	case deps.DB == nil:
		return nil, errors.New("checkin service: db is required")
	case deps.Passes == nil:
		return nil, errors.New("checkin service: pass service is required")
	case deps.Registrations == nil:
		return nil, errors.New("checkin service: registration service is required")
	}
	return &CheckInService{
		db:            deps.DB,
		passes:        deps.Passes,
		registrations: deps.Registrations,
		stats:         deps.Stats,
		audit:         deps.Audit,
		publisher:     publisherOrNop(deps.Publisher),
		now:           time.Now,
	}, nil
}

// ByToken admits the holder of a scanned QR token.
func (s *CheckInService) ByToken(ctx context.Context, token string, actor Actor) (*CheckInResult, error) {
	ctx = ensureContext(ctx)

	verification, err := s.passes.Verify(token)
	if err != nil {
		return nil, s.reject(ctx, CheckInMethodToken, "", actor, err)
	}
	payload := verification.Payload

	holder, err := s.registrations.Lookup(ctx, payload.RegistrationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = errPassNoHolder
		}
		return nil, s.reject(ctx, CheckInMethodToken, payload.RegistrationID, actor, err)
	}
	if payload.EventID != holder.EventID {
		return nil, s.reject(ctx, CheckInMethodToken, holder.ID, actor, errPassWrongEvent)
	}

	result, err := s.admit(ctx, holder, actor, CheckInMethodToken, s.passes.Expired(payload))
	if err != nil {
		return nil, s.reject(ctx, CheckInMethodToken, holder.ID, actor, err)
	}
	result.Strategy = verification.Strategy
	return result, nil
}

// ByCode admits a holder using the short verification code printed on the pass.
func (s *CheckInService) ByCode(ctx context.Context, registrationID, code string, actor Actor) (*CheckInResult, error) {
	ctx = ensureContext(ctx)

	if !s.passes.CheckCode(registrationID, code) {
		return nil, s.reject(ctx, CheckInMethodCode, registrationID, actor, errPassCodeInvalid)
	}

	holder, err := s.registrations.Lookup(ctx, registrationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = errPassNoHolder
		}
		return nil, s.reject(ctx, CheckInMethodCode, registrationID, actor, err)
	}

	expired := !holder.Pass.PassExpiresAt.IsZero() && s.now().After(holder.Pass.PassExpiresAt)
	result, err := s.admit(ctx, holder, actor, CheckInMethodCode, expired)
	if err != nil {
		return nil, s.reject(ctx, CheckInMethodCode, holder.ID, actor, err)
	}
	return result, nil
}

// admit flips the holder to checked_in. The conditional update makes two
// gates scanning the same pass at once admit it exactly once.
func (s *CheckInService) admit(ctx context.Context, holder *PassHolder, actor Actor, method string, expired bool) (*CheckInResult, error) {
	if !holder.Pass.CanCheckIn() {
		return nil, s.stateError(holder)
	}

	at := s.now().UTC()
	updates := map[string]any{
		"status":        models.StatusCheckedIn,
		"checked_in_at": at,
		"checked_in_by": actor.userIDPtr(),
	}
	result := s.db.WithContext(ctx).
		Model(holder.model()).
		Where("id = ? AND status IN ?", holder.ID, []models.RegistrationStatus{models.StatusPending, models.StatusConfirmed, models.StatusExpired}).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("checkin service: mark checked in: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		current, err := s.registrations.Lookup(ctx, holder.ID)
		if err != nil {
			return nil, err
		}
		return nil, s.stateError(current)
	}

	holder.Pass.Status = models.StatusCheckedIn
	holder.Pass.CheckedInAt = &at
	holder.Pass.CheckedInBy = actor.userIDPtr()

	metrics.CheckIns.WithLabelValues(method, "admitted").Inc()
	recordAudit(s.audit, ctx, actor.entry("registration.checkin", holder.Kind+":"+holder.ID, AuditSuccess, map[string]any{
		"method":  method,
		"expired": expired,
	}))
	s.publisher.Publish(StreamRegistrations, EventRegistrationUpdated, holder.notice())
	s.stats.Broadcast(ctx)

	return &CheckInResult{
		Holder:      holder,
		Method:      method,
		CheckedInAt: at,
		Expired:     expired,
	}, nil
}

func (s *CheckInService) stateError(holder *PassHolder) error {
	switch holder.Pass.Status {
	case models.StatusCheckedIn:
		err := &AlreadyCheckedInError{Holder: holder}
		if holder.Pass.CheckedInAt != nil {
			err.CheckedInAt = *holder.Pass.CheckedInAt
		}
		return err
	case models.StatusCancelled:
		return errPassCancelled
	default:
		return apperrors.ErrPassInvalid
	}
}

func (s *CheckInService) reject(ctx context.Context, method, registrationID string, actor Actor, err error) error {
	outcome := "rejected"
	if errors.Is(err, apperrors.ErrAlreadyCheckedIn) {
		outcome = "duplicate"
	}
	metrics.CheckIns.WithLabelValues(method, outcome).Inc()

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.WithModule("checkin").Error("check-in failed", zap.String("method", method), zap.Error(err))
		return err
	}

	resource := "registration"
	if registrationID != "" {
		resource += ":" + registrationID
	}
	recordAudit(s.audit, ctx, actor.entry("registration.checkin", resource, AuditDenied, map[string]any{
		"method": method,
		"reason": appErr.Code,
	}))
	return err
}
