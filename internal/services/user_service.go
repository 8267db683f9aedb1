package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth/mfa"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/crypto"
	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/metrics"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserInactive is returned when a deactivated account tries to sign in.
	ErrUserInactive = apperrors.ErrForbidden.WithMessage("This account has been deactivated")
	// ErrMFARequired asks the client to resend the login with an otp_code.
	ErrMFARequired = apperrors.New("MFA_REQUIRED", "Enter the code from your authenticator app", http.StatusUnauthorized)
	// ErrInvalidOTP is returned for a wrong or expired one-time code.
	ErrInvalidOTP = apperrors.New("INVALID_OTP", "The one-time code is not valid", http.StatusUnauthorized)
	// ErrMFAUnavailable is returned when two-factor sign-in is not configured.
	ErrMFAUnavailable = apperrors.New("MFA_UNAVAILABLE", "Two-factor sign-in is not available", http.StatusServiceUnavailable)
	// ErrMFAAdminOnly limits enrollment to administrators.
	ErrMFAAdminOnly = apperrors.ErrForbidden.WithMessage("Two-factor sign-in is available to administrators only")
	// ErrMFAAlreadyEnabled is returned when enrolling with an active second factor.
	ErrMFAAlreadyEnabled = apperrors.ErrConflict.WithMessage("Two-factor sign-in is already enabled")
	// ErrMFANotEnrolled is returned when confirming or disabling without a secret.
	ErrMFANotEnrolled = apperrors.New("MFA_NOT_ENROLLED", "Two-factor sign-in has not been set up", http.StatusBadRequest)
)

// CreateUserInput describes the fields accepted when creating an admin user.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Roles    []string
}

// UserService manages admin console accounts.
type UserService struct {
	db           *gorm.DB
	auditService *AuditService
	totp         *mfa.TOTPService
	now          func() time.Time
}

// NewUserService constructs a UserService instance. A nil totp service
// disables two-factor enrollment; accounts that already enabled it are then
// refused at sign-in.
func NewUserService(db *gorm.DB, auditService *AuditService, totp *mfa.TOTPService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:           db,
		auditService: auditService,
		totp:         totp,
		now:          time.Now,
	}, nil
}

// Create provisions a new user with a hashed password and the requested roles.
// Users without explicit roles get the plain user role.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooShort) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("password must be at least %d characters", crypto.MinPasswordLength))
		}
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	roleIDs := normaliseIDs(input.Roles)
	if len(roleIDs) == 0 {
		roleIDs = []string{models.RoleUser}
	}

	user := &models.User{
		Email:    email,
		Name:     strings.TrimSpace(input.Name),
		Password: hashed,
		IsActive: true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		var roles []models.Role
		if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return fmt.Errorf("user service: load roles: %w", err)
		}
		if len(roles) != len(roleIDs) {
			return apperrors.NewBadRequest("one or more roles do not exist")
		}

		if err := tx.Model(user).Association("Roles").Append(&roles); err != nil {
			return fmt.Errorf("user service: assign roles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, translateWriteError(err, apperrors.ErrConflict.WithMessage("A user with this email already exists"), "user service: create user")
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &user.ID,
		Actor:    user.Email,
		Action:   "user.create",
		Resource: "user:" + user.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{"roles": roleIDs},
	})

	return s.GetByID(ctx, user.ID)
}

// GetByID retrieves a user with roles preloaded.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Where("id = ?", strings.TrimSpace(id)).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// Authenticate checks credentials and records the login. Accounts with
// two-factor sign-in enabled must also present otpCode, either the current
// TOTP code or an unused backup code.
func (s *UserService) Authenticate(ctx context.Context, email, password, otpCode, ip string) (*models.User, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Roles").Where("email = ?", email).Take(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	fail := func(reason string, appErr *apperrors.AppError) (*models.User, error) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		recordAudit(s.auditService, ctx, AuditEntry{
			Actor:     email,
			Action:    "auth.login",
			Resource:  "auth",
			Result:    AuditFailure,
			IPAddress: ip,
			Metadata:  map[string]any{"reason": reason},
		})
		return nil, appErr
	}

	if err != nil || !crypto.VerifyPassword(user.Password, password) {
		return fail("invalid_credentials", apperrors.ErrInvalidCredentials)
	}
	if !user.IsActive {
		return fail("inactive", ErrUserInactive)
	}
	if user.MFAEnabled {
		if strings.TrimSpace(otpCode) == "" {
			return fail("mfa_required", ErrMFARequired)
		}
		if s.totp == nil {
			return fail("mfa_unavailable", ErrMFAUnavailable)
		}
		ok, err := s.totp.Verify(ctx, user.ID, otpCode)
		if err != nil && !errors.Is(err, mfa.ErrNotEnrolled) {
			return nil, fmt.Errorf("user service: verify otp: %w", err)
		}
		if !ok {
			return fail("invalid_otp", ErrInvalidOTP)
		}
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"last_login_at": now,
		"last_login_ip": ip,
	}).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}
	user.LastLoginAt = &now
	user.LastLoginIP = ip

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:    &user.ID,
		Actor:     user.Email,
		Action:    "auth.login",
		Resource:  "auth",
		Result:    AuditSuccess,
		IPAddress: ip,
	})
	return &user, nil
}

// EnrollMFA provisions a pending TOTP secret for the calling administrator.
func (s *UserService) EnrollMFA(ctx context.Context, actor Actor) (*mfa.Enrollment, error) {
	ctx = ensureContext(ctx)
	if s.totp == nil {
		return nil, ErrMFAUnavailable
	}

	user, err := s.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(user.RoleIDs(), models.RoleAdmin) {
		return nil, ErrMFAAdminOnly
	}

	enrollment, err := s.totp.Enroll(ctx, user.ID, user.Email)
	if err != nil {
		if errors.Is(err, mfa.ErrAlreadyEnabled) {
			return nil, ErrMFAAlreadyEnabled
		}
		return nil, fmt.Errorf("user service: enroll mfa: %w", err)
	}

	recordAudit(s.auditService, ctx, actor.entry("auth.mfa.enroll", "user:"+user.ID, AuditSuccess, nil))
	return enrollment, nil
}

// ConfirmMFA activates the pending secret once code matches it.
func (s *UserService) ConfirmMFA(ctx context.Context, actor Actor, code string) error {
	ctx = ensureContext(ctx)
	if s.totp == nil {
		return ErrMFAUnavailable
	}

	err := s.totp.Confirm(ctx, actor.UserID, code)
	switch {
	case err == nil:
	case errors.Is(err, mfa.ErrNotEnrolled):
		return ErrMFANotEnrolled
	case errors.Is(err, mfa.ErrAlreadyEnabled):
		return ErrMFAAlreadyEnabled
	case errors.Is(err, mfa.ErrInvalidCode):
		recordAudit(s.auditService, ctx, actor.entry("auth.mfa.enable", "user:"+actor.UserID, AuditFailure, map[string]any{"reason": "invalid_otp"}))
		return ErrInvalidOTP
	default:
		return fmt.Errorf("user service: confirm mfa: %w", err)
	}

	recordAudit(s.auditService, ctx, actor.entry("auth.mfa.enable", "user:"+actor.UserID, AuditSuccess, nil))
	return nil
}

// DisableMFA turns two-factor sign-in off after checking a current code.
func (s *UserService) DisableMFA(ctx context.Context, actor Actor, code string) error {
	ctx = ensureContext(ctx)
	if s.totp == nil {
		return ErrMFAUnavailable
	}

	ok, err := s.totp.Verify(ctx, actor.UserID, code)
	if err != nil {
		if errors.Is(err, mfa.ErrNotEnrolled) {
			return ErrMFANotEnrolled
		}
		return fmt.Errorf("user service: verify otp: %w", err)
	}
	if !ok {
		return ErrInvalidOTP
	}

	if err := s.totp.Disable(ctx, actor.UserID); err != nil {
		return fmt.Errorf("user service: disable mfa: %w", err)
	}
	recordAudit(s.auditService, ctx, actor.entry("auth.mfa.disable", "user:"+actor.UserID, AuditSuccess, nil))
	return nil
}

// HasRole reports whether the user holds any of the supplied roles.
func (s *UserService) HasRole(ctx context.Context, userID string, roles ...string) (bool, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(userID) == "" || len(roles) == 0 {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Table("user_roles").
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("user_roles.user_id = ? AND user_roles.role_id IN ? AND users.is_active = ?", userID, roles, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("user service: check roles: %w", err)
	}
	return count > 0, nil
}

// EnsureBootstrapAdmin creates the configured administrator when no admin
// exists yet. It reports whether a user was created.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, email, password, name string) (bool, error) {
	ctx = ensureContext(ctx)

	if normaliseEmail(email) == "" || password == "" {
		return false, nil
	}

	var admins int64
	if err := s.db.WithContext(ctx).
		Table("user_roles").
		Where("role_id = ?", models.RoleAdmin).
		Count(&admins).Error; err != nil {
		return false, fmt.Errorf("user service: count admins: %w", err)
	}
	if admins > 0 {
		return false, nil
	}

	if _, err := s.Create(ctx, CreateUserInput{
		Email:    email,
		Name:     name,
		Password: password,
		Roles:    []string{models.RoleAdmin},
	}); err != nil {
		return false, err
	}
	return true, nil
}
