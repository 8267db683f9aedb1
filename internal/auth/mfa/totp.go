package mfa

import (
	"context"
	cryptoRand "crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/crypto"
)

const (
	defaultIssuer          = "KAIZEN Admin"
	defaultBackupCodeCount = 8
	defaultQRCodeSize      = 256
)

var (
	// ErrNotEnrolled is returned when the user has no pending or active secret.
	ErrNotEnrolled = errors.New("totp: user is not enrolled")
	// ErrAlreadyEnabled is returned when enrolling a user whose second factor is active.
	ErrAlreadyEnabled = errors.New("totp: second factor already enabled")
	// ErrInvalidCode is returned when a confirmation code does not match.
	ErrInvalidCode = errors.New("totp: invalid code")
)

var validateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Option allows customising the TOTP service.
type Option func(*TOTPService)

// WithIssuer overrides the issuer shown in authenticator apps.
func WithIssuer(issuer string) Option {
	return func(s *TOTPService) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = strings.TrimSpace(issuer)
		}
	}
}

// WithBackupCodeCount overrides the number of backup codes generated for users.
func WithBackupCodeCount(count int) Option {
	return func(s *TOTPService) {
		if count > 0 {
			s.backupCodes = count
		}
	}
}

// WithQRCodeSize controls the pixel size of generated QR codes.
func WithQRCodeSize(size int) Option {
	return func(s *TOTPService) {
		if size > 0 {
			s.qrCodeSize = size
		}
	}
}

// WithClock injects a custom clock, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(s *TOTPService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Enrollment is handed to the admin once, when a secret is provisioned.
type Enrollment struct {
	Secret      string   `json:"secret"`
	URL         string   `json:"otpauth_url"`
	QRCode      []byte   `json:"qr_code_png"`
	BackupCodes []string `json:"backup_codes"`
}

// TOTPService manages admin second-factor secrets and backup codes.
type TOTPService struct {
	db            *gorm.DB
	encryptionKey []byte

	issuer      string
	backupCodes int
	qrCodeSize  int
	now         func() time.Time
}

// NewTOTPService constructs a TOTP service backed by the provided database.
func NewTOTPService(db *gorm.DB, encryptionKey []byte, opts ...Option) (*TOTPService, error) {
	if db == nil {
		return nil, errors.New("totp: db is required")
	}
	if len(encryptionKey) != 32 {
		return nil, errors.New("totp: encryption key must be 32 bytes")
	}

	service := &TOTPService{
		db:            db,
		encryptionKey: encryptionKey,
		issuer:        defaultIssuer,
		backupCodes:   defaultBackupCodeCount,
		qrCodeSize:    defaultQRCodeSize,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Enroll provisions a fresh, unconfirmed secret for userID, replacing any
// earlier pending one. The second factor only gates sign-in after Confirm.
func (s *TOTPService) Enroll(ctx context.Context, userID, accountName string) (*Enrollment, error) {
	userID = strings.TrimSpace(userID)
	accountName = strings.TrimSpace(accountName)
	if userID == "" || accountName == "" {
		return nil, errors.New("totp: user id and account name are required")
	}

	existing, err := s.loadSecret(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotEnrolled) {
		return nil, err
	}
	if existing != nil && existing.ConfirmedAt != nil {
		return nil, ErrAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      validateOpts.Period,
		Digits:      validateOpts.Digits,
		Algorithm:   validateOpts.Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("totp: generate key: %w", err)
	}

	encryptedSecret, err := crypto.Encrypt([]byte(key.Secret()), s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("totp: encrypt secret: %w", err)
	}

	codes, hashed, err := s.generateBackupCodes()
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(key.String(), qrcode.Medium, s.qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("totp: render qr: %w", err)
	}

	if existing == nil {
		existing = &models.MFASecret{UserID: userID}
	}
	existing.Secret = encryptedSecret
	existing.BackupCodes = hashed
	existing.ConfirmedAt = nil
	existing.LastUsedAt = nil
	if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, fmt.Errorf("totp: store secret: %w", err)
	}

	return &Enrollment{
		Secret:      key.Secret(),
		URL:         key.URL(),
		QRCode:      png,
		BackupCodes: codes,
	}, nil
}

// Confirm activates a pending secret once the admin proves their app
// produces matching codes.
func (s *TOTPService) Confirm(ctx context.Context, userID, code string) error {
	secret, err := s.loadSecret(ctx, strings.TrimSpace(userID))
	if err != nil {
		return err
	}
	if secret.ConfirmedAt != nil {
		return ErrAlreadyEnabled
	}

	valid, err := s.validateTOTP(secret, code)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidCode
	}

	now := s.now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(secret).Updates(map[string]any{
			"confirmed_at": now,
			"last_used_at": now,
		}).Error; err != nil {
			return fmt.Errorf("totp: confirm secret: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", secret.UserID).Update("mfa_enabled", true).Error; err != nil {
			return fmt.Errorf("totp: enable user: %w", err)
		}
		return nil
	})
}

// Verify checks a sign-in code against the confirmed secret. A six-digit
// code is tried as TOTP; anything else is tried as a single-use backup code.
func (s *TOTPService) Verify(ctx context.Context, userID, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}

	secret, err := s.loadSecret(ctx, strings.TrimSpace(userID))
	if err != nil {
		return false, err
	}
	if secret.ConfirmedAt == nil {
		return false, ErrNotEnrolled
	}

	if len(code) == int(validateOpts.Digits) && isDigits(code) {
		valid, err := s.validateTOTP(secret, code)
		if err != nil || !valid {
			return false, err
		}
		now := s.now().UTC()
		if err := s.db.WithContext(ctx).Model(secret).Update("last_used_at", now).Error; err != nil {
			return false, fmt.Errorf("totp: update last used: %w", err)
		}
		return true, nil
	}

	return s.useBackupCode(ctx, secret, code)
}

// Disable removes the secret and turns the second factor off for userID.
func (s *TOTPService) Disable(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("totp: user id is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.MFASecret{}).Error; err != nil {
			return fmt.Errorf("totp: delete secret: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("mfa_enabled", false).Error; err != nil {
			return fmt.Errorf("totp: disable user: %w", err)
		}
		return nil
	})
}

// RemainingBackupCodes returns the number of backup codes still available.
func (s *TOTPService) RemainingBackupCodes(ctx context.Context, userID string) (int, error) {
	secret, err := s.loadSecret(ctx, strings.TrimSpace(userID))
	if err != nil {
		return 0, err
	}
	return len(secret.BackupCodes), nil
}

func (s *TOTPService) validateTOTP(secret *models.MFASecret, code string) (bool, error) {
	raw, err := crypto.Decrypt(secret.Secret, s.encryptionKey)
	if err != nil {
		return false, fmt.Errorf("totp: decrypt secret: %w", err)
	}
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), string(raw), s.now(), validateOpts)
	if err != nil && !errors.Is(err, otp.ErrValidateInputInvalidLength) {
		return false, fmt.Errorf("totp: validate: %w", err)
	}
	return valid, nil
}

func (s *TOTPService) useBackupCode(ctx context.Context, secret *models.MFASecret, code string) (bool, error) {
	code = strings.ToUpper(code)
	for i, stored := range secret.BackupCodes {
		if !crypto.VerifyPassword(stored, code) {
			continue
		}
		remaining := append(append([]string{}, secret.BackupCodes[:i]...), secret.BackupCodes[i+1:]...)
		if err := s.db.WithContext(ctx).Model(secret).Updates(map[string]any{
			"backup_codes": datatypes.JSONSlice[string](remaining),
			"last_used_at": s.now().UTC(),
		}).Error; err != nil {
			return false, fmt.Errorf("totp: consume backup code: %w", err)
		}
		secret.BackupCodes = remaining
		return true, nil
	}
	return false, nil
}

func (s *TOTPService) generateBackupCodes() ([]string, datatypes.JSONSlice[string], error) {
	codes := make([]string, s.backupCodes)
	hashed := make(datatypes.JSONSlice[string], s.backupCodes)
	for i := range codes {
		code, err := generateBackupCode()
		if err != nil {
			return nil, nil, fmt.Errorf("totp: generate backup code: %w", err)
		}
		hash, err := crypto.HashPassword(code)
		if err != nil {
			return nil, nil, fmt.Errorf("totp: hash backup code: %w", err)
		}
		codes[i] = code
		hashed[i] = hash
	}
	return codes, hashed, nil
}

func (s *TOTPService) loadSecret(ctx context.Context, userID string) (*models.MFASecret, error) {
	if userID == "" {
		return nil, errors.New("totp: user id is required")
	}

	var secret models.MFASecret
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&secret).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("totp: load secret: %w", err)
	}
	return &secret, nil
}

func generateBackupCode() (string, error) {
	buf := make([]byte, 5)
	if _, err := cryptoRand.Read(buf); err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString(buf)[:8], nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
