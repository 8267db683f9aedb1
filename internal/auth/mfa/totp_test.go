package mfa

import (
	"bytes"
	"context"
	"image/png"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/database/testutil"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/crypto"
)

var testKey = crypto.DeriveKey("mfa-test-key")

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func TestEnrollStoresEncryptedPendingSecret(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createTestUser(t, db, "admin@kaizen.test")
	service, _ := newTestService(t, db)

	enrollment, err := service.Enroll(context.Background(), user.ID, user.Email)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.URL, "otpauth://totp/")
	require.Contains(t, enrollment.URL, "issuer=KAIZEN")
	require.Len(t, enrollment.BackupCodes, defaultBackupCodeCount)

	_, err = png.Decode(bytes.NewReader(enrollment.QRCode))
	require.NoError(t, err)

	var stored models.MFASecret
	require.NoError(t, db.Where("user_id = ?", user.ID).Take(&stored).Error)
	require.Nil(t, stored.ConfirmedAt)
	require.NotEqual(t, enrollment.Secret, stored.Secret)

	decrypted, err := crypto.Decrypt(stored.Secret, testKey)
	require.NoError(t, err)
	require.Equal(t, enrollment.Secret, string(decrypted))

	require.Len(t, stored.BackupCodes, defaultBackupCodeCount)
	for i, hash := range stored.BackupCodes {
		require.True(t, crypto.VerifyPassword(hash, enrollment.BackupCodes[i]))
	}

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	require.False(t, reloaded.MFAEnabled)
}

func TestConfirmEnablesSecondFactor(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createTestUser(t, db, "admin@kaizen.test")
	service, clock := newTestService(t, db)
	ctx := context.Background()

	enrollment, err := service.Enroll(ctx, user.ID, user.Email)
	require.NoError(t, err)

	_, err = service.Verify(ctx, user.ID, currentCode(t, enrollment.Secret, clock.now))
	require.ErrorIs(t, err, ErrNotEnrolled)

	require.ErrorIs(t, service.Confirm(ctx, user.ID, "000000"), ErrInvalidCode)
	require.NoError(t, service.Confirm(ctx, user.ID, currentCode(t, enrollment.Secret, clock.now)))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	require.True(t, reloaded.MFAEnabled)

	_, err = service.Enroll(ctx, user.ID, user.Email)
	require.ErrorIs(t, err, ErrAlreadyEnabled)
	require.ErrorIs(t, service.Confirm(ctx, user.ID, currentCode(t, enrollment.Secret, clock.now)), ErrAlreadyEnabled)
}

func TestVerifyAcceptsCurrentCodeWithinSkew(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createTestUser(t, db, "admin@kaizen.test")
	service, clock := newTestService(t, db)
	ctx := context.Background()

	enrollment := enrollAndConfirm(t, service, clock, user)

	ok, err := service.Verify(ctx, user.ID, currentCode(t, enrollment.Secret, clock.now))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = service.Verify(ctx, user.ID, currentCode(t, enrollment.Secret, clock.now.Add(-30*time.Second)))
	require.NoError(t, err)
	require.True(t, ok, "previous step is inside the skew window")

	ok, err = service.Verify(ctx, user.ID, currentCode(t, enrollment.Secret, clock.now.Add(-5*time.Minute)))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = service.Verify(ctx, user.ID, "")
	require.NoError(t, err)
	require.False(t, ok)

	var stored models.MFASecret
	require.NoError(t, db.Where("user_id = ?", user.ID).Take(&stored).Error)
	require.NotNil(t, stored.LastUsedAt)
}

func TestVerifyConsumesBackupCodes(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createTestUser(t, db, "admin@kaizen.test")
	service, clock := newTestService(t, db)
	ctx := context.Background()

	enrollment := enrollAndConfirm(t, service, clock, user)
	backup := enrollment.BackupCodes[0]

	ok, err := service.Verify(ctx, user.ID, " "+backup+" ")
	require.NoError(t, err)
	require.True(t, ok)

	remaining, err := service.RemainingBackupCodes(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, defaultBackupCodeCount-1, remaining)

	ok, err = service.Verify(ctx, user.ID, backup)
	require.NoError(t, err)
	require.False(t, ok, "backup codes are single use")
}

func TestDisableRemovesSecret(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createTestUser(t, db, "admin@kaizen.test")
	service, clock := newTestService(t, db)
	ctx := context.Background()

	enrollAndConfirm(t, service, clock, user)
	require.NoError(t, service.Disable(ctx, user.ID))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	require.False(t, reloaded.MFAEnabled)

	_, err := service.RemainingBackupCodes(ctx, user.ID)
	require.ErrorIs(t, err, ErrNotEnrolled)
}

func TestNewTOTPServiceValidatesInput(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	_, err := NewTOTPService(nil, testKey)
	require.Error(t, err)

	_, err = NewTOTPService(db, []byte("short"))
	require.Error(t, err)
}

func newTestService(t *testing.T, db *gorm.DB) (*TOTPService, *fixedClock) {
	t.Helper()

	clock := &fixedClock{now: time.Date(2027, time.February, 20, 9, 0, 0, 0, time.UTC)}
	service, err := NewTOTPService(db, testKey, WithIssuer("KAIZEN Test"), WithClock(clock.Now))
	require.NoError(t, err)
	return service, clock
}

func enrollAndConfirm(t *testing.T, service *TOTPService, clock *fixedClock, user *models.User) *Enrollment {
	t.Helper()

	ctx := context.Background()
	enrollment, err := service.Enroll(ctx, user.ID, user.Email)
	require.NoError(t, err)
	require.NoError(t, service.Confirm(ctx, user.ID, currentCode(t, enrollment.Secret, clock.now)))
	return enrollment
}

func currentCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()

	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword("correct-horse")
	require.NoError(t, err)

	user := &models.User{
		Email:    email,
		Name:     "Festival Admin",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
