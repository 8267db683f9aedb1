package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
)

func newTestPassService(t *testing.T) (*PassService, *qrcodec.Codec) {
	t.Helper()
	codec, err := qrcodec.New(testQRSecret)
	require.NoError(t, err)
	passes, err := NewPassService(codec, 0)
	require.NoError(t, err)
	return passes, codec
}

func TestPassServiceIssueAndVerify(t *testing.T) {
	passes, codec := newTestPassService(t)

	issue := passes.Issue(qrcodec.PayloadInput{
		RegistrationID: "reg-1",
		EventID:        "event-1",
		Name:           "Asha Patil",
		Email:          "asha@example.com",
		EventName:      "Robo Race",
	})
	require.NotEmpty(t, issue.Token)
	require.Equal(t, codec.VerificationCode("reg-1"), issue.VerificationCode)
	require.Equal(t, qrcodec.PassValidity, issue.ExpiresAt.Sub(issue.IssuedAt))

	verification, err := passes.Verify(issue.Token)
	require.NoError(t, err)
	require.Equal(t, "compact", verification.Strategy)
	require.Equal(t, "reg-1", verification.Payload.RegistrationID)
	require.Equal(t, "event-1", verification.Payload.EventID)
	require.False(t, passes.Expired(verification.Payload))

	_, err = passes.Verify("not-a-pass")
	require.ErrorIs(t, err, apperrors.ErrPassInvalid)
	require.ErrorIs(t, err, qrcodec.ErrInvalidToken)
}

func TestPassServiceImage(t *testing.T) {
	passes, _ := newTestPassService(t)
	issue := passes.Issue(qrcodec.PayloadInput{RegistrationID: "reg-2", EventID: FestEventID, Name: "Ravi"})

	png, err := passes.Image(issue.Token, 0)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))

	_, err = passes.Image("forged", 256)
	require.ErrorIs(t, err, apperrors.ErrPassInvalid)
}

func TestPassServiceCheckCode(t *testing.T) {
	passes, codec := newTestPassService(t)
	code := codec.VerificationCode("reg-3")

	require.True(t, passes.CheckCode("reg-3", code))
	require.True(t, passes.CheckCode(" reg-3 ", " "+strings.ToLower(code)+" "))
	require.False(t, passes.CheckCode("reg-4", code))
	require.False(t, passes.CheckCode("reg-3", ""))
	require.False(t, passes.CheckCode("", code))
}
