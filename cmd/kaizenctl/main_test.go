package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
)

const testSecret = "cli-test-secret"

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func encodeToken(t *testing.T, command string) string {
	t.Helper()
	out, _, err := execute(t,
		"qr", command, "--secret", testSecret,
		"--registration-id", "reg-42",
		"--event-id", "evt-7",
		"--name", "Asha Patil",
		"--event-name", "Robo Race",
	)
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	token := encodeToken(t, "encode")
	require.NotEmpty(t, token)

	out, _, err := execute(t, "qr", "decode", "--secret", testSecret, token)
	require.NoError(t, err)

	var decoded decodeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.True(t, decoded.Valid)
	require.Equal(t, "compact", decoded.Strategy)
	require.False(t, decoded.Expired)
	require.Equal(t, "reg-42", decoded.Payload.RegistrationID)
	require.Equal(t, "evt-7", decoded.Payload.EventID)
}

func TestEncodeLegacy(t *testing.T) {
	token := encodeToken(t, "legacy-encode")

	out, _, err := execute(t, "qr", "decode", "--secret", testSecret, token)
	require.NoError(t, err)

	var decoded decodeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, "legacy", decoded.Strategy)
	require.Equal(t, "Robo Race", decoded.Payload.EventName)
}

func TestEncodeRequiresIdentifiers(t *testing.T) {
	_, _, err := execute(t, "qr", "encode", "--secret", testSecret, "--name", "Asha")
	require.Error(t, err)
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	token := encodeToken(t, "encode")

	_, _, err := execute(t, "qr", "decode", "--secret", "another-secret", token)
	require.Error(t, err)
	require.Contains(t, err.Error(), "token rejected")
	require.ErrorIs(t, err, qrcodec.ErrInvalidToken)
}

func TestCodeMatchesCodec(t *testing.T) {
	out, _, err := execute(t, "qr", "code", "--secret", testSecret, "reg-42")
	require.NoError(t, err)

	codec, err := qrcodec.New(testSecret)
	require.NoError(t, err)
	require.Equal(t, codec.VerificationCode("reg-42"), strings.TrimSpace(out))
}

func TestImageWritesPNG(t *testing.T) {
	token := encodeToken(t, "encode")
	path := filepath.Join(t.TempDir(), "pass.png")

	_, stderr, err := execute(t, "qr", "image", "--secret", testSecret, "--size", "256", "-o", path, token)
	require.NoError(t, err)
	require.Contains(t, stderr, "wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, _, err = execute(t, "qr", "image", "--secret", "another-secret", token)
	require.Error(t, err)
}

func TestSecretFromEnvironment(t *testing.T) {
	t.Setenv("KAIZEN_QR_SECRET_KEY", testSecret)
	t.Chdir(t.TempDir())

	out, _, err := execute(t, "qr", "code", "reg-42")
	require.NoError(t, err)

	codec, err := qrcodec.New(testSecret)
	require.NoError(t, err)
	require.Equal(t, codec.VerificationCode("reg-42"), strings.TrimSpace(out))
}

func TestDefaultSecretWarning(t *testing.T) {
	t.Setenv("KAIZEN_QR_SECRET_KEY", "")
	t.Chdir(t.TempDir())

	_, stderr, err := execute(t, "qr", "code", "reg-42")
	require.NoError(t, err)
	require.Contains(t, stderr, "built-in default")
}
