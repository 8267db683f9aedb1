package app

import (
	"fmt"
	"strings"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/crypto"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
)

const jwtSecretBytes = 48

// ErrDefaultQRSecret is returned when production would sign passes with the
// built-in fallback secret.
var ErrDefaultQRSecret = fmt.Errorf("qr.secret_key must be set in production (env %s_QR_SECRET_KEY)", EnvPrefix)

// ApplyRuntimeDefaults fills secrets that were not configured. It returns the
// keys it populated so callers can log the event without exposing values.
// The JWT secret is generated per process; the QR secret falls back to
// qrcodec.DefaultSecretKey so passes stay verifiable across restarts.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if strings.TrimSpace(cfg.QR.SecretKey) == "" {
		cfg.QR.SecretKey = qrcodec.DefaultSecretKey
		generated["qr.secret_key"] = true
	}

	if cfg.QR.ImageSize <= 0 {
		cfg.QR.ImageSize = 320
	}

	return generated, nil
}

// ValidateForEnvironment rejects settings that are unsafe for the configured
// environment.
func ValidateForEnvironment(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if !cfg.Server.IsProduction() {
		return nil
	}

	secret := strings.TrimSpace(cfg.QR.SecretKey)
	if secret == "" || secret == qrcodec.DefaultSecretKey {
		return ErrDefaultQRSecret
	}
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		return fmt.Errorf("auth.jwt.secret must be set in production")
	}
	return nil
}
