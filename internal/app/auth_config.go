package app

import (
	"strings"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/crypto"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// MFAKey returns the 32-byte key sealing admin TOTP secrets. It is nil when
// neither auth.mfa.encryption_key nor qr.secret_key is set.
func (c *Config) MFAKey() []byte {
	secret := strings.TrimSpace(c.Auth.MFA.EncryptionKey)
	if secret == "" {
		secret = strings.TrimSpace(c.QR.SecretKey)
	}
	if secret == "" {
		return nil
	}
	return crypto.DeriveKey(secret)
}
