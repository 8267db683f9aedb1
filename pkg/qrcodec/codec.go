// Package qrcodec encodes registration passes into signed QR strings and
// verifies them again at the gate.
//
// Two wire formats are understood. The compact format is a URL-safe base64
// JSON object {r,e,n,t,s} whose s field is a truncated HMAC-SHA256 over
// "r|e|t". The legacy format is an OpenSSL-compatible AES passphrase blob
// wrapping {data,sig}; it is only ever tried after the compact format fails.
package qrcodec

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultSecretKey is the fallback signing secret used when none is configured.
// Deployments running in production must refuse to start with it.
const DefaultSecretKey = "kaizen-2026-default-qr-secret"

var (
	// ErrInvalidToken is returned when no strategy could decode a token.
	ErrInvalidToken = errors.New("qrcodec: no valid payload")
	// ErrSignatureMismatch marks a token whose signature does not verify.
	ErrSignatureMismatch = errors.New("qrcodec: signature mismatch")
	// ErrMalformed marks a token that cannot be parsed by a strategy.
	ErrMalformed = errors.New("qrcodec: malformed token")
	// ErrEmptySecret is returned by New when no secret is supplied.
	ErrEmptySecret = errors.New("qrcodec: secret key is required")
)

// Strategy decodes and authenticates one wire format.
type Strategy interface {
	Name() string
	Decode(token string) (Payload, error)
}

// Verification is the outcome of a successful Verify call.
type Verification struct {
	Payload  Payload
	Strategy string
}

// Codec encodes and verifies pass payloads with a fixed secret.
// A Codec is immutable after New and safe for concurrent use.
type Codec struct {
	secret     []byte
	strategies []Strategy
	now        func() time.Time
	log        *zap.Logger
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock overrides the time source used by NewPayload.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger attaches a logger used for verification failures.
func WithLogger(log *zap.Logger) Option {
	return func(c *Codec) {
		if log != nil {
			c.log = log
		}
	}
}

// WithStrategy appends an extra decode strategy after the built-in ones.
func WithStrategy(s Strategy) Option {
	return func(c *Codec) {
		if s != nil {
			c.strategies = append(c.strategies, s)
		}
	}
}

// New builds a Codec keyed by secret. Compact decoding is always tried first,
// then legacy, then any strategies added through WithStrategy.
func New(secret string, opts ...Option) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}

	key := []byte(secret)
	c := &Codec{
		secret: key,
		strategies: []Strategy{
			compactStrategy{secret: key},
			legacyStrategy{secret: key},
		},
		now: time.Now,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewPayload stamps input with the current time and the derived expiry.
func (c *Codec) NewPayload(in PayloadInput) Payload {
	ts := c.now().UnixMilli()
	return Payload{
		RegistrationID: in.RegistrationID,
		EventID:        in.EventID,
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		EventName:      in.EventName,
		Timestamp:      ts,
		ExpiresAt:      expiryFor(ts),
	}
}

// Encode serialises p into the compact URL-safe format.
// Email, phone and event name are not carried.
func (c *Codec) Encode(p Payload) string {
	return encodeCompact(c.secret, p)
}

// EncodeLegacy serialises p into the legacy encrypted format.
func (c *Codec) EncodeLegacy(p Payload) (string, error) {
	return encodeLegacy(c.secret, p)
}

// Verify runs every strategy in order and returns the first payload that
// authenticates. The returned error wraps ErrInvalidToken together with the
// reason each strategy gave up.
func (c *Codec) Verify(token string) (*Verification, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	var errs error
	for _, s := range c.strategies {
		payload, err := decodeSafely(s, token)
		if err == nil {
			return &Verification{Payload: payload, Strategy: s.Name()}, nil
		}
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}

	if errors.Is(errs, ErrSignatureMismatch) {
		c.log.Warn("qr signature verification failed", zap.Error(errs))
	} else {
		c.log.Debug("qr token rejected", zap.Error(errs))
	}
	return nil, fmt.Errorf("%w: %w", ErrInvalidToken, errs)
}

// Decode returns the verified payload or nil when token is not valid.
func (c *Codec) Decode(token string) *Payload {
	v, err := c.Verify(token)
	if err != nil {
		return nil
	}
	p := v.Payload
	return &p
}

// VerificationCode derives the short manual check-in code for a registration:
// the first 8 hex characters of SHA-256(registrationID + secret), uppercased.
func (c *Codec) VerificationCode(registrationID string) string {
	sum := sha256.Sum256(append([]byte(registrationID), c.secret...))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// decodeSafely converts a panicking strategy into an ordinary failure so a
// faulty extension cannot take the caller down.
func decodeSafely(s Strategy, token string) (p Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: strategy panicked: %v", ErrMalformed, r)
		}
	}()
	return s.Decode(token)
}
