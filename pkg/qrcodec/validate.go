package qrcodec

import (
	"encoding/json"

	mapstructure "github.com/go-viper/mapstructure/v2"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/validator"
)

type payloadField struct {
	key      string
	required bool
	kind     string
	target   func(*Payload) any
}

var payloadFields = []payloadField{
	{key: "registrationId", required: true, kind: "string", target: func(p *Payload) any { return &p.RegistrationID }},
	{key: "eventId", required: true, kind: "string", target: func(p *Payload) any { return &p.EventID }},
	{key: "name", required: true, kind: "string", target: func(p *Payload) any { return &p.Name }},
	{key: "email", required: true, kind: "string", target: func(p *Payload) any { return &p.Email }},
	{key: "timestamp", required: true, kind: "number", target: func(p *Payload) any { return &p.Timestamp }},
	{key: "phone", kind: "string", target: func(p *Payload) any { return &p.Phone }},
	{key: "eventName", kind: "string", target: func(p *Payload) any { return &p.EventName }},
	{key: "expiresAt", kind: "number", target: func(p *Payload) any { return &p.ExpiresAt }},
}

// ValidatePayload checks that raw has the shape of a pass payload and returns it
// typed. registrationId, eventId, name and email must be strings and
// timestamp must be numeric. phone, eventName and expiresAt are copied when
// they carry the expected type and left zero otherwise. Failures are
// reported as validator.ValidationErrors.
func ValidatePayload(raw any) (Payload, error) {
	switch v := raw.(type) {
	case Payload:
		return v, nil
	case *Payload:
		if v == nil {
			return Payload{}, validator.ValidationErrors{{Field: "payload", Tag: "required"}}
		}
		return *v, nil
	case map[string]any:
		return parsePayloadMap(v)
	case nil:
		return Payload{}, validator.ValidationErrors{{Field: "payload", Tag: "required"}}
	default:
		return Payload{}, validator.ValidationErrors{{Field: "payload", Tag: "object"}}
	}
}

// IsValidPayload reports whether raw is a well-typed payload object.
func IsValidPayload(raw any) bool {
	_, err := ValidatePayload(raw)
	return err == nil
}

func parsePayloadMap(m map[string]any) (Payload, error) {
	var (
		out      Payload
		failures validator.ValidationErrors
	)

	for _, f := range payloadFields {
		value, ok := m[f.key]
		if !ok || value == nil {
			if f.required {
				failures = append(failures, validator.ValidationError{Field: f.key, Tag: "required"})
			}
			continue
		}
		if !kindMatches(f.kind, value) || mapstructure.Decode(value, f.target(&out)) != nil {
			if f.required {
				failures = append(failures, validator.ValidationError{Field: f.key, Tag: f.kind})
			}
		}
	}

	if len(failures) > 0 {
		return Payload{}, failures
	}
	return out, nil
}

// kindMatches rejects values mapstructure would otherwise coerce, such as a
// float landing in a string field.
func kindMatches(kind string, value any) bool {
	switch kind {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case json.Number, float64, float32, int, int64, int32, uint, uint64, uint32:
			return true
		}
	}
	return false
}
