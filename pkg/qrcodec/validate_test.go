package qrcodec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/validator"
)

func validRaw() map[string]any {
	return map[string]any{
		"registrationId": "R1",
		"eventId":        "E1",
		"name":           "Ann",
		"email":          "a@x.com",
		"timestamp":      float64(1000),
	}
}

func TestValidatePayloadAcceptsWellTypedObject(t *testing.T) {
	raw := validRaw()
	raw["phone"] = "555"
	raw["expiresAt"] = json.Number("2592001000")

	p, err := ValidatePayload(raw)
	require.NoError(t, err)
	require.Equal(t, Payload{
		RegistrationID: "R1",
		EventID:        "E1",
		Name:           "Ann",
		Email:          "a@x.com",
		Phone:          "555",
		Timestamp:      1000,
		ExpiresAt:      2592001000,
	}, p)
	require.True(t, IsValidPayload(raw))
}

func TestIsValidPayloadRejectsBadShapes(t *testing.T) {
	cases := map[string]any{
		"nil":        nil,
		"string":     "payload",
		"number":     42,
		"slice":      []any{"R1"},
		"nil struct": (*Payload)(nil),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			require.False(t, IsValidPayload(raw))
		})
	}
}

func TestValidatePayloadReportsFieldFailures(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(map[string]any)
		field string
		tag   string
	}{
		{"missing registration", func(m map[string]any) { delete(m, "registrationId") }, "registrationId", "required"},
		{"numeric event", func(m map[string]any) { m["eventId"] = float64(7) }, "eventId", "string"},
		{"bool name", func(m map[string]any) { m["name"] = true }, "name", "string"},
		{"missing email", func(m map[string]any) { delete(m, "email") }, "email", "required"},
		{"string timestamp", func(m map[string]any) { m["timestamp"] = "1000" }, "timestamp", "number"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := validRaw()
			tc.edit(raw)

			_, err := ValidatePayload(raw)
			require.Error(t, err)

			var failures validator.ValidationErrors
			require.ErrorAs(t, err, &failures)
			require.Len(t, failures, 1)
			require.Equal(t, tc.field, failures[0].Field)
			require.Equal(t, tc.tag, failures[0].Tag)
			require.False(t, IsValidPayload(raw))
		})
	}
}

func TestValidatePayloadIgnoresMistypedOptionalFields(t *testing.T) {
	raw := validRaw()
	raw["phone"] = float64(5551234)
	raw["eventName"] = []any{"Robo Race"}
	raw["expiresAt"] = "never"

	require.True(t, IsValidPayload(raw))

	p, err := ValidatePayload(raw)
	require.NoError(t, err)
	require.Equal(t, "R1", p.RegistrationID)
	require.Empty(t, p.Phone)
	require.Empty(t, p.EventName)
	require.Zero(t, p.ExpiresAt)
}

func TestValidatePayloadCollectsEveryFailure(t *testing.T) {
	_, err := ValidatePayload(map[string]any{"timestamp": "soon"})

	var failures validator.ValidationErrors
	require.ErrorAs(t, err, &failures)
	require.Len(t, failures, 5)
}

func TestValidatePayloadPassesTypedValuesThrough(t *testing.T) {
	p := samplePayload()

	got, err := ValidatePayload(p)
	require.NoError(t, err)
	require.Equal(t, p, got)

	got, err = ValidatePayload(&p)
	require.NoError(t, err)
	require.Equal(t, p, got)
}
