package protocol

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateEventID_FormatVersionVariant(t *testing.T) {
	const n = 100
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := GenerateEventID().String()
		if len(id) != 32 {
			t.Fatalf("length = %d, want 32", len(id))
		}
		b, err := hex.DecodeString(id)
		if err != nil {
			t.Fatalf("id not hex: %v", err)
		}
		if v := b[6] & 0xF0; v != 0x40 {
			t.Fatalf("version nibble = 0x%x, want 0x40", v)
		}
		if v := b[8] & 0xC0; v != 0x80 {
			t.Fatalf("variant bits = 0x%x, want 0x80", v)
		}
		if _, exists := seen[id]; exists {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestEventID_String(t *testing.T) {
	id := EventID(uuid.MustParse("7B8EC5C3-8F1D-4F11-96BC-3C67A5D7F1DA"))
	if got, want := id.String(), "7b8ec5c38f1d4f1196bc3c67a5d7f1da"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseEventID_RoundTrip(t *testing.T) {
	tests := []string{
		"7b8ec5c38f1d4f1196bc3c67a5d7f1da",
		"01234567abcdaaaabbbbabcdefabcdef",
		"00000000000000000000000000000000",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			id, err := ParseEventID(s)
			if err != nil {
				t.Fatalf("ParseEventID(%q) error = %v", s, err)
			}
			if got := id.String(); got != s {
				t.Errorf("round trip = %q, want %q", got, s)
			}
		})
	}
}

func TestParseEventID_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"too short":   "7b8ec5c38f1d4f11",
		"too long":    "7b8ec5c38f1d4f1196bc3c67a5d7f1da00",
		"not hex":     "zz8ec5c38f1d4f1196bc3c67a5d7f1da",
		"with dashes": "7b8ec5c3-8f1d-4f11-96bc-3c67a5d7",
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEventID(s)
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				t.Fatalf("ParseEventID(%q) error = %v, want *json.UnmarshalTypeError", s, err)
			}
		})
	}
}

func TestEventID_JSON(t *testing.T) {
	type testEvent struct {
		EventID EventID `json:"event_id"`
	}

	event := testEvent{EventID: EventID(uuid.MustParse("01234567-ABCD-AAAA-BBBB-ABCDEFABCDEF"))}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"event_id":"01234567abcdaaaabbbbabcdefabcdef"}`; got != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}

	var decoded testEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.EventID != event.EventID {
		t.Errorf("Unmarshal() = %s, want %s", decoded.EventID, event.EventID)
	}
}

func TestEventID_UnmarshalJSON_TypeMismatch(t *testing.T) {
	for _, input := range []string{`"not-an-id"`, `42`, `"7b8ec5c38f1d4f1196bc3c67a5d7f1dz"`} {
		var id EventID
		err := json.Unmarshal([]byte(input), &id)
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			t.Errorf("Unmarshal(%s) error = %v, want *json.UnmarshalTypeError", input, err)
		}
	}
}
