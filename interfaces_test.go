package sentry

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/crashdesk/sentry-go/internal/protocol"
)

func mustEventID(t *testing.T, s string) EventID {
	t.Helper()
	id, err := protocol.ParseEventID(s)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestEncodeEvent(t *testing.T) {
	event := &Event{
		EventID:     mustEventID(t, "9ec79c33ec9942ab8353589fcb2e04dc"),
		Timestamp:   time.Unix(1700000000, 500_000_000),
		Level:       LevelError,
		Logger:      "app",
		Transaction: "/checkout",
		ServerName:  "web-1",
		Release:     "1.0.0",
		Environment: "production",
		Tags:        map[string]string{"region": "eu"},
		Message:     &Message{Message: "boom"},
		Exception: []Exception{{
			Type:  "FatalError",
			Value: "boom",
			Stacktrace: &Stacktrace{Frames: []Frame{
				{Function: "main", AbsPath: "/src/main.go", Lineno: 12},
			}},
		}},
	}

	b, err := EncodeEvent(event)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}

	want := map[string]interface{}{
		"event_id":    "9ec79c33ec9942ab8353589fcb2e04dc",
		"timestamp":   1700000000.5,
		"level":       "error",
		"logger":      "app",
		"transaction": "/checkout",
		"server_name": "web-1",
		"release":     "1.0.0",
		"environment": "production",
		"tags":        map[string]interface{}{"region": "eu"},
		"message":     map[string]interface{}{"message": "boom"},
		"exception": map[string]interface{}{
			"values": []interface{}{
				map[string]interface{}{
					"type":  "FatalError",
					"value": "boom",
					"stacktrace": map[string]interface{}{
						"frames": []interface{}{
							map[string]interface{}{
								"function": "main",
								"abs_path": "/src/main.go",
								"lineno":   float64(12),
							},
						},
					},
				},
			},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Event mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeEventOmitsAbsentFields(t *testing.T) {
	b, err := EncodeEvent(&Event{EventID: mustEventID(t, "9ec79c33ec9942ab8353589fcb2e04dc")})
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, string(b), `{"event_id":"9ec79c33ec9942ab8353589fcb2e04dc"}`)
}

func TestEncodeEventNil(t *testing.T) {
	_, err := EncodeEvent(nil)
	if !errors.Is(err, ErrEventEncoding) {
		t.Errorf("got %v, want ErrEventEncoding", err)
	}
}

func TestEncodeEventUnsupportedValue(t *testing.T) {
	_, err := EncodeEvent(&Event{Extra: map[string]interface{}{"nan": math.NaN()}})
	if !errors.Is(err, ErrEventEncoding) {
		t.Errorf("got %v, want ErrEventEncoding", err)
	}
}

func TestEncodeEventBreadcrumbs(t *testing.T) {
	event := &Event{
		Breadcrumbs: []*Breadcrumb{
			{Message: "first", Level: LevelInfo, Timestamp: time.Unix(10, 0)},
			{Message: "second"},
		},
	}

	b, err := EncodeEvent(event)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Breadcrumbs struct {
			Values []map[string]interface{} `json:"values"`
		} `json:"breadcrumbs"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}

	want := []map[string]interface{}{
		{"message": "first", "level": "info", "timestamp": float64(10)},
		{"message": "second"},
	}
	if diff := cmp.Diff(want, got.Breadcrumbs.Values); diff != "" {
		t.Errorf("Breadcrumbs mismatch (-want +got):\n%s", diff)
	}
}

func TestLogLevelLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want Level
	}{
		{LogLevelTrace, LevelDebug},
		{LogLevelDebug, LevelDebug},
		{LogLevelInfo, LevelInfo},
		{LogLevelNotice, LevelInfo},
		{LogLevelWarning, LevelWarning},
		{LogLevelError, LevelError},
		{LogLevelCritical, LevelFatal},
		{LogLevel("verbose"), LevelInfo},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assertEqual(t, tt.in.Level(), tt.want)
		})
	}
}

func TestLogLevelLess(t *testing.T) {
	assertEqual(t, LogLevelTrace.Less(LogLevelDebug), true)
	assertEqual(t, LogLevelWarning.Less(LogLevelError), true)
	assertEqual(t, LogLevelError.Less(LogLevelError), false)
	assertEqual(t, LogLevelCritical.Less(LogLevelError), false)
	assertEqual(t, LogLevel("unknown").Less(LogLevelNotice), true)
}

func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("notice")
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, l, LogLevelNotice)

	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
