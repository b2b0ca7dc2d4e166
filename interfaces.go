package sentry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crashdesk/sentry-go/internal/protocol"
)

// The identifier of the SDK.
const SDKIdentifier = "sentry.go"

// The version of the SDK.
const SDKVersion = "0.1.0"

// UserAgent is sent with every request and used as the client of the auth header.
const UserAgent = SDKIdentifier + "/" + SDKVersion

// ErrEventEncoding is returned when an event cannot be serialized.
var ErrEventEncoding = errors.New("sentry: event cannot be encoded")

// EventID is a hexadecimal string representing a unique uuid4 for an Event.
// An EventID must be 32 characters long, lowercase and not have any dashes.
type EventID = protocol.EventID

// SdkInfo describes the SDK that sent an event.
type SdkInfo = protocol.SdkInfo

// Level marks the severity of the event.
type Level string

// Describes the severity of the event.
const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// LogLevel is the severity scale of log records, finer than Level.
type LogLevel string

// Log record severities, from least to most severe.
const (
	LogLevelTrace    LogLevel = "trace"
	LogLevelDebug    LogLevel = "debug"
	LogLevelInfo     LogLevel = "info"
	LogLevelNotice   LogLevel = "notice"
	LogLevelWarning  LogLevel = "warning"
	LogLevelError    LogLevel = "error"
	LogLevelCritical LogLevel = "critical"
)

var logLevelSeverity = map[LogLevel]int{
	LogLevelTrace:    0,
	LogLevelDebug:    1,
	LogLevelInfo:     2,
	LogLevelNotice:   3,
	LogLevelWarning:  4,
	LogLevelError:    5,
	LogLevelCritical: 6,
}

// ParseLogLevel returns the LogLevel named s.
func ParseLogLevel(s string) (LogLevel, error) {
	l := LogLevel(s)
	if _, ok := logLevelSeverity[l]; !ok {
		return "", fmt.Errorf("sentry: unknown log level %q", s)
	}
	return l, nil
}

// Level maps l onto the event severity scale.
func (l LogLevel) Level() Level {
	switch l {
	case LogLevelTrace, LogLevelDebug:
		return LevelDebug
	case LogLevelInfo, LogLevelNotice:
		return LevelInfo
	case LogLevelWarning:
		return LevelWarning
	case LogLevelError:
		return LevelError
	case LogLevelCritical:
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Less reports whether l is less severe than other. Unknown levels rank as info.
func (l LogLevel) Less(other LogLevel) bool {
	return l.severity() < other.severity()
}

func (l LogLevel) severity() int {
	if s, ok := logLevelSeverity[l]; ok {
		return s
	}
	return logLevelSeverity[LogLevelInfo]
}

// Message carries a log message that describes an event, optionally as a
// format string with its parameters.
type Message struct {
	Message string   `json:"message"`
	Params  []string `json:"params,omitempty"`
}

// https://develop.sentry.dev/sdk/event-payloads/breadcrumbs/
type Breadcrumb struct {
	Type      string                 `json:"type,omitempty"`
	Category  string                 `json:"category,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Level     Level                  `json:"level,omitempty"`
	Timestamp time.Time              `json:"timestamp,omitempty"`
}

// MarshalJSON converts the Breadcrumb struct to JSON.
func (b *Breadcrumb) MarshalJSON() ([]byte, error) {
	// We want to omit time.Time zero values, otherwise the server will try to
	// interpret dates too far in the past. However, encoding/json doesn't
	// support the "omitempty" option for struct types. See
	// https://golang.org/issues/11939.
	type breadcrumb Breadcrumb
	return json.Marshal(struct {
		*breadcrumb
		Timestamp float64 `json:"timestamp,omitempty"`
	}{
		breadcrumb: (*breadcrumb)(b),
		Timestamp:  unixSeconds(b.Timestamp),
	})
}

// https://develop.sentry.dev/sdk/event-payloads/user/
type User struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	Username  string `json:"username,omitempty"`
}

// https://develop.sentry.dev/sdk/event-payloads/exception/
type Exception struct {
	Type       string      `json:"type,omitempty"`
	Value      string      `json:"value,omitempty"`
	Module     string      `json:"module,omitempty"`
	Stacktrace *Stacktrace `json:"stacktrace,omitempty"`
}

// Event is the fundamental data structure that is sent to Sentry.
//
// https://develop.sentry.dev/sdk/event-payloads/
type Event struct {
	EventID     EventID                `json:"event_id"`
	Timestamp   time.Time              `json:"timestamp"`
	Platform    string                 `json:"platform,omitempty"`
	Level       Level                  `json:"level,omitempty"`
	Logger      string                 `json:"logger,omitempty"`
	Transaction string                 `json:"transaction,omitempty"`
	ServerName  string                 `json:"server_name,omitempty"`
	Release     string                 `json:"release,omitempty"`
	Environment string                 `json:"environment,omitempty"`
	Tags        map[string]string      `json:"tags,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
	Message     *Message               `json:"message,omitempty"`
	Exception   []Exception            `json:"exception,omitempty"`
	Breadcrumbs []*Breadcrumb          `json:"breadcrumbs,omitempty"`
	User        *User                  `json:"user,omitempty"`
	Request     *Request               `json:"request,omitempty"`
	Sdk         *SdkInfo               `json:"sdk,omitempty"`
}

type exceptionValues struct {
	Values []Exception `json:"values"`
}

type breadcrumbValues struct {
	Values []*Breadcrumb `json:"values"`
}

// MarshalJSON converts the Event struct to JSON.
//
// Timestamps are encoded as seconds since the Unix epoch, and exceptions and
// breadcrumbs are wrapped in their "values" containers.
func (e *Event) MarshalJSON() ([]byte, error) {
	type event Event
	x := struct {
		*event
		Timestamp   float64           `json:"timestamp,omitempty"`
		Exception   *exceptionValues  `json:"exception,omitempty"`
		Breadcrumbs *breadcrumbValues `json:"breadcrumbs,omitempty"`
	}{
		event:     (*event)(e),
		Timestamp: unixSeconds(e.Timestamp),
	}
	if len(e.Exception) > 0 {
		x.Exception = &exceptionValues{Values: e.Exception}
	}
	if len(e.Breadcrumbs) > 0 {
		x.Breadcrumbs = &breadcrumbValues{Values: e.Breadcrumbs}
	}
	return json.Marshal(x)
}

// EncodeEvent returns the wire form of event. Failures wrap ErrEventEncoding.
func EncodeEvent(event *Event) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil event", ErrEventEncoding)
	}
	b, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventEncoding, err)
	}
	return b, nil
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}
