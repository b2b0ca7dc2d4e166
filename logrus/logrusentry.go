// Package sentrylogrus provides a simple Logrus hook for Sentry.
package sentrylogrus

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crashdesk/sentry-go"
	"github.com/crashdesk/sentry-go/internal/debuglog"
)

// These default log field keys are used to pass specific metadata in a way
// that Sentry understands. They may be overridden by calling SetKey on the
// hook.
const (
	// FieldTransaction holds a transaction name as a string.
	FieldTransaction = sentry.MetadataTransaction
	// FieldAttachment holds an *sentry.Attachment.
	FieldAttachment = sentry.MetadataAttachment
	// FieldAttachmentFilename holds the filename of an attachment built from
	// FieldAttachmentData or FieldAttachmentPath.
	FieldAttachmentFilename = sentry.MetadataAttachmentFilename
	// FieldAttachmentData holds the content of an attachment as []byte or string.
	FieldAttachmentData = sentry.MetadataAttachmentData
	// FieldAttachmentPath holds the path of a file sent as attachment.
	FieldAttachmentPath = sentry.MetadataAttachmentPath

	// These fields are simply omitted, as they are duplicated by the Sentry SDK.
	FieldGoVersion = "go_version"
	FieldMaxProcs  = "go_maxprocs"
)

var levelMap = map[logrus.Level]sentry.LogLevel{
	logrus.TraceLevel: sentry.LogLevelTrace,
	logrus.DebugLevel: sentry.LogLevelDebug,
	logrus.InfoLevel:  sentry.LogLevelInfo,
	logrus.WarnLevel:  sentry.LogLevelWarning,
	logrus.ErrorLevel: sentry.LogLevelError,
	logrus.FatalLevel: sentry.LogLevelCritical,
	logrus.PanicLevel: sentry.LogLevelCritical,
}

// A FallbackFunc can be used to attempt to handle any errors in logging, before
// resorting to Logrus's standard error reporting.
type FallbackFunc func(*logrus.Entry) error

// Hook is the logrus hook for Sentry.
//
// It is not safe to configure the hook while logging is happening. Please
// perform all configuration before using it.
type Hook struct {
	handler  *sentry.LogHandler
	fallback FallbackFunc
	keys     map[string]string
	levels   []logrus.Level
}

var _ logrus.Hook = &Hook{}

// New initializes a new Logrus hook which passes entries of the given levels
// to handler. All levels are passed when levels is empty.
func New(levels []logrus.Level, handler *sentry.LogHandler) *Hook {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}
	return &Hook{
		handler: handler,
		levels:  levels,
		keys:    make(map[string]string),
	}
}

// NewFromOptions creates a client from opts and a hook passing entries to a
// log handler of that client.
func NewFromOptions(levels []logrus.Level, opts sentry.ClientOptions, handlerOpts sentry.LogHandlerOptions) (*Hook, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	if handlerOpts.Label == "" {
		handlerOpts.Label = "logrus"
	}
	return New(levels, sentry.NewLogHandler(client, handlerOpts)), nil
}

// SetFallback sets a fallback function for entries that cannot be handled.
func (h *Hook) SetFallback(fb FallbackFunc) {
	h.fallback = fb
}

// SetKey sets an alternate field key for one of the Field constants.
func (h *Hook) SetKey(oldKey, newKey string) {
	if oldKey == "" {
		return
	}
	if newKey == "" {
		delete(h.keys, oldKey)
		return
	}
	delete(h.keys, newKey)
	h.keys[oldKey] = newKey
}

func (h *Hook) key(key string) string {
	if val := h.keys[key]; val != "" {
		return val
	}
	return key
}

// Levels returns the list of logging levels passed to the handler.
func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

// Fire passes entry to the handler. Events are sent asynchronously.
func (h *Hook) Fire(entry *logrus.Entry) error {
	level, ok := levelMap[entry.Level]
	if !ok {
		debuglog.Printf("Invalid logrus logging level: %v. Dropping log.", entry.Level)
		if h.fallback != nil {
			return h.fallback(entry)
		}
		return errors.New("invalid log level")
	}

	ctx := context.Background()
	if entry.Context != nil {
		ctx = entry.Context
	}

	h.handler.Handle(ctx, h.entryToRecord(entry, level))
	return nil
}

func (h *Hook) entryToRecord(entry *logrus.Entry, level sentry.LogLevel) sentry.LogRecord {
	metadata := make(map[string]interface{}, len(entry.Data))
	for k, v := range entry.Data {
		metadata[k] = v
	}
	for _, field := range []string{
		FieldTransaction,
		FieldAttachment,
		FieldAttachmentFilename,
		FieldAttachmentData,
		FieldAttachmentPath,
		sentry.MetadataAttachmentContentType,
	} {
		if key := h.key(field); key != field {
			if v, ok := metadata[key]; ok {
				delete(metadata, key)
				metadata[field] = v
			}
		}
	}
	delete(metadata, FieldGoVersion)
	delete(metadata, FieldMaxProcs)

	record := sentry.LogRecord{
		Level:    level,
		Message:  entry.Message,
		Time:     entry.Time,
		Metadata: metadata,
	}
	if entry.Caller != nil {
		record.Source = sentry.LogSource{
			File:     entry.Caller.File,
			Function: entry.Caller.Function,
			Line:     entry.Caller.Line,
		}
	}
	return record
}

// Flush waits until the events of the hook are sent or the timeout is reached.
func (h *Hook) Flush(timeout time.Duration) bool {
	return h.handler.Client().Flush(timeout)
}

// FlushWithContext waits until the events of the hook are sent or ctx is done.
func (h *Hook) FlushWithContext(ctx context.Context) bool {
	return h.handler.Client().FlushWithContext(ctx)
}
