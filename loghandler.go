package sentry

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/crashdesk/sentry-go/internal/debuglog"
)

// Metadata keys with a meaning of their own. They are never reported as tags.
const (
	MetadataAttachment            = "attachment"
	MetadataAttachmentFilename    = "attachment_filename"
	MetadataAttachmentData        = "attachment_data"
	MetadataAttachmentPath        = "attachment_path"
	MetadataAttachmentContentType = "attachment_content_type"
	MetadataTransaction           = "transaction"
)

var reservedMetadataKeys = map[string]struct{}{
	MetadataAttachment:            {},
	MetadataAttachmentFilename:    {},
	MetadataAttachmentData:        {},
	MetadataAttachmentPath:        {},
	MetadataAttachmentContentType: {},
	MetadataTransaction:           {},
}

func isReservedMetadataKey(key string) bool {
	_, ok := reservedMetadataKeys[key]
	return ok
}

// LogSource is the location in the code that emitted a log record.
type LogSource struct {
	File     string
	Function string
	Line     int
	Column   int
}

// LogRecord is a log entry in the form logging frameworks hand it over.
type LogRecord struct {
	Level    LogLevel
	Message  string
	Time     time.Time
	Source   LogSource
	Module   string
	Metadata map[string]interface{}
}

// LogHandlerOptions configures a LogHandler.
type LogHandlerOptions struct {
	// Label is reported as the logger of the events. Defaults to "sentry".
	Label string
	// Records at or above SendLevel are sent as events. Defaults to error.
	SendLevel LogLevel
	// Records below SendLevel and at or above BreadcrumbLevel are recorded as
	// breadcrumbs. Defaults to trace.
	BreadcrumbLevel LogLevel
	// Breadcrumbs is the buffer shared with other handlers. A buffer with the
	// default capacity is created when nil.
	Breadcrumbs *Breadcrumbs
	// DetailedBreadcrumbs records the source location and the metadata of a
	// record in the breadcrumb message.
	DetailedBreadcrumbs bool
	// SourceRoot is cut from the file paths of detailed breadcrumbs.
	SourceRoot string
	// Metadata is merged into the metadata of every record.
	Metadata map[string]interface{}
	// OnError receives the errors of failed sends. They are written to the
	// debug logger when nil.
	OnError func(error)
}

// LogHandler turns log records into breadcrumbs and events. It is safe for
// concurrent use.
type LogHandler struct {
	client      *Client
	options     LogHandlerOptions
	breadcrumbs *Breadcrumbs
	metadata    map[string]interface{}
}

// NewLogHandler returns a LogHandler sending its events through client.
func NewLogHandler(client *Client, options LogHandlerOptions) *LogHandler {
	if options.Label == "" {
		options.Label = "sentry"
	}
	if options.SendLevel == "" {
		options.SendLevel = LogLevelError
	}
	if options.BreadcrumbLevel == "" {
		options.BreadcrumbLevel = LogLevelTrace
	}
	breadcrumbs := options.Breadcrumbs
	if breadcrumbs == nil {
		breadcrumbs = NewBreadcrumbs(DefaultBreadcrumbCapacity)
	}
	return &LogHandler{
		client:      client,
		options:     options,
		breadcrumbs: breadcrumbs,
		metadata:    options.Metadata,
	}
}

// Client returns the client events are sent through.
func (h *LogHandler) Client() *Client {
	return h.client
}

// Breadcrumbs returns the buffer breadcrumbs are recorded in.
func (h *LogHandler) Breadcrumbs() *Breadcrumbs {
	return h.breadcrumbs
}

// Enabled reports whether records of level are handled at all.
func (h *LogHandler) Enabled(level LogLevel) bool {
	return !level.Less(h.options.BreadcrumbLevel)
}

// WithMetadata returns a handler sharing the client and the breadcrumbs of h
// that adds metadata to every record.
func (h *LogHandler) WithMetadata(metadata map[string]interface{}) *LogHandler {
	clone := *h
	clone.metadata = mergeMetadata(h.metadata, metadata)
	return &clone
}

// Handle records record as a breadcrumb or sends it as an event, depending on
// its level. Events are sent asynchronously; the returned Future is nil when
// no event was sent.
func (h *LogHandler) Handle(ctx context.Context, record LogRecord) *Future {
	if !h.Enabled(record.Level) {
		return nil
	}
	record.Metadata = mergeMetadata(h.metadata, record.Metadata)
	if record.Time.IsZero() {
		record.Time = time.Now()
	}

	if record.Level.Less(h.options.SendLevel) {
		h.breadcrumbs.Add(h.breadcrumbFromRecord(record))
		return nil
	}

	event := h.eventFromRecord(record)
	attachment, hasAttachment := AttachmentFromMetadata(record.Metadata)
	// The send outlives the log call.
	ctx = context.WithoutCancel(ctx)

	return h.client.Go(func() (EventID, error) {
		var (
			id  EventID
			err error
		)
		if hasAttachment {
			id, err = h.client.CaptureEventWithAttachments(ctx, event, attachment)
		} else {
			id, err = h.client.CaptureEvent(ctx, event)
		}
		if err != nil {
			h.reportError(err)
		}
		return id, err
	})
}

func (h *LogHandler) reportError(err error) {
	if h.options.OnError != nil {
		h.options.OnError(err)
		return
	}
	debuglog.Printf("Failed to send log record: %v", err)
}

func (h *LogHandler) eventFromRecord(record LogRecord) *Event {
	event := &Event{
		Timestamp:   record.Time,
		Level:       record.Level.Level(),
		Logger:      h.options.Label,
		Message:     &Message{Message: record.Message},
		Tags:        tagsFromMetadata(record.Metadata),
		Breadcrumbs: h.breadcrumbs.Snapshot(),
	}
	if transaction, ok := record.Metadata[MetadataTransaction]; ok && transaction != nil {
		event.Transaction = fmt.Sprint(transaction)
	}

	exception := Exception{Value: record.Message, Module: record.Module}
	if frame, ok := frameFromSource(record.Module, record.Source); ok {
		exception.Stacktrace = &Stacktrace{Frames: []Frame{frame}}
	}
	event.Exception = []Exception{exception}

	return event
}

func (h *LogHandler) breadcrumbFromRecord(record LogRecord) *Breadcrumb {
	message := record.Message
	if h.options.DetailedBreadcrumbs {
		message = h.detailedMessage(record)
	}
	return &Breadcrumb{
		Message:   message,
		Level:     record.Level.Level(),
		Timestamp: record.Time,
	}
}

// detailedMessage renders record as
// "[LEVEL] message <module.function> in (path:line) [k: v, ...]".
func (h *LogHandler) detailedMessage(record LogRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(string(record.Level)), record.Message)

	function := record.Source.Function
	if record.Module != "" && function != "" {
		function = record.Module + "." + function
	} else if function == "" {
		function = record.Module
	}
	if function != "" {
		fmt.Fprintf(&b, " <%s>", function)
	}
	if record.Source.File != "" {
		fmt.Fprintf(&b, " in (%s:%d)", h.relativePath(record.Source.File), record.Source.Line)
	}

	keys := make([]string, 0, len(record.Metadata))
	for k := range record.Metadata {
		if !isReservedMetadataKey(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s: %v", k, record.Metadata[k])
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(pairs, ", "))
	}

	return b.String()
}

func (h *LogHandler) relativePath(path string) string {
	if h.options.SourceRoot == "" {
		return path
	}
	if i := strings.Index(path, h.options.SourceRoot); i >= 0 {
		return strings.TrimPrefix(path[i+len(h.options.SourceRoot):], "/")
	}
	return path
}

func frameFromSource(module string, source LogSource) (Frame, bool) {
	if source.File == "" && source.Function == "" {
		return Frame{}, false
	}
	frame := Frame{
		Function: source.Function,
		Module:   module,
		AbsPath:  source.File,
		Lineno:   source.Line,
		Colno:    source.Column,
		InApp:    true,
	}
	if source.File != "" {
		frame.Filename = filepath.Base(source.File)
	}
	return frame, true
}

func tagsFromMetadata(metadata map[string]interface{}) map[string]string {
	var tags map[string]string
	for k, v := range metadata {
		if isReservedMetadataKey(k) {
			continue
		}
		if tags == nil {
			tags = make(map[string]string, len(metadata))
		}
		tags[k] = fmt.Sprint(v)
	}
	return tags
}

func mergeMetadata(base, overrides map[string]interface{}) map[string]interface{} {
	if len(base) == 0 {
		return overrides
	}
	if len(overrides) == 0 {
		return base
	}
	merged := make(map[string]interface{}, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// AttachmentFromMetadata returns the attachment described by the reserved
// keys of metadata. An *Attachment under "attachment" wins over one built
// from "attachment_filename" with either "attachment_data" ([]byte or
// string) or "attachment_path", and an optional "attachment_content_type".
func AttachmentFromMetadata(metadata map[string]interface{}) (*Attachment, bool) {
	if attachment, ok := metadata[MetadataAttachment].(*Attachment); ok && attachment != nil {
		return attachment, true
	}

	filename, _ := metadata[MetadataAttachmentFilename].(string)
	contentType, _ := metadata[MetadataAttachmentContentType].(string)

	if filename != "" {
		switch data := metadata[MetadataAttachmentData].(type) {
		case []byte:
			return NewAttachment(filename, data, contentType), true
		case string:
			return NewAttachment(filename, []byte(data), contentType), true
		}
	}
	if path, ok := metadata[MetadataAttachmentPath].(string); ok && path != "" {
		return NewFileAttachment(path, filename, contentType), true
	}

	return nil, false
}
