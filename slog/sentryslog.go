package sentryslog

import (
	"context"
	"log/slog"

	"github.com/crashdesk/sentry-go"
)

// LevelFatal is the slog level reported as critical.
const LevelFatal = slog.Level(12)

var _ slog.Handler = (*SentryHandler)(nil)

// LogLevel maps a slog level onto the log level scale of sentry.
func LogLevel(level slog.Level) sentry.LogLevel {
	switch {
	case level < slog.LevelDebug:
		return sentry.LogLevelTrace
	case level < slog.LevelInfo:
		return sentry.LogLevelDebug
	case level < slog.LevelWarn:
		return sentry.LogLevelInfo
	case level < slog.LevelError:
		return sentry.LogLevelWarning
	case level < LevelFatal:
		return sentry.LogLevelError
	default:
		return sentry.LogLevelCritical
	}
}

type Option struct {
	// log level (default: debug)
	Level slog.Leveler
	// the handler records are passed to (required)
	Handler *sentry.LogHandler

	// optional: fetch attributes from context
	AttrFromContext []func(ctx context.Context) []slog.Attr

	// optional: report the source location of records
	AddSource bool
	// optional: see slog.HandlerOptions
	ReplaceAttr func(groups []string, a slog.Attr) slog.Attr
}

func (o Option) NewSentryHandler() slog.Handler {
	if o.Level == nil {
		o.Level = slog.LevelDebug
	}

	return &SentryHandler{
		option:   o,
		metadata: map[string]interface{}{},
	}
}

type SentryHandler struct {
	option Option
	// metadata holds the attributes bound with WithAttrs, keyed by their
	// dotted group path.
	metadata map[string]interface{}
	groups   []string
}

func (h *SentryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.option.Level.Level() && h.option.Handler.Enabled(LogLevel(level))
}

func (h *SentryHandler) Handle(ctx context.Context, record slog.Record) error {
	metadata := h.cloneMetadata()
	for _, fn := range h.option.AttrFromContext {
		h.addAttrs(metadata, nil, fn(ctx)...)
	}
	h.option.Handler.Handle(ctx, h.convert(metadata, &record))

	return nil
}

func (h *SentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	metadata := h.cloneMetadata()
	h.addAttrs(metadata, h.groups, attrs...)
	return &SentryHandler{
		option:   h.option,
		metadata: metadata,
		groups:   h.groups,
	}
}

func (h *SentryHandler) WithGroup(name string) slog.Handler {
	// https://cs.opensource.google/go/x/exp/+/46b07846:slog/handler.go;l=247
	if name == "" {
		return h
	}

	groups := make([]string, len(h.groups), len(h.groups)+1)
	copy(groups, h.groups)

	return &SentryHandler{
		option:   h.option,
		metadata: h.metadata,
		groups:   append(groups, name),
	}
}

func (h *SentryHandler) cloneMetadata() map[string]interface{} {
	metadata := make(map[string]interface{}, len(h.metadata))
	for k, v := range h.metadata {
		metadata[k] = v
	}
	return metadata
}
