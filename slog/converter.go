package sentryslog

import (
	"log/slog"
	"runtime"
	"strings"

	"github.com/crashdesk/sentry-go"
)

func (h *SentryHandler) convert(metadata map[string]interface{}, record *slog.Record) sentry.LogRecord {
	record.Attrs(func(attr slog.Attr) bool {
		h.addAttrs(metadata, h.groups, attr)
		return true
	})
	if len(metadata) == 0 {
		metadata = nil
	}

	logRecord := sentry.LogRecord{
		Level:    LogLevel(record.Level),
		Message:  record.Message,
		Time:     record.Time,
		Metadata: metadata,
	}
	if h.option.AddSource && record.PC != 0 {
		logRecord.Module, logRecord.Source = source(record.PC)
	}

	return logRecord
}

// addAttrs stores attrs in metadata keyed by their dotted group path. A later
// attribute replaces an earlier one with the same path. Attributes without a
// key or a value are dropped, and groups with an empty key are inlined.
func (h *SentryHandler) addAttrs(metadata map[string]interface{}, groups []string, attrs ...slog.Attr) {
	for _, attr := range attrs {
		attr.Value = attr.Value.Resolve()
		if attr.Value.Kind() == slog.KindGroup {
			nested := groups
			if attr.Key != "" {
				nested = append(groups[:len(groups):len(groups)], attr.Key)
			}
			h.addAttrs(metadata, nested, attr.Value.Group()...)
			continue
		}

		if h.option.ReplaceAttr != nil {
			attr = h.option.ReplaceAttr(groups, attr)
			attr.Value = attr.Value.Resolve()
		}
		if attr.Key == "" || (attr.Value.Kind() == slog.KindAny && attr.Value.Any() == nil) {
			continue
		}
		metadata[metadataKey(groups, attr.Key)] = attr.Value.Any()
	}
}

func metadataKey(groups []string, key string) string {
	if len(groups) == 0 {
		return key
	}
	return strings.Join(groups, ".") + "." + key
}

func source(pc uintptr) (string, sentry.LogSource) {
	fs := runtime.CallersFrames([]uintptr{pc})
	f, _ := fs.Next()

	// "path/to/pkg.Func" splits at the first dot after the last slash.
	module, function := "", f.Function
	slash := strings.LastIndexByte(f.Function, '/')
	if dot := strings.IndexByte(f.Function[slash+1:], '.'); dot >= 0 {
		module = f.Function[:slash+1+dot]
		function = f.Function[slash+1+dot+1:]
	}

	return module, sentry.LogSource{
		File:     f.File,
		Function: function,
		Line:     f.Line,
	}
}
