package sentryzerolog

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"

	"github.com/crashdesk/sentry-go"
)

// A large portion of this implementation has been taken from https://github.com/archdx/zerolog-sentry/blob/master/writer.go

var (
	// ErrFlushTimeout is returned when the flush operation times out.
	ErrFlushTimeout = errors.New("sentryzerolog flush timeout")

	// levelsMapping maps zerolog levels to sentry log levels.
	levelsMapping = map[zerolog.Level]sentry.LogLevel{
		zerolog.TraceLevel: sentry.LogLevelTrace,
		zerolog.DebugLevel: sentry.LogLevelDebug,
		zerolog.InfoLevel:  sentry.LogLevelInfo,
		zerolog.WarnLevel:  sentry.LogLevelWarning,
		zerolog.ErrorLevel: sentry.LogLevelError,
		zerolog.FatalLevel: sentry.LogLevelCritical,
		zerolog.PanicLevel: sentry.LogLevelCritical,
	}

	// Ensure that the Writer implements the io.WriteCloser interface.
	_ = io.WriteCloser(new(Writer))

	now = time.Now
)

// These fields are simply omitted, as they are duplicated by the Sentry SDK.
const (
	FieldGoVersion = "go_version"
	FieldMaxProcs  = "go_maxprocs"

	// Name of the logger used by the Sentry SDK.
	logger = "zerolog"
)

type Config struct {
	sentry.ClientOptions
	sentry.LogHandlerOptions
	Options
}

type Options struct {
	// FlushTimeout sets the maximum duration allowed for flushing events to Sentry.
	// This is the time limit within which all pending events must be sent to Sentry
	// before the application exits. The default timeout is 3 seconds.
	FlushTimeout time.Duration
}

func (o *Options) SetDefaults() {
	if o.FlushTimeout == 0 {
		o.FlushTimeout = 3 * time.Second
	}
}

// New creates a writer with a new client built from the provided options.
func New(cfg Config) (*Writer, error) {
	client, err := sentry.NewClient(cfg.ClientOptions)
	if err != nil {
		return nil, err
	}

	if cfg.Label == "" {
		cfg.Label = logger
	}

	return NewWithHandler(sentry.NewLogHandler(client, cfg.LogHandlerOptions), cfg.Options)
}

// NewWithHandler creates a writer passing records to an existing handler.
func NewWithHandler(handler *sentry.LogHandler, opts Options) (*Writer, error) {
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	opts.SetDefaults()

	return &Writer{
		handler:      handler,
		flushTimeout: opts.FlushTimeout,
	}, nil
}

// Writer is a sentry events writer with std io.Writer interface.
type Writer struct {
	handler      *sentry.LogHandler
	flushTimeout time.Duration
}

// Write handles zerolog's json and sends events to sentry.
func (w *Writer) Write(data []byte) (int, error) {
	n := len(data)

	lvl, err := parseLogLevel(data)
	if err != nil {
		return n, nil
	}

	w.handle(lvl, data)
	return n, nil
}

func (w *Writer) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	n := len(p)
	w.handle(level, p)
	return n, nil
}

func (w *Writer) handle(level zerolog.Level, data []byte) {
	logLevel, ok := levelsMapping[level]
	if !ok || !w.handler.Enabled(logLevel) {
		return
	}

	record, ok := parseLogRecord(data)
	if !ok {
		return
	}
	record.Level = logLevel

	w.handler.Handle(context.Background(), record)
	// should flush before os.Exit
	if level == zerolog.FatalLevel || level == zerolog.PanicLevel {
		w.handler.Client().Flush(w.flushTimeout)
	}
}

// Close forces client to flush all pending events.
// Can be useful before application exits.
func (w *Writer) Close() error {
	if ok := w.handler.Client().Flush(w.flushTimeout); !ok {
		return ErrFlushTimeout
	}
	return nil
}

func parseLogLevel(data []byte) (zerolog.Level, error) {
	level, err := jsonparser.GetUnsafeString(data, zerolog.LevelFieldName)
	if err != nil {
		return zerolog.Disabled, nil
	}

	return zerolog.ParseLevel(level)
}

func parseLogRecord(data []byte) (sentry.LogRecord, bool) {
	record := sentry.LogRecord{
		Time:     now(),
		Metadata: map[string]interface{}{},
	}

	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		k := string(key)
		v := string(value)
		if dataType == jsonparser.String {
			if unescaped, err := jsonparser.ParseString(value); err == nil {
				v = unescaped
			}
		}

		switch k {
		case zerolog.MessageFieldName:
			record.Message = v
		case zerolog.TimestampFieldName:
			if t, err := time.Parse(zerolog.TimeFieldFormat, v); err == nil {
				record.Time = t
			}
		case zerolog.CallerFieldName:
			record.Source = parseCaller(v)
		case zerolog.LevelFieldName, FieldGoVersion, FieldMaxProcs:
		default:
			record.Metadata[k] = v
		}
		return nil
	})
	return record, err == nil
}

// parseCaller reads the "file:line" form zerolog writes for the caller.
func parseCaller(caller string) sentry.LogSource {
	i := strings.LastIndexByte(caller, ':')
	if i < 0 {
		return sentry.LogSource{File: caller}
	}
	line, err := strconv.Atoi(caller[i+1:])
	if err != nil {
		return sentry.LogSource{File: caller}
	}
	return sentry.LogSource{File: caller[:i], Line: line}
}
