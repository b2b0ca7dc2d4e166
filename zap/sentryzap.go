package sentryzap

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crashdesk/sentry-go"
)

var (
	ErrNilHandler = errors.New("log handler cannot be nil")
)

// NewCore creates a new zapcore.Core that passes entries to handler.
func NewCore(cfg Configuration, handler *sentry.LogHandler) (zapcore.Core, error) {
	if handler == nil {
		return zapcore.NewNopCore(), fmt.Errorf("invalid configuration: %w", ErrNilHandler)
	}

	setDefaultConfig(&cfg)

	core := &core{
		handler:      handler,
		cfg:          &cfg,
		LevelEnabler: cfg.Level,
		flushTimeout: cfg.FlushTimeout,
		fields:       make(map[string]any),
	}

	return core, nil
}

func setDefaultConfig(cfg *Configuration) {
	if cfg.Level == nil {
		cfg.Level = zapcore.DebugLevel
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 3 * time.Second
	}
}

var levelMap = map[zapcore.Level]sentry.LogLevel{
	zapcore.DebugLevel:  sentry.LogLevelDebug,
	zapcore.InfoLevel:   sentry.LogLevelInfo,
	zapcore.WarnLevel:   sentry.LogLevelWarning,
	zapcore.ErrorLevel:  sentry.LogLevelError,
	zapcore.DPanicLevel: sentry.LogLevelCritical,
	zapcore.PanicLevel:  sentry.LogLevelCritical,
	zapcore.FatalLevel:  sentry.LogLevelCritical,
}

// AttachCoreToLogger attaches the Sentry core to the provided logger.
func AttachCoreToLogger(sentryCore zapcore.Core, l *zap.Logger) *zap.Logger {
	return l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, sentryCore)
	}))
}

// Configuration is a minimal set of parameters for Sentry integration.
type Configuration struct {
	// Tags is a map of key-value pairs that will be added to the metadata of
	// every entry.
	Tags map[string]string

	// LoggerNameKey specifies the metadata key used to represent the zap logger name.
	// If left empty, this feature is disabled.
	LoggerNameKey string

	// Level defines the minimum severity level of entries passed to the
	// handler. The handler decides which of them become events and which
	// breadcrumbs. Defaults to debug.
	Level zapcore.LevelEnabler

	// FlushTimeout defines the maximum duration allowed for flushing events to Sentry.
	FlushTimeout time.Duration
}
