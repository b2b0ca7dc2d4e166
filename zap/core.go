package sentryzap

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crashdesk/sentry-go"
)

type core struct {
	handler *sentry.LogHandler
	cfg     *Configuration
	zapcore.LevelEnabler
	flushTimeout time.Duration

	ctx    context.Context
	fields map[string]any
}

func (c *core) With(fs []zapcore.Field) zapcore.Core {
	return c.with(fs)
}

func (c *core) with(fs []zapcore.Field) *core {
	fields := make(map[string]interface{}, len(c.fields)+len(fs))
	for k, v := range c.fields {
		fields[k] = v
	}
	ctx := c.ctx

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fs {
		if f.Type != zapcore.SkipType {
			f.AddTo(enc)
			continue
		}
		switch v := f.Interface.(type) {
		case tagField:
			fields[v.Key] = v.Value
		case ctxField:
			ctx = v.Value
		case *sentry.Attachment:
			fields[sentry.MetadataAttachment] = v
		}
	}

	for k, v := range enc.Fields {
		fields[k] = v
	}

	return &core{
		handler:      c.handler,
		cfg:          c.cfg,
		LevelEnabler: c.LevelEnabler,
		flushTimeout: c.flushTimeout,
		ctx:          ctx,
		fields:       fields,
	}
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) && c.handler.Enabled(levelMap[ent.Level]) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fs []zapcore.Field) error {
	clone := c.with(c.addSpecialFields(ent, fs))

	ctx := clone.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	c.handler.Handle(ctx, clone.record(ent))

	if ent.Level > zapcore.ErrorLevel {
		return c.Sync()
	}
	return nil
}

func (c *core) Sync() error {
	c.handler.Client().Flush(c.flushTimeout)
	return nil
}

func (c *core) record(ent zapcore.Entry) sentry.LogRecord {
	metadata := make(map[string]interface{}, len(c.cfg.Tags)+len(c.fields))
	for k, v := range c.cfg.Tags {
		metadata[k] = v
	}
	for k, v := range c.fields {
		metadata[k] = v
	}

	record := sentry.LogRecord{
		Level:    levelMap[ent.Level],
		Message:  ent.Message,
		Time:     ent.Time,
		Metadata: metadata,
	}
	if ent.Caller.Defined {
		record.Source = sentry.LogSource{
			File:     ent.Caller.File,
			Function: ent.Caller.Function,
			Line:     ent.Caller.Line,
		}
	}
	return record
}

func (c *core) addSpecialFields(ent zapcore.Entry, fs []zapcore.Field) []zapcore.Field {
	if c.cfg.LoggerNameKey != "" && ent.LoggerName != "" {
		fs = append(fs, zap.String(c.cfg.LoggerNameKey, ent.LoggerName))
	}
	return fs
}
