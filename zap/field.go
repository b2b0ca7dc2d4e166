package sentryzap

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crashdesk/sentry-go"
)

type tagField struct {
	Key   string
	Value string
}

// Tag adds a tag to the event of the entry.
func Tag(key string, value string) zap.Field {
	return zap.Field{Key: key, Type: zapcore.SkipType, Interface: tagField{key, value}}
}

type ctxField struct {
	Value context.Context
}

// Context adds a context to the logger. It is passed to the handler along
// with the entry.
func Context(ctx context.Context) zap.Field {
	return zap.Field{Key: "context", Type: zapcore.SkipType, Interface: ctxField{ctx}}
}

// Attachment sends attachment along with the event of the entry.
func Attachment(attachment *sentry.Attachment) zap.Field {
	return zap.Field{Key: sentry.MetadataAttachment, Type: zapcore.SkipType, Interface: attachment}
}
