package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the mailbox provider.
	FieldProvider = "provider"
	// FieldMailbox is the structured log field key for the mailbox or label being read.
	FieldMailbox = "mailbox"
	// FieldEmailID is the structured log field key for a message identifier.
	FieldEmailID = "email_id"
	// FieldThreadID is the structured log field key for a thread identifier.
	FieldThreadID = "thread_id"
	// FieldCategory is the structured log field key for the assigned category.
	FieldCategory = "category"
	// FieldRunID is the structured log field key for a sync run.
	FieldRunID = "run_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SourceFields describes where emails are read from.
func SourceFields(provider, mailbox string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldMailbox, Value: mailbox},
	)
}

// MailFields identifies a single message. Empty values are skipped.
func MailFields(emailID, threadID, category string) []zap.Field {
	return StringFields(
		StringField{Key: FieldEmailID, Value: emailID},
		StringField{Key: FieldThreadID, Value: threadID},
		StringField{Key: FieldCategory, Value: category},
	)
}

// WithSource attaches the source fields to the provided logger.
func WithSource(logger *zap.Logger, provider, mailbox string) *zap.Logger {
	return WithFields(logger, SourceFields(provider, mailbox)...)
}
