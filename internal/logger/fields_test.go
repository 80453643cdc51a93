package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  imap  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "imap" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	empty := StringFields()
	if len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithFields(logger, zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	enriched.Info("another log")
}

func TestMailFields(t *testing.T) {
	fields := MailFields("m1", "", "rejection")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldEmailID || fields[0].String != "m1" {
		t.Fatalf("unexpected email field: %+v", fields[0])
	}

	if fields[1].Key != FieldCategory || fields[1].String != "rejection" {
		t.Fatalf("unexpected category field: %+v", fields[1])
	}
}

func TestWithSource(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	WithSource(logger, "gmail", "INBOX").Info("fetching")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProvider] != "gmail" {
		t.Fatalf("expected provider field to be gmail, got %q", ctx[FieldProvider])
	}
	if ctx[FieldMailbox] != "INBOX" {
		t.Fatalf("expected mailbox field to be INBOX, got %q", ctx[FieldMailbox])
	}

	// a nil logger must not panic
	WithSource(nil, "imap", "").Info("another log")
}

func TestNew(t *testing.T) {
	for _, json := range []bool{false, true} {
		logger, err := New(json, true)
		if err != nil {
			t.Fatalf("building logger: %v", err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("expected debug level to be enabled")
		}
	}
}
