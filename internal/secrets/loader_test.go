package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	secretFile := filepath.Join(dir, "password")
	if err := os.WriteFile(secretFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}

	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("writing empty file: %v", err)
	}

	t.Setenv("JOB_INBOX_TEST_SECRET", " from-env ")

	tests := []struct {
		name    string
		src     Source
		expect  string
		wantErr string
	}{
		{
			name:   "file wins over env and value",
			src:    Source{Name: "imap password", File: secretFile, Env: "JOB_INBOX_TEST_SECRET", Value: "inline"},
			expect: "from-file",
		},
		{
			name:   "env wins over value",
			src:    Source{Env: "JOB_INBOX_TEST_SECRET", Value: "inline"},
			expect: "from-env",
		},
		{
			name:   "unset env falls back to value",
			src:    Source{Env: "JOB_INBOX_TEST_UNSET", Value: " inline "},
			expect: "inline",
		},
		{
			name:    "missing file",
			src:     Source{Name: "token", File: filepath.Join(dir, "missing")},
			wantErr: "reading token from file",
		},
		{
			name:    "empty file",
			src:     Source{Name: "token", File: emptyFile, Value: "inline"},
			wantErr: "is empty",
		},
		{
			name:    "nothing configured",
			src:     Source{},
			wantErr: "secret is not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
