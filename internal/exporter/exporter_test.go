package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spigell/job-inbox/internal/tracker"

	"gopkg.in/yaml.v3"
)

func sampleApps() []tracker.Application {
	return []tracker.Application{
		{
			Company:      "Acme",
			Position:     "Senior Backend Engineer",
			DateApplied:  "2024-01-01",
			Status:       tracker.StatusApplied,
			Category:     tracker.CategoryApplicationConfirmation,
			Salary:       "$120,000 - $150,000",
			ThreadLink:   tracker.ThreadLink("t1"),
			FollowUpDate: "2024-01-08",
			Notes:        "Application confirmation received (detected 2024-01-01)",
			Subject:      `Thank you, "Jane"`,
		},
		{
			Company:  tracker.UnknownCompany,
			Position: "Data Analyst",
			Status:   tracker.StatusRejected,
		},
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleApps(), "CSV"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv back: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], "|") != strings.Join(csvHeader, "|") {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[1][0] != "Acme" || records[1][3] != "Applied" || records[1][10] != `Thank you, "Jane"` {
		t.Fatalf("unexpected first row %v", records[1])
	}
	if records[2][0] != tracker.UnknownCompany || records[2][2] != "" {
		t.Fatalf("unexpected second row %v", records[2])
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, nil, FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}

	buf.Reset()
	if err := Export(&buf, sampleApps(), FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding json: %v", err)
	}
	if decoded[0]["follow_up_date"] != "2024-01-08" {
		t.Fatalf("unexpected first record %v", decoded[0])
	}
	if _, ok := decoded[1]["salary"]; ok {
		t.Fatalf("expected absent salary to be omitted, got %v", decoded[1])
	}
}

func TestExportYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleApps(), "yml"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "company: Acme\n") {
		t.Fatalf("expected yaml keys, got %q", buf.String())
	}

	var decoded []tracker.Application
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding yaml: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Status != tracker.StatusRejected {
		t.Fatalf("unexpected decoded records %+v", decoded)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	err := Export(&bytes.Buffer{}, sampleApps(), "xml")
	if err == nil || !strings.Contains(err.Error(), "csv, json, yaml") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}
