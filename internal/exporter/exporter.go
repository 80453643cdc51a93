package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/job-inbox/internal/tracker"

	"gopkg.in/yaml.v3"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var csvHeader = []string{
	"Company",
	"Position",
	"Date Applied",
	"Status",
	"Salary",
	"Location",
	"Job Link",
	"Thread Link",
	"Follow-up Date",
	"Notes",
	"Subject",
}

// Formats lists the supported export formats.
func Formats() []string {
	return []string{FormatCSV, FormatJSON, FormatYAML}
}

// Export writes apps to w in the given format.
func Export(w io.Writer, apps []tracker.Application, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV, "":
		return exportCSV(w, apps)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(nonNil(apps)); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(nonNil(apps)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}
}

func exportCSV(w io.Writer, apps []tracker.Application) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, app := range apps {
		record := []string{
			app.Company,
			app.Position,
			app.DateApplied,
			string(app.Status),
			app.Salary,
			app.Location,
			app.JobLink,
			app.ThreadLink,
			app.FollowUpDate,
			app.Notes,
			app.Subject,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func nonNil(apps []tracker.Application) []tracker.Application {
	if apps == nil {
		return []tracker.Application{}
	}
	return apps
}
