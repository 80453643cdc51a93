package tracker

import (
	"encoding/json"
	"net/url"
	"os"
	"sort"
)

const (
	UnknownCompany  = "Unknown Company"
	UnknownPosition = "Unknown Position"

	// DateLayout is the calendar date format used by DateApplied and FollowUpDate.
	DateLayout = "2006-01-02"

	threadLinkPrefix = "https://mail.google.com/mail/u/0/#inbox/"
)

// Application is a job-application record built from a single email.
// Optional fields are empty when absent.
type Application struct {
	Company      string   `json:"company" yaml:"company"`
	Position     string   `json:"position" yaml:"position"`
	DateApplied  string   `json:"date_applied,omitempty" yaml:"date_applied,omitempty"`
	Status       Status   `json:"status" yaml:"status"`
	Category     Category `json:"category,omitempty" yaml:"category,omitempty"`
	Salary       string   `json:"salary,omitempty" yaml:"salary,omitempty"`
	Location     string   `json:"location,omitempty" yaml:"location,omitempty"`
	JobLink      string   `json:"job_link,omitempty" yaml:"job_link,omitempty"`
	ThreadLink   string   `json:"thread_link,omitempty" yaml:"thread_link,omitempty"`
	FollowUpDate string   `json:"follow_up_date,omitempty" yaml:"follow_up_date,omitempty"`
	Notes        string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	Subject      string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	EmailID      string   `json:"email_id,omitempty" yaml:"email_id,omitempty"`
	ThreadID     string   `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
}

// ThreadLink builds the web-client deep link for a thread.
func ThreadLink(threadID string) string {
	if threadID == "" {
		return ""
	}
	return threadLinkPrefix + url.PathEscape(threadID)
}

type Applications struct {
	Items []*Application
}

func (a *Applications) Len() int {
	return len(a.Items)
}

func (a *Applications) Add(app *Application) {
	a.Items = append(a.Items, app)
}

// ReportByCompany groups applications by company name.
func (a *Applications) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, app := range a.Items {
		entry := map[string]string{
			"position": app.Position,
			"status":   string(app.Status),
			"subject":  app.Subject,
		}
		if app.DateApplied != "" {
			entry["date"] = app.DateApplied
		}
		if app.FollowUpDate != "" {
			entry["follow up"] = app.FollowUpDate
		}
		if app.JobLink != "" {
			entry["link"] = app.JobLink
		}
		report[app.Company] = append(report[app.Company], entry)
	}
	return report
}

// CountByStatus returns the number of applications per status.
func (a *Applications) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for _, app := range a.Items {
		counts[app.Status]++
	}
	return counts
}

// SortByDate orders applications by DateApplied, oldest first.
func (a *Applications) SortByDate() {
	sort.SliceStable(a.Items, func(i, j int) bool {
		return a.Items[i].DateApplied < a.Items[j].DateApplied
	})
}

func (a *Applications) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "applications_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return "", err
	}
	return file.Name(), nil
}
