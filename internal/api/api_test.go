package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/spigell/job-inbox/internal/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	apps []tracker.Application
	err  error
}

func (f *fakeStore) Applications(context.Context) ([]tracker.Application, error) {
	return f.apps, f.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, NewRouter(Options{}), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestClassify(t *testing.T) {
	router := NewRouter(Options{})

	rec := do(t, router, http.MethodPost, "/v1/classify",
		`{"subject":"Your offer letter","body":"Unfortunately the start date moved."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp classifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Category != tracker.CategoryOffer || resp.Status != tracker.StatusOffer || resp.Pattern == "" {
		t.Fatalf("unexpected response %+v", resp)
	}

	rec = do(t, router, http.MethodPost, "/v1/classify", `{"subject":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for malformed json, got %d", rec.Code)
	}
}

func TestExtract(t *testing.T) {
	router := NewRouter(Options{})

	body := `{
		"id": "m2",
		"from": "\"Greenhouse Recruiting\" <no-reply@greenhouse.io>",
		"subject": "Update on your application — Acme Corp",
		"body": "Unfortunately, we have decided to move forward with other candidates for the Data Analyst role at Acme Corp.",
		"date": "2024-01-01T00:00:00Z"
	}`

	rec := do(t, router, http.MethodPost, "/v1/extract", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var app tracker.Application
	if err := json.Unmarshal(rec.Body.Bytes(), &app); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if app.Company != "Acme" || app.Position != "Data Analyst" || app.Status != tracker.StatusRejected {
		t.Fatalf("unexpected application %+v", app)
	}
	if app.FollowUpDate != "" {
		t.Fatalf("expected no follow up, got %q", app.FollowUpDate)
	}

	// an explicit category overrides classification
	withCategory := strings.Replace(body, `"id": "m2",`, `"id": "m2", "category": "interview_invitation",`, 1)
	rec = do(t, router, http.MethodPost, "/v1/extract", withCategory)
	if err := json.Unmarshal(rec.Body.Bytes(), &app); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if app.Status != tracker.StatusInterview || app.FollowUpDate != "2024-01-02" {
		t.Fatalf("expected category override, got %+v", app)
	}

	rec = do(t, router, http.MethodPost, "/v1/extract", `{"category":"hired"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for unknown category, got %d", rec.Code)
	}
}

func TestApplications(t *testing.T) {
	st := &fakeStore{apps: []tracker.Application{
		{Company: "Acme", Position: "Engineer", Status: tracker.StatusApplied, DateApplied: "2024-01-01"},
		{Company: "Acme", Position: "Analyst", Status: tracker.StatusRejected, DateApplied: "2024-01-02"},
		{Company: "Globex", Position: "Designer", Status: tracker.StatusInterview},
	}}
	router := NewRouter(Options{Store: st})

	rec := do(t, router, http.MethodGet, "/v1/applications", "")
	var apps []tracker.Application
	if err := json.Unmarshal(rec.Body.Bytes(), &apps); err != nil || len(apps) != 3 {
		t.Fatalf("unexpected applications response %s (%v)", rec.Body.String(), err)
	}

	rec = do(t, router, http.MethodGet, "/v1/applications?format=csv", "")
	if !strings.HasPrefix(rec.Body.String(), "Company,Position,Date Applied") {
		t.Fatalf("expected csv export, got %q", rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}

	rec = do(t, router, http.MethodGet, "/v1/applications?format=xml", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for unsupported format, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/applications/report", "")
	var report reportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Total != 3 || report.ByStatus[tracker.StatusRejected] != 1 || len(report.ByCompany["Acme"]) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	st.err = errors.New("db down")
	rec = do(t, router, http.MethodGet, "/v1/applications", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected store error to surface, got %d", rec.Code)
	}
}

func TestApplicationsRequireStore(t *testing.T) {
	rec := do(t, NewRouter(Options{}), http.MethodGet, "/v1/applications", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected applications route to be absent, got %d", rec.Code)
	}
}
