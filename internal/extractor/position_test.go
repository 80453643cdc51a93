package extractor

import (
	"strings"
	"testing"

	"github.com/spigell/job-inbox/internal/tracker"
)

func TestPosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subject string
		body    string
		expect  string
	}{
		{
			name:   "for the title position",
			body:   "Thanks for applying for the Staff Software Engineer position.",
			expect: "Staff Software Engineer",
		},
		{
			name:   "labelled title",
			body:   "Candidate: Jane Doe\nPosition: Platform Engineer\nLocation: Berlin",
			expect: "Platform Engineer",
		},
		{
			name:   "applied for",
			body:   "You applied for Sr. Data Scientist at Initech.",
			expect: "Sr. Data Scientist",
		},
		{
			name:   "application for position of",
			body:   "This is regarding your application for the position of Product Designer, which we loved.",
			expect: "Product Designer",
		},
		{
			name:   "the title role at",
			body:   "We think you would be great for the IT Support role at Hooli.",
			expect: "IT Support",
		},
		{
			name:   "two words without keyword",
			body:   "Job title: Account Executive\n",
			expect: "Account Executive",
		},
		{
			name:    "subject application colon",
			subject: "Application: Backend Developer - Acme",
			expect:  "Backend Developer",
		},
		{
			name:    "subject leading title at company",
			subject: "Machine Learning Engineer at Globex",
			expect:  "Machine Learning Engineer",
		},
		{
			name:    "subject role colon",
			subject: "Re: Role: QA Lead",
			expect:  "QA Lead",
		},
		{
			name:    "cleaned subject fallback",
			subject: "Fwd: Thank you for applying! Junior iOS Developer - Globex Careers",
			expect:  "Junior iOS Developer",
		},
		{
			name:    "cleaned subject needs a keyword",
			subject: "Thank you - Globex",
			expect:  tracker.UnknownPosition,
		},
		{
			name:    "boilerplate subject rejected",
			subject: "Your application was received",
			body:    "We received your application.",
			expect:  tracker.UnknownPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Position(tt.subject, tt.body); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestValidPosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect bool
	}{
		{"Engineer", true},
		{"IT Analyst", true},
		{"Account Executive", true},
		{"Chef", false},
		{"QA", false},
		{"Thank you for applying", false},
		{"Regarding your application", false},
		{"role you applied to", false},
		{strings.Repeat("Engineer ", 12), false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := ValidPosition(tt.input); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}
