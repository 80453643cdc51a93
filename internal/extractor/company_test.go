package extractor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spigell/job-inbox/internal/tracker"
)

func TestCompany(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    string
		subject string
		body    string
		expect  string
	}{
		{
			name:   "sender name wins for direct mail",
			from:   "Globex Careers <careers@globex.com>",
			body:   "Thank you for your application to Initech.",
			expect: "Globex",
		},
		{
			name:   "generic sender name falls through to body",
			from:   "No-Reply <no-reply@globex.com>",
			body:   "Thank you for your application to Initech Inc. We will be in touch.",
			expect: "Initech",
		},
		{
			name:   "ats prefers body over sender name",
			from:   `"Lever" <no-reply@hire.lever.co>`,
			body:   "Thanks for your interest in joining Hooli!",
			expect: "Hooli",
		},
		{
			name:   "on behalf of",
			from:   "Jobs <jobs@myworkday.com>",
			body:   "This message is sent on behalf of Umbrella Corporation, LLC.",
			expect: "Umbrella Corporation",
		},
		{
			name:   "line leading has received",
			from:   "Talent <talent@icims.com>",
			body:   "Hello Jane,\nVandelay Industries has received your resume.",
			expect: "Vandelay Industries",
		},
		{
			name:    "subject at company",
			from:    "someone@gmail.com",
			subject: "Your interview at Stark Industries",
			expect:  "Stark Industries",
		},
		{
			name:    "subject leading company",
			from:    "someone@gmail.com",
			subject: "Wayne Enterprises - Next steps",
			expect:  "Wayne Enterprises",
		},
		{
			name:    "subject leading boilerplate is ignored",
			from:    "someone@gmail.com",
			subject: "Update on your application — status",
			expect:  tracker.UnknownCompany,
		},
		{
			name:   "domain fallback title-cased",
			from:   "noreply@mail.acme-labs.com",
			expect: "Acme Labs",
		},
		{
			name:   "domain expansion",
			from:   "recruiting@ibm.com",
			expect: "IBM",
		},
		{
			name:   "personal domain rejected",
			from:   "jane@gmail.com",
			expect: tracker.UnknownCompany,
		},
		{
			name:   "ats domain rejected",
			from:   "no-reply@greenhouse.io",
			expect: tracker.UnknownCompany,
		},
		{
			name:   "employer domain sharing an ats prefix",
			from:   "careers@jazzpharma.com",
			expect: "Jazzpharma",
		},
		{
			name:   "employer sender name sharing an ats prefix",
			from:   "Jazz Pharmaceuticals <careers@jazzpharma.com>",
			expect: "Jazz Pharmaceuticals",
		},
		{
			name:   "lower case body falls through to the domain",
			from:   "careers@acme.com",
			body:   "Thank you for your application to acme corp.",
			expect: "Acme",
		},
		{
			name:   "stop word sender name rejected",
			from:   "Hello <hello@gmail.com>",
			expect: tracker.UnknownCompany,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Company(tt.from, tt.subject, tt.body); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestCleanCompany(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{"Acme Corp.", "Acme"},
		{"Acme, Inc.", "Acme"},
		{"Acme LLC", "Acme"},
		{"Acme Ltd", "Acme"},
		{"Acme & Co.", "Acme"},
		{"Acme Recruiting", "Acme"},
		{"Acme Talent Acquisition Team", "Acme"},
		{"Acme Careers Inc.", "Acme Careers"},
		{"Acme Inc. Recruiting", "Acme"},
		{"  Acme    Robotics  ", "Acme Robotics"},
		{"Recruiting", "Recruiting"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := CleanCompany(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestValidCompanyBoundaries(t *testing.T) {
	if ValidCompany("X") {
		t.Fatalf("expected single character to be rejected")
	}
	if !ValidCompany("HP") {
		t.Fatalf("expected two characters to be accepted")
	}
	if !ValidCompany(strings.Repeat("a", 79)) {
		t.Fatalf("expected 79 characters to be accepted")
	}
	if ValidCompany(strings.Repeat("a", 80)) {
		t.Fatalf("expected 80 characters to be rejected")
	}
	for _, stop := range []string{"The", "thanks", "FWD", "Application"} {
		if ValidCompany(stop) {
			t.Fatalf("expected stop word %q to be rejected", stop)
		}
	}
	if !ValidCompany("The Trade Desk") {
		t.Fatalf("expected names containing stop words to be accepted")
	}
}

func TestCompanyLengthFallsThrough(t *testing.T) {
	long := strings.Repeat("Verylongname", 8)

	// an oversized sender name falls through to the body
	got := Company(long+" <jobs@example.com>", "", "Thanks for your interest in Initech.")
	if got != "Initech" {
		t.Fatalf("expected body strategy after rejected sender name, got %q", got)
	}

	// a single letter sender name falls through to the domain
	got = Company("X <x@globex.com>", "", "")
	if got != "Globex" {
		t.Fatalf("expected domain strategy after rejected sender name, got %q", got)
	}
}

func TestIsATSDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain string
		expect bool
	}{
		{"greenhouse.io", true},
		{"us.greenhouse-mail.io", true},
		{"hire.lever.co", true},
		{"acme.myworkdayjobs.com", true},
		{"ashbyhq.com", true},
		{"clevertech.com", false},
		{"jazzpharma.com", false},
		{"leveragecapital.com", false},
		{"levels.fyi", false},
		{"ashbyfarms.com", false},
		{"jazzhr.com", true},
		{"Boards.Greenhouse.io.", true},
		{"acme.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			t.Parallel()
			if got := IsATSDomain(tt.domain); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestTitleCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{"acme-labs", "Acme Labs"},
		{"über", "Über"},
		{"évian_eaux", "Évian Eaux"},
		{"globex", "Globex"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got := titleCase(tt.input)
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("expected valid utf-8, got %q", got)
			}
		})
	}
}
