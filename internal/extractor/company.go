package extractor

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/job-inbox/internal/tracker"
)

const (
	companyWord       = `[\p{L}\p{N}&'’]+(?:[.\-][\p{L}\p{N}&'’]+)*`
	// companyName captures up to seven words starting with a capital letter or digit.
	companyName       = `([\p{Lu}\p{N}][\p{L}\p{N}&'’]*(?:[.\-][\p{L}\p{N}&'’]+)*(?:[ \t]+` + companyWord + `){0,6}?)`
	companyEnd        = `(?:[.,!?;:)\n]|[ \t]+(?i:for|and|to|as|in|on|is|are|has|have|was|were|we|who|where|which|regarding|about|via|through|from|team)\b|[ \t]+[-–—|]|[ \t]*$)`
	companySubjectEnd = `(?:[ \t]*[-–—|:!,.(]|[ \t]+(?i:for|and|regarding|about|team)\b|[ \t]*$)`

	minCompanyLen = 2
	maxCompanyLen = 80
)

var (
	bodyCompanyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:\bapplication\s+(?:to|at|with)\s+)` + companyName + companyEnd),
		regexp.MustCompile(`(?i:\binterest\s+in\s+(?:joining\s+|working\s+(?:at|with|for)\s+)?)` + companyName + companyEnd),
		regexp.MustCompile(`(?i:\bon\s+behalf\s+of\s+)` + companyName + companyEnd),
		regexp.MustCompile(`(?i:\b(?:position|role|opening|opportunity|job)\s+(?:at|with)\s+)` + companyName + companyEnd),
		regexp.MustCompile(`(?m)^[ \t]*` + companyName + `(?i:[ \t]+has\s+received)\b`),
		regexp.MustCompile(`(?i:\bteam\s+at\s+)` + companyName + companyEnd),
	}

	subjectCompanyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:\b(?:at|from|with|applying\s+to|application\s+to)\s+)` + companyName + companySubjectEnd),
	}

	// subjectLeadingCompany matches "COMPANY - ..." subjects.
	subjectLeadingCompany = regexp.MustCompile(`^[ \t]*` + companyName + `[ \t]*[-–—|:][ \t]+`)

	subjectBoilerplate = regexp.MustCompile(`(?i)\b(?:your|our|application|applying|applied|update|thank|thanks|interview|offer|confirmation|status|invitation|regarding)\b`)

	senderHeader = regexp.MustCompile(`^\s*"?([^"<]*?)"?\s*<[^>]*>`)

	genericSender = regexp.MustCompile(`(?i)^(?:no-?reply|do-?not-?reply|donotreply|notifications?|recruit(?:ing|ment|ers?)?|careers?|talent|hr|human\s+resources|jobs?|hiring|team|info|support|mailer|admin|` +
		`greenhouse|lever|workday|icims|smartrecruiters|ashby|jobvite|bamboohr|applytojob|recruitee|breezy|jazzhr|rippling|linkedin|indeed)\b`)

	roleSuffix  = regexp.MustCompile(`(?i)[\s,\-–—|]+(?:recruiting|careers|talent\s+acquisition|team|hr|jobs|hiring|staffing|notifications)$`)
	legalSuffix = regexp.MustCompile(`(?i)[\s,]+(?:inc|llc|ltd|corp|co)\.?$`)
)

// atsDomains are registrable domains of applicant tracking systems. Subdomains match too.
var atsDomains = []string{
	"greenhouse.io",
	"greenhouse-mail.io",
	"lever.co",
	"myworkday.com",
	"myworkdayjobs.com",
	"workday.com",
	"icims.com",
	"smartrecruiters.com",
	"ashbyhq.com",
	"jobvite.com",
	"bamboohr.com",
	"applytojob.com",
	"jazzhr.com",
	"recruitee.com",
	"breezy.hr",
	"rippling.com",
	"rippling-ats.com",
}

var personalDomains = map[string]struct{}{
	"gmail": {}, "googlemail": {}, "yahoo": {}, "ymail": {}, "outlook": {}, "hotmail": {},
	"live": {}, "msn": {}, "icloud": {}, "me": {}, "mac": {}, "aol": {}, "protonmail": {},
	"proton": {}, "pm": {}, "gmx": {}, "mail": {}, "yandex": {}, "zoho": {}, "fastmail": {},
	"hey": {}, "qq": {}, "163": {}, "126": {},
}

// genericHostLabels are dropped from the front of a sender domain when more labels follow.
var genericHostLabels = map[string]struct{}{
	"mail": {}, "email": {}, "e": {}, "em": {}, "mg": {}, "mailer": {}, "news": {},
	"info": {}, "reply": {}, "bounce": {}, "careers": {}, "jobs": {}, "hr": {},
	"talent": {}, "recruiting": {}, "notifications": {}, "notify": {}, "us": {}, "eu": {},
}

var domainExpansions = map[string]string{
	"ibm":           "IBM",
	"jpmorgan":      "JPMorgan Chase",
	"jpmorganchase": "JPMorgan Chase",
	"jpmchase":      "JPMorgan Chase",
	"att":           "AT&T",
	"hp":            "HP",
	"hpe":           "HPE",
	"ey":            "EY",
	"pwc":           "PwC",
	"kpmg":          "KPMG",
	"bcg":           "BCG",
	"mckinsey":      "McKinsey & Company",
	"gs":            "Goldman Sachs",
	"goldmansachs":  "Goldman Sachs",
	"morganstanley": "Morgan Stanley",
	"capitalone":    "Capital One",
	"bofa":          "Bank of America",
	"linkedin":      "LinkedIn",
	"github":        "GitHub",
	"gitlab":        "GitLab",
	"paypal":        "PayPal",
	"youtube":       "YouTube",
	"openai":        "OpenAI",
	"nvidia":        "NVIDIA",
	"amd":           "AMD",
	"sap":           "SAP",
	"bytedance":     "ByteDance",
	"doordash":      "DoorDash",
	"fb":            "Meta",
	"aws":           "Amazon Web Services",
}

var companyStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "your": {}, "our": {}, "this": {}, "that": {},
	"us": {}, "we": {}, "thank": {}, "thanks": {}, "hi": {}, "hello": {}, "dear": {},
	"application": {}, "confirmation": {}, "update": {}, "status": {}, "re": {}, "fwd": {},
}

// Company resolves the employer name. Mail sent through an applicant tracking
// system carries the platform in its sender name, so the body is trusted first.
func Company(from, subject, body string) string {
	var strategies []func() (string, bool)

	if IsATSDomain(senderDomain(from)) {
		strategies = []func() (string, bool){
			func() (string, bool) { return companyFromBody(body) },
			func() (string, bool) { return companyFromSubject(subject) },
			func() (string, bool) { return companyFromSenderName(from) },
			func() (string, bool) { return companyFromDomain(from) },
		}
	} else {
		strategies = []func() (string, bool){
			func() (string, bool) { return companyFromSenderName(from) },
			func() (string, bool) { return companyFromBody(body) },
			func() (string, bool) { return companyFromSubject(subject) },
			func() (string, bool) { return companyFromDomain(from) },
		}
	}

	if company, ok := firstValid(strategies...); ok {
		return company
	}
	return tracker.UnknownCompany
}

func companyFromBody(body string) (string, bool) {
	return scan(body, bodyCompanyPatterns, acceptCompany)
}

func companyFromSubject(subject string) (string, bool) {
	subject = stripReplyMarkers(subject)
	if company, ok := scan(subject, subjectCompanyPatterns, acceptCompany); ok {
		return company, true
	}

	match := subjectLeadingCompany.FindStringSubmatch(subject)
	if match == nil || subjectBoilerplate.MatchString(match[1]) {
		return "", false
	}
	return acceptCompany(match[1])
}

func companyFromSenderName(from string) (string, bool) {
	name := senderName(from)
	if name == "" || genericSender.MatchString(strings.TrimSpace(name)) {
		return "", false
	}
	return acceptCompany(name)
}

func companyFromDomain(from string) (string, bool) {
	domain := senderDomain(from)
	if domain == "" {
		return "", false
	}

	labels := strings.Split(domain, ".")
	for len(labels) > 2 {
		if _, generic := genericHostLabels[labels[0]]; !generic {
			break
		}
		labels = labels[1:]
	}

	label := labels[0]
	if label == "" || IsATSDomain(domain) {
		return "", false
	}
	if _, personal := personalDomains[label]; personal {
		return "", false
	}

	if expanded, ok := domainExpansions[label]; ok {
		return acceptCompany(expanded)
	}
	return acceptCompany(titleCase(label))
}

// IsATSDomain reports whether the domain is a known applicant tracking system
// or one of its subdomains.
func IsATSDomain(domain string) bool {
	domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return false
	}
	for _, ats := range atsDomains {
		if domain == ats || strings.HasSuffix(domain, "."+ats) {
			return true
		}
	}
	return false
}

func senderName(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}

	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.TrimSpace(addr.Name)
	}

	if match := senderHeader.FindStringSubmatch(from); match != nil {
		return strings.Trim(match[1], `"' `)
	}
	return ""
}

func senderDomain(from string) string {
	addr := tracker.Email{From: from}.SenderAddress()
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	return strings.Trim(addr[at+1:], ". ")
}

func titleCase(label string) string {
	parts := strings.FieldsFunc(label, func(r rune) bool { return r == '-' || r == '_' })
	for idx, part := range parts {
		r, size := utf8.DecodeRuneInString(part)
		parts[idx] = string(unicode.ToUpper(r)) + part[size:]
	}
	return strings.Join(parts, " ")
}

// CleanCompany strips role and legal suffixes from a company candidate.
func CleanCompany(s string) string {
	s = trimCompanyPunct(collapseSpaces(s))

	for {
		stripped := roleSuffix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = trimCompanyPunct(stripped)
	}

	s = legalSuffix.ReplaceAllString(s, "")
	return trimCompanyPunct(collapseSpaces(s))
}

// ValidCompany reports whether a cleaned candidate can be used as a company name.
func ValidCompany(s string) bool {
	n := runeLen(s)
	if n < minCompanyLen || n >= maxCompanyLen {
		return false
	}
	_, stop := companyStopWords[strings.ToLower(s)]
	return !stop
}

func acceptCompany(candidate string) (string, bool) {
	cleaned := CleanCompany(candidate)
	if !ValidCompany(cleaned) {
		return "", false
	}
	return cleaned, true
}

func trimCompanyPunct(s string) string {
	return strings.Trim(s, " \t\"'“”‘’.,;:-–—|&")
}
