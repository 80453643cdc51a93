package extractor

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

const (
	money = `\$[ \t]?\d[\d,]*(?:\.\d+)?[ \t]?[kK]?`
	per   = `(?:[ \t]*(?:/|(?i:per))[ \t]*(?i:year|yr|annum|hour|hr))?`
)

var (
	salaryPatterns = []*regexp.Regexp{
		regexp.MustCompile(money + `[ \t]*(?:-|–|—|(?i:to))[ \t]*\$?[ \t]?\d[\d,]*(?:\.\d+)?[ \t]?[kK]?` + per),
		regexp.MustCompile(`(?i:salary(?:[ \t]+range)?|compensation)[ \t]*:[ \t]*` + money + per),
	}

	labelledLocation = regexp.MustCompile(`(?i:\blocation[ \t]*:|\b(?:based|located|office)\s+in[ \t]*:?)[ \t]*([\p{L}][\p{L} ,'\-]*?(?:,[ \t]*[A-Z]{2})?)[ \t]*(?:[.;!?()|\n]|$)`)
	workMode         = regexp.MustCompile(`(?i)\b(remote|hybrid|on-?site)\b`)

	urlPattern = regexp.MustCompile(`https?://[^\s"'<>()\[\]{}]+`)
	linkTokens = []string{"job", "career", "position", "apply", "opening"}
)

// Salary returns the first salary expression verbatim.
func Salary(body string) string {
	for _, p := range salaryPatterns {
		if match := p.FindString(body); match != "" {
			return strings.TrimSpace(match)
		}
	}
	return ""
}

// Location returns a labelled location, or the work mode when only that is mentioned.
func Location(body string) string {
	if match := labelledLocation.FindStringSubmatch(body); match != nil {
		location := strings.Trim(collapseSpaces(match[1]), " ,-")
		if n := runeLen(location); n >= 2 && n < 100 {
			return location
		}
	}

	if match := workMode.FindStringSubmatch(body); match != nil {
		switch strings.ToLower(match[1]) {
		case "remote":
			return "Remote"
		case "hybrid":
			return "Hybrid"
		default:
			return "On-site"
		}
	}
	return ""
}

// JobLink returns the leftmost URL pointing at a job posting, falling back to
// the leftmost URL hosted by an applicant tracking system.
func JobLink(text string) string {
	var atsLink string

	for _, raw := range urlPattern.FindAllString(text, -1) {
		link := strings.TrimRight(html.UnescapeString(raw), ".,;:!?'\"")
		u, err := url.Parse(link)
		if err != nil || u.Host == "" {
			continue
		}

		path := strings.ToLower(u.Path)
		for _, token := range linkTokens {
			if strings.Contains(path, token) {
				return link
			}
		}

		if atsLink == "" && IsATSDomain(u.Hostname()) {
			atsLink = link
		}
	}

	return atsLink
}
