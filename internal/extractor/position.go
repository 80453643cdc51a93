package extractor

import (
	"regexp"
	"strings"

	"github.com/spigell/job-inbox/internal/tracker"
)

const (
	titleWord       = `(?:(?i:sr|jr|snr|asst|assoc)\.|[\p{L}\p{N}&/+#()'’]+(?:[.\-][\p{L}\p{N}&/+#()'’]+)*)`
	// title captures up to ten words.
	title           = `(` + titleWord + `(?:[ \t]+` + titleWord + `){0,9}?)`
	titleEnd        = `(?:[ \t]+(?i:position|role|opening|opportunity|job|at|with|in|on|and)\b|[,;!?\n]|\.(?:\s|$)|[ \t]+[-–—|]|[ \t]*$)`
	titleSubjectEnd = `(?:[ \t]+(?i:at|with|position|role)\b|[ \t]*@|[ \t]+[-–—|(]|[,;!?]|[ \t]*$)`

	minPositionLen = 3
	maxPositionLen = 100
)

var (
	bodyPositionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:\bfor\s+the\s+)` + title + `(?i:[ \t]+(?:position|role|opening|opportunity)\b)`),
		regexp.MustCompile(`(?i:\b(?:position|role|job\s+title)[ \t]*:[ \t]*)` + title + `(?:[ \t]*(?:[\n,;|]|$)|\.(?:\s|$)|[ \t]+[-–—])`),
		regexp.MustCompile(`(?i:\bappl(?:ied|ying)\s+(?:for|to)\s+(?:the\s+)?(?:position\s+of\s+)?)` + title + titleEnd),
		regexp.MustCompile(`(?i:\bapplication\s+for\s+(?:the\s+)?(?:position\s+of\s+)?)` + title + titleEnd),
		regexp.MustCompile(`(?i:\bthe\s+)` + title + `(?i:[ \t]+(?:role|position)[ \t]+(?:at|with)\b)`),
		regexp.MustCompile(`(?i:\binterested\s+in\s+(?:the\s+)?(?:position\s+of\s+)?)` + title + titleEnd),
	}

	subjectPositionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:\bapplication[ \t]*:[ \t]*)` + title + titleSubjectEnd),
		regexp.MustCompile(`^[ \t]*` + title + `(?:[ \t]+(?i:at)[ \t]+|[ \t]*@[ \t]*)`),
		regexp.MustCompile(`(?i:\bapplication\s+for\s+(?:the\s+)?(?:position\s+of\s+)?)` + title + titleSubjectEnd),
		regexp.MustCompile(`(?i:\b(?:role|position|job)[ \t]*:[ \t]*)` + title + titleSubjectEnd),
	}

	jobKeywords = regexp.MustCompile(`(?i)\b(?:engineer(?:ing)?|developer|designer|analyst|manager|director|specialist|architect|lead|senior|sr|junior|jr|principal|staff|intern(?:ship)?|devops|sre|data|product|sales|marketing|ux|ui|scientist|consultant|administrator|associate|coordinator|technician|programmer|researcher|head|vp|officer|executive|recruiter|accountant|qa|tester|frontend|front-end|backend|back-end|full[\s-]?stack|software|platform|security|cloud|mobile|ios|android|ml|ai)\b`)

	notPosition = regexp.MustCompile(`(?i)^(?:thank|thanks|application|applying|regarding|re|fwd?|fw|update|status|confirmation|hi|hello|dear|this|that)\b|\b(?:you|your|we|our|my|received|receipt)\b`)

	subjectBoilerplatePrefix = regexp.MustCompile(`(?i)^(?:(?:your\s+)?application(?:\s+(?:received|confirmation|update|status|submitted))?|confirmation|thank\s+you(?:\s+for\s+(?:applying|your\s+application))?|thanks|update|your)\s*[-–—:|!]\s*`)
	subjectTrailer           = regexp.MustCompile(`\s+[-–—|]\s+.*$`)

	leadingArticle = regexp.MustCompile(`(?i)^(?:a|an|the)\s+`)
	trailingNoun   = regexp.MustCompile(`(?i)\s+(?:position|role|opening|job)$`)
)

// Position resolves the job title from the subject and body.
func Position(subject, body string) string {
	position, ok := firstValid(
		func() (string, bool) { return scan(body, bodyPositionPatterns, acceptPosition) },
		func() (string, bool) { return scan(stripReplyMarkers(subject), subjectPositionPatterns, acceptPosition) },
		func() (string, bool) { return positionFromCleanedSubject(subject) },
	)
	if ok {
		return position
	}
	return tracker.UnknownPosition
}

func positionFromCleanedSubject(subject string) (string, bool) {
	s := stripReplyMarkers(subject)
	for {
		stripped := subjectBoilerplatePrefix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = strings.TrimSpace(stripped)
	}

	s = cleanPosition(subjectTrailer.ReplaceAllString(s, ""))
	if !jobKeywords.MatchString(s) || !ValidPosition(s) {
		return "", false
	}
	return s, true
}

// ValidPosition reports whether a cleaned candidate looks like a job title.
func ValidPosition(s string) bool {
	n := runeLen(s)
	if n < minPositionLen || n >= maxPositionLen {
		return false
	}
	if notPosition.MatchString(s) {
		return false
	}
	return jobKeywords.MatchString(s) || len(strings.Fields(s)) >= 2
}

func acceptPosition(candidate string) (string, bool) {
	cleaned := cleanPosition(candidate)
	if !ValidPosition(cleaned) {
		return "", false
	}
	return cleaned, true
}

func cleanPosition(s string) string {
	s = strings.Trim(collapseSpaces(s), " \"'“”‘’.,;:-–—|")
	s = leadingArticle.ReplaceAllString(s, "")
	s = trailingNoun.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
