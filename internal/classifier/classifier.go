// Package classifier assigns a job-search category to an email using ordered
// keyword rules. The first group with a matching pattern wins.
package classifier

import (
	"regexp"

	"github.com/spigell/job-inbox/internal/tracker"
)

type group struct {
	category tracker.Category
	patterns []*regexp.Regexp
}

// Result explains a classification.
type Result struct {
	Category tracker.Category `json:"category"`
	// Pattern is the expression that decided the category. Empty for unknown.
	Pattern string `json:"pattern,omitempty"`
}

// groups are evaluated in order. Offers and interviews come before rejections
// because a rejection often quotes the subject of an earlier interview thread.
var groups = []group{
	{
		category: tracker.CategoryOffer,
		patterns: compile(
			`\b(?:job|employment)\s+offer\b`,
			`\boffer\s+(?:letter|of\s+employment)\b`,
			`\bpleased\s+to\s+(?:offer|extend)\b`,
			`\bextend(?:ing)?\s+(?:you\s+)?an?\s+offer\b`,
			`\bcongratulations\b[^\n]{0,80}\boffer\b`,
			`\b(?:accept|review)\s+(?:the|your|this)\s+offer\b`,
		),
	},
	{
		category: tracker.CategoryInterviewInvitation,
		patterns: compile(
			`\binterview\s+(?:invitation|invite|request)\b`,
			`\binvit(?:e|ed|ing|ation)\b[^\n]{0,40}\binterview`,
			`\bschedule\s+(?:an?\s+|your\s+|the\s+)?(?:interview|phone\s+screen|call|chat)\b`,
			`\b(?:phone|video|technical|onsite|on-site|virtual|final)\s+(?:interview|screen)\b`,
			`\bavailability\s+for\s+(?:an?\s+)?(?:interview|call|conversation)\b`,
			`\bmeet\s+with\s+(?:the|our)\s+(?:team|hiring\s+manager)\b`,
		),
	},
	{
		category: tracker.CategoryRejection,
		patterns: compile(
			`\bunfortunately\b`,
			`\bregret\s+to\s+inform\b`,
			`\b(?:decided|chosen)\s+to\s+(?:move|moving|go|proceed)\s+forward\s+with\s+(?:other|another|a\s+different)\b`,
			`\b(?:will\s+)?not\s+(?:be\s+)?(?:moving|move|proceeding|proceed|progressing)\s+forward\b`,
			`\bdecided\s+not\s+to\s+(?:proceed|move\s+forward|pursue)\b`,
			`\bno\s+longer\s+(?:under\s+consideration|being\s+considered|considering)\b`,
			`\bposition\s+has\s+(?:been|now\s+been)\s+filled\b`,
			`\bnot\s+(?:been\s+)?selected\b`,
			`\bpursue\s+other\s+candidates\b`,
		),
	},
	{
		category: tracker.CategoryApplicationConfirmation,
		patterns: compile(
			`\bthank\s+you\s+for\s+(?:your\s+)?(?:applying|application|interest\s+in)\b`,
			`\bthanks\s+for\s+(?:applying|your\s+application)\b`,
			`\b(?:we(?:'ve|\s+have)?\s+)?(?:successfully\s+)?received\s+your\s+application\b`,
			`\bapplication\s+(?:has\s+been\s+|was\s+)?(?:received|submitted)\b`,
			`\bapplication\s+confirmation\b`,
			`\byou(?:'ve|\s+have)\s+(?:successfully\s+)?applied\b`,
		),
	},
	{
		category: tracker.CategoryFollowUp,
		patterns: compile(
			`\bfollow(?:ing)?[\s-]up\b`,
			`\bcheck(?:ing)?\s+in\b`,
			`\bstatus\s+(?:update|of\s+your\s+application)\b`,
			`\b(?:application\s+is\s+)?(?:still\s+)?under\s+review\b`,
			`\bstill\s+(?:reviewing|considering)\b`,
			`\b(?:complete|finish)\s+(?:your|the)\s+(?:application|assessment|profile|questionnaire)\b`,
			`\b(?:coding\s+challenge|take[\s-]home|online\s+assessment)\b`,
		),
	},
}

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// Classify returns the category of the email. It never fails: emails matching
// no rule are unknown.
func Classify(email tracker.Email) tracker.Category {
	return Explain(email).Category
}

// Explain classifies the email and reports the pattern that matched.
func Explain(email tracker.Email) Result {
	text := email.Subject + "\n" + email.Body

	for _, g := range groups {
		for _, p := range g.patterns {
			if p.MatchString(text) {
				return Result{Category: g.category, Pattern: p.String()}
			}
		}
	}

	return Result{Category: tracker.CategoryUnknown}
}

// ShouldProcess reports whether the email belongs to a known category.
func ShouldProcess(email tracker.Email) bool {
	return Classify(email) != tracker.CategoryUnknown
}
