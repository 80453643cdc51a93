package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	replyMarkers = regexp.MustCompile(`(?i)^(?:\s*(?:re|fwd?|fw|aw|wg)\s*(?:\[\d+\])?\s*:\s*)+`)
)

// prefix returns at most n characters of s without splitting a rune.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}

	count := 0
	for idx := range s {
		if count == n {
			return s[:idx]
		}
		count++
	}
	return s
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func stripReplyMarkers(s string) string {
	return strings.TrimSpace(replyMarkers.ReplaceAllString(s, ""))
}

// firstValid returns the first candidate accepted by the chain of strategies.
func firstValid(strategies ...func() (string, bool)) (string, bool) {
	for _, strategy := range strategies {
		if candidate, ok := strategy(); ok {
			return candidate, true
		}
	}
	return "", false
}

// scan tries each pattern in order and returns the first capture accepted by accept.
func scan(text string, patterns []*regexp.Regexp, accept func(string) (string, bool)) (string, bool) {
	if text == "" {
		return "", false
	}

	for _, p := range patterns {
		for _, match := range p.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			if candidate, ok := accept(match[1]); ok {
				return candidate, true
			}
		}
	}
	return "", false
}
