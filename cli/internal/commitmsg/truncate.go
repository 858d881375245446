package commitmsg

import (
	"strings"
	"unicode/utf8"

	"lmcommit/cli/internal/diff"
)

// DefaultBudget is the truncation budget, in characters, used for the second tier.
const DefaultBudget = 3000

const (
	// TruncatedMarker ends a diff that was cut without regard to file sections.
	TruncatedMarker = "... (truncated)"
	// TruncatedSizeMarker ends a diff whose middle file sections were dropped.
	TruncatedSizeMarker = "... (truncated due to size)"
)

// tailSections is how many trailing file sections survive truncation.
const tailSections = 3

// Truncate shrinks diffText to budget characters (runes). Input within budget
// is returned unchanged. A diff with a single file section (or in a format
// without "diff --git" headers) is cut after budget runes and gets
// TruncatedMarker. Otherwise the first section and the last three are kept in
// order, the middle is dropped, the result is cut if still too long, and
// TruncatedSizeMarker is appended. A non-positive budget means DefaultBudget.
func Truncate(diffText string, budget int) string {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if utf8.RuneCountInString(diffText) <= budget {
		return diffText
	}
	sections := diff.SplitSections(diffText)
	if len(sections) <= 1 {
		return truncateRunes(diffText, budget) + TruncatedMarker
	}

	keep := tailSections
	if n := len(sections) - 1; n < keep {
		keep = n
	}
	var b strings.Builder
	b.WriteString(sections[0].Text)
	for _, s := range sections[len(sections)-keep:] {
		b.WriteString(s.Text)
	}
	return truncateRunes(b.String(), budget) + TruncatedSizeMarker
}

// truncateRunes returns the first limit runes of s.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
