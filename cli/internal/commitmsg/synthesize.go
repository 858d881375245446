package commitmsg

import (
	"fmt"
	"strings"

	"lmcommit/cli/internal/diff"
)

// unknownPath stands in for a header whose destination path cannot be read.
const unknownPath = "files"

// commentOpeners are the line prefixes treated as the start of a comment.
var commentOpeners = []string{"//", "/*", "* ", "#", "<!--", "--", `"""`}

// category is one rung of the fallback classification.
type category struct {
	typ     string
	summary string
}

// diffStats is what Synthesize reads out of a diff.
type diffStats struct {
	files   map[string]struct{}
	added   []string // lowercased content of "+" lines, marker stripped
	removed int
}

// Synthesize builds a commit message from diffText without a model. The type
// is picked by the first matching rule: feat, fix, test, docs, refactor, and
// finally the default (chore for conventional, none for legacy). The summary
// carries the number of distinct files touched. The result is deterministic.
func Synthesize(diffText string, style Style) string {
	st := scan(diffText)
	c := classify(diffText, st)
	summary := fmt.Sprintf("%s (%d files)", c.summary, len(st.files))
	if style != StyleConventional {
		return summary
	}
	typ := c.typ
	if typ == "" {
		typ = "chore"
	}
	return typ + ": " + summary
}

func scan(diffText string) diffStats {
	st := diffStats{files: make(map[string]struct{})}
	inHunk := false
	for _, line := range strings.Split(diffText, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case diff.IsHeader(line):
			p, ok := diff.HeaderPath(line)
			if !ok {
				p = unknownPath
			}
			st.files[p] = struct{}{}
			inHunk = false
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk:
			// index, mode, ---/+++ lines
		case strings.HasPrefix(line, "+"):
			st.added = append(st.added, strings.ToLower(line[1:]))
		case strings.HasPrefix(line, "-"):
			st.removed++
		}
	}
	return st
}

func classify(diffText string, st diffStats) category {
	lower := strings.ToLower(diffText)
	switch {
	case strings.Contains(diffText, "feat:") || anyAdded(st, "feature"):
		return category{"feat", "add new feature"}
	case anyAdded(st, "fix") || strings.Contains(diffText, "fix:"):
		return category{"fix", "fix bug"}
	case anyAdded(st, "test"):
		return category{"test", "add tests"}
	case anyAddedComment(st) || strings.Contains(lower, "docs"):
		return category{"docs", "update documentation"}
	case st.removed > len(st.added):
		return category{"refactor", "refactor code"}
	default:
		return category{"", "update code"}
	}
}

func anyAdded(st diffStats, word string) bool {
	for _, l := range st.added {
		if strings.Contains(l, word) {
			return true
		}
	}
	return false
}

func anyAddedComment(st diffStats) bool {
	for _, l := range st.added {
		t := strings.TrimSpace(l)
		if t == "*" {
			return true
		}
		for _, p := range commentOpeners {
			if strings.HasPrefix(t, p) {
				return true
			}
		}
	}
	return false
}
