package diff

import (
	"strings"
)

// HeaderPrefix starts every per-file section in git's unified diff output.
const HeaderPrefix = "diff --git "

// Section is one file's slice of a unified diff, header line included.
// Path is the destination path from the header ("" when the section has no
// parsable header, e.g. non-git diff input).
type Section struct {
	Path string
	Text string
}

// SplitSections splits diff text at lines starting with "diff --git ".
// Concatenating the Text of all sections reproduces the input exactly.
// Anything before the first header stays with the first section. Input with
// no header at all yields a single section; empty input yields nil.
func SplitSections(text string) []Section {
	if text == "" {
		return nil
	}
	var (
		sections []Section
		cur      strings.Builder
		curPath  string
		started  bool
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		sections = append(sections, Section{Path: curPath, Text: cur.String()})
		cur.Reset()
		curPath = ""
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		if IsHeader(line) {
			if started {
				flush()
			}
			started = true
			curPath, _ = HeaderPath(line)
		}
		cur.WriteString(line)
	}
	flush()
	return sections
}

// IsHeader reports whether line opens a file section.
func IsHeader(line string) bool {
	return strings.HasPrefix(line, HeaderPrefix)
}

// HeaderPath returns the destination path of a "diff --git a/<p> b/<p>" line
// with the "b/" prefix removed. ok is false when no destination can be found.
func HeaderPath(line string) (path string, ok bool) {
	if !IsHeader(line) {
		return "", false
	}
	rest := strings.TrimRight(strings.TrimPrefix(line, HeaderPrefix), "\r\n")
	// The last " b/" wins so paths containing spaces survive.
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		p := rest[i+len(" b/"):]
		if p != "" {
			return p, true
		}
		return "", false
	}
	parts := strings.Fields(rest)
	if len(parts) >= 2 {
		if p := trimDiffPath(parts[len(parts)-1]); p != "" {
			return p, true
		}
	}
	return "", false
}

func trimDiffPath(s string) string {
	if len(s) >= 2 && (s[0] == 'a' || s[0] == 'b') && s[1] == '/' {
		return s[2:]
	}
	return s
}
