// Package commitmsg turns a staged diff into a commit message. Generation runs
// a three-tier ladder around a single model call: the full diff, then a
// truncated diff when the model reports a context overflow, then a heuristic
// message derived from the diff itself.
package commitmsg

import "strings"

// Style selects the commit message format.
type Style string

const (
	// StyleLegacy is a free-text message.
	StyleLegacy Style = "legacy"
	// StyleConventional prefixes the message with a Conventional Commits type.
	StyleConventional Style = "conventional"
)

// styles lists the accepted style values.
var styles = []Style{StyleLegacy, StyleConventional}

// ParseStyle returns the style named by s (case-insensitive), or def when s is
// empty or unknown.
func ParseStyle(s string, def Style) Style {
	norm := Style(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range styles {
		if st == norm {
			return st
		}
	}
	return def
}
