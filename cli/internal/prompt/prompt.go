// Package prompt builds the system prompt that instructs the model how to
// write a commit message for a staged diff.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"lmcommit/cli/internal/commitmsg"
)

// DefaultLocale and DefaultMaxLength are used when Format receives empty or
// non-positive values.
const (
	DefaultLocale    = "en"
	DefaultMaxLength = 50
)

const header = "Generate a concise git commit message written in present tense for the following code diff with the given specifications below:"

// conventionalTypes maps each conventional commit type to its description.
// Marshalled with encoding/json, so keys appear sorted.
var conventionalTypes = map[string]string{
	"docs":     "Documentation only changes",
	"style":    "Changes that do not affect the meaning of the code (white-space, formatting, missing semi-colons, etc)",
	"refactor": "A code change that neither fixes a bug nor adds a feature",
	"perf":     "A code change that improves performance",
	"test":     "Adding missing tests or correcting existing tests",
	"build":    "Changes that affect the build system or external dependencies",
	"ci":       "Changes to our CI configuration files and scripts",
	"chore":    "Other changes that don't modify src or test files",
	"revert":   "Reverts a previous commit",
	"feat":     "A new feature",
	"fix":      "A bug fix",
}

var outputFormats = map[commitmsg.Style]string{
	commitmsg.StyleLegacy:       "<commit message>",
	commitmsg.StyleConventional: "<type>(<optional scope>): <commit message>",
}

// Format returns the system prompt for the given message language, maximum
// message length and commit style. An unknown style is treated as legacy.
func Format(locale string, maxLength int, style commitmsg.Style) string {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	style = commitmsg.ParseStyle(string(style), commitmsg.StyleLegacy)
	lines := []string{
		header,
		"Message language: " + locale,
		fmt.Sprintf("The message should consist of a summary and a detailed body. The summary must be a maximum of 50 characters. The detailed body can be empty. The total of summary and detailed body must be a maximum of %d characters. Exclude anything unnecessary such as translation. Your entire response will be passed directly into git commit. No need to include any diff, please make sure the response the commit message only.", maxLength),
	}
	if style == commitmsg.StyleConventional {
		lines = append(lines, "Choose a type from the type-to-description JSON below that best describes the git diff:\n"+typeTable())
	}
	lines = append(lines, "The output response must be in format:\n"+outputFormats[style])
	return strings.Join(lines, "\n")
}

func typeTable() string {
	b, err := json.MarshalIndent(conventionalTypes, "", "  ")
	if err != nil {
		// A map[string]string always marshals.
		panic(err)
	}
	return string(b)
}
