package commitmsg

import (
	"regexp"
	"strings"
)

// finalChannelMarker precedes the user-facing answer of models that emit
// channel-tagged output.
const finalChannelMarker = "<|channel|>final<|message|>"

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// CleanResponse strips model reasoning from a raw response. A <think>…</think>
// block is removed if present; otherwise everything through the final channel
// marker is dropped. Only one of the two applies. The result is trimmed.
func CleanResponse(raw string) string {
	if thinkBlock.MatchString(raw) {
		return strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
	}
	if i := strings.LastIndex(raw, finalChannelMarker); i >= 0 {
		return strings.TrimSpace(raw[i+len(finalChannelMarker):])
	}
	return strings.TrimSpace(raw)
}
