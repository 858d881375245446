// Package tokens estimates how much of a model's context window a commit
// message request will use. The check is advisory: the generation ladder in
// commitmsg still decides what to do when the model actually overflows.
package tokens

import (
	"fmt"
	"math"
)

// bytesPerToken is the divisor for the byte-based estimator
// (roughly 4 bytes per token for typical English and code).
const bytesPerToken = 4

// Estimate returns an estimated token count for text: (len(text)+3)/4 bytes,
// so 1–4 bytes map to 1 token, 5–8 to 2, and so on. Empty text returns 0.
func Estimate(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + bytesPerToken - 1) / bytesPerToken
}

// Usage is the estimated token footprint of one request.
type Usage struct {
	System int // system prompt
	Diff   int // user content (the diff)
	Reply  int // tokens reserved for the reply (max_tokens)
}

// Measure estimates the usage of sending systemPrompt and diffText with
// replyTokens reserved for the answer. Negative replyTokens count as 0.
func Measure(systemPrompt, diffText string, replyTokens int) Usage {
	if replyTokens < 0 {
		replyTokens = 0
	}
	return Usage{System: Estimate(systemPrompt), Diff: Estimate(diffText), Reply: replyTokens}
}

// Total returns the sum of all parts, saturating at math.MaxInt.
func (u Usage) Total() int {
	total := 0
	for _, n := range []int{u.System, u.Diff, u.Reply} {
		if n < 0 {
			continue
		}
		if n > math.MaxInt-total {
			return math.MaxInt
		}
		total += n
	}
	return total
}

// threshold returns ceil(contextLimit * warnThreshold).
func threshold(contextLimit int, warnThreshold float64) int {
	limit := float64(contextLimit) * warnThreshold
	t := int(limit)
	if limit > float64(t) {
		t++
	}
	return t
}

// WarnIfOver returns a non-empty warning when u.Total() meets or exceeds
// warnThreshold of contextLimit. contextLimit <= 0 disables the check.
func WarnIfOver(u Usage, contextLimit int, warnThreshold float64) string {
	if contextLimit <= 0 {
		return ""
	}
	total := u.Total()
	if total < threshold(contextLimit, warnThreshold) {
		return ""
	}
	return fmt.Sprintf("estimated tokens %d (system %d + diff %d + reply %d) reach %.0f%% of context limit %d",
		total, u.System, u.Diff, u.Reply, warnThreshold*100, contextLimit)
}
