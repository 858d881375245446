package commitmsg

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultMaxTokens caps the model's reply; a commit message is short.
const DefaultMaxTokens = 100

// ErrNilModel is returned by Generate when no model is configured.
var ErrNilModel = errors.New("commitmsg: nil model")

// Model is the single-shot completion capability the ladder is built around.
// Implementations send systemPrompt and userContent as a two-message exchange
// and return the raw reply text.
type Model interface {
	Complete(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error)

// Complete calls f.
func (f ModelFunc) Complete(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error) {
	return f(ctx, systemPrompt, userContent, maxTokens)
}

// Tier identifies the rung of the ladder that produced a message.
type Tier int

const (
	TierFullDiff Tier = iota + 1
	TierTruncatedDiff
	TierFallback
)

func (t Tier) String() string {
	switch t {
	case TierFullDiff:
		return "full-diff"
	case TierTruncatedDiff:
		return "truncated-diff"
	case TierFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// OutcomeKind tags the result of one model attempt.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	ContextOverflow
	OtherFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case ContextOverflow:
		return "context-overflow"
	default:
		return "other-failure"
	}
}

// Outcome is the result of one attempt. Message is set only for Success; Err
// only for the two failure kinds.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Err     error
}

// Classify maps a model error to an outcome kind. Any message mentioning
// "context" or "token" counts as a context overflow, except cancellation and
// deadline errors, which are failures of the call itself.
func Classify(err error) OutcomeKind {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OtherFailure
	}
	msg := err.Error()
	if strings.Contains(msg, "context") || strings.Contains(msg, "token") {
		return ContextOverflow
	}
	return OtherFailure
}

// Result is a generated message and the tier it came from.
type Result struct {
	Message string
	Tier    Tier
}

// Generator runs the generation ladder. Model is required; zero values of the
// other fields fall back to defaults.
type Generator struct {
	Model     Model
	MaxTokens int             // 0 = DefaultMaxTokens
	Budget    int             // truncation budget for tier 2; 0 = DefaultBudget
	Logger    *zerolog.Logger // nil = no logging

	// OnTier, if set, is called before each model request with the tier
	// about to be tried.
	OnTier func(Tier)
}

// Generate returns a commit message for diffText. See Run.
func (g *Generator) Generate(ctx context.Context, diffText, systemPrompt string, style Style) (string, error) {
	res, err := g.Run(ctx, diffText, systemPrompt, style)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

// Run tries the full diff, then the truncated diff, then Synthesize. It moves
// down a tier only on a context overflow; any other model error is returned
// as is. A context overflow is never returned.
func (g *Generator) Run(ctx context.Context, diffText, systemPrompt string, style Style) (Result, error) {
	if g == nil || g.Model == nil {
		return Result{}, ErrNilModel
	}
	log := g.logger()

	out := g.attempt(ctx, TierFullDiff, systemPrompt, diffText)
	switch out.Kind {
	case Success:
		return Result{Message: out.Message, Tier: TierFullDiff}, nil
	case OtherFailure:
		return Result{}, out.Err
	}

	budget := g.budget()
	truncated := Truncate(diffText, budget)
	log.Warn().Err(out.Err).
		Int("diff_bytes", len(diffText)).
		Int("budget", budget).
		Msg("Diff too large for the model context; retrying with a truncated diff")

	out = g.attempt(ctx, TierTruncatedDiff, systemPrompt, truncated)
	switch out.Kind {
	case Success:
		return Result{Message: out.Message, Tier: TierTruncatedDiff}, nil
	case OtherFailure:
		return Result{}, out.Err
	}

	log.Warn().Err(out.Err).
		Msg("Truncated diff still too large; using a heuristic commit message")
	return Result{Message: Synthesize(diffText, style), Tier: TierFallback}, nil
}

func (g *Generator) attempt(ctx context.Context, tier Tier, systemPrompt, content string) Outcome {
	if g.OnTier != nil {
		g.OnTier(tier)
	}
	log := g.logger()
	log.Debug().Stringer("tier", tier).Int("content_bytes", len(content)).Msg("Requesting commit message")
	raw, err := g.Model.Complete(ctx, systemPrompt, content, g.maxTokens())
	kind := Classify(err)
	log.Debug().Stringer("tier", tier).Stringer("outcome", kind).Msg("Model attempt finished")
	if kind != Success {
		return Outcome{Kind: kind, Err: err}
	}
	return Outcome{Kind: Success, Message: CleanResponse(raw)}
}

func (g *Generator) logger() *zerolog.Logger {
	if g.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return g.Logger
}

func (g *Generator) maxTokens() int {
	if g.MaxTokens > 0 {
		return g.MaxTokens
	}
	return DefaultMaxTokens
}

func (g *Generator) budget() int {
	if g.Budget > 0 {
		return g.Budget
	}
	return DefaultBudget
}
