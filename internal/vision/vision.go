// Package vision implements the cost-ordered routing decision for visual
// analysis, the page selection heuristic, and the analyst call itself.
//
// The routing decision has three tiers. The first scans the question for
// visual-reference vocabulary, the second inspects retrieved chunk metadata,
// and only when both deterministic tiers pass does a paid judgment call run.
// A failed judgment call resolves to not needed; a missed visual answer is
// preferable to a failed request.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lectern-labs/lectern/internal/config"
	"github.com/lectern-labs/lectern/pkg/formatting"
	"github.com/lectern-labs/lectern/workflow"
)

// visualTerms is the Tier 1 vocabulary. Korean first since that is the
// primary question language for this corpus, then English equivalents.
var visualTerms = []string{
	"표", "그림", "그래프", "도표", "수식", "차트", "이미지", "도식",
	"table", "figure", "chart", "graph", "diagram",
	"equation", "formula", "image", "picture",
}

// Tier identifies which stage of the routing decision produced a verdict.
type Tier int

// Routing decision tiers.
const (
	TierVocabulary Tier = 1
	TierMetadata   Tier = 2
	TierJudgment   Tier = 3
)

// Decision is the outcome of the routing procedure.
type Decision struct {
	Verdict workflow.Verdict
	Tier    Tier
}

// Router decides whether a question needs visual analysis.
type Router interface {
	// Decide evaluates the tiers in cost order against the question and the
	// merged retrieval contexts. It always returns a terminal verdict.
	Decide(ctx context.Context, question string, contexts []workflow.Chunk) Decision
}

type judgment struct {
	Vision bool `json:"vision"`
}

type router struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewRouter creates the three-tier routing engine. The judgment tier uses
// the configured chat model.
func NewRouter(cfg *config.OpenAIConfig, client *openai.Client, logger *slog.Logger) Router {
	return &router{
		client: client,
		model:  cfg.ChatModel,
		logger: logger.With("system", "vision"),
	}
}

func (r *router) Decide(ctx context.Context, question string, contexts []workflow.Chunk) Decision {
	if matchesVocabulary(question) {
		r.logger.Info("vision verdict", "verdict", workflow.VisionNeeded, "tier", TierVocabulary)
		return Decision{Verdict: workflow.VisionNeeded, Tier: TierVocabulary}
	}

	if hasVisualChunk(contexts) {
		r.logger.Info("vision verdict", "verdict", workflow.VisionNeeded, "tier", TierMetadata)
		return Decision{Verdict: workflow.VisionNeeded, Tier: TierMetadata}
	}

	verdict := r.judge(ctx, question, contexts)
	r.logger.Info("vision verdict", "verdict", verdict, "tier", TierJudgment)
	return Decision{Verdict: verdict, Tier: TierJudgment}
}

func matchesVocabulary(question string) bool {
	lowered := strings.ToLower(question)
	for _, term := range visualTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

func hasVisualChunk(contexts []workflow.Chunk) bool {
	for _, c := range contexts {
		if c.Local() && c.Kind.Visual() {
			return true
		}
	}
	return false
}

// judge runs the paid Tier 3 classification. Any failure, including
// malformed output, resolves to not needed.
func (r *router) judge(ctx context.Context, question string, contexts []workflow.Chunk) workflow.Verdict {
	var excerpt strings.Builder
	for i, c := range contexts {
		if i == 8 {
			break
		}
		excerpt.WriteString(c.Content)
		excerpt.WriteString("\n---\n")
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a routing assistant. Determine if the user's question " +
					"about a research paper requires visual analysis of tables, figures, " +
					"charts, equations, or diagrams. " +
					`Respond with JSON: {"vision": true} or {"vision": false}.`,
			},
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(
					"Question: %s\n\nRetrieved context:\n%s",
					question, excerpt.String(),
				),
			},
		},
		Temperature: 0,
		MaxTokens:   20,
	})
	if err != nil {
		r.logger.Warn("judgment call failed, defaulting", "error", err)
		return workflow.VisionNotNeeded
	}
	if len(resp.Choices) == 0 {
		r.logger.Warn("judgment call returned no choices, defaulting")
		return workflow.VisionNotNeeded
	}

	verdict, err := formatting.Parse[judgment](resp.Choices[0].Message.Content)
	if err != nil {
		r.logger.Warn("judgment response malformed, defaulting", "error", err)
		return workflow.VisionNotNeeded
	}

	if verdict.Vision {
		return workflow.VisionNeeded
	}
	return workflow.VisionNotNeeded
}
