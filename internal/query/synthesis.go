package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lectern-labs/lectern/internal/config"
	"github.com/lectern-labs/lectern/workflow"
)

// Synthesizer combines the merged contexts and any visual finding into the
// final answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, state workflow.State) (string, error)
}

type synthesizer struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewSynthesizer creates the answer synthesis step.
func NewSynthesizer(cfg *config.OpenAIConfig, client *openai.Client, logger *slog.Logger) Synthesizer {
	return &synthesizer{
		client: client,
		model:  cfg.ChatModel,
		logger: logger.With("system", "synthesis"),
	}
}

func (s *synthesizer) Synthesize(ctx context.Context, state workflow.State) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a research paper analysis assistant. " +
					"Synthesize the provided contexts and visual analysis " +
					"into a comprehensive answer. " +
					"Always cite page numbers when referencing specific content. " +
					"Answer in the same language as the question.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: composePrompt(state),
			},
		},
		MaxTokens: 3000,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", workflow.ErrSynthesisFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", workflow.ErrSynthesisFailed)
	}

	s.logger.Info("synthesis complete", "contexts", len(state.Contexts))
	return resp.Choices[0].Message.Content, nil
}

func composePrompt(state workflow.State) string {
	contextText := "검색된 컨텍스트가 없습니다."
	if len(state.Contexts) > 0 {
		parts := make([]string, len(state.Contexts))
		for i, c := range state.Contexts {
			parts[i] = describeChunk(c)
		}
		contextText = strings.Join(parts, "\n\n---\n\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## 질문\n%s\n\n## 검색된 컨텍스트\n%s", state.Question, contextText)

	if state.Finding != "" {
		fmt.Fprintf(&b, "\n\n## 시각적 분석 결과\n%s", state.Finding)
	}

	return b.String()
}

// describeChunk labels each chunk with its provenance so the model can cite
// pages for local chunks and URLs for web results.
func describeChunk(c workflow.Chunk) string {
	if c.Local() {
		return fmt.Sprintf("[출처: p.%d]\n%s", c.Page, c.Content)
	}
	if c.Locator != "" {
		return fmt.Sprintf("%s\n(%s)", c.Content, c.Locator)
	}
	return c.Content
}
