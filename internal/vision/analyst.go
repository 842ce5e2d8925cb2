package vision

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/encoding"
	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/lectern-labs/lectern/internal/render"
	"github.com/lectern-labs/lectern/pkg/storage"
	"github.com/lectern-labs/lectern/workflow"
)

// Analyst runs the vision-capable inference call against rendered page
// images.
type Analyst interface {
	// Analyze downloads the candidate page images for the paper and asks
	// the vision model to explain their visual elements in terms of the
	// question. Failures wrap workflow.ErrVisionFailed.
	Analyze(ctx context.Context, question, hash string, pages []int) (string, error)
}

type analyst struct {
	agentCfg gaconfig.AgentConfig
	storage  storage.System
	logger   *slog.Logger
}

// NewAnalyst creates the visual analysis system.
func NewAnalyst(agentCfg gaconfig.AgentConfig, store storage.System, logger *slog.Logger) Analyst {
	return &analyst{
		agentCfg: agentCfg,
		storage:  store,
		logger:   logger.With("system", "vision"),
	}
}

func (a *analyst) Analyze(ctx context.Context, question, hash string, pages []int) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("%w: no candidate pages", workflow.ErrVisionFailed)
	}

	images := make([]string, 0, len(pages))
	for _, page := range pages {
		uri, err := a.pageDataURI(ctx, hash, page)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %w", workflow.ErrVisionFailed, page, err)
		}
		images = append(images, uri)
	}

	vision, err := agent.New(&a.agentCfg)
	if err != nil {
		return "", fmt.Errorf("%w: create agent: %w", workflow.ErrVisionFailed, err)
	}

	prompt := fmt.Sprintf(
		"You are a research paper visual analyst. Analyze the provided page "+
			"images and explain tables, figures, equations, and diagrams in "+
			"detail. Always reference the page number in your analysis. "+
			"Answer in the same language as the question.\n\n"+
			"Question: %s\n\nPages provided, in order: %v",
		question, pages,
	)

	resp, err := vision.Vision(ctx, prompt, images)
	if err != nil {
		return "", fmt.Errorf("%w: vision call: %w", workflow.ErrVisionFailed, err)
	}

	a.logger.Info("visual analysis complete", "hash", hash, "pages", pages)
	return resp.Content(), nil
}

func (a *analyst) pageDataURI(ctx context.Context, hash string, page int) (string, error) {
	blob, err := a.storage.Download(ctx, render.PageKey(hash, page))
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	uri, err := encoding.EncodeImageDataURI(data, document.PNG)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	return uri, nil
}
