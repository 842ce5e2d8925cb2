// Package embedding produces dense vectors for chunk text and questions.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/lectern-labs/lectern/internal/config"
)

// System converts text into L2-normalized embedding vectors.
type System interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector width this system produces.
	Dimensions() int
}

type embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
	logger *slog.Logger
}

// New creates an embedding system backed by the OpenAI embeddings API.
func New(cfg *config.OpenAIConfig, client *openai.Client, logger *slog.Logger) System {
	return &embedder{
		client: client,
		model:  openai.EmbeddingModel(cfg.EmbeddingModel),
		dims:   cfg.Dimensions,
		logger: logger.With("system", "embedding"),
	}
}

func (e *embedder) Dimensions() int {
	return e.dims
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	raw := resp.Data[0].Embedding
	vector := make([]float32, len(raw))
	for i := range raw {
		vector[i] = float32(raw[i])
	}
	normalize(vector)

	return vector, nil
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(runtime.NumCPU(), len(texts)), 1))

	for i, text := range texts {
		g.Go(func() error {
			vector, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			vectors[i] = vector
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("batch embedded", "texts", len(texts))
	return vectors, nil
}

// normalize scales the vector to unit length so inner product equals cosine
// similarity.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}

	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
