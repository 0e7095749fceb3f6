package types

import (
	"context"

	"github.com/xhad/graphrag/internal/models"
)

// Core interfaces

// Embedder converts text into a fixed-dimensionality vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces answers from a prompt grounded in retrieved context.
// The streaming form delivers fragments in the exact order the model
// produced them and closes the channel when the upstream stream ends; the
// error channel carries at most one mid-stream failure after that close.
type Generator interface {
	Generate(ctx context.Context, prompt, contextText string) (string, error)
	GenerateStream(ctx context.Context, prompt, contextText string) (<-chan string, <-chan error, error)
}

// Storage persists documents and chunks as linked entities and answers
// similarity searches over stored embeddings.
type Storage interface {
	CreateDocument(ctx context.Context, id, content string, metadata map[string]interface{}) error
	CreateChunk(ctx context.Context, id, content string, embedding []float32, documentID string) error
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]models.ScoredChunk, error)
	Ping(ctx context.Context) error
}
