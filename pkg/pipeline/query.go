package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xhad/graphrag/internal/errs"
	"github.com/xhad/graphrag/internal/models"
	"github.com/xhad/graphrag/internal/types"
)

// NoResultsMessage is the terminal event payload when retrieval finds
// nothing; the generation model is not called in that case.
const NoResultsMessage = "No relevant information found."

// QuerierConfig represents the configuration for the query pipeline.
type QuerierConfig struct {
	TopK int
}

// Querier answers natural-language queries with a streamed, context-grounded
// response.
type Querier struct {
	config    QuerierConfig
	embedder  types.Embedder
	store     types.Storage
	generator types.Generator
	logger    *zap.Logger
}

// NewQuerier creates a query pipeline.
func NewQuerier(config QuerierConfig, embedder types.Embedder, store types.Storage, generator types.Generator, logger *zap.Logger) *Querier {
	if config.TopK == 0 {
		config.TopK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Querier{
		config:    config,
		embedder:  embedder,
		store:     store,
		generator: generator,
		logger:    logger,
	}
}

// Query embeds text, retrieves the most similar chunks and streams the
// generated answer. Fragments arrive in model production order; the stream
// always terminates with exactly one Context event carrying the retrieved
// context, except when a mid-stream failure replaces it with a final
// "Error: ..." fragment. Embedding or search failures abort the query
// before any event is produced.
func (q *Querier) Query(ctx context.Context, text string) (<-chan models.Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query text", errs.ErrValidation)
	}

	embedding, err := q.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	hits, err := q.store.SearchSimilar(ctx, embedding, q.config.TopK)
	if err != nil {
		return nil, err
	}
	q.logger.Info("similar chunks retrieved", zap.Int("hits", len(hits)))

	events := make(chan models.Event)

	if len(hits) == 0 {
		go func() {
			defer close(events)
			select {
			case events <- models.Event{Chunk: NoResultsMessage}:
			case <-ctx.Done():
			}
		}()
		return events, nil
	}

	contents := make([]string, len(hits))
	for i, hit := range hits {
		contents[i] = hit.Content
	}
	contextText := strings.Join(contents, "\n")

	fragments, streamErr, err := q.generator.GenerateStream(ctx, text, contextText)
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(events)

		for fragment := range fragments {
			if fragment == "" {
				continue
			}
			select {
			case events <- models.Event{Chunk: fragment}:
			case <-ctx.Done():
				return
			}
		}

		if err := <-streamErr; err != nil {
			q.logger.Warn("generation stream failed", zap.Error(err))
			select {
			case events <- models.Event{Chunk: fmt.Sprintf("Error: %v", err)}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case events <- models.Event{Context: contextText}:
		case <-ctx.Done():
		}
	}()

	return events, nil
}
