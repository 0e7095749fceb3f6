// Package pipeline orchestrates ingestion (extract, chunk, embed, persist)
// and querying (embed, retrieve, stream a grounded answer).
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xhad/graphrag/internal/errs"
	"github.com/xhad/graphrag/internal/models"
	"github.com/xhad/graphrag/internal/pool"
	"github.com/xhad/graphrag/internal/types"
	"github.com/xhad/graphrag/pkg/chunker"
	"github.com/xhad/graphrag/pkg/extractor"
)

// IngestorConfig represents the configuration for the ingestion pipeline.
type IngestorConfig struct {
	ChunkSize int
}

// Ingestor turns raw document bytes into a persisted Document with embedded
// chunks. Chunk embedding and persistence run on a worker pool shared across
// all in-flight ingestions.
type Ingestor struct {
	config   IngestorConfig
	embedder types.Embedder
	store    types.Storage
	workers  *pool.Pool
	logger   *zap.Logger
}

// NewIngestor creates an ingestion pipeline.
func NewIngestor(config IngestorConfig, embedder types.Embedder, store types.Storage, workers *pool.Pool, logger *zap.Logger) *Ingestor {
	if config.ChunkSize == 0 {
		config.ChunkSize = chunker.DefaultTargetSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		config:   config,
		embedder: embedder,
		store:    store,
		workers:  workers,
		logger:   logger,
	}
}

// Ingest extracts text from raw, persists a Document, then embeds and
// persists every chunk concurrently. The call is not transactional: the
// document and any successfully processed chunks stay persisted even when
// some chunks fail, and the returned error then reports the partial failure.
func (in *Ingestor) Ingest(ctx context.Context, raw []byte, contentType string, metadata map[string]interface{}) (models.IngestResult, error) {
	text, err := extractor.Extract(raw, contentType)
	if err != nil {
		return models.IngestResult{}, err
	}
	if strings.TrimSpace(text) == "" {
		return models.IngestResult{}, fmt.Errorf("%w: document has no extractable text", errs.ErrValidation)
	}

	docID := uuid.NewString()
	if err := in.store.CreateDocument(ctx, docID, text, metadata); err != nil {
		return models.IngestResult{}, err
	}

	chunks := chunker.Chunk(text, in.config.ChunkSize)
	in.logger.Info("ingesting document",
		zap.String("document_id", docID),
		zap.Int("chunks", len(chunks)))

	// Chunk IDs carry the original text order; completion order across the
	// pool is unspecified.
	chunkErrs := make([]error, len(chunks))
	var wg sync.WaitGroup
	for i, content := range chunks {
		wg.Add(1)
		go func(index int, content string) {
			defer wg.Done()
			chunkID := fmt.Sprintf("%s_chunk_%d", docID, index)
			chunkErrs[index] = in.workers.SubmitWait(ctx, func(ctx context.Context) error {
				return in.processChunk(ctx, chunkID, content, docID)
			})
			if chunkErrs[index] != nil {
				in.logger.Error("chunk processing failed",
					zap.String("chunk_id", chunkID),
					zap.Error(chunkErrs[index]))
			}
		}(i, content)
	}
	wg.Wait()

	failed := 0
	for _, err := range chunkErrs {
		if err != nil {
			failed++
		}
	}

	result := models.IngestResult{
		DocumentID:   docID,
		ChunkCount:   len(chunks),
		FailedChunks: failed,
	}
	if failed > 0 {
		return result, fmt.Errorf("document %s: %d of %d chunks failed", docID, failed, len(chunks))
	}

	in.logger.Info("document ingested", zap.String("document_id", docID))
	return result, nil
}

// processChunk embeds one chunk and persists it as a unit: a chunk is never
// written without its embedding.
func (in *Ingestor) processChunk(ctx context.Context, chunkID, content, docID string) error {
	embedding, err := in.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embedding chunk %s: %w", chunkID, err)
	}
	return in.store.CreateChunk(ctx, chunkID, content, embedding, docID)
}
