// Package store persists documents and chunks in Neo4j as linked nodes and
// serves similarity searches through the database's native vector index.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/xhad/graphrag/internal/errs"
	"github.com/xhad/graphrag/internal/models"
)

// Config represents the configuration for the graph store.
type Config struct {
	URI        string
	Username   string
	Password   string
	VectorDim  int
	IndexName  string
	MaxRetries int
	RetryDelay time.Duration
}

// GraphStore is a Neo4j-backed storage gateway. Documents and chunks are
// stored as :Document and :Chunk nodes joined by a CONTAINS relationship.
type GraphStore struct {
	config Config
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewWithConfig connects to Neo4j, retrying transient startup unavailability
// with a fixed delay before failing for good.
func NewWithConfig(ctx context.Context, config Config, logger *zap.Logger) (*GraphStore, error) {
	if config.URI == "" {
		config.URI = "bolt://localhost:7687"
	}
	if config.Username == "" {
		config.Username = "neo4j"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.IndexName == "" {
		config.IndexName = "chunk_embeddings"
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 5
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &GraphStore{config: config, logger: logger}
	if err := s.connectWithRetry(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GraphStore) connectWithRetry(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		s.logger.Info("connecting to graph store",
			zap.String("uri", s.config.URI),
			zap.Int("attempt", attempt))

		driver, err := neo4j.NewDriverWithContext(s.config.URI,
			neo4j.BasicAuth(s.config.Username, s.config.Password, ""))
		if err == nil {
			if err = driver.VerifyConnectivity(ctx); err == nil {
				s.driver = driver
				s.logger.Info("connected to graph store", zap.String("uri", s.config.URI))
				return nil
			}
			_ = driver.Close(ctx)
		}
		lastErr = err

		if attempt < s.config.MaxRetries {
			s.logger.Warn("graph store connection failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", s.config.MaxRetries),
				zap.Error(err))
			select {
			case <-time.After(s.config.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("%w: connecting to %s after %d attempts: %v",
		errs.ErrStorage, s.config.URI, s.config.MaxRetries, lastErr)
}

// session returns a fresh session, reconnecting first if the driver handle
// has been lost.
func (s *GraphStore) session(ctx context.Context) (neo4j.SessionWithContext, error) {
	if s.driver == nil {
		if err := s.connectWithRetry(ctx); err != nil {
			return nil, err
		}
	}
	return s.driver.NewSession(ctx, neo4j.SessionConfig{}), nil
}

// EnsureSchema creates uniqueness constraints and (re)provisions the vector
// index over Chunk.embedding: the index is dropped if present and recreated
// with the configured dimensionality and cosine similarity.
func (s *GraphStore) EnsureSchema(ctx context.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT document_id IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE",
		"CREATE CONSTRAINT chunk_id IF NOT EXISTS FOR (c:Chunk) REQUIRE c.id IS UNIQUE",
		fmt.Sprintf("DROP INDEX %s IF EXISTS", s.config.IndexName),
		fmt.Sprintf(`CREATE VECTOR INDEX %s IF NOT EXISTS
FOR (c:Chunk) ON (c.embedding)
OPTIONS {indexConfig: {
    `+"`vector.dimensions`"+`: %d,
    `+"`vector.similarity_function`"+`: 'cosine'
}}`, s.config.IndexName, s.config.VectorDim),
	}

	for _, stmt := range statements {
		result, err := sess.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("%w: running schema statement: %v", errs.ErrStorage, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("%w: applying schema statement: %v", errs.ErrStorage, err)
		}
	}

	s.logger.Info("graph schema ensured",
		zap.String("index", s.config.IndexName),
		zap.Int("dimensions", s.config.VectorDim))
	return nil
}

// CreateDocument stores a new Document node. The caller guarantees id is
// freshly generated and never reused.
func (s *GraphStore) CreateDocument(ctx context.Context, id, content string, metadata map[string]interface{}) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	var metadataStr interface{}
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("%w: encoding document metadata: %v", errs.ErrValidation, err)
		}
		metadataStr = string(encoded)
	}

	_, err = sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx,
			"CREATE (d:Document {id: $id, content: $content, metadata: $metadata})",
			map[string]any{"id": id, "content": content, "metadata": metadataStr})
		if err != nil {
			return nil, err
		}
		_, err = result.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("%w: creating document %s: %v", errs.ErrStorage, id, err)
	}

	s.logger.Debug("document created", zap.String("document_id", id))
	return nil
}

// CreateChunk stores a Chunk node with its embedding and links it to its
// parent document via CONTAINS. Returns ErrNotFound when the parent document
// does not exist; no chunk is written in that case.
func (s *GraphStore) CreateChunk(ctx context.Context, id, content string, embedding []float32, documentID string) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	_, err = sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
MATCH (d:Document {id: $document_id})
CREATE (c:Chunk {id: $id, content: $content, embedding: $embedding})
CREATE (d)-[:CONTAINS]->(c)
RETURN c.id`,
			map[string]any{
				"id":          id,
				"content":     content,
				"embedding":   toFloat64s(embedding),
				"document_id": documentID,
			})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: document %s", errs.ErrNotFound, documentID)
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: creating chunk %s: %v", errs.ErrStorage, id, err)
	}

	s.logger.Debug("chunk created",
		zap.String("chunk_id", id),
		zap.String("document_id", documentID))
	return nil
}

// SearchSimilar returns up to limit chunks ordered by descending cosine
// similarity to embedding. An empty index yields an empty result, not an
// error.
func (s *GraphStore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close(ctx)

	hits, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
CALL db.index.vector.queryNodes($index, $limit, $embedding)
YIELD node, score
RETURN node.content AS content, score
ORDER BY score DESC`,
			map[string]any{
				"index":     s.config.IndexName,
				"limit":     limit,
				"embedding": toFloat64s(embedding),
			})
		if err != nil {
			return nil, err
		}

		var chunks []models.ScoredChunk
		for result.Next(ctx) {
			record := result.Record()
			content, _ := record.Get("content")
			score, _ := record.Get("score")

			chunk := models.ScoredChunk{}
			if text, ok := content.(string); ok {
				chunk.Content = text
			}
			if value, ok := score.(float64); ok {
				chunk.Score = value
			}
			chunks = append(chunks, chunk)
		}
		return chunks, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", errs.ErrStorage, err)
	}

	chunks := hits.([]models.ScoredChunk)
	s.logger.Debug("similarity search", zap.Int("hits", len(chunks)))
	return chunks, nil
}

// Ping runs a trivial round trip against the store.
func (s *GraphStore) Ping(ctx context.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, "RETURN 1", nil)
	if err != nil {
		return fmt.Errorf("%w: ping: %v", errs.ErrStorage, err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", errs.ErrStorage, err)
	}
	return nil
}

// Close releases the underlying driver.
func (s *GraphStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

// The bolt protocol carries floats as 64-bit values.
func toFloat64s(embedding []float32) []float64 {
	out := make([]float64, len(embedding))
	for i, v := range embedding {
		out[i] = float64(v)
	}
	return out
}
