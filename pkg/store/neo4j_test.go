package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/graphrag/internal/errs"
	"github.com/xhad/graphrag/pkg/store"
)

// These tests need a live Neo4j and are skipped otherwise:
//
//	NEO4J_TEST_URI=bolt://localhost:7687 NEO4J_TEST_PASSWORD=... go test ./pkg/store/
func getTestStore(t *testing.T) *store.GraphStore {
	t.Helper()

	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set, skipping graph store integration tests")
	}

	s, err := store.NewWithConfig(context.Background(), store.Config{
		URI:        uri,
		Username:   os.Getenv("NEO4J_TEST_USER"),
		Password:   os.Getenv("NEO4J_TEST_PASSWORD"),
		VectorDim:  4,
		IndexName:  "test_chunk_embeddings",
		MaxRetries: 2,
		RetryDelay: time.Second,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))

	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestPing(t *testing.T) {
	s := getTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSearchSimilarEmptyIndex(t *testing.T) {
	s := getTestStore(t)

	hits, err := s.SearchSimilar(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDocumentAndChunkRoundTrip(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	docID := uuid.NewString()
	require.NoError(t, s.CreateDocument(ctx, docID, "full document text", map[string]interface{}{"source": "test"}))
	require.NoError(t, s.CreateChunk(ctx, docID+"_chunk_0", "full document text", []float32{1, 0, 0, 0}, docID))

	hits, err := s.SearchSimilar(ctx, []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "full document text", hits[0].Content)
	assert.Greater(t, hits[0].Score, 0.9)
}

func TestCreateChunkMissingDocument(t *testing.T) {
	s := getTestStore(t)

	err := s.CreateChunk(context.Background(), uuid.NewString()+"_chunk_0", "orphan", []float32{0, 1, 0, 0}, "no-such-document")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConnectRetryExhaustion(t *testing.T) {
	if os.Getenv("NEO4J_TEST_URI") == "" {
		t.Skip("NEO4J_TEST_URI not set, skipping graph store integration tests")
	}

	_, err := store.NewWithConfig(context.Background(), store.Config{
		URI:        "bolt://localhost:1",
		Password:   "irrelevant",
		MaxRetries: 2,
		RetryDelay: 100 * time.Millisecond,
	}, nil)
	assert.ErrorIs(t, err, errs.ErrStorage)
}
