package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/graphrag/internal/errs"
	"github.com/xhad/graphrag/internal/models"
	"github.com/xhad/graphrag/internal/pool"
	"github.com/xhad/graphrag/pkg/pipeline"
	"github.com/xhad/graphrag/server"
)

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dim), nil
}

type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]string
	chunks  map[string]string
	hits    []models.ScoredChunk
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]string{}, chunks: map[string]string{}}
}

func (f *fakeStore) CreateDocument(ctx context.Context, id, content string, metadata map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = content
	return nil
}

func (f *fakeStore) CreateChunk(ctx context.Context, id, content string, embedding []float32, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[documentID]; !ok {
		return fmt.Errorf("%w: document %s", errs.ErrNotFound, documentID)
	}
	f.chunks[id] = content
	return nil
}

func (f *fakeStore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	return f.hits, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

type fakeGenerator struct{ fragments []string }

func (f *fakeGenerator) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	return strings.Join(f.fragments, ""), nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt, contextText string) (<-chan string, <-chan error, error) {
	ch := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(ch)
		for _, frag := range f.fragments {
			ch <- frag
		}
	}()
	return ch, errc, nil
}

func newTestServer(t *testing.T, store *fakeStore, generator *fakeGenerator) *httptest.Server {
	t.Helper()
	workers := pool.New(4)
	t.Cleanup(workers.Close)

	embedder := &fakeEmbedder{dim: 768}
	ingestor := pipeline.NewIngestor(pipeline.IngestorConfig{ChunkSize: 1000}, embedder, store, workers, nil)
	querier := pipeline.NewQuerier(pipeline.QuerierConfig{}, embedder, store, generator, nil)

	srv := server.New(server.Config{}, ingestor, querier, store, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestIngestEndpoint(t *testing.T) {
	store := newFakeStore()
	ts := newTestServer(t, store, &fakeGenerator{})

	resp, err := http.Post(ts.URL+"/documents", "text/plain", strings.NewReader("some document text to ingest"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Message    string `json:"message"`
		DocumentID string `json:"document_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Document ingested successfully", out.Message)
	assert.NotEmpty(t, out.DocumentID)

	assert.Contains(t, store.docs, out.DocumentID)
	assert.Contains(t, store.chunks, out.DocumentID+"_chunk_0")
}

func TestIngestEndpointJSONBody(t *testing.T) {
	store := newFakeStore()
	ts := newTestServer(t, store, &fakeGenerator{})

	body := `{"content": "inline document content", "metadata": {"source": "api"}}`
	resp, err := http.Post(ts.URL+"/documents", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		DocumentID string `json:"document_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "inline document content", store.docs[out.DocumentID])
}

func TestIngestEndpointRejectsEmptyDocument(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeGenerator{})

	resp, err := http.Post(ts.URL+"/documents", "text/plain", strings.NewReader("   "))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func readSSEEvents(t *testing.T, resp *http.Response) []models.Event {
	t.Helper()
	var events []models.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestQueryEndpointStreams(t *testing.T) {
	store := newFakeStore()
	store.hits = []models.ScoredChunk{
		{Content: "relevant chunk one", Score: 0.9},
		{Content: "relevant chunk two", Score: 0.8},
	}
	generator := &fakeGenerator{fragments: []string{"streamed ", "answer"}}
	ts := newTestServer(t, store, generator)

	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(`{"text": "a question"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readSSEEvents(t, resp)
	require.Len(t, events, 3)
	assert.Equal(t, "streamed ", events[0].Chunk)
	assert.Equal(t, "answer", events[1].Chunk)
	assert.Equal(t, "relevant chunk one\nrelevant chunk two", events[2].Context)
}

func TestQueryEndpointNoMatches(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeGenerator{fragments: []string{"unused"}})

	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(`{"text": "anything"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readSSEEvents(t, resp)
	require.Len(t, events, 1)
	assert.Equal(t, pipeline.NoResultsMessage, events[0].Chunk)
}

func TestQueryEndpointRejectsEmptyText(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeGenerator{})

	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(`{"text": ""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	store := newFakeStore()
	ts := newTestServer(t, store, &fakeGenerator{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "connected", out["graph"])
}

func TestHealthEndpointUnhealthy(t *testing.T) {
	store := newFakeStore()
	store.pingErr = fmt.Errorf("%w: connection refused", errs.ErrStorage)
	ts := newTestServer(t, store, &fakeGenerator{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
