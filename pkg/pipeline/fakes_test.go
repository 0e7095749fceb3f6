package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/xhad/graphrag/internal/errs"
	"github.com/xhad/graphrag/internal/models"
)

type fakeEmbedder struct {
	dim      int
	calls    int32
	failOn   string // text that triggers an upstream failure
	failErr  error
	mu       sync.Mutex
	embedded []string
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, failErr: fmt.Errorf("%w: simulated embedding failure", errs.ErrUpstream)}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.failOn != "" && text == f.failOn {
		return nil, f.failErr
	}
	f.mu.Lock()
	f.embedded = append(f.embedded, text)
	f.mu.Unlock()

	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(len(text) % 7)
	}
	return vec, nil
}

type storedChunk struct {
	ID         string
	Content    string
	Embedding  []float32
	DocumentID string
}

type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]models.Document
	chunks  map[string]storedChunk
	hits    []models.ScoredChunk
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:   make(map[string]models.Document),
		chunks: make(map[string]storedChunk),
	}
}

func (f *fakeStore) CreateDocument(ctx context.Context, id, content string, metadata map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = models.Document{ID: id, Content: content, Metadata: metadata}
	return nil
}

func (f *fakeStore) CreateChunk(ctx context.Context, id, content string, embedding []float32, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[documentID]; !ok {
		return fmt.Errorf("%w: document %s", errs.ErrNotFound, documentID)
	}
	f.chunks[id] = storedChunk{ID: id, Content: content, Embedding: embedding, DocumentID: documentID}
	return nil
}

func (f *fakeStore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

type fakeGenerator struct {
	fragments   []string
	failMid     bool
	streamCalls int32
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	out := ""
	for _, frag := range f.fragments {
		out += frag
	}
	return out, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt, contextText string) (<-chan string, <-chan error, error) {
	atomic.AddInt32(&f.streamCalls, 1)
	ch := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(ch)
		for i, frag := range f.fragments {
			if f.failMid && i == len(f.fragments)/2 {
				errc <- fmt.Errorf("%w: simulated stream failure", errs.ErrUpstream)
				return
			}
			select {
			case ch <- frag:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, errc, nil
}
