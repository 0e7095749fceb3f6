package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xhad/graphrag/internal/errs"
)

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for text. Repeated calls with identical
// text are served from the cache without a network round trip.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.get(text); ok {
		return vec, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(embeddingRequest{Model: c.config.EmbeddingModel, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("encoding embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings request: %v", errs.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: embeddings request failed: %s", errs.ErrUpstream, resp.Status)
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding embeddings response: %v", errs.ErrUpstream, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: embeddings response has no embedding", errs.ErrUpstream)
	}

	c.cache.put(text, out.Embedding)
	return out.Embedding, nil
}
