package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xhad/graphrag/internal/errs"
)

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateFrame struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate returns the complete model answer for prompt, grounded in
// contextText when it is non-empty.
func (c *Client) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	resp, err := c.generate(ctx, prompt, contextText, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out generateFrame
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding generate response: %v", errs.ErrUpstream, err)
	}
	return out.Response, nil
}

// GenerateStream opens a streamed generation and returns a channel of answer
// fragments in the order the model produced them, plus an error channel that
// carries at most one mid-stream transport failure once the fragment channel
// has closed. Malformed frames are skipped rather than aborting the stream.
// Cancelling ctx stops the consumption loop without reporting an error.
func (c *Client) GenerateStream(ctx context.Context, prompt, contextText string) (<-chan string, <-chan error, error) {
	resp, err := c.generate(ctx, prompt, contextText, true)
	if err != nil {
		return nil, nil, err
	}

	fragments := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(fragments)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var frame generateFrame
			if err := json.Unmarshal(line, &frame); err != nil {
				// Skip the one noisy frame, keep the stream alive.
				continue
			}

			if frame.Response != "" {
				select {
				case fragments <- frame.Response:
				case <-ctx.Done():
					return
				}
			}
			if frame.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			errc <- fmt.Errorf("%w: reading generation stream: %v", errs.ErrUpstream, err)
		}
	}()

	return fragments, errc, nil
}

func (c *Client) generate(ctx context.Context, prompt, contextText string, stream bool) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: buildPrompt(prompt, contextText),
		Stream: stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: generate request: %v", errs.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: generate request failed: %s", errs.ErrUpstream, resp.Status)
	}
	return resp, nil
}
