// Package llm is a client for an Ollama-compatible inference service. It
// covers embeddings, single-shot generation, and streamed generation, with a
// bounded embedding cache and optional outbound request pacing.
package llm

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Config represents the configuration for the inference client.
type Config struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
	CacheSize      int
	RateLimit      float64 // upstream requests per second, 0 disables pacing
}

// Client talks to the inference service over HTTP.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	cache   *embeddingCache
}

// NewWithConfig creates a new client with the given configuration.
func NewWithConfig(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "llama2"
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = "nomic-embed-text"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.CacheSize == 0 {
		config.CacheSize = 1000
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		limiter: limiter,
		cache:   newEmbeddingCache(config.CacheSize),
	}
}

// buildPrompt frames the prompt with retrieved context when present.
func buildPrompt(prompt, contextText string) string {
	if contextText == "" {
		return prompt
	}
	return fmt.Sprintf("Context: %s\n\nQuestion: %s\n\nAnswer:", contextText, prompt)
}
