package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	if c.LLM.CacheSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.cache_size",
			Message: "cache_size must be positive",
		})
	}

	if c.LLM.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.rate_limit",
			Message: "rate_limit cannot be negative",
		})
	}

	// Validate Graph config
	if c.Graph.URI == "" {
		errors = append(errors, ValidationError{
			Field:   "graph.uri",
			Message: "graph store URI is required",
		})
	}

	if c.Graph.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "graph.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Graph.MaxRetries < 1 {
		errors = append(errors, ValidationError{
			Field:   "graph.max_retries",
			Message: "max_retries must be positive",
		})
	}

	// Validate Pipeline config
	if c.Pipeline.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Pipeline.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.workers",
			Message: "workers must be positive",
		})
	}

	if c.Pipeline.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.top_k",
			Message: "top_k must be positive",
		})
	}

	return errors
}
