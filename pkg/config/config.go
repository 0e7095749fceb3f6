package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL        string  `yaml:"base_url"`
		Model          string  `yaml:"model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		CacheSize      int     `yaml:"cache_size"`
		RateLimit      float64 `yaml:"rate_limit"`
	} `yaml:"llm"`

	Graph struct {
		URI               string `yaml:"uri"`
		Username          string `yaml:"username"`
		Password          string `yaml:"password"`
		VectorDim         int    `yaml:"vector_dim"`
		IndexName         string `yaml:"index_name"`
		MaxRetries        int    `yaml:"max_retries"`
		RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	} `yaml:"graph"`

	Pipeline struct {
		ChunkSize int `yaml:"chunk_size"`
		Workers   int `yaml:"workers"`
		TopK      int `yaml:"top_k"`
	} `yaml:"pipeline"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/graphrag/config.yaml"),
			"/etc/graphrag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "llama2"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "nomic-embed-text"
	}
	if config.LLM.TimeoutSeconds == 0 {
		config.LLM.TimeoutSeconds = 60
	}
	if config.LLM.CacheSize == 0 {
		config.LLM.CacheSize = 1000
	}

	if config.Graph.URI == "" {
		config.Graph.URI = "bolt://localhost:7687"
	}
	if config.Graph.Username == "" {
		config.Graph.Username = "neo4j"
	}
	if config.Graph.VectorDim == 0 {
		config.Graph.VectorDim = 768
	}
	if config.Graph.IndexName == "" {
		config.Graph.IndexName = "chunk_embeddings"
	}
	if config.Graph.MaxRetries == 0 {
		config.Graph.MaxRetries = 5
	}
	if config.Graph.RetryDelaySeconds == 0 {
		config.Graph.RetryDelaySeconds = 5
	}

	if config.Pipeline.ChunkSize == 0 {
		config.Pipeline.ChunkSize = 1000
	}
	if config.Pipeline.Workers == 0 {
		config.Pipeline.Workers = 4
	}
	if config.Pipeline.TopK == 0 {
		config.Pipeline.TopK = 5
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Graph.Username = user
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		config.Graph.Password = password
	}
}
