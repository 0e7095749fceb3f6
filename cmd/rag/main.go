// Command rag is an interactive client: optionally ingest a file, then chat
// against the knowledge graph with streamed answers.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/xhad/graphrag/internal/pool"
	cfgPkg "github.com/xhad/graphrag/pkg/config"
	"github.com/xhad/graphrag/pkg/llm"
	"github.com/xhad/graphrag/pkg/pipeline"
	"github.com/xhad/graphrag/pkg/store"
)

type Flags struct {
	ConfigPath string
	FilePath   string
	BaseURL    string
	GraphURI   string
	Model      string
	ChunkSize  int
	TopK       int
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags
	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.FilePath, "file", "", "Document to ingest before chatting")
	flag.StringVar(&flags.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&flags.GraphURI, "graph-uri", os.Getenv("NEO4J_URI"), "Neo4j bolt URI")
	flag.StringVar(&flags.Model, "model", "", "LLM model to use")
	flag.IntVar(&flags.ChunkSize, "chunk-size", 0, "Size of text chunks")
	flag.IntVar(&flags.TopK, "top-k", 0, "Number of chunks to retrieve per query")
	flag.Parse()
	return flags
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".html", ".htm":
		return "text/html"
	default:
		return "text/plain"
	}
}

func run(flags Flags) error {
	cfg, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}

	// Flags win over file and environment.
	if flags.BaseURL != "" {
		cfg.LLM.BaseURL = flags.BaseURL
	}
	if flags.GraphURI != "" {
		cfg.Graph.URI = flags.GraphURI
	}
	if flags.Model != "" {
		cfg.LLM.Model = flags.Model
	}
	if flags.ChunkSize > 0 {
		cfg.Pipeline.ChunkSize = flags.ChunkSize
	}
	if flags.TopK > 0 {
		cfg.Pipeline.TopK = flags.TopK
	}

	ctx := context.Background()
	logger := zap.NewNop() // keep the chat output clean

	connectSpinner := getSpinner(" Connecting to knowledge graph...")
	graph, err := store.NewWithConfig(ctx, store.Config{
		URI:        cfg.Graph.URI,
		Username:   cfg.Graph.Username,
		Password:   cfg.Graph.Password,
		VectorDim:  cfg.Graph.VectorDim,
		IndexName:  cfg.Graph.IndexName,
		MaxRetries: cfg.Graph.MaxRetries,
		RetryDelay: time.Duration(cfg.Graph.RetryDelaySeconds) * time.Second,
	}, logger)
	connectSpinner.Finish()
	if err != nil {
		return fmt.Errorf("failed to connect to graph store: %v", err)
	}
	defer graph.Close(context.Background())

	if err := graph.EnsureSchema(ctx); err != nil {
		return err
	}

	client := llm.NewWithConfig(llm.Config{
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Timeout:        time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		CacheSize:      cfg.LLM.CacheSize,
		RateLimit:      cfg.LLM.RateLimit,
	})

	workers := pool.New(cfg.Pipeline.Workers)
	defer workers.Close()

	ingestor := pipeline.NewIngestor(pipeline.IngestorConfig{ChunkSize: cfg.Pipeline.ChunkSize}, client, graph, workers, logger)
	querier := pipeline.NewQuerier(pipeline.QuerierConfig{TopK: cfg.Pipeline.TopK}, client, graph, client, logger)

	if flags.FilePath != "" {
		data, err := os.ReadFile(flags.FilePath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %v", flags.FilePath, err)
		}

		color.Blue("\nIngesting %s", flags.FilePath)
		ingestSpinner := getSpinner(" Embedding and storing chunks...")
		result, err := ingestor.Ingest(ctx, data, contentTypeFor(flags.FilePath), map[string]interface{}{
			"filename": filepath.Base(flags.FilePath),
		})
		ingestSpinner.Finish()

		if err != nil {
			color.Red("Ingestion failed: %v\n", err)
			if result.DocumentID == "" {
				return err
			}
			color.Yellow("Document %s stored with %d of %d chunks\n",
				result.DocumentID, result.ChunkCount-result.FailedChunks, result.ChunkCount)
		} else {
			color.Green("✓ Ingested document %s (%d chunks)\n", result.DocumentID, result.ChunkCount)
		}
	}

	// Interactive chat loop with colored output
	color.Cyan("\nChat with your knowledge graph (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		events, err := querier.Query(ctx, query)
		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("\nAssistant: ")
		for event := range events {
			if event.Context != "" {
				fmt.Println()
				color.Blue("(answer grounded in %d retrieved chunks)",
					strings.Count(event.Context, "\n")+1)
				continue
			}
			fmt.Print(event.Chunk)
		}
		fmt.Println()
	}

	return nil
}
