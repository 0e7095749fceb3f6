// Command ragd runs the RAG HTTP service: it connects to the graph store,
// provisions the schema and vector index, and serves the ingest/query/health
// endpoints.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xhad/graphrag/internal/pool"
	cfgPkg "github.com/xhad/graphrag/pkg/config"
	"github.com/xhad/graphrag/pkg/llm"
	"github.com/xhad/graphrag/pkg/pipeline"
	"github.com/xhad/graphrag/pkg/store"
	"github.com/xhad/graphrag/server"
)

func main() {
	var configPath string
	var addr string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			log.Printf("config: %v", p)
		}
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(cfg *cfgPkg.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	graph, err := store.NewWithConfig(ctx, store.Config{
		URI:        cfg.Graph.URI,
		Username:   cfg.Graph.Username,
		Password:   cfg.Graph.Password,
		VectorDim:  cfg.Graph.VectorDim,
		IndexName:  cfg.Graph.IndexName,
		MaxRetries: cfg.Graph.MaxRetries,
		RetryDelay: time.Duration(cfg.Graph.RetryDelaySeconds) * time.Second,
	}, logger)
	if err != nil {
		return err
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

	srv := server.New(server.Config{Addr: cfg.Server.Addr}, ingestor, querier, graph, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
