// Package server exposes the ingestion and query pipelines over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xhad/graphrag/internal/errs"
	"github.com/xhad/graphrag/internal/types"
	"github.com/xhad/graphrag/pkg/pipeline"
)

// Config represents the configuration for the HTTP server.
type Config struct {
	Addr        string
	MaxBodySize int64
}

// Server serves the ingest, query and health endpoints.
type Server struct {
	config   Config
	ingestor *pipeline.Ingestor
	querier  *pipeline.Querier
	store    types.Storage
	logger   *zap.Logger
	httpSrv  *http.Server
}

// New creates a server wired to the given pipelines and storage gateway.
func New(config Config, ingestor *pipeline.Ingestor, querier *pipeline.Querier, store types.Storage, logger *zap.Logger) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.MaxBodySize == 0 {
		config.MaxBodySize = 32 << 20 // 32 MiB uploads
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:   config,
		ingestor: ingestor,
		querier:  querier,
		store:    store,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents", s.handleIngest)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.config.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type ingestRequest struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	contentType := r.Header.Get("Content-Type")
	var metadata map[string]interface{}

	// A JSON body carries the document inline, the original upload shape;
	// anything else is raw file bytes under the declared content type.
	if strings.HasPrefix(contentType, "application/json") {
		var req ingestRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		body = []byte(req.Content)
		metadata = req.Metadata
		contentType = "text/plain"
	}

	result, err := s.ingestor.Ingest(r.Context(), body, contentType, metadata)
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		switch {
		case errors.Is(err, errs.ErrValidation):
			writeError(w, http.StatusBadRequest, "document has no extractable text")
		case errors.Is(err, errs.ErrUpstream):
			writeError(w, http.StatusBadGateway, "embedding service unavailable")
		case errors.Is(err, errs.ErrStorage):
			writeError(w, http.StatusBadGateway, "storage unavailable")
		default:
			// Partial chunk failure: the document is persisted but incomplete.
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":       err.Error(),
				"document_id": result.DocumentID,
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Document ingested successfully",
		"document_id": result.DocumentID,
	})
}

type queryRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	events, err := s.querier.Query(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		switch {
		case errors.Is(err, errs.ErrValidation):
			writeError(w, http.StatusBadRequest, "query text is required")
		default:
			writeError(w, http.StatusBadGateway, "query could not be answered")
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status": "unhealthy",
			"graph":  "disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"graph":  "connected",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}
