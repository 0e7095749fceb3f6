package models

// Document is the unit of ingestion. A document is created once with a freshly
// generated ID and is immutable afterwards.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]interface{}
}

// Chunk is a bounded-size piece of a document together with its embedding.
// Chunk IDs are derived as "<document_id>_chunk_<index>" where the index
// follows the original text order.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	Embedding  []float32
}

// ScoredChunk is a similarity search hit, highest score first.
type ScoredChunk struct {
	Content string
	Score   float64
}

// IngestResult reports the outcome of one document ingestion. The document
// itself and any successfully processed chunks stay persisted even when
// FailedChunks is non-zero.
type IngestResult struct {
	DocumentID   string
	ChunkCount   int
	FailedChunks int
}

// Event is one element of a query answer stream. Exactly one field is set:
// Chunk carries an incremental answer fragment, Context carries the retrieved
// context used to ground the answer and is always the final event.
type Event struct {
	Chunk   string `json:"chunk,omitempty"`
	Context string `json:"context,omitempty"`
}
