package models

// SourceKind identifies the format a document was loaded from.
type SourceKind string

const (
	SourceJSON SourceKind = "json"
	SourcePDF  SourceKind = "pdf"
)

// Document is a normalized source file: its content-hash namespace, the
// format it came from, and the ordered text units ready for embedding.
type Document struct {
	Namespace string
	Kind      SourceKind
	Units     []string
}

// EmbeddingRecord is one stored (text, vector) pair. Key is the full
// redis key "docs:<hash>:<index>".
type EmbeddingRecord struct {
	Key    string
	Text   string
	Vector []float32
}

// ScoredText is a retrieval candidate ranked by cosine similarity.
type ScoredText struct {
	Score float64
	Text  string
}
