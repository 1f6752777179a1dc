package types

import (
	"context"

	"ragchat/internal/models"
)

// Core interfaces
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ChatEngine interface {
	Answer(ctx context.Context, query string, contexts []string) (string, error)
}

type Loader interface {
	Load(path string) (*models.Document, error)
}

type Splitter interface {
	SplitText(text string) []string
	SplitBySection(text string) []string
}

type EmbeddingStore interface {
	Exists(ctx context.Context, namespace string) (bool, error)
	Store(ctx context.Context, namespace string, texts []string) error
	Scan(ctx context.Context, namespaces []string) ([]string, error)
	Get(ctx context.Context, key string) (models.EmbeddingRecord, bool, error)
}

type Retriever interface {
	Query(ctx context.Context, namespaces []string, query string, topK int) ([]models.ScoredText, error)
}
