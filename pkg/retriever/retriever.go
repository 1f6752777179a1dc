package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ragchat/internal/models"
	"ragchat/internal/types"
)

const DefaultTopK = 3

type RetrieverConfig struct {
	Store    types.EmbeddingStore
	Embedder types.Embedder
	TopK     int
}

// Retriever answers a query by embedding it once, scanning the candidate
// entries linearly and ranking them by cosine similarity. No index; at the
// corpus sizes this serves, a full scan is fine.
type Retriever struct {
	config RetrieverConfig
}

func NewWithConfig(config RetrieverConfig) (*Retriever, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("embedding store is required")
	}
	if config.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	return &Retriever{config: config}, nil
}

// Query returns at most topK stored texts ranked by descending similarity
// to the query. Nil namespaces searches everything ever stored. An empty
// candidate set is an empty result, not an error.
func (r *Retriever) Query(ctx context.Context, namespaces []string, query string, topK int) ([]models.ScoredText, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	queryVec, err := r.config.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	keys, err := r.config.Store.Scan(ctx, namespaces)
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredText, 0, len(keys))
	for _, key := range keys {
		rec, ok, err := r.config.Store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		scored = append(scored, models.ScoredText{
			Score: Cosine(queryVec, rec.Vector),
			Text:  rec.Text,
		})
	}

	// Stable keeps scan order on ties, so a fixed store state always
	// ranks the same way.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Cosine is the normalized dot product of two vectors. Either norm being
// zero yields 0 rather than dividing by it.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}

	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
