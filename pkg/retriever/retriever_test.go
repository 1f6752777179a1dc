package retriever_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ragchat/pkg/retriever"
	"ragchat/pkg/store"
)

type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func newFixture(t *testing.T, emb *stubEmbedder) (*retriever.Retriever, *store.EmbeddingStore, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s, err := store.NewWithConfig(client, store.StoreConfig{Embedder: emb})
	require.NoError(t, err)

	r, err := retriever.NewWithConfig(retriever.RetrieverConfig{Store: s, Embedder: emb})
	require.NoError(t, err)
	return r, s, client
}

func TestQueryRanksBySimilarity(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"alpha text": {1, 0},
		"beta text":  {0, 1},
		"alpha":      {1, 0},
	}}
	r, s, _ := newFixture(t, emb)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "docs:abc", []string{"alpha text", "beta text"}))

	results, err := r.Query(ctx, nil, "alpha", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "alpha text", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "beta text", results[1].Text)
	assert.InDelta(t, 0.0, results[1].Score, 1e-6)
}

func TestQueryEmptyStore(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"anything": {1, 0}}}
	r, _, _ := newFixture(t, emb)

	results, err := r.Query(context.Background(), nil, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryDeterministic(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"one":   {1, 0},
		"two":   {0.8, 0.2},
		"three": {0.2, 0.8},
		"q":     {1, 0},
	}}
	r, s, _ := newFixture(t, emb)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "docs:abc", []string{"one", "two", "three"}))

	first, err := r.Query(ctx, nil, "q", 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Query(ctx, nil, "q", 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestQueryTopK(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"q": {1, 1}}}
	r, s, _ := newFixture(t, emb)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "docs:abc", []string{"a", "b", "c", "d"}))

	results, err := r.Query(ctx, nil, "q", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// topK <= 0 falls back to the configured default.
	results, err = r.Query(ctx, nil, "q", 0)
	require.NoError(t, err)
	assert.Len(t, results, retriever.DefaultTopK)
}

func TestQueryScopedToNamespaces(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"in scope":     {1, 0},
		"out of scope": {1, 0},
		"q":            {1, 0},
	}}
	r, s, _ := newFixture(t, emb)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "docs:aaa", []string{"in scope"}))
	require.NoError(t, s.Store(ctx, "docs:bbb", []string{"out of scope"}))

	results, err := r.Query(ctx, []string{"docs:aaa"}, "q", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "in scope", results[0].Text)

	// An empty namespace list searches nothing rather than everything.
	results, err = r.Query(ctx, []string{}, "q", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQuerySkipsPartialEntries(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"whole entry": {1, 0},
		"q":           {1, 0},
	}}
	r, s, client := newFixture(t, emb)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "docs:abc", []string{"whole entry"}))
	// A half-written entry alongside it must not break the query.
	require.NoError(t, client.HSet(ctx, "docs:abc:9", "text", "no vector here").Err())

	results, err := r.Query(ctx, nil, "q", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "whole entry", results[0].Text)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, retriever.Cosine([]float32{3, 4}, []float32{3, 4}), 1e-6)
	assert.InDelta(t, 0.0, retriever.Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, retriever.Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)

	// Zero vectors score 0 instead of dividing by zero.
	assert.Equal(t, 0.0, retriever.Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Equal(t, 0.0, retriever.Cosine(nil, []float32{1, 2}))

	score := retriever.Cosine([]float32{0.3, 0.7, 0.1}, []float32{0.5, 0.2, 0.9})
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, -1.0)
}
