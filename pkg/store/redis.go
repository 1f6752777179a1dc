package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"ragchat/internal/models"
	"ragchat/internal/types"
)

// allDocsPattern matches every stored entry across all namespaces.
const allDocsPattern = "docs:*:*"

type StoreConfig struct {
	Embedder types.Embedder
	OnEmbed  func(index, total int) // progress hook, called after each unit embeds
}

// EmbeddingStore keeps (text, vector) pairs in redis hashes keyed
// "docs:<hash>:<index>", fields "text" and "vector". The client is injected
// and owned by the caller; open it on startup, close it on shutdown.
type EmbeddingStore struct {
	config StoreConfig
	client *redis.Client
}

// Open connects to redis from a URL ("redis://host:port/db") and verifies
// the connection with a ping.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewWithConfig(client *redis.Client, config StoreConfig) (*EmbeddingStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return &EmbeddingStore{config: config, client: client}, nil
}

// Exists reports whether the namespace is already populated. Checking the
// first entry is enough: Store commits a namespace all-or-nothing.
func (s *EmbeddingStore) Exists(ctx context.Context, namespace string) (bool, error) {
	n, err := s.client.Exists(ctx, entryKey(namespace, 0)).Result()
	if err != nil {
		return false, fmt.Errorf("check %s: %w", namespace, err)
	}
	return n > 0, nil
}

// Store embeds every text in order and persists the pairs under contiguous
// indices. All pairs are staged in memory first and committed in a single
// transaction, so an embedding failure midway leaves the namespace absent
// rather than half-written.
func (s *EmbeddingStore) Store(ctx context.Context, namespace string, texts []string) error {
	records := make([]models.EmbeddingRecord, 0, len(texts))
	for i, text := range texts {
		vector, err := s.config.Embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed entry %d of %s: %w", i, namespace, err)
		}
		records = append(records, models.EmbeddingRecord{
			Key:    entryKey(namespace, i),
			Text:   text,
			Vector: vector,
		})
		if s.config.OnEmbed != nil {
			s.config.OnEmbed(i+1, len(texts))
		}
	}

	pipe := s.client.TxPipeline()
	for _, rec := range records {
		pipe.HSet(ctx, rec.Key, map[string]interface{}{
			"text":   rec.Text,
			"vector": encodeVector(rec.Vector),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", namespace, err)
	}
	return nil
}

// StoreOnce stores the texts unless the namespace is already populated.
// Returns true when embeddings were actually built.
func (s *EmbeddingStore) StoreOnce(ctx context.Context, namespace string, texts []string) (bool, error) {
	exists, err := s.Exists(ctx, namespace)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.Store(ctx, namespace, texts); err != nil {
		return false, err
	}
	return true, nil
}

// Scan enumerates entry keys. A nil namespace list means every stored
// entry; a non-nil list yields the deduplicated union of the listed
// namespaces, so an empty list is an empty union, not a widened scope.
// Order is unspecified.
func (s *EmbeddingStore) Scan(ctx context.Context, namespaces []string) ([]string, error) {
	var patterns []string
	if namespaces == nil {
		patterns = []string{allDocsPattern}
	} else {
		for _, ns := range namespaces {
			patterns = append(patterns, ns+":*")
		}
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, pattern := range patterns {
		var cursor uint64
		for {
			batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return nil, fmt.Errorf("scan %s: %w", pattern, err)
			}
			for _, k := range batch {
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return keys, nil
}

// Get fetches one stored pair. A key with a missing text or vector field,
// or an undecodable vector, comes back with ok=false so callers can skip
// partial entries without failing the whole query.
func (s *EmbeddingStore) Get(ctx context.Context, key string) (models.EmbeddingRecord, bool, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return models.EmbeddingRecord{}, false, fmt.Errorf("read %s: %w", key, err)
	}

	text, hasText := fields["text"]
	raw, hasVector := fields["vector"]
	if !hasText || !hasVector || text == "" || raw == "" {
		return models.EmbeddingRecord{}, false, nil
	}

	vector, err := decodeVector([]byte(raw))
	if err != nil {
		return models.EmbeddingRecord{}, false, nil
	}

	return models.EmbeddingRecord{Key: key, Text: text, Vector: vector}, true, nil
}

func entryKey(namespace string, index int) string {
	return namespace + ":" + strconv.Itoa(index)
}
