package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
redis:
  url: "redis://redis.internal:6379/2"

llm:
  base_url: "http://localhost:11434"
  embed_model: "all-minilm"
  chat_model: "mistral"
  max_tokens: 1000
  temperature: 0.5

splitter:
  chunk_size: 500
  chunk_overlap: 100

retriever:
  top_k: 5
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "redis://redis.internal:6379/2", config.Redis.URL)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "all-minilm", config.LLM.EmbedModel)
	assert.Equal(t, "mistral", config.LLM.ChatModel)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 500, config.Splitter.ChunkSize)
	assert.Equal(t, 100, config.Splitter.ChunkOverlap)
	assert.Equal(t, 5, config.Retriever.TopK)
}

func TestLoadConfigDefaults(t *testing.T) {
	// Point at an explicit but minimal file so host config is not picked up.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "redis://localhost:6379/0", config.Redis.URL)
	assert.Equal(t, "nomic-embed-text", config.LLM.EmbedModel)
	assert.Equal(t, "llama2", config.LLM.ChatModel)
	assert.Equal(t, 1000, config.Splitter.ChunkSize)
	assert.Equal(t, 200, config.Splitter.ChunkOverlap)
	assert.Equal(t, 3, config.Retriever.TopK)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0644))

	t.Setenv("REDIS_URL", "redis://elsewhere:6380/1")
	t.Setenv("EMBED_MODEL", "mxbai-embed-large")

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "redis://elsewhere:6380/1", config.Redis.URL)
	assert.Equal(t, "mxbai-embed-large", config.LLM.EmbedModel)
}

func TestConfigValidation(t *testing.T) {
	valid := Config{
		Redis:     RedisConfig{URL: "redis://localhost:6379/0"},
		LLM:       LLMConfig{BaseURL: "http://localhost:11434", MaxTokens: 2000, Temperature: 0.7},
		Splitter:  SplitterConfig{ChunkSize: 1000, ChunkOverlap: 200},
		Retriever: RetrieverConfig{TopK: 3},
	}
	assert.Empty(t, valid.Validate())

	invalid := Config{
		LLM:       LLMConfig{MaxTokens: 5000, Temperature: 3.0},
		Splitter:  SplitterConfig{ChunkSize: 100, ChunkOverlap: 100},
		Retriever: RetrieverConfig{TopK: 0},
	}
	errs := invalid.Validate()
	assert.NotEmpty(t, errs)

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	assert.True(t, fields["redis.url"])
	assert.True(t, fields["llm.max_tokens"])
	assert.True(t, fields["llm.temperature"])
	assert.True(t, fields["splitter.chunk_overlap"])
	assert.True(t, fields["retriever.top_k"])
}
