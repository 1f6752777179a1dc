package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Redis     RedisConfig     `yaml:"redis"`
	LLM       LLMConfig       `yaml:"llm"`
	Splitter  SplitterConfig  `yaml:"splitter"`
	Retriever RetrieverConfig `yaml:"retriever"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type LLMConfig struct {
	BaseURL           string  `yaml:"base_url"`
	EmbedModel        string  `yaml:"embed_model"`
	ChatModel         string  `yaml:"chat_model"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float64 `yaml:"temperature"`
	EmbedRequestsPerS float64 `yaml:"embed_requests_per_second"`
}

type SplitterConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ragchat/config.yaml"),
			"/etc/ragchat/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Redis.URL == "" {
		config.Redis.URL = "redis://localhost:6379/0"
	}

	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text"
	}
	if config.LLM.ChatModel == "" {
		config.LLM.ChatModel = "llama2"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Splitter.ChunkSize == 0 {
		config.Splitter.ChunkSize = 1000
	}
	if config.Splitter.ChunkOverlap == 0 {
		config.Splitter.ChunkOverlap = 200
	}

	if config.Retriever.TopK == 0 {
		config.Retriever.TopK = 3
	}
}

func mergeWithEnv(config *Config) {
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("EMBED_MODEL"); model != "" {
		config.LLM.EmbedModel = model
	}
	if model := os.Getenv("CHAT_MODEL"); model != "" {
		config.LLM.ChatModel = model
	}
}
