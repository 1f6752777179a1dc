package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Redis config
	if c.Redis.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "redis.url",
			Message: "redis URL is required",
		})
	} else if _, err := url.Parse(c.Redis.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "redis.url",
			Message: "invalid redis URL",
		})
	}

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Splitter config
	if c.Splitter.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "splitter.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Splitter.ChunkOverlap < 0 || c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "splitter.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate Retriever config
	if c.Retriever.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retriever.top_k",
			Message: "top_k must be positive",
		})
	}

	return errors
}
