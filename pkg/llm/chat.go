package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

const defaultSystemPrompt = "Act as a world-class assistant with deep expertise across multiple domains. " +
	"Respond using only the provided context and any directly relevant knowledge. " +
	"Do not invent, speculate, or rely on external assumptions. " +
	"Prioritize accuracy, relevance, and clarity in every answer"

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	BaseURL      string // Ollama server URL
}

// ChatEngine is an engine that uses an LLM to generate chat responses from
// retrieved context.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewChatWithConfig creates a new ChatEngine with the given configuration.
func NewChatWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "llama2"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSystemPrompt
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

// Prompt builds the user message: the retrieved texts newline-joined in
// ranked order, followed by the question.
func Prompt(query string, contexts []string) string {
	return fmt.Sprintf("Use this context:\n%s\n\nQuestion: %s",
		strings.Join(contexts, "\n"), query)
}

// Answer generates a response grounded in the supplied context texts.
func (ce *ChatEngine) Answer(ctx context.Context, query string, contexts []string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, Prompt(query, contexts)),
	}

	opts := []llms.CallOption{llms.WithMaxTokens(ce.config.MaxTokens)}
	if ce.config.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(ce.config.Temperature))
	}

	response, err := ce.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}
	return response.Choices[0].Content, nil
}
