// Package llm wraps the OpenAI API behind the embedding and completion
// capabilities the pipeline consumes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/insightqa/insightqa/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the model used for test case and script generation
	DefaultChatModel = openai.GPT4oMini
	// DefaultCallTimeout bounds every embedding and completion call
	DefaultCallTimeout = 60 * time.Second
	// maxEmbeddingTokens is the input limit of the embedding models we use
	maxEmbeddingTokens = 8191
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// API is the slice of the OpenAI client the wrapper needs. Kept small
// so tests can substitute a deterministic fake.
type API interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// TokenCounter reports how many model tokens a text consumes.
type TokenCounter interface {
	Count(text string) int
}

// Config holds client configuration.
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	CallTimeout         time.Duration
}

// Client provides embeddings and completions with per-call timeouts.
type Client struct {
	api        API
	tokens     TokenCounter
	embedModel openai.EmbeddingModel
	chatModel  string
	dimensions int
	timeout    time.Duration
}

// NewClient creates a new Client using defaults.
func NewClient(apiKey string) (*Client, error) {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new Client with explicit configuration.
func NewClientWithConfig(cfg Config) (*Client, error) {
	counter, err := NewTiktokenCounter()
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoding: %w", err)
	}
	return newClient(openai.NewClient(cfg.APIKey), counter, cfg), nil
}

// NewClientFromEnv creates a new Client using the OPENAI_API_KEY
// environment variable.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey)
}

func newClient(api API, tokens TokenCounter, cfg Config) *Client {
	embedModel := cfg.EmbeddingModel
	if embedModel == "" {
		embedModel = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Client{
		api:        api,
		tokens:     tokens,
		embedModel: embedModel,
		chatModel:  chatModel,
		dimensions: dimensions,
		timeout:    timeout,
	}
}

// Embed generates an embedding for the given text. Over-long input is
// rejected before the network call; slow calls surface ErrTimeout so
// callers can distinguish slowness from unavailability.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, domain.ErrEmbedding.Wrap(ErrEmptyText)
	}
	if n := c.tokens.Count(text); n > maxEmbeddingTokens {
		return nil, domain.ErrEmbedding.WithDetail("input too long: %d tokens (max %d)", n, maxEmbeddingTokens)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embedModel,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrTimeout.WithDetail("embedding call exceeded %v", c.timeout)
		}
		return nil, domain.ErrEmbedding.Wrap(err)
	}
	if len(resp.Data) == 0 {
		return nil, domain.ErrEmbedding.WithDetail("no embedding data returned")
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != c.dimensions {
		return nil, domain.ErrEmbedding.WithDetail("expected %d dimensions, got %d", c.dimensions, len(embedding)).Wrap(ErrWrongDimensions)
	}
	return embedding, nil
}

// Complete sends a prompt to the chat model and returns the raw text.
// No structural validity is guaranteed; callers must parse and
// validate. Temperature is pinned low to keep output stable.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: 0.1,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.ErrTimeout.WithDetail("completion call exceeded %v", c.timeout)
		}
		return "", domain.ErrModelUnavailable.Wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.ErrModelUnavailable.WithDetail("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
