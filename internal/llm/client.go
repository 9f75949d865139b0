package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/recallware/memspace/internal/domain"
)

// DefaultChatModel is the OpenAI model used for chat completions
const DefaultChatModel = openai.GPT4o

var (
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyCompletion is returned when the API returns no choices
	ErrEmptyCompletion = errors.New("no completion choices returned")
)

// ChatAPI defines the interface for chat completion calls
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
}

// Client wraps the OpenAI API client. A nil-api Client is valid and
// reports itself as not configured.
type Client struct {
	api ChatAPI
}

type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, model string) *OpenAIAdapter {
	if model == "" {
		model = DefaultChatModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateChatCompletion calls the OpenAI API and returns the first choice's text
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey string
	Model  string
}

// NewClient creates a new chat client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new chat client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	return &Client{
		api: NewOpenAIAdapter(cfg.APIKey, cfg.Model),
	}
}

// NewClientWithAPI creates a client around an existing ChatAPI (for testing).
func NewClientWithAPI(api ChatAPI) *Client {
	return &Client{api: api}
}

// NewClientFromEnv creates a new chat client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// IsConfigured reports whether the client can perform completions.
func (c *Client) IsConfigured() bool {
	return c != nil && c.api != nil
}

// ChatCompletion sends the system prompt and full message history and
// returns the raw completion text. A single attempt is made; transport
// failures surface directly.
func (c *Client) ChatCompletion(ctx context.Context, systemPrompt string, history []domain.ChatMessage) (string, error) {
	if !c.IsConfigured() {
		return "", domain.ErrAINotConfigured
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, msg := range history {
		converted, err := toOpenAIMessage(msg)
		if err != nil {
			return "", err
		}
		messages = append(messages, converted)
	}

	text, err := c.api.CreateChatCompletion(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	return text, nil
}

// toOpenAIMessage converts a domain message into the OpenAI wire
// format, mapping the parts variant onto MultiContent.
func toOpenAIMessage(msg domain.ChatMessage) (openai.ChatCompletionMessage, error) {
	out := openai.ChatCompletionMessage{Role: string(msg.Role)}

	switch content := msg.Content.(type) {
	case domain.TextContent:
		out.Content = string(content)
	case domain.PartsContent:
		parts := make([]openai.ChatMessagePart, 0, len(content))
		for _, part := range content {
			switch part.Type {
			case domain.ContentPartText:
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: part.Text,
				})
			case domain.ContentPartImageURL:
				if part.ImageURL == nil {
					continue
				}
				parts = append(parts, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: part.ImageURL.URL},
				})
			}
		}
		out.MultiContent = parts
	case nil:
		out.Content = ""
	default:
		return out, fmt.Errorf("unsupported message content type %T", msg.Content)
	}

	return out, nil
}
