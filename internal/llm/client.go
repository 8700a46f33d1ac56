package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultSystemPrompt = "You are a helpful AI assistant."

// Message is a single chat turn. Role must be one of system, user or assistant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client wraps an OpenAI-compatible chat completions endpoint (Together,
// OpenAI, or any local server speaking the same protocol).
type Client struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

func NewClient(apiKey, baseURL, model string, opts ...option.RequestOption) *Client {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	client := openai.NewClient(reqOpts...)
	return &Client{
		client:      &client,
		model:       model,
		temperature: 0.7,
		maxTokens:   1000,
	}
}

// Generate sends a single-turn prompt and returns the trimmed response text.
// An empty systemPrompt falls back to the default assistant persona.
func (c *Client) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return c.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(prompt),
	})
}

// GenerateChat sends a multi-turn conversation. The last system turn, if any,
// replaces the default system prompt; an unknown role is a caller error.
func (c *Client) GenerateChat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages must be a non-empty list")
	}

	systemPrompt := defaultSystemPrompt
	var turns []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemPrompt = msg.Content
		case "user":
			turns = append(turns, openai.UserMessage(msg.Content))
		case "assistant":
			turns = append(turns, openai.AssistantMessage(msg.Content))
		default:
			return "", fmt.Errorf("invalid role: %s", msg.Role)
		}
	}

	all := append([]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}, turns...)
	return c.complete(ctx, all)
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
