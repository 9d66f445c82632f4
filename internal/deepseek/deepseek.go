// Package deepseek wraps the OpenAI-compatible DeepSeek chat API.
package deepseek

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	// DefaultBaseURL is the DeepSeek OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.deepseek.com/v1"
	// DefaultModel is the chat model used unless overridden.
	DefaultModel = "deepseek-chat"
)

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn sent to the model.
type Message struct {
	Role    string
	Content string
}

// Client talks to the DeepSeek chat completion API.
type Client struct {
	api   *openai.Client
	model string
}

// createCompletion performs the actual API call. Package variable so tests
// can stub out the network.
var createCompletion = func(ctx context.Context, api *openai.Client, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// New creates a client for the given API key. Empty baseURL and model fall
// back to the DeepSeek defaults.
func New(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	api := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &Client{api: &api, model: model}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Chat sends the conversation to the model and returns the trimmed reply.
func (c *Client) Chat(ctx context.Context, msgs []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)),
	}
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		case RoleUser:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		default:
			return "", fmt.Errorf("unknown message role %q", m.Role)
		}
	}
	reply, err := createCompletion(ctx, c.api, params)
	if err != nil {
		return "", fmt.Errorf("deepseek completion: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
