package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIConfig contains settings for creating an OpenAI provider.
type OpenAIConfig struct {
	// Model is the chat model to use (e.g., "gpt-4o").
	Model string
	// APIKey is the OpenAI API key. If empty, uses OPENAI_API_KEY env var.
	APIKey string
}

// OpenAI generates text through the OpenAI Chat Completions API.
type OpenAI struct {
	client  openai.Client
	model   string
	tracker *TokenTracker
}

// NewOpenAI creates a new OpenAI provider.
func NewOpenAI(cfg OpenAIConfig, tracker *TokenTracker) (*OpenAI, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	if tracker == nil {
		tracker = NewTokenTracker()
	}

	return &OpenAI{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		tracker: tracker,
	}, nil
}

// Name identifies the backend.
func (o *OpenAI) Name() string {
	return "openai"
}

// Tracker returns the token tracker for this provider.
func (o *OpenAI) Tracker() *TokenTracker {
	return o.tracker
}

// Generate runs one chat completion and returns the message text.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	req = req.withDefaults()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(req.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %v", ErrProvider, err)
	}

	o.tracker.Add(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no choices returned", ErrProvider)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: openai: empty completion", ErrProvider)
	}
	return text, nil
}
