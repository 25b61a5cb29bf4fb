package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// AnthropicConfig contains settings for creating an Anthropic provider.
type AnthropicConfig struct {
	// Model is the Claude model to use (e.g., "claude-sonnet-4-5").
	Model string
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseBedrock routes calls through AWS Bedrock instead of the direct API.
	UseBedrock bool
	// AWSRegion is the Bedrock region (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS shared-config profile name.
	AWSProfile string
}

// Anthropic generates text through the Anthropic Messages API.
type Anthropic struct {
	client  anthropic.Client
	model   anthropic.Model
	bedrock bool
	tracker *TokenTracker
}

// NewAnthropic creates a new Anthropic provider.
func NewAnthropic(cfg AnthropicConfig, tracker *TokenTracker) (*Anthropic, error) {
	var opts []option.RequestOption

	if cfg.UseBedrock {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_5_20250929
	}
	if cfg.UseBedrock {
		model = translateModelForBedrock(model)
	}

	if tracker == nil {
		tracker = NewTokenTracker()
	}

	return &Anthropic{
		client:  anthropic.NewClient(opts...),
		model:   model,
		bedrock: cfg.UseBedrock,
		tracker: tracker,
	}, nil
}

// Name identifies the backend.
func (a *Anthropic) Name() string {
	if a.bedrock {
		return "bedrock"
	}
	return "anthropic"
}

// Tracker returns the token tracker for this provider.
func (a *Anthropic) Tracker() *TokenTracker {
	return a.tracker
}

// Generate runs one Messages call and returns the assembled text content.
func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	req = req.withDefaults()

	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   req.MaxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProvider, a.Name(), err)
	}

	a.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}

	text := result.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s: empty completion", ErrProvider, a.Name())
	}
	return text, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// inference profile format: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}

	// Already Bedrock format or a custom model
	return model
}
