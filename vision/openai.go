package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is used when OpenAIConfig.Model is empty.
const DefaultOpenAIModel = "gpt-4o"

// OpenAIConfig configures a backend speaking the OpenAI chat completions
// protocol, which also covers OpenRouter and most self-hosted gateways.
type OpenAIConfig struct {
	// APIKey falls back to OPENAI_API_KEY.
	APIKey string

	// BaseURL falls back to OPENAI_BASE_URL, then the public OpenAI API.
	BaseURL string

	// Model overrides DefaultOpenAIModel.
	Model string
}

// OpenAI is a Backend served over the OpenAI chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI-compatible backend. The SDK's own retries are
// disabled; callers drive retries through IsRetryable.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	key := firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
	if key == "" {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingCredentials)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if base := firstNonEmpty(cfg.BaseURL, os.Getenv("OPENAI_BASE_URL")); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

// Model implements Backend.
func (o *OpenAI) Model() string { return o.model }

// Generate implements Backend.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instruction != "" {
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(req.Instruction),
				},
			},
		})
	}

	var parts []openai.ChatCompletionContentPartUnionParam
	if req.Text != "" {
		parts = append(parts, openai.ChatCompletionContentPartUnionParam{
			OfText: &openai.ChatCompletionContentPartTextParam{Text: req.Text},
		})
	}
	if len(req.Image) > 0 {
		parts = append(parts, openai.ChatCompletionContentPartUnionParam{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
					URL:    "data:" + req.imageMIME() + ";base64," + base64.StdEncoding.EncodeToString(req.Image),
					Detail: "high",
				},
			},
		})
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	})

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.model),
		Messages:    messages,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("vision: openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
