package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface check
var _ Completer = (*OpenAI)(nil)

// ChatCompletionsService defines the interface for making chat completion API calls.
// This abstraction enables testing without calling the real OpenAI API.
type ChatCompletionsService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI implements Completer using the OpenAI chat completions API.
type OpenAI struct {
	completions ChatCompletionsService
	model       openai.ChatModel
}

// NewOpenAI creates a chat completion client against {baseURL}/v1/chat/completions.
// SDK retries are disabled: every call is single-shot.
func NewOpenAI(cfg ClientConfig, model string) *OpenAI {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(apiBaseURL(cfg.BaseURL)),
		option.WithMaxRetries(0),
	)
	return &OpenAI{
		completions: client.Chat.Completions,
		model:       openai.ChatModel(model),
	}
}

// Complete issues one chat completion and returns the first choice's content.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.F(o.model),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		}),
		Temperature: openai.F(req.Temperature),
		MaxTokens:   openai.F(req.MaxTokens),
	}
	if req.JSON {
		params.ResponseFormat = openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONObjectParam{
				Type: openai.F(openai.ResponseFormatJSONObjectTypeJSONObject),
			},
		)
	}

	resp, err := o.completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the chat model identifier
func (o *OpenAI) ModelName() string {
	return string(o.model)
}

// apiBaseURL turns a provider root such as https://api.openai.com into the
// SDK base URL. The trailing slash matters: request paths resolve relative to it.
func apiBaseURL(root string) string {
	root = strings.TrimRight(strings.TrimSpace(root), "/")
	if root == "" {
		root = DefaultBaseURL
	}
	return root + "/v1/"
}
