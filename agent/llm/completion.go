package llm

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	contractx "github.com/smartinbox/server/agent/contract"
	openrouterx "github.com/smartinbox/server/pkg/openrouter"
)

// Completion implements contract.CompletionService over the OpenRouter
// chat completions API. One instance per role class; all handlers in a
// run share the same underlying HTTP client.
type Completion struct {
	client      *openaisdk.Client
	model       string
	maxTokens   int
	temperature float64
}

var _ contractx.CompletionService = (*Completion)(nil)

func NewCompletion(cfg openrouterx.Config) (*Completion, error) {
	client := openrouterx.NewClient(cfg)
	if client == nil {
		return nil, fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}

	return &Completion{
		client:      client,
		model:       model,
		maxTokens:   cfg.MaxCompletionToken,
		temperature: cfg.Temperature,
	}, nil
}

// Invoke sends one system+user exchange and returns the raw text of
// the first choice. Callers must not assume the text is well-formed
// structured output.
func (c *Completion) Invoke(ctx context.Context, roleInstruction string, userContext string) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(roleInstruction),
			openaisdk.UserMessage(userContext),
		},
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(c.maxTokens))
	}
	if c.temperature >= 0 {
		params.Temperature = openaisdk.Float(c.temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrCompletionService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", contractx.ErrCompletionService)
	}
	return resp.Choices[0].Message.Content, nil
}
