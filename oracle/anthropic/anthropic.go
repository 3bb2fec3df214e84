// Package anthropic provides an oracle wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/agentarena/oracle"
)

// Options configures the Anthropic oracle adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Oracle wraps the Anthropic Messages API behind the generic oracle.Oracle interface.
type Oracle struct {
	client *anthropic.Client
	opts   Options
}

var _ oracle.Oracle = (*Oracle)(nil)

// New creates a new Anthropic oracle using the official client
func New(optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Oracle{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic oracle from an existing client
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Oracle{
		client: client,
		opts:   opts,
	}
}

// Generate implements generation over the Anthropic Messages API.
//
// TODO: adopt the SDK's message accumulator for true incremental streaming;
// until then a streaming request is served as a single final chunk, which
// oracle.Collect handles transparently.
func (m *Oracle) Generate(ctx context.Context, req oracle.Request) (<-chan oracle.Chunk, <-chan error) {
	out := make(chan oracle.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		text, stopReason, err := m.complete(ctx, req)
		if err != nil {
			errCh <- err
			return
		}

		out <- oracle.Chunk{Text: text, FinishReason: stopReason}
	}()

	return out, errCh
}

// complete runs one non-streaming Messages call and flattens the text blocks.
func (m *Oracle) complete(ctx context.Context, req oracle.Request) (string, string, error) {
	temperature := m.opts.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := m.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}

	stopReason := "stop"
	if resp.StopReason != "" {
		stopReason = string(resp.StopReason)
	}

	return text, stopReason, nil
}

// Evaluate implements oracle.Evaluator by asking the model for a JSON verdict
// and parsing it into a Scorecard.
func (m *Oracle) Evaluate(ctx context.Context, req oracle.EvaluationRequest) (*oracle.Scorecard, error) {
	text, _, err := m.complete(ctx, oracle.Request{Prompt: oracle.BuildEvaluationPrompt(req)})
	if err != nil {
		return nil, err
	}
	return oracle.ParseScorecard(text)
}

// Info returns metadata describing this Anthropic oracle implementation.
func (m *Oracle) Info() oracle.Info {
	return oracle.Info{
		Name:     string(m.opts.Model),
		Provider: "anthropic",
	}
}
