// Package openai provides an implementation of oracle.Oracle using the OpenAI
// Chat Completions API (including streaming). It adapts the arena's normalized
// Request/Chunk structures into the SDK's message format and back.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentarena/oracle"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI oracle adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Oracle wraps the OpenAI Chat Completions API behind the generic
// oracle.Oracle interface.
type Oracle struct {
	client *openai.Client
	opts   Options
}

var _ oracle.Oracle = (*Oracle)(nil)

// New creates a new OpenAI oracle using the official client
func New(optFns ...func(o *Options)) *Oracle {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI oracle from an existing client
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Oracle{client: client, opts: opts}
}

// Generate implements unified streaming / non-streaming generation.
// It adapts OpenAI Chat Completions into oracle.Chunk events.
func (m *Oracle) Generate(ctx context.Context, req oracle.Request) (<-chan oracle.Chunk, <-chan error) {
	out := make(chan oracle.Chunk, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		params := m.buildParams(req)
		if req.Stream {
			m.handleStreaming(ctx, params, out, errCh)
			return
		}
		m.handleNonStreaming(ctx, params, out, errCh)
	}()
	return out, errCh
}

// buildParams assembles the OpenAI request parameters.
func (m *Oracle) buildParams(req oracle.Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	temperature := m.opts.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := m.opts.MaxCompletionTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
}

// handleStreaming processes streaming responses and forwards partial / final chunks.
func (m *Oracle) handleStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- oracle.Chunk,
	errCh chan<- error,
) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	var textBuilder strings.Builder
	for stream.Next() {
		ck := stream.Current()
		for _, ch := range ck.Choices {
			if ch.Delta.Content != "" {
				textBuilder.WriteString(ch.Delta.Content)
				out <- oracle.Chunk{Text: ch.Delta.Content, Partial: true}
			}
			if ch.FinishReason != "" {
				out <- oracle.Chunk{Text: textBuilder.String(), FinishReason: ch.FinishReason}
			}
		}
	}
	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("openai streaming error: %w", err)
	}
}

// handleNonStreaming processes a normal (non-streaming) completion.
func (m *Oracle) handleNonStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- oracle.Chunk,
	errCh chan<- error,
) {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		errCh <- fmt.Errorf("openai api error: %w", err)
		return
	}
	if len(resp.Choices) == 0 {
		errCh <- fmt.Errorf("no choices returned")
		return
	}
	ch0 := resp.Choices[0]
	out <- oracle.Chunk{Text: ch0.Message.Content, FinishReason: ch0.FinishReason}
}

// Evaluate implements oracle.Evaluator by asking the model for a JSON verdict
// and parsing it into a Scorecard.
func (m *Oracle) Evaluate(ctx context.Context, req oracle.EvaluationRequest) (*oracle.Scorecard, error) {
	params := m.buildParams(oracle.Request{Prompt: oracle.BuildEvaluationPrompt(req)})
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	return oracle.ParseScorecard(resp.Choices[0].Message.Content)
}

// Info returns metadata describing this OpenAI oracle implementation.
func (m *Oracle) Info() oracle.Info {
	return oracle.Info{
		Name:     m.opts.Model,
		Provider: "openai",
	}
}
