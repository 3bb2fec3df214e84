package oracle

import (
	"context"
	"strings"
	"time"
)

// GenerationResult is the explicit outcome of draining one generation stream.
// Callers branch on Ok() instead of recovering from stream errors downstream.
type GenerationResult struct {
	Text    string
	Elapsed time.Duration
	Err     error
}

// Ok reports whether generation produced a usable response.
func (r GenerationResult) Ok() bool { return r.Err == nil }

// Collect drains a model's generation stream into a single result. Partial
// chunks are accumulated and surfaced through onPartial with the text so far,
// letting the caller refresh in-flight state chunk by chunk. A final
// (non-partial) chunk replaces the accumulated text when the provider emits
// the full completion at the end of a stream.
//
// Any stream error or context cancellation yields a failed result; Collect
// never panics and never blocks after the channels close.
func Collect(ctx context.Context, m Model, req Request, onPartial func(soFar string)) GenerationResult {
	start := time.Now()
	chunks, errs := m.Generate(ctx, req)

	var sb strings.Builder
	var final string
	for {
		select {
		case <-ctx.Done():
			return GenerationResult{Elapsed: time.Since(start), Err: ctx.Err()}
		case err, ok := <-errs:
			if ok && err != nil {
				return GenerationResult{Elapsed: time.Since(start), Err: err}
			}
			// Error channel closed without error; keep draining chunks.
			errs = nil
		case c, ok := <-chunks:
			if !ok {
				text := final
				if text == "" {
					text = sb.String()
				}
				return GenerationResult{Text: text, Elapsed: time.Since(start)}
			}
			if c.Partial {
				sb.WriteString(c.Text)
				if onPartial != nil {
					onPartial(sb.String())
				}
				continue
			}
			final = c.Text
		}
	}
}
