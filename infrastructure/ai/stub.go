// Package ai provides text-generation backends behind the
// ports.AiBackend interface: a local Ollama client, an OpenRouter
// client, a deterministic stub for development, and a circuit-breaker
// wrapper shared by all of them.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fabula-backend/application/ports"
)

// StubBackend produces deterministic placeholder text without any
// network dependency. It is the default backend in tests and lets the
// editor run end to end before a model is configured.
type StubBackend struct {
	// Delay between emitted tokens; zero streams as fast as the
	// consumer drains.
	Delay time.Duration
}

func NewStubBackend() *StubBackend {
	return &StubBackend{Delay: 0}
}

func (s *StubBackend) Name() string { return "stub" }

func (s *StubBackend) Generate(ctx context.Context, req ports.GenerationRequest) (<-chan ports.StreamChunk, error) {
	text := stubBody(req)
	out := make(chan ports.StreamChunk)
	go func() {
		defer close(out)
		for _, word := range strings.SplitAfter(text, " ") {
			if s.Delay > 0 {
				select {
				case <-time.After(s.Delay):
				case <-ctx.Done():
					out <- ports.StreamChunk{Err: ctx.Err()}
					return
				}
			}
			select {
			case out <- ports.StreamChunk{Token: word}:
			case <-ctx.Done():
				out <- ports.StreamChunk{Err: ctx.Err()}
				return
			}
		}
		out <- ports.StreamChunk{Done: true}
	}()
	return out, nil
}

func (s *StubBackend) ReactToEdit(ctx context.Context, edit ports.EditContext) ([]ports.SuggestionDraft, error) {
	// Flag every candidate so the suggestion pipeline can be exercised
	// without a model.
	drafts := make([]ports.SuggestionDraft, 0, len(edit.Candidates))
	for id, text := range edit.Candidates {
		drafts = append(drafts, ports.SuggestionDraft{
			TargetNodeID:  id,
			OriginalText:  text,
			SuggestedText: text,
			Reason:        fmt.Sprintf("Review after the edit to %q.", edit.EditedNodeName),
		})
	}
	return drafts, nil
}

func (s *StubBackend) Summarize(ctx context.Context, text string) (string, error) {
	const max = 200
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text, nil
	}
	return text[:max] + "...", nil
}

func (s *StubBackend) HealthCheck(ctx context.Context) error { return nil }

func stubBody(req ports.GenerationRequest) string {
	var b strings.Builder
	b.WriteString("[draft] ")
	// Echo the tail of the prompt so tests can assert the packed
	// context reached the backend.
	prompt := strings.TrimSpace(req.Prompt)
	if idx := strings.LastIndex(prompt, "\n"); idx >= 0 {
		prompt = prompt[idx+1:]
	}
	if len(prompt) > 120 {
		prompt = prompt[:120]
	}
	b.WriteString(strings.TrimSpace(prompt))
	b.WriteString(" The scene unfolds, pressure builds, and the moment turns on a small, concrete detail.")
	return b.String()
}
