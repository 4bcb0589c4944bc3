package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"fabula-backend/application/ports"
	pkgerrors "fabula-backend/pkg/errors"
)

// OllamaBackend talks to a local Ollama server over its native HTTP
// API. Generation uses the streaming /api/generate endpoint (one JSON
// object per line); summarization and consistency reactions use the
// same endpoint without streaming.
type OllamaBackend struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

func NewOllamaBackend(baseURL, model string, timeout time.Duration, logger *zap.Logger) *OllamaBackend {
	return &OllamaBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (o *OllamaBackend) Name() string { return "ollama" }

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (o *OllamaBackend) Generate(ctx context.Context, req ports.GenerationRequest) (<-chan ports.StreamChunk, error) {
	body := ollamaRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: true,
	}
	if opts := o.options(req); len(opts) > 0 {
		body.Options = opts
	}

	resp, err := o.post(ctx, "/api/generate", body)
	if err != nil {
		return nil, err
	}

	out := make(chan ports.StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				out <- ports.StreamChunk{Err: pkgerrors.NewExternalError("ollama", err)}
				return
			}
			if chunk.Error != "" {
				out <- ports.StreamChunk{Err: pkgerrors.NewExternalError("ollama", fmt.Errorf("%s", chunk.Error))}
				return
			}
			if chunk.Response != "" {
				select {
				case out <- ports.StreamChunk{Token: chunk.Response}:
				case <-ctx.Done():
					out <- ports.StreamChunk{Err: ctx.Err()}
					return
				}
			}
			if chunk.Done {
				out <- ports.StreamChunk{Done: true}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				out <- ports.StreamChunk{Err: ctx.Err()}
				return
			}
			out <- ports.StreamChunk{Err: pkgerrors.NewExternalError("ollama", err)}
			return
		}
		// Stream ended without a done marker: treat the truncated
		// response as a failure so the node rolls back cleanly.
		out <- ports.StreamChunk{Err: pkgerrors.NewExternalError("ollama", io.ErrUnexpectedEOF)}
	}()
	return out, nil
}

func (o *OllamaBackend) ReactToEdit(ctx context.Context, edit ports.EditContext) ([]ports.SuggestionDraft, error) {
	raw, err := o.generateOnce(ctx, consistencySystemPrompt, consistencyPrompt(edit))
	if err != nil {
		return nil, err
	}
	return parseSuggestionDrafts(raw, edit.Candidates)
}

func (o *OllamaBackend) Summarize(ctx context.Context, text string) (string, error) {
	raw, err := o.generateOnce(ctx, recapSystemPrompt, recapPrompt(text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (o *OllamaBackend) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return pkgerrors.NewExternalError("ollama", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return pkgerrors.NewUnavailableError("ollama")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return pkgerrors.NewUnavailableError("ollama")
	}
	return nil
}

func (o *OllamaBackend) generateOnce(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.post(ctx, "/api/generate", ollamaRequest{
		Model:  o.model,
		Prompt: prompt,
		System: system,
		Stream: false,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", pkgerrors.NewExternalError("ollama", err)
	}
	if parsed.Error != "" {
		return "", pkgerrors.NewExternalError("ollama", fmt.Errorf("%s", parsed.Error))
	}
	return parsed.Response, nil
}

func (o *OllamaBackend) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.NewInternalError("encode ollama request").WithCause(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.NewExternalError("ollama", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, pkgerrors.NewUnavailableError("ollama")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		o.logger.Warn("ollama request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(msg)))
		return nil, pkgerrors.NewExternalError("ollama", fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp, nil
}

func (o *OllamaBackend) options(req ports.GenerationRequest) map[string]any {
	opts := map[string]any{}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	return opts
}
