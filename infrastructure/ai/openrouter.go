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

// OpenRouterBackend talks to OpenRouter's OpenAI-compatible chat
// completions API. Generation streams server-sent events; the
// non-streaming calls reuse the same endpoint.
type OpenRouterBackend struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

func NewOpenRouterBackend(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *OpenRouterBackend {
	return &OpenRouterBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (o *OpenRouterBackend) Name() string { return "openrouter" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatChoice struct {
	Delta        chatMessage `json:"delta"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenRouterBackend) Generate(ctx context.Context, req ports.GenerationRequest) (<-chan ports.StreamChunk, error) {
	resp, err := o.post(ctx, chatRequest{
		Model:       o.model,
		Messages:    messages(req.System, req.Prompt),
		Stream:      true,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
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
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				out <- ports.StreamChunk{Done: true}
				return
			}
			var event chatResponse
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				// OpenRouter interleaves comment payloads on some
				// models; skip lines that are not completion events.
				continue
			}
			if event.Error != nil {
				out <- ports.StreamChunk{Err: pkgerrors.NewExternalError("openrouter", fmt.Errorf("%s", event.Error.Message))}
				return
			}
			if len(event.Choices) == 0 {
				continue
			}
			if token := event.Choices[0].Delta.Content; token != "" {
				select {
				case out <- ports.StreamChunk{Token: token}:
				case <-ctx.Done():
					out <- ports.StreamChunk{Err: ctx.Err()}
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				out <- ports.StreamChunk{Err: ctx.Err()}
				return
			}
			out <- ports.StreamChunk{Err: pkgerrors.NewExternalError("openrouter", err)}
			return
		}
		out <- ports.StreamChunk{Err: pkgerrors.NewExternalError("openrouter", io.ErrUnexpectedEOF)}
	}()
	return out, nil
}

func (o *OpenRouterBackend) ReactToEdit(ctx context.Context, edit ports.EditContext) ([]ports.SuggestionDraft, error) {
	raw, err := o.complete(ctx, consistencySystemPrompt, consistencyPrompt(edit))
	if err != nil {
		return nil, err
	}
	return parseSuggestionDrafts(raw, edit.Candidates)
}

func (o *OpenRouterBackend) Summarize(ctx context.Context, text string) (string, error) {
	raw, err := o.complete(ctx, recapSystemPrompt, recapPrompt(text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (o *OpenRouterBackend) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return pkgerrors.NewExternalError("openrouter", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	resp, err := o.client.Do(req)
	if err != nil {
		return pkgerrors.NewUnavailableError("openrouter")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return pkgerrors.NewUnavailableError("openrouter")
	}
	return nil
}

func (o *OpenRouterBackend) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.post(ctx, chatRequest{
		Model:    o.model,
		Messages: messages(system, prompt),
		Stream:   false,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", pkgerrors.NewExternalError("openrouter", err)
	}
	if parsed.Error != nil {
		return "", pkgerrors.NewExternalError("openrouter", fmt.Errorf("%s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", pkgerrors.NewExternalError("openrouter", fmt.Errorf("empty completion"))
	}
	return parsed.Choices[0].Message.Content, nil
}

func (o *OpenRouterBackend) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.NewInternalError("encode openrouter request").WithCause(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.NewExternalError("openrouter", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, pkgerrors.NewUnavailableError("openrouter")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		o.logger.Warn("openrouter request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(msg)))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, pkgerrors.NewUnavailableError("openrouter")
		}
		return nil, pkgerrors.NewExternalError("openrouter", fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp, nil
}

func messages(system, prompt string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})
	return msgs
}
