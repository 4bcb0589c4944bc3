package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"fabula-backend/application/ports"
	pkgerrors "fabula-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBackend fails every call until healed.
type flakyBackend struct {
	healthy bool
}

func (f *flakyBackend) Name() string { return "flaky" }

func (f *flakyBackend) Generate(ctx context.Context, req ports.GenerationRequest) (<-chan ports.StreamChunk, error) {
	out := make(chan ports.StreamChunk)
	go func() {
		defer close(out)
		if !f.healthy {
			out <- ports.StreamChunk{Err: errors.New("connection refused")}
			return
		}
		out <- ports.StreamChunk{Token: "ok"}
		out <- ports.StreamChunk{Done: true}
	}()
	return out, nil
}

func (f *flakyBackend) ReactToEdit(ctx context.Context, edit ports.EditContext) ([]ports.SuggestionDraft, error) {
	if !f.healthy {
		return nil, errors.New("connection refused")
	}
	return nil, nil
}

func (f *flakyBackend) Summarize(ctx context.Context, text string) (string, error) {
	if !f.healthy {
		return "", errors.New("connection refused")
	}
	return "recap", nil
}

func (f *flakyBackend) HealthCheck(ctx context.Context) error { return nil }

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         0,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 0.6,
		MinRequests:      4,
	}
}

func drain(t *testing.T, stream <-chan ports.StreamChunk) error {
	t.Helper()
	var last error
	for chunk := range stream {
		if chunk.Err != nil {
			last = chunk.Err
		}
	}
	return last
}

func TestBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	// Arrange
	inner := &flakyBackend{healthy: false}
	breaker := NewBreakerBackend(inner, testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	// Act: four failing unary calls reach the trip threshold.
	for i := 0; i < 4; i++ {
		_, err := breaker.Summarize(ctx, "text")
		require.Error(t, err)
	}

	// Assert
	_, err := breaker.Summarize(ctx, "text")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
}

func TestBreaker_StreamFailureCountsOnCompletion(t *testing.T) {
	// Arrange
	inner := &flakyBackend{healthy: false}
	breaker := NewBreakerBackend(inner, testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	// Act: the outcome is reported only when the stream finishes.
	for i := 0; i < 4; i++ {
		stream, err := breaker.Generate(ctx, ports.GenerationRequest{Prompt: "p"})
		require.NoError(t, err)
		require.Error(t, drain(t, stream))
	}

	// Assert
	_, err := breaker.Generate(ctx, ports.GenerationRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	// Arrange
	inner := &cancellingBackend{}
	breaker := NewBreakerBackend(inner, testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	// Act: many cancelled streams.
	for i := 0; i < 10; i++ {
		stream, err := breaker.Generate(ctx, ports.GenerationRequest{Prompt: "p"})
		require.NoError(t, err)
		drain(t, stream)
	}

	// Assert: the circuit stays closed.
	_, err := breaker.Generate(ctx, ports.GenerationRequest{Prompt: "p"})
	assert.NoError(t, err)
}

// cancellingBackend ends every stream with context.Canceled.
type cancellingBackend struct{}

func (c *cancellingBackend) Name() string { return "cancelling" }

func (c *cancellingBackend) Generate(ctx context.Context, req ports.GenerationRequest) (<-chan ports.StreamChunk, error) {
	out := make(chan ports.StreamChunk)
	go func() {
		defer close(out)
		out <- ports.StreamChunk{Err: context.Canceled}
	}()
	return out, nil
}

func (c *cancellingBackend) ReactToEdit(ctx context.Context, edit ports.EditContext) ([]ports.SuggestionDraft, error) {
	return nil, nil
}

func (c *cancellingBackend) Summarize(ctx context.Context, text string) (string, error) {
	return "", nil
}

func (c *cancellingBackend) HealthCheck(ctx context.Context) error { return nil }

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	// Arrange: trip the breaker, then heal the backend.
	inner := &flakyBackend{healthy: false}
	breaker := NewBreakerBackend(inner, testBreakerConfig(), zap.NewNop())
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		breaker.Summarize(ctx, "text") //nolint:errcheck // tripping on purpose
	}
	_, err := breaker.Summarize(ctx, "text")
	require.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))

	inner.healthy = true

	// Act: after the open timeout a half-open probe goes through.
	require.Eventually(t, func() bool {
		recap, err := breaker.Summarize(ctx, "text")
		return err == nil && recap == "recap"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBreaker_HealthCheckBypassesCircuit(t *testing.T) {
	// Arrange
	inner := &flakyBackend{healthy: false}
	breaker := NewBreakerBackend(inner, testBreakerConfig(), zap.NewNop())
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		breaker.Summarize(ctx, "text") //nolint:errcheck // tripping on purpose
	}

	// Act + Assert
	assert.NoError(t, breaker.HealthCheck(ctx))
	assert.Equal(t, "flaky", breaker.Name())
}
