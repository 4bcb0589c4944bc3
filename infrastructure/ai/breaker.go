package ai

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"fabula-backend/application/ports"
	pkgerrors "fabula-backend/pkg/errors"
)

// BreakerConfig tunes the circuit breaker around an AI backend.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      4,
	}
}

// BreakerBackend wraps another AiBackend with a circuit breaker so a
// dead or overloaded model server fails fast instead of stalling every
// generation for the full request timeout. The two-step breaker is
// used because a generation's outcome is only known once its stream
// finishes, long after the call returns.
type BreakerBackend struct {
	inner  ports.AiBackend
	cb     *gobreaker.TwoStepCircuitBreaker
	logger *zap.Logger
}

func NewBreakerBackend(inner ports.AiBackend, cfg BreakerConfig, logger *zap.Logger) *BreakerBackend {
	b := &BreakerBackend{inner: inner, logger: logger}
	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("ai backend circuit state changed",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return b
}

func (b *BreakerBackend) Name() string { return b.inner.Name() }

func (b *BreakerBackend) Generate(ctx context.Context, req ports.GenerationRequest) (<-chan ports.StreamChunk, error) {
	done, err := b.allow()
	if err != nil {
		return nil, err
	}
	stream, err := b.inner.Generate(ctx, req)
	if err != nil {
		done(countsAsSuccess(err))
		return nil, err
	}

	// Relay the stream and report its terminal outcome to the breaker.
	out := make(chan ports.StreamChunk)
	go func() {
		defer close(out)
		ok := true
		for chunk := range stream {
			if chunk.Err != nil {
				ok = countsAsSuccess(chunk.Err)
			}
			out <- chunk
		}
		done(ok)
	}()
	return out, nil
}

func (b *BreakerBackend) ReactToEdit(ctx context.Context, edit ports.EditContext) ([]ports.SuggestionDraft, error) {
	done, err := b.allow()
	if err != nil {
		return nil, err
	}
	drafts, err := b.inner.ReactToEdit(ctx, edit)
	done(countsAsSuccess(err))
	return drafts, err
}

func (b *BreakerBackend) Summarize(ctx context.Context, text string) (string, error) {
	done, err := b.allow()
	if err != nil {
		return "", err
	}
	recap, err := b.inner.Summarize(ctx, text)
	done(countsAsSuccess(err))
	return recap, err
}

// HealthCheck bypasses the breaker: probing reachability is how the
// circuit eventually observes recovery.
func (b *BreakerBackend) HealthCheck(ctx context.Context) error {
	return b.inner.HealthCheck(ctx)
}

func (b *BreakerBackend) allow() (func(bool), error) {
	done, err := b.cb.Allow()
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.NewUnavailableError(b.inner.Name())
		}
		return nil, pkgerrors.NewExternalError(b.inner.Name(), err)
	}
	return done, nil
}

// countsAsSuccess keeps user cancellations from tripping the circuit;
// only genuine backend failures should open it.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
