package ai

import (
	"context"
	"strings"
	"testing"
	"time"

	"fabula-backend/application/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubBackend_StreamsDeterministicDraft(t *testing.T) {
	// Arrange
	stub := NewStubBackend()
	req := ports.GenerationRequest{Prompt: "PREMISE: a heist\nAuthor notes:\nthe crew argues\n"}

	// Act
	stream, err := stub.Generate(context.Background(), req)
	require.NoError(t, err)

	var body strings.Builder
	sawDone := false
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		if chunk.Done {
			sawDone = true
			continue
		}
		body.WriteString(chunk.Token)
	}

	// Assert
	assert.True(t, sawDone)
	text := body.String()
	assert.True(t, strings.HasPrefix(text, "[draft] "))
	// The last prompt line is echoed so tests can see the packed context.
	assert.Contains(t, text, "the crew argues")
}

func TestStubBackend_GenerateHonorsCancellation(t *testing.T) {
	// Arrange: a delay keeps the stream alive long enough to cancel it.
	stub := &StubBackend{Delay: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := stub.Generate(ctx, ports.GenerationRequest{Prompt: "one two three four five six"})
	require.NoError(t, err)

	// Act
	cancel()

	// Assert
	var last ports.StreamChunk
	for chunk := range stream {
		last = chunk
	}
	assert.ErrorIs(t, last.Err, context.Canceled)
}

func TestStubBackend_ReactToEditFlagsEveryCandidate(t *testing.T) {
	// Arrange
	stub := NewStubBackend()
	edit := ports.EditContext{
		EditedNodeName: "The Reveal",
		Candidates: map[string]string{
			"node-1": "first passage",
			"node-2": "second passage",
		},
	}

	// Act
	drafts, err := stub.ReactToEdit(context.Background(), edit)

	// Assert
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	for _, d := range drafts {
		assert.Contains(t, d.Reason, "The Reveal")
		assert.NotEmpty(t, d.SuggestedText)
	}
}

func TestStubBackend_SummarizeTruncates(t *testing.T) {
	stub := NewStubBackend()

	short, err := stub.Summarize(context.Background(), "  a short scene  ")
	require.NoError(t, err)
	assert.Equal(t, "a short scene", short)

	long, err := stub.Summarize(context.Background(), strings.Repeat("x", 500))
	require.NoError(t, err)
	assert.Len(t, long, 203)
	assert.True(t, strings.HasSuffix(long, "..."))
}
