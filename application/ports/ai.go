package ports

import (
	"context"
)

// StreamChunk is one increment of a generation stream. A chunk carries a
// token, a terminal error, or the done marker; after Done or Err the
// channel is closed.
type StreamChunk struct {
	Token string
	Done  bool
	Err   error
}

// GenerationRequest carries the packed prompt for one node generation
type GenerationRequest struct {
	// System frames the model's role for the selected level.
	System string
	// Prompt is the packed context: premise, ancestors, siblings,
	// relationships, entity profiles, and the node's own notes.
	Prompt string
	// MaxTokens caps the response; zero means backend default.
	MaxTokens int
	// Temperature of zero means backend default.
	Temperature float64
}

// SuggestionDraft is one proposed downstream edit from a consistency pass
type SuggestionDraft struct {
	TargetNodeID  string `json:"target_node_id"`
	OriginalText  string `json:"original_text"`
	SuggestedText string `json:"suggested_text"`
	Reason        string `json:"reason"`
}

// EditContext describes a user edit for the consistency reconciler:
// what changed and which downstream nodes might be affected.
type EditContext struct {
	EditedNodeName string
	BeforeText     string
	AfterText      string
	// Candidates maps downstream node IDs to their current text.
	Candidates map[string]string
}

// AiBackend abstracts a text-generation provider. Implementations stream
// tokens as they arrive and honor context cancellation mid-stream.
type AiBackend interface {
	// Generate starts a streaming completion. The returned channel is
	// closed after the final chunk; cancelling ctx ends the stream.
	Generate(ctx context.Context, req GenerationRequest) (<-chan StreamChunk, error)

	// ReactToEdit asks the backend which downstream passages conflict
	// with an edit and how to fix them.
	ReactToEdit(ctx context.Context, edit EditContext) ([]SuggestionDraft, error)

	// Summarize condenses text into a short recap.
	Summarize(ctx context.Context, text string) (string, error)

	// HealthCheck probes backend reachability.
	HealthCheck(ctx context.Context) error

	// Name identifies the backend for logs and health reports.
	Name() string
}
