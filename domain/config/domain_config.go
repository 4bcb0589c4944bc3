package config

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Timeline constraints
	MinNodeDurationMS      int64
	DefaultTotalDurationMS int64
	GapThresholdMS         int64

	// Node constraints
	MaxNameLength  int
	MaxNotesLength int
	MaxBodyLength  int

	// History constraints
	UndoStackDepth int

	// Generation constraints
	ContextTokenBudget int
	MaxBatchChildren   int

	// Validation settings
	AllowSelfRelationships bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() DomainConfig {
	return DomainConfig{
		// A node shorter than 5 seconds of screen time is not a meaningful
		// narrative unit and the timeline cannot render it legibly.
		MinNodeDurationMS: 5_000,
		// ~22 minutes of content for a standard 30-minute slot.
		DefaultTotalDurationMS: 1_320_000,
		// Gaps shorter than 30 seconds count as intentional breathing room.
		GapThresholdMS: 30_000,

		MaxNameLength:  200,
		MaxNotesLength: 20_000,
		MaxBodyLength:  200_000,

		UndoStackDepth: 50,

		ContextTokenBudget: 6_000,
		MaxBatchChildren:   32,

		AllowSelfRelationships: false,
	}
}
