package valueobjects

import (
	"fmt"
)

// StoryLevel is the rank a node occupies in the narrative hierarchy.
// Levels are ordered: Premise contains Acts, Acts contain Sequences,
// Sequences contain Scenes, Scenes contain Beats.
type StoryLevel string

const (
	LevelPremise  StoryLevel = "premise"
	LevelAct      StoryLevel = "act"
	LevelSequence StoryLevel = "sequence"
	LevelScene    StoryLevel = "scene"
	LevelBeat     StoryLevel = "beat"
)

// AllLevels returns every level in hierarchy order
func AllLevels() []StoryLevel {
	return []StoryLevel{LevelPremise, LevelAct, LevelSequence, LevelScene, LevelBeat}
}

// ParseStoryLevel converts a wire string into a StoryLevel
func ParseStoryLevel(s string) (StoryLevel, error) {
	switch StoryLevel(s) {
	case LevelPremise, LevelAct, LevelSequence, LevelScene, LevelBeat:
		return StoryLevel(s), nil
	default:
		return "", fmt.Errorf("unknown story level %q", s)
	}
}

// Depth returns the zero-based rank of the level (Premise = 0, Beat = 4)
func (l StoryLevel) Depth() int {
	switch l {
	case LevelPremise:
		return 0
	case LevelAct:
		return 1
	case LevelSequence:
		return 2
	case LevelScene:
		return 3
	case LevelBeat:
		return 4
	}
	return -1
}

// ChildLevel returns the level directly below, or false at the bottom
func (l StoryLevel) ChildLevel() (StoryLevel, bool) {
	switch l {
	case LevelPremise:
		return LevelAct, true
	case LevelAct:
		return LevelSequence, true
	case LevelSequence:
		return LevelScene, true
	case LevelScene:
		return LevelBeat, true
	}
	return "", false
}

// ParentLevel returns the level directly above, or false at the top
func (l StoryLevel) ParentLevel() (StoryLevel, bool) {
	switch l {
	case LevelAct:
		return LevelPremise, true
	case LevelSequence:
		return LevelAct, true
	case LevelScene:
		return LevelSequence, true
	case LevelBeat:
		return LevelScene, true
	}
	return "", false
}

// Label returns the human-readable name of the level
func (l StoryLevel) Label() string {
	switch l {
	case LevelPremise:
		return "Premise"
	case LevelAct:
		return "Act"
	case LevelSequence:
		return "Sequence"
	case LevelScene:
		return "Scene"
	case LevelBeat:
		return "Beat"
	}
	return string(l)
}

// IsLeaf reports whether this is the lowest, content-bearing level
func (l StoryLevel) IsLeaf() bool {
	return l == LevelBeat
}
