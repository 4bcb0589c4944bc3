package valueobjects

import "strings"

// BeatType tags the narrative function of a node. Only meaningful at the
// Beat level; higher levels leave it empty. Values outside the fixed set
// are carried through as free-form labels.
type BeatType string

const (
	BeatSetup        BeatType = "setup"
	BeatComplication BeatType = "complication"
	BeatEscalation   BeatType = "escalation"
	BeatClimax       BeatType = "climax"
	BeatResolution   BeatType = "resolution"
	BeatPayoff       BeatType = "payoff"
	BeatCallback     BeatType = "callback"
)

// ParseBeatType normalizes a wire string onto the fixed set where possible;
// anything unrecognized is kept verbatim as a free-form label.
func ParseBeatType(s string) BeatType {
	lowered := BeatType(strings.ToLower(strings.TrimSpace(s)))
	if !lowered.IsCustom() {
		return lowered
	}
	return BeatType(strings.TrimSpace(s))
}

// IsCustom reports whether the tag is a free-form label
func (b BeatType) IsCustom() bool {
	switch b {
	case BeatSetup, BeatComplication, BeatEscalation, BeatClimax,
		BeatResolution, BeatPayoff, BeatCallback:
		return false
	}
	return true
}
