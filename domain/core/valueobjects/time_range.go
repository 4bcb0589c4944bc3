package valueobjects

import (
	"fmt"

	pkgerrors "fabula-backend/pkg/errors"
)

// TimeRange is a half-open interval [Start, End) on the timeline, in milliseconds.
type TimeRange struct {
	StartMS int64 `json:"start_ms"`
	EndMS   int64 `json:"end_ms"`
}

// NewTimeRange creates a time range, validating that start < end and start >= 0
func NewTimeRange(startMS, endMS int64) (TimeRange, error) {
	r := TimeRange{StartMS: startMS, EndMS: endMS}
	if err := r.Validate(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// Validate checks the start < end invariant
func (r TimeRange) Validate() error {
	if r.StartMS < 0 {
		return pkgerrors.NewValidationError(fmt.Sprintf("time range start %dms is negative", r.StartMS))
	}
	if r.StartMS >= r.EndMS {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("time range is invalid (start %dms >= end %dms)", r.StartMS, r.EndMS))
	}
	return nil
}

// DurationMS returns the length of the range in milliseconds
func (r TimeRange) DurationMS() int64 {
	return r.EndMS - r.StartMS
}

// Contains checks whether a point falls within the range (inclusive start, exclusive end)
func (r TimeRange) Contains(timeMS int64) bool {
	return timeMS >= r.StartMS && timeMS < r.EndMS
}

// Overlaps checks whether two ranges share any time
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.StartMS < other.EndMS && other.StartMS < r.EndMS
}

// Midpoint returns the center of the range
func (r TimeRange) Midpoint() int64 {
	return r.StartMS + r.DurationMS()/2
}

// EstimatedPages approximates screenplay pages (1 page ≈ 1 minute of screen time)
func (r TimeRange) EstimatedPages() float64 {
	return float64(r.DurationMS()) / 60_000.0
}

// FormatTime renders milliseconds as M:SS for display and logs
func FormatTime(ms int64) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}
