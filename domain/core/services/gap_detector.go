package services

import (
	"sort"

	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
)

// GapKind classifies where a gap sits relative to its siblings
type GapKind string

const (
	GapLeading  GapKind = "leading"
	GapInner    GapKind = "inner"
	GapTrailing GapKind = "trailing"
)

// Gap is an uncovered span between siblings. Gaps are advisory: they flag
// unwritten story time but never block editing.
type Gap struct {
	Kind      GapKind                `json:"kind"`
	TimeRange valueobjects.TimeRange `json:"time_range"`
	// BeforeID and AfterID name the flanking siblings when present.
	BeforeID valueobjects.NodeID `json:"before_id,omitempty"`
	AfterID  valueobjects.NodeID `json:"after_id,omitempty"`
}

// GapDetector finds uncovered spans among siblings sharing a cover range.
// Only gaps at or above the threshold are reported; with a zero threshold
// the reported gaps and the sibling ranges tile the cover exactly.
type GapDetector struct {
	thresholdMS int64
}

// NewGapDetector creates a detector with the given reporting threshold
func NewGapDetector(thresholdMS int64) *GapDetector {
	return &GapDetector{thresholdMS: thresholdMS}
}

// ThresholdMS returns the configured reporting floor
func (d *GapDetector) ThresholdMS() int64 {
	return d.thresholdMS
}

// DetectGaps scans siblings ordered by start time within cover and returns
// the leading, inner, and trailing gaps that meet the threshold.
func (d *GapDetector) DetectGaps(siblings []*entities.StoryNode, cover valueobjects.TimeRange) []Gap {
	if len(siblings) == 0 {
		if cover.DurationMS() >= d.thresholdMS && cover.DurationMS() > 0 {
			return []Gap{{Kind: GapLeading, TimeRange: cover}}
		}
		return nil
	}

	ordered := make([]*entities.StoryNode, len(siblings))
	copy(ordered, siblings)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].TimeRange.StartMS < ordered[j].TimeRange.StartMS
	})

	var gaps []Gap
	if lead := ordered[0].TimeRange.StartMS - cover.StartMS; lead > 0 && lead >= d.thresholdMS {
		gaps = append(gaps, Gap{
			Kind:      GapLeading,
			TimeRange: valueobjects.TimeRange{StartMS: cover.StartMS, EndMS: ordered[0].TimeRange.StartMS},
			AfterID:   ordered[0].ID,
		})
	}
	for i := 0; i+1 < len(ordered); i++ {
		lo, hi := ordered[i].TimeRange.EndMS, ordered[i+1].TimeRange.StartMS
		if span := hi - lo; span > 0 && span >= d.thresholdMS {
			gaps = append(gaps, Gap{
				Kind:      GapInner,
				TimeRange: valueobjects.TimeRange{StartMS: lo, EndMS: hi},
				BeforeID:  ordered[i].ID,
				AfterID:   ordered[i+1].ID,
			})
		}
	}
	last := ordered[len(ordered)-1]
	if trail := cover.EndMS - last.TimeRange.EndMS; trail > 0 && trail >= d.thresholdMS {
		gaps = append(gaps, Gap{
			Kind:      GapTrailing,
			TimeRange: valueobjects.TimeRange{StartMS: last.TimeRange.EndMS, EndMS: cover.EndMS},
			BeforeID:  last.ID,
		})
	}
	return gaps
}
