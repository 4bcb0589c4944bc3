package validators

import (
	"fmt"

	"fabula-backend/domain/config"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"
)

// NodeValidator enforces timeline placement rules: ranges stay inside the
// project duration, siblings never overlap, and every node keeps at least
// the minimum duration.
type NodeValidator struct {
	cfg config.DomainConfig
}

// NewNodeValidator creates a validator with the given domain configuration
func NewNodeValidator(cfg config.DomainConfig) *NodeValidator {
	return &NodeValidator{cfg: cfg}
}

// ValidateName checks node name constraints
func (v *NodeValidator) ValidateName(name string) error {
	if name == "" {
		return pkgerrors.NewValidationError("node name cannot be empty")
	}
	if len(name) > v.cfg.MaxNameLength {
		return pkgerrors.NewValidationError(fmt.Sprintf("node name exceeds %d characters", v.cfg.MaxNameLength))
	}
	return nil
}

// ValidateRange checks that a range is well formed, long enough, and inside
// the project duration.
func (v *NodeValidator) ValidateRange(rng valueobjects.TimeRange, totalDurationMS int64) error {
	if err := rng.Validate(); err != nil {
		return err
	}
	if rng.DurationMS() < v.cfg.MinNodeDurationMS {
		return pkgerrors.NewValidationError(fmt.Sprintf("node duration %dms is below the %dms minimum", rng.DurationMS(), v.cfg.MinNodeDurationMS))
	}
	if rng.EndMS > totalDurationMS {
		return pkgerrors.NewValidationError(fmt.Sprintf("range ends at %dms, past the project duration %dms", rng.EndMS, totalDurationMS))
	}
	return nil
}

// ValidateNoOverlap rejects a range that intersects any sibling other than
// the node being moved or resized.
func (v *NodeValidator) ValidateNoOverlap(rng valueobjects.TimeRange, siblings []*entities.StoryNode, exclude valueobjects.NodeID) error {
	for _, sib := range siblings {
		if sib.ID.Equals(exclude) {
			continue
		}
		if rng.Overlaps(sib.TimeRange) {
			return pkgerrors.NewConflictError(fmt.Sprintf("range overlaps sibling %q", sib.Name))
		}
	}
	return nil
}

// ClampToSiblings shrinks a proposed range so it cannot cross the nearest
// sibling on either side. The returned range may be shorter than the
// minimum duration; callers reject that case.
func (v *NodeValidator) ClampToSiblings(rng valueobjects.TimeRange, siblings []*entities.StoryNode, exclude valueobjects.NodeID, totalDurationMS int64) valueobjects.TimeRange {
	lower := int64(0)
	upper := totalDurationMS
	mid := rng.Midpoint()
	for _, sib := range siblings {
		if sib.ID.Equals(exclude) {
			continue
		}
		// Siblings ending at or before the proposed midpoint bound the
		// start; siblings starting at or after it bound the end.
		if sib.TimeRange.EndMS <= mid && sib.TimeRange.EndMS > lower {
			lower = sib.TimeRange.EndMS
		}
		if sib.TimeRange.StartMS >= mid && sib.TimeRange.StartMS < upper {
			upper = sib.TimeRange.StartMS
		}
	}
	clamped := rng
	if clamped.StartMS < lower {
		clamped.StartMS = lower
	}
	if clamped.EndMS > upper {
		clamped.EndMS = upper
	}
	return clamped
}

// ValidateSplitPoint checks that splitting at atMS leaves both halves at
// least the minimum duration.
func (v *NodeValidator) ValidateSplitPoint(rng valueobjects.TimeRange, atMS int64) error {
	if atMS-rng.StartMS < v.cfg.MinNodeDurationMS || rng.EndMS-atMS < v.cfg.MinNodeDurationMS {
		return pkgerrors.NewValidationError(fmt.Sprintf("split at %dms would leave a half shorter than %dms", atMS, v.cfg.MinNodeDurationMS))
	}
	return nil
}

// ValidateParentChild checks that a child's level is exactly one below its
// parent's.
func (v *NodeValidator) ValidateParentChild(parent *entities.StoryNode, childLevel valueobjects.StoryLevel) error {
	expected, ok := parent.Level.ChildLevel()
	if !ok {
		return pkgerrors.NewValidationError(fmt.Sprintf("%s nodes cannot have children", parent.Level))
	}
	if childLevel != expected {
		return pkgerrors.NewValidationError(fmt.Sprintf("a %s child must be a %s, got %s", parent.Level, expected, childLevel))
	}
	return nil
}

// MinDurationMS exposes the configured floor for callers that clamp
func (v *NodeValidator) MinDurationMS() int64 {
	return v.cfg.MinNodeDurationMS
}
