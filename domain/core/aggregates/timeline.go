package aggregates

import (
	"fmt"
	"sort"

	"fabula-backend/domain/config"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/validators"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"
)

// Timeline is the node store and relationship graph for one project. Nodes
// form a strict tree keyed by parent; siblings at the same level never
// overlap in time. Relationships connect any two nodes regardless of level.
//
// Timeline is not safe for concurrent use. All mutation funnels through the
// project actor, which serializes commands.
type Timeline struct {
	totalDurationMS int64
	nodes           map[valueobjects.NodeID]*entities.StoryNode
	relationships   map[valueobjects.RelationshipID]*entities.Relationship
	// childIndex maps a parent ID (zero NodeID for roots) to child IDs
	// ordered by start time. Rebuilt incrementally on every mutation.
	childIndex map[valueobjects.NodeID][]valueobjects.NodeID

	validator *validators.NodeValidator
	cfg       config.DomainConfig
}

// NewTimeline creates an empty timeline spanning [0, totalDurationMS)
func NewTimeline(totalDurationMS int64, cfg config.DomainConfig) (*Timeline, error) {
	if totalDurationMS <= 0 {
		return nil, pkgerrors.NewValidationError("project duration must be positive")
	}
	return &Timeline{
		totalDurationMS: totalDurationMS,
		nodes:           make(map[valueobjects.NodeID]*entities.StoryNode),
		relationships:   make(map[valueobjects.RelationshipID]*entities.Relationship),
		childIndex:      make(map[valueobjects.NodeID][]valueobjects.NodeID),
		validator:       validators.NewNodeValidator(cfg),
		cfg:             cfg,
	}, nil
}

// TotalDurationMS returns the project duration
func (t *Timeline) TotalDurationMS() int64 {
	return t.totalDurationMS
}

// Node returns the node with the given ID
func (t *Timeline) Node(id valueobjects.NodeID) (*entities.StoryNode, error) {
	node, ok := t.nodes[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	return node, nil
}

// HasNode reports whether a node exists
func (t *Timeline) HasNode(id valueobjects.NodeID) bool {
	_, ok := t.nodes[id]
	return ok
}

// Nodes returns every node, ordered by level depth then start time
func (t *Timeline) Nodes() []*entities.StoryNode {
	out := make([]*entities.StoryNode, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level.Depth() < out[j].Level.Depth()
		}
		if out[i].TimeRange.StartMS != out[j].TimeRange.StartMS {
			return out[i].TimeRange.StartMS < out[j].TimeRange.StartMS
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// NodesAtLevel returns all nodes at one story level, ordered by start time
func (t *Timeline) NodesAtLevel(level valueobjects.StoryLevel) []*entities.StoryNode {
	var out []*entities.StoryNode
	for _, n := range t.nodes {
		if n.Level == level {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimeRange.StartMS != out[j].TimeRange.StartMS {
			return out[i].TimeRange.StartMS < out[j].TimeRange.StartMS
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// ChildrenOf returns a parent's direct children ordered by start time.
// Pass the zero NodeID for root nodes.
func (t *Timeline) ChildrenOf(parentID valueobjects.NodeID) []*entities.StoryNode {
	ids := t.childIndex[parentID]
	out := make([]*entities.StoryNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.nodes[id])
	}
	return out
}

// SiblingsOf returns every node sharing the given node's parent and level,
// including the node itself, ordered by start time.
func (t *Timeline) SiblingsOf(id valueobjects.NodeID) ([]*entities.StoryNode, error) {
	node, err := t.Node(id)
	if err != nil {
		return nil, err
	}
	return t.ChildrenOf(node.ParentID), nil
}

// Subtree returns the node and all of its descendants
func (t *Timeline) Subtree(id valueobjects.NodeID) ([]*entities.StoryNode, error) {
	root, err := t.Node(id)
	if err != nil {
		return nil, err
	}
	out := []*entities.StoryNode{root}
	queue := []valueobjects.NodeID{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range t.ChildrenOf(current) {
			out = append(out, child)
			queue = append(queue, child.ID)
		}
	}
	return out, nil
}

// CreateNode inserts a new node under parentID (zero NodeID for a root).
// The range must sit inside the project duration, meet the minimum
// duration, and not overlap any sibling.
func (t *Timeline) CreateNode(parentID valueobjects.NodeID, level valueobjects.StoryLevel, rng valueobjects.TimeRange, name string) (*entities.StoryNode, error) {
	if err := t.validator.ValidateName(name); err != nil {
		return nil, err
	}
	if err := t.validator.ValidateRange(rng, t.totalDurationMS); err != nil {
		return nil, err
	}
	if !parentID.IsZero() {
		parent, err := t.Node(parentID)
		if err != nil {
			return nil, err
		}
		if err := t.validator.ValidateParentChild(parent, level); err != nil {
			return nil, err
		}
	}
	siblings := t.ChildrenOf(parentID)
	if err := t.validator.ValidateNoOverlap(rng, siblings, valueobjects.NodeID{}); err != nil {
		return nil, err
	}

	var node *entities.StoryNode
	if parentID.IsZero() {
		node = entities.NewStoryNode(name, level, rng)
	} else {
		node = entities.NewChildNode(name, level, rng, parentID)
	}
	t.nodes[node.ID] = node
	t.reindex(parentID)
	return node, nil
}

// MoveNode shifts a node to a new range, clamping against the nearest
// siblings on either side. If clamping leaves less than the minimum
// duration the move is rejected and the node is unchanged.
func (t *Timeline) MoveNode(id valueobjects.NodeID, rng valueobjects.TimeRange) (*entities.StoryNode, error) {
	node, err := t.Node(id)
	if err != nil {
		return nil, err
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	siblings := t.ChildrenOf(node.ParentID)
	clamped := t.validator.ClampToSiblings(rng, siblings, id, t.totalDurationMS)
	if clamped.DurationMS() < t.validator.MinDurationMS() {
		return nil, pkgerrors.NewConflictError("not enough room between siblings for the move")
	}
	if err := t.validator.ValidateNoOverlap(clamped, siblings, id); err != nil {
		return nil, err
	}
	node.TimeRange = clamped
	t.reindex(node.ParentID)
	return node, nil
}

// ResizeNode adjusts one edge of a node's range with the same clamping as
// MoveNode. edge is "start" or "end".
func (t *Timeline) ResizeNode(id valueobjects.NodeID, edge string, boundaryMS int64) (*entities.StoryNode, error) {
	node, err := t.Node(id)
	if err != nil {
		return nil, err
	}
	proposed := node.TimeRange
	switch edge {
	case "start":
		proposed.StartMS = boundaryMS
	case "end":
		proposed.EndMS = boundaryMS
	default:
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown edge %q, want start or end", edge))
	}
	if err := proposed.Validate(); err != nil {
		return nil, err
	}
	siblings := t.ChildrenOf(node.ParentID)
	clamped := t.validator.ClampToSiblings(proposed, siblings, id, t.totalDurationMS)
	if clamped.DurationMS() < t.validator.MinDurationMS() {
		return nil, pkgerrors.NewConflictError("resize would shrink the node below the minimum duration")
	}
	if err := t.validator.ValidateNoOverlap(clamped, siblings, id); err != nil {
		return nil, err
	}
	node.TimeRange = clamped
	t.reindex(node.ParentID)
	return node, nil
}

// SplitNode divides a node at atMS. The left half keeps the node's
// identity, content, and lock state, so relationships and children stay
// attached to it. The right half is a new node starting empty.
func (t *Timeline) SplitNode(id valueobjects.NodeID, atMS int64) (*entities.StoryNode, *entities.StoryNode, error) {
	node, err := t.Node(id)
	if err != nil {
		return nil, nil, err
	}
	if err := t.validator.ValidateSplitPoint(node.TimeRange, atMS); err != nil {
		return nil, nil, err
	}

	rightRange, err := valueobjects.NewTimeRange(atMS, node.TimeRange.EndMS)
	if err != nil {
		return nil, nil, err
	}
	var right *entities.StoryNode
	if node.ParentID.IsZero() {
		right = entities.NewStoryNode(node.Name+" (2)", node.Level, rightRange)
	} else {
		right = entities.NewChildNode(node.Name+" (2)", node.Level, rightRange, node.ParentID)
	}
	right.BeatType = node.BeatType

	node.TimeRange.EndMS = atMS
	t.nodes[right.ID] = right
	t.reindex(node.ParentID)
	return node, right, nil
}

// DeleteNode removes a node, its entire subtree, and every relationship
// touching a removed node. It returns the IDs of all removed nodes.
func (t *Timeline) DeleteNode(id valueobjects.NodeID) ([]valueobjects.NodeID, error) {
	subtree, err := t.Subtree(id)
	if err != nil {
		return nil, err
	}
	removed := make([]valueobjects.NodeID, 0, len(subtree))
	removedSet := make(map[valueobjects.NodeID]struct{}, len(subtree))
	for _, n := range subtree {
		removed = append(removed, n.ID)
		removedSet[n.ID] = struct{}{}
	}
	parentID := subtree[0].ParentID

	for _, n := range subtree {
		delete(t.nodes, n.ID)
		delete(t.childIndex, n.ID)
	}
	for relID, rel := range t.relationships {
		if _, gone := removedSet[rel.From]; gone {
			delete(t.relationships, relID)
			continue
		}
		if _, gone := removedSet[rel.To]; gone {
			delete(t.relationships, relID)
		}
	}
	t.reindex(parentID)
	return removed, nil
}

// UpdateNodeMeta renames a node and/or sets its beat type
func (t *Timeline) UpdateNodeMeta(id valueobjects.NodeID, name *string, beatType *valueobjects.BeatType) (*entities.StoryNode, error) {
	node, err := t.Node(id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if err := t.validator.ValidateName(*name); err != nil {
			return nil, err
		}
		node.Name = *name
	}
	if beatType != nil {
		node.BeatType = *beatType
	}
	return node, nil
}

// SetLocked toggles a node's lock. Locked nodes refuse generation and
// consistency edits but still move and resize.
func (t *Timeline) SetLocked(id valueobjects.NodeID, locked bool) (*entities.StoryNode, error) {
	node, err := t.Node(id)
	if err != nil {
		return nil, err
	}
	node.Locked = locked
	return node, nil
}

// AddRelationship connects two existing nodes. Self loops are rejected
// unless the configuration allows them.
func (t *Timeline) AddRelationship(from, to valueobjects.NodeID, relType entities.RelationshipType, arcIDs []valueobjects.EntityID, entityID valueobjects.EntityID, color string) (*entities.Relationship, error) {
	if !t.HasNode(from) {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("relationship source %s", from))
	}
	if !t.HasNode(to) {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("relationship target %s", to))
	}
	if from.Equals(to) && !t.cfg.AllowSelfRelationships {
		return nil, pkgerrors.NewValidationError("a relationship cannot connect a node to itself")
	}
	rel, err := entities.NewRelationship(from, to, relType, arcIDs, entityID, color)
	if err != nil {
		return nil, err
	}
	t.relationships[rel.ID] = rel
	return rel, nil
}

// RemoveRelationship deletes a relationship by ID
func (t *Timeline) RemoveRelationship(id valueobjects.RelationshipID) (*entities.Relationship, error) {
	rel, ok := t.relationships[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("relationship %s", id))
	}
	delete(t.relationships, id)
	return rel, nil
}

// Relationships returns every relationship, ordered by ID for determinism
func (t *Timeline) Relationships() []*entities.Relationship {
	out := make([]*entities.Relationship, 0, len(t.relationships))
	for _, rel := range t.relationships {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// RelationshipsFor returns every relationship touching a node, in either
// direction.
func (t *Timeline) RelationshipsFor(id valueobjects.NodeID) []*entities.Relationship {
	var out []*entities.Relationship
	for _, rel := range t.relationships {
		if rel.Touches(id) {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// CausalTargets returns the IDs of nodes that a causal relationship points
// to from the given node.
func (t *Timeline) CausalTargets(from valueobjects.NodeID) []valueobjects.NodeID {
	var out []valueobjects.NodeID
	for _, rel := range t.relationships {
		if rel.Type == entities.RelationshipCausal && rel.From.Equals(from) {
			out = append(out, rel.To)
		}
	}
	return out
}

// Clone deep-copies the timeline for history snapshots
func (t *Timeline) Clone() *Timeline {
	clone := &Timeline{
		totalDurationMS: t.totalDurationMS,
		nodes:           make(map[valueobjects.NodeID]*entities.StoryNode, len(t.nodes)),
		relationships:   make(map[valueobjects.RelationshipID]*entities.Relationship, len(t.relationships)),
		childIndex:      make(map[valueobjects.NodeID][]valueobjects.NodeID, len(t.childIndex)),
		validator:       t.validator,
		cfg:             t.cfg,
	}
	for id, n := range t.nodes {
		clone.nodes[id] = n.Clone()
	}
	for id, rel := range t.relationships {
		clone.relationships[id] = rel.Clone()
	}
	for parent, ids := range t.childIndex {
		copied := make([]valueobjects.NodeID, len(ids))
		copy(copied, ids)
		clone.childIndex[parent] = copied
	}
	return clone
}

// reindex rebuilds the sorted child list for one parent
func (t *Timeline) reindex(parentID valueobjects.NodeID) {
	var ids []valueobjects.NodeID
	for id, n := range t.nodes {
		if n.ParentID.Equals(parentID) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := t.nodes[ids[i]], t.nodes[ids[j]]
		if a.TimeRange.StartMS != b.TimeRange.StartMS {
			return a.TimeRange.StartMS < b.TimeRange.StartMS
		}
		return a.ID.String() < b.ID.String()
	})
	if len(ids) == 0 {
		delete(t.childIndex, parentID)
		return
	}
	t.childIndex[parentID] = ids
}
