package services

import (
	"fmt"
	"sort"
	"strings"

	"fabula-backend/application/ports"
	"fabula-backend/domain/core/aggregates"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
)

// charsPerToken is the packing heuristic: roughly four characters of
// English prose per model token.
const charsPerToken = 4

// ContextPacker assembles the prompt for one node generation. Sections are
// added in priority order: premise, ancestor chain, entity profiles,
// relationships, earlier siblings, then the node itself. The prompt
// is cut at the token budget from the lowest-priority end.
type ContextPacker struct {
	tokenBudget int
}

// NewContextPacker creates a packer with the given token budget
func NewContextPacker(tokenBudget int) *ContextPacker {
	return &ContextPacker{tokenBudget: tokenBudget}
}

// Pack builds the generation request for a node
func (p *ContextPacker) Pack(project *aggregates.Project, node *entities.StoryNode) ports.GenerationRequest {
	timeline := project.Timeline

	var sections []string

	if premise := timeline.NodesAtLevel(valueobjects.LevelPremise); len(premise) > 0 {
		var b strings.Builder
		b.WriteString("PREMISE:\n")
		for _, n := range premise {
			b.WriteString(n.Name)
			if text := n.BestText(); text != "" {
				b.WriteString(": ")
				b.WriteString(text)
			}
			b.WriteString("\n")
		}
		sections = append(sections, b.String())
	}

	if ancestors := ancestorChain(timeline, node); len(ancestors) > 0 {
		var b strings.Builder
		b.WriteString("CONTAINING UNITS, outermost first:\n")
		for _, a := range ancestors {
			fmt.Fprintf(&b, "- [%s] %s", a.Level.Label(), a.Name)
			if text := a.BestText(); text != "" {
				b.WriteString(" — ")
				b.WriteString(text)
			}
			b.WriteString("\n")
		}
		sections = append(sections, b.String())
	}

	if profiles := entityProfiles(project, node); profiles != "" {
		sections = append(sections, profiles)
	}

	if rels := relationshipNotes(timeline, node); rels != "" {
		sections = append(sections, rels)
	}

	if prior := earlierSiblings(timeline, node); prior != "" {
		sections = append(sections, prior)
	}

	var self strings.Builder
	fmt.Fprintf(&self, "WRITE THIS %s: %s (%s - %s",
		strings.ToUpper(node.Level.Label()), node.Name,
		valueobjects.FormatTime(node.TimeRange.StartMS), valueobjects.FormatTime(node.TimeRange.EndMS))
	self.WriteString(")\n")
	if node.BeatType != "" {
		fmt.Fprintf(&self, "Beat function: %s\n", node.BeatType)
	}
	if node.Content.HasNotes() {
		fmt.Fprintf(&self, "Author notes:\n%s\n", node.Content.Notes)
	}
	sections = append(sections, self.String())

	return ports.GenerationRequest{
		System: systemPrompt(node.Level),
		Prompt: p.fit(sections),
	}
}

// fit keeps the final section whole and drops or truncates earlier
// sections from the front until the budget holds.
func (p *ContextPacker) fit(sections []string) string {
	budget := p.tokenBudget * charsPerToken
	if budget <= 0 {
		return strings.Join(sections, "\n")
	}

	last := sections[len(sections)-1]
	remaining := budget - len(last)
	var kept []string
	for i := len(sections) - 2; i >= 0; i-- {
		section := sections[i]
		if len(section)+1 <= remaining {
			kept = append([]string{section}, kept...)
			remaining -= len(section) + 1
			continue
		}
		if remaining > 200 {
			kept = append([]string{section[:remaining-1] + "\n[...]"}, kept...)
			remaining = 0
		}
		break
	}
	kept = append(kept, last)
	return strings.Join(kept, "\n")
}

func systemPrompt(level valueobjects.StoryLevel) string {
	if level.IsLeaf() {
		return "You are a screenwriter drafting prose for a single beat. Write vivid, concrete scene prose that fulfils the beat's function. Output only the prose."
	}
	return fmt.Sprintf("You are a story architect. Write a tight summary of this %s that its child units can expand. Output only the summary.", strings.ToLower(level.Label()))
}

func ancestorChain(timeline *aggregates.Timeline, node *entities.StoryNode) []*entities.StoryNode {
	var chain []*entities.StoryNode
	current := node
	for !current.ParentID.IsZero() {
		parent, err := timeline.Node(current.ParentID)
		if err != nil {
			break
		}
		chain = append([]*entities.StoryNode{parent}, chain...)
		current = parent
	}
	return chain
}

func entityProfiles(project *aggregates.Project, node *entities.StoryNode) string {
	relevant := project.EntitiesForNode(node.ID)
	if len(relevant) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("STORY BIBLE:\n")
	for _, e := range relevant {
		fmt.Fprintf(&b, "- %s (%s)", e.Name, e.Category)
		fields := make([]string, 0, len(e.Profile))
		for field := range e.Profile {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(&b, "; %s: %s", field, e.Profile[field])
		}
		// The latest snapshot at or before this node anchors the entity's
		// state at this point in the story.
		var anchor *entities.EntitySnapshot
		for i := range e.Snapshots {
			if e.Snapshots[i].TimeMS <= node.TimeRange.StartMS {
				anchor = &e.Snapshots[i]
			}
		}
		if anchor != nil {
			fmt.Fprintf(&b, "; as of %s: %s", valueobjects.FormatTime(anchor.TimeMS), anchor.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func relationshipNotes(timeline *aggregates.Timeline, node *entities.StoryNode) string {
	rels := timeline.RelationshipsFor(node.ID)
	if len(rels) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("STRUCTURAL LINKS:\n")
	for _, rel := range rels {
		other := rel.To
		direction := "leads to"
		if rel.To.Equals(node.ID) {
			other = rel.From
			direction = "follows from"
		}
		otherNode, err := timeline.Node(other)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s) %q\n", direction, rel.Type, otherNode.Name)
	}
	return b.String()
}

func earlierSiblings(timeline *aggregates.Timeline, node *entities.StoryNode) string {
	siblings, err := timeline.SiblingsOf(node.ID)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, sib := range siblings {
		if sib.ID.Equals(node.ID) || sib.TimeRange.StartMS >= node.TimeRange.StartMS {
			continue
		}
		if text := sib.BestText(); text != "" {
			fmt.Fprintf(&b, "- %s: %s\n", sib.Name, text)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "WHAT CAME BEFORE:\n" + b.String()
}
