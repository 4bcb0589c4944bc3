package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"fabula-backend/application/ports"
	pkgerrors "fabula-backend/pkg/errors"
)

const consistencySystemPrompt = `You are a continuity editor for a screenplay. The writer has just edited one passage. You will see the edit and a set of later passages. Identify only the passages that now contradict the edit and propose a minimal rewrite for each. Respond with a JSON array, no other text. Each element: {"target_node_id": string, "original_text": string, "suggested_text": string, "reason": string}. If nothing conflicts, respond with [].`

const recapSystemPrompt = `You summarize screenplay scenes. Respond with a two to three sentence recap of what happens, present tense, no preamble.`

func consistencyPrompt(edit ports.EditContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The writer edited %q.\n\n## BEFORE\n%s\n\n## AFTER\n%s\n\n## LATER PASSAGES\n", edit.EditedNodeName, edit.BeforeText, edit.AfterText)

	// Stable ordering keeps prompts reproducible for identical edits.
	ids := make([]string, 0, len(edit.Candidates))
	for id := range edit.Candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "\n[%s]\n%s\n", id, edit.Candidates[id])
	}
	return b.String()
}

func recapPrompt(text string) string {
	return "Summarize this scene:\n\n" + text
}

// parseSuggestionDrafts extracts the JSON array from a model response,
// tolerating prose around it, and drops drafts that name unknown nodes
// or carry no rewrite.
func parseSuggestionDrafts(raw string, candidates map[string]string) ([]ports.SuggestionDraft, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end < start {
		return nil, pkgerrors.NewExternalError("ai", fmt.Errorf("no JSON array in consistency response"))
	}
	var drafts []ports.SuggestionDraft
	if err := json.Unmarshal([]byte(raw[start:end+1]), &drafts); err != nil {
		return nil, pkgerrors.NewExternalError("ai", err)
	}
	kept := drafts[:0]
	for _, d := range drafts {
		if _, ok := candidates[d.TargetNodeID]; !ok {
			continue
		}
		if strings.TrimSpace(d.SuggestedText) == "" {
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}
