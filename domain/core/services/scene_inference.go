package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
)

// Scene is a derived span of the timeline during which the same set of
// beats is active. Scenes are a projection, never stored: they are
// recomputed from the beat layout after every structural change.
type Scene struct {
	Index     int                    `json:"index"`
	TimeRange valueobjects.TimeRange `json:"time_range"`
	BeatIDs   []valueobjects.NodeID  `json:"beat_ids"`
	// Key is a stable content hash of the member beats, used to cache
	// recaps across recomputations that do not change the scene.
	Key   string `json:"key"`
	Recap string `json:"recap,omitempty"`
}

// SceneInferrer derives scenes from beat placement using a boundary sweep:
// every beat start and end is a potential cut point, each interval between
// cuts is sampled at its midpoint, and consecutive intervals with the same
// active beat set merge into one scene.
type SceneInferrer struct{}

// NewSceneInferrer creates a scene inference service
func NewSceneInferrer() *SceneInferrer {
	return &SceneInferrer{}
}

// InferScenes computes the scene list for a set of beats. The result is
// deterministic for a given layout: beats are consulted in (start, ID)
// order and intervals with no active beat produce no scene.
func (s *SceneInferrer) InferScenes(beats []*entities.StoryNode) []Scene {
	if len(beats) == 0 {
		return nil
	}

	boundarySet := make(map[int64]struct{}, len(beats)*2)
	for _, b := range beats {
		boundarySet[b.TimeRange.StartMS] = struct{}{}
		boundarySet[b.TimeRange.EndMS] = struct{}{}
	}
	boundaries := make([]int64, 0, len(boundarySet))
	for t := range boundarySet {
		boundaries = append(boundaries, t)
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i] < boundaries[j] })

	ordered := make([]*entities.StoryNode, len(beats))
	copy(ordered, beats)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].TimeRange.StartMS != ordered[j].TimeRange.StartMS {
			return ordered[i].TimeRange.StartMS < ordered[j].TimeRange.StartMS
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	var scenes []Scene
	for i := 0; i+1 < len(boundaries); i++ {
		lo, hi := boundaries[i], boundaries[i+1]
		mid := lo + (hi-lo)/2
		var active []valueobjects.NodeID
		for _, b := range ordered {
			if b.TimeRange.Contains(mid) {
				active = append(active, b.ID)
			}
		}
		if len(active) == 0 {
			continue
		}
		if n := len(scenes); n > 0 && scenes[n-1].TimeRange.EndMS == lo && sameMembers(scenes[n-1].BeatIDs, active) {
			scenes[n-1].TimeRange.EndMS = hi
			continue
		}
		scenes = append(scenes, Scene{
			TimeRange: valueobjects.TimeRange{StartMS: lo, EndMS: hi},
			BeatIDs:   active,
		})
	}

	for i := range scenes {
		scenes[i].Index = i
		scenes[i].Key = sceneKey(scenes[i].BeatIDs)
	}
	return scenes
}

func sameMembers(a, b []valueobjects.NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

// sceneKey hashes the member IDs so an unchanged scene keeps its recap
func sceneKey(ids []valueobjects.NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:8])
}
