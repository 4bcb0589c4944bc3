package services

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"fabula-backend/application/ports"
	"fabula-backend/domain/core/services"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"
)

// SceneService derives scenes from the beat layout and attaches recaps.
// Recaps are produced by the backend's Summarize call and cached by scene
// key, so a structural change that leaves a scene's membership intact
// keeps its recap.
type SceneService struct {
	registry *ProjectRegistry
	inferrer *services.SceneInferrer
	backend  ports.AiBackend
	logger   *zap.Logger

	mu     sync.Mutex
	recaps map[string]map[string]string // projectID -> scene key -> recap
}

// NewSceneService creates a scene service
func NewSceneService(registry *ProjectRegistry, inferrer *services.SceneInferrer, backend ports.AiBackend, logger *zap.Logger) *SceneService {
	return &SceneService{
		registry: registry,
		inferrer: inferrer,
		backend:  backend,
		recaps:   make(map[string]map[string]string),
		logger:   logger,
	}
}

// Scenes computes the current scene list for a project, filling in any
// cached recaps. The caller must hold the project lock.
func (s *SceneService) Scenes(projectID string) ([]services.Scene, error) {
	managed, err := s.registry.Get(projectID)
	if err != nil {
		return nil, err
	}
	beats := managed.Project.Timeline.NodesAtLevel(valueobjects.LevelBeat)
	scenes := s.inferrer.InferScenes(beats)

	s.mu.Lock()
	cached := s.recaps[projectID]
	for i := range scenes {
		scenes[i].Recap = cached[scenes[i].Key]
	}
	s.mu.Unlock()
	return scenes, nil
}

// Recap summarizes one scene's beat texts and caches the result under the
// scene's key. The project lock is taken only to snapshot the text.
func (s *SceneService) Recap(ctx context.Context, projectID string, sceneIndex int) (services.Scene, error) {
	s.registry.LockProject(projectID)
	scenes, err := s.Scenes(projectID)
	if err != nil {
		s.registry.UnlockProject(projectID)
		return services.Scene{}, err
	}
	if sceneIndex < 0 || sceneIndex >= len(scenes) {
		s.registry.UnlockProject(projectID)
		return services.Scene{}, pkgerrors.NewNotFoundError("scene")
	}
	scene := scenes[sceneIndex]

	managed, err := s.registry.Get(projectID)
	if err != nil {
		s.registry.UnlockProject(projectID)
		return services.Scene{}, err
	}
	var texts []string
	for _, beatID := range scene.BeatIDs {
		beat, err := managed.Project.Timeline.Node(beatID)
		if err != nil {
			continue
		}
		if text := beat.BestText(); text != "" {
			texts = append(texts, text)
		}
	}
	s.registry.UnlockProject(projectID)

	if len(texts) == 0 {
		return scene, pkgerrors.NewValidationError("scene has no text to recap")
	}
	recap, err := s.backend.Summarize(ctx, strings.Join(texts, "\n\n"))
	if err != nil {
		return scene, err
	}

	s.mu.Lock()
	if s.recaps[projectID] == nil {
		s.recaps[projectID] = make(map[string]string)
	}
	s.recaps[projectID][scene.Key] = recap
	s.mu.Unlock()

	scene.Recap = recap
	return scene, nil
}

// DropProject clears cached recaps when a project closes
func (s *SceneService) DropProject(projectID string) {
	s.mu.Lock()
	delete(s.recaps, projectID)
	s.mu.Unlock()
}
