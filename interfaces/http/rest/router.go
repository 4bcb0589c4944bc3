package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"fabula-backend/application/commands/bus"
	"fabula-backend/application/ports"
	querybus "fabula-backend/application/queries/bus"
	"fabula-backend/application/services"
	"fabula-backend/interfaces/http/rest/handlers"
	"fabula-backend/interfaces/http/rest/middleware"
	"fabula-backend/interfaces/websocket"
	"fabula-backend/pkg/common"
	pkgerrors "fabula-backend/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	scenes     *services.SceneService
	hub        *websocket.Hub
	backend    ports.AiBackend
	enableCORS bool
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	scenes *services.SceneService,
	hub *websocket.Hub,
	backend ports.AiBackend,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		scenes:     scenes,
		hub:        hub,
		backend:    backend,
		enableCORS: enableCORS,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		// The editor frontend runs on a dev server with its own origin.
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// Live event stream, one socket per open project.
	router.Get("/ws/{projectID}", func(w http.ResponseWriter, r *http.Request) {
		rt.hub.ServeWS(w, r, chi.URLParam(r, "projectID"))
	})

	errs := pkgerrors.NewErrorHandler(rt.logger)

	projectHandler := handlers.NewProjectHandler(rt.commandBus, rt.queryBus, errs, rt.logger)
	nodeHandler := handlers.NewNodeHandler(rt.commandBus, rt.queryBus, errs, rt.logger)
	contentHandler := handlers.NewContentHandler(rt.commandBus, rt.queryBus, errs, rt.logger)
	relationshipHandler := handlers.NewRelationshipHandler(rt.commandBus, errs, rt.logger)
	entityHandler := handlers.NewEntityHandler(rt.commandBus, rt.queryBus, errs, rt.logger)
	generationHandler := handlers.NewGenerationHandler(rt.commandBus, rt.queryBus, errs, rt.logger)
	storyHandler := handlers.NewStoryHandler(rt.queryBus, rt.scenes, errs, rt.logger)
	historyHandler := handlers.NewHistoryHandler(rt.commandBus, rt.queryBus, errs, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", projectHandler.CreateProject)
			r.Get("/", projectHandler.ListProjects)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Post("/open", projectHandler.OpenProject)
				r.Get("/timeline", projectHandler.GetTimeline)
				r.Put("/", projectHandler.RenameProject)
				r.Post("/save", projectHandler.SaveProject)
				r.Post("/close", projectHandler.CloseProject)
				r.Delete("/", projectHandler.DeleteProject)

				r.Route("/nodes", func(r chi.Router) {
					r.Post("/", nodeHandler.CreateNode)
					r.Route("/{nodeID}", func(r chi.Router) {
						r.Get("/", nodeHandler.GetNode)
						r.Patch("/", nodeHandler.UpdateNode)
						r.Delete("/", nodeHandler.DeleteNode)
						r.Post("/move", nodeHandler.MoveNode)
						r.Post("/resize", nodeHandler.ResizeNode)
						r.Post("/split", nodeHandler.SplitNode)
						r.Post("/lock", nodeHandler.SetNodeLocked)
						r.Put("/notes", contentHandler.WriteNotes)
						r.Put("/body", contentHandler.EditBody)
						r.Post("/generate", generationHandler.Generate)
						r.Delete("/generate", generationHandler.CancelGeneration)
						r.Post("/generate-children", generationHandler.GenerateChildren)
					})
				})

				r.Route("/relationships", func(r chi.Router) {
					r.Post("/", relationshipHandler.AddRelationship)
					r.Delete("/{relationshipID}", relationshipHandler.RemoveRelationship)
				})

				r.Route("/entities", func(r chi.Router) {
					r.Get("/", entityHandler.ListEntities)
					r.Post("/", entityHandler.CreateEntity)
					r.Route("/{entityID}", func(r chi.Router) {
						r.Patch("/", entityHandler.UpdateEntity)
						r.Delete("/", entityHandler.DeleteEntity)
						r.Post("/snapshots", entityHandler.AddSnapshot)
						r.Post("/link", entityHandler.LinkEntity)
					})
				})

				r.Route("/suggestions", func(r chi.Router) {
					r.Get("/", contentHandler.GetSuggestions)
					r.Post("/{suggestionID}/apply", contentHandler.ApplySuggestion)
					r.Post("/{suggestionID}/dismiss", contentHandler.DismissSuggestion)
				})

				r.Get("/scenes", storyHandler.GetScenes)
				r.Get("/scenes/{sceneIndex}/recap", storyHandler.GetSceneRecap)
				r.Get("/gaps", storyHandler.GetGaps)
				r.Post("/gaps/fill", generationHandler.FillGap)

				r.Post("/undo", historyHandler.Undo)
				r.Post("/redo", historyHandler.Redo)
				r.Get("/history", historyHandler.GetStatus)
				r.Get("/generation", generationHandler.GenerationStatus)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports whether the AI backend is reachable. The
// editor stays usable without it, so a failed probe is reported rather
// than treated as fatal.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	aiStatus := "ok"
	if err := rt.backend.HealthCheck(ctx); err != nil {
		aiStatus = "unreachable"
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"ai": map[string]string{
			"backend": rt.backend.Name(),
			"status":  aiStatus,
		},
	})
}
