// Package di wires the application together. Providers construct each
// component; wire generates the initializer that orders them.
package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fabula-backend/application/commands"
	"fabula-backend/application/commands/bus"
	"fabula-backend/application/ports"
	"fabula-backend/application/queries"
	querybus "fabula-backend/application/queries/bus"
	"fabula-backend/application/services"
	domainconfig "fabula-backend/domain/config"
	domainservices "fabula-backend/domain/core/services"
	"fabula-backend/infrastructure/ai"
	"fabula-backend/infrastructure/config"
	"fabula-backend/infrastructure/persistence/dynamodb"
	"fabula-backend/infrastructure/persistence/memory"
	"fabula-backend/infrastructure/persistence/sqlite"
	"fabula-backend/interfaces/websocket"
	pkgerrors "fabula-backend/pkg/errors"
)

// ProvideLogger creates the zap logger from the configured level
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zcfg.Level = lvl
	}
	return zcfg.Build()
}

// ProvideDomainConfig supplies the engine's tuning constants
func ProvideDomainConfig() domainconfig.DomainConfig {
	return domainconfig.DefaultDomainConfig()
}

// ProvideSnapshotStore selects the persistence driver
func ProvideSnapshotStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SnapshotStore, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite snapshot store", zap.String("path", cfg.SQLitePath))
		return store, nil
	case "dynamodb":
		store, err := dynamodb.NewStore(ctx, cfg.AWSRegion, cfg.DynamoDBTable)
		if err != nil {
			return nil, err
		}
		logger.Info("using dynamodb snapshot store", zap.String("table", cfg.DynamoDBTable))
		return store, nil
	case "memory":
		logger.Warn("using in-memory snapshot store, projects will not survive a restart")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// ProvideAiBackend selects the generation backend and wraps it with a
// circuit breaker. The stub is left unwrapped; it cannot fail.
func ProvideAiBackend(cfg *config.Config, logger *zap.Logger) (ports.AiBackend, error) {
	switch cfg.AIBackend {
	case "ollama":
		model := cfg.OllamaModel
		if cfg.ModelName != "" {
			model = cfg.ModelName
		}
		inner := ai.NewOllamaBackend(cfg.OllamaURL, model, cfg.AITimeout, logger)
		return ai.NewBreakerBackend(inner, ai.DefaultBreakerConfig(), logger), nil
	case "openrouter":
		model := cfg.ModelName
		if model == "" {
			model = "openrouter/auto"
		}
		inner := ai.NewOpenRouterBackend(cfg.OpenRouterURL, cfg.OpenRouterKey, model, cfg.AITimeout, logger)
		return ai.NewBreakerBackend(inner, ai.DefaultBreakerConfig(), logger), nil
	case "stub":
		return ai.NewStubBackend(), nil
	default:
		return nil, fmt.Errorf("unknown AI backend %q", cfg.AIBackend)
	}
}

// ProvideHub creates the websocket hub
func ProvideHub(logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(logger)
}

// ProvideEventPublisher exposes the hub as the event publisher
func ProvideEventPublisher(hub *websocket.Hub) ports.EventPublisher {
	return hub
}

// ProvideRegistry creates the project registry
func ProvideRegistry(store ports.SnapshotStore, domainCfg domainconfig.DomainConfig, logger *zap.Logger) *services.ProjectRegistry {
	return services.NewProjectRegistry(store, domainCfg, logger)
}

// ProvideContextPacker creates the prompt packer
func ProvideContextPacker(domainCfg domainconfig.DomainConfig) *services.ContextPacker {
	return services.NewContextPacker(domainCfg.ContextTokenBudget)
}

// ProvideSceneInferrer creates the scene inference service
func ProvideSceneInferrer() *domainservices.SceneInferrer {
	return domainservices.NewSceneInferrer()
}

// ProvideGapDetector creates the gap detector
func ProvideGapDetector(domainCfg domainconfig.DomainConfig) *domainservices.GapDetector {
	return domainservices.NewGapDetector(domainCfg.GapThresholdMS)
}

// ProvideOrchestrator creates the generation orchestrator
func ProvideOrchestrator(
	registry *services.ProjectRegistry,
	backend ports.AiBackend,
	packer *services.ContextPacker,
	publisher ports.EventPublisher,
	domainCfg domainconfig.DomainConfig,
	logger *zap.Logger,
) *services.GenerationOrchestrator {
	return services.NewGenerationOrchestrator(registry, backend, packer, publisher, domainCfg, logger)
}

// ProvideReconciler creates the consistency reconciler
func ProvideReconciler(
	registry *services.ProjectRegistry,
	backend ports.AiBackend,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.ConsistencyReconciler {
	return services.NewConsistencyReconciler(registry, backend, publisher, logger)
}

// ProvideSceneService creates the scene read service
func ProvideSceneService(
	registry *services.ProjectRegistry,
	inferrer *domainservices.SceneInferrer,
	backend ports.AiBackend,
	logger *zap.Logger,
) *services.SceneService {
	return services.NewSceneService(registry, inferrer, backend, logger)
}

// ProvideAutosaver creates the periodic snapshot writer
func ProvideAutosaver(registry *services.ProjectRegistry, cfg *config.Config, logger *zap.Logger) *services.Autosaver {
	return services.NewAutosaver(registry, cfg.AutosaveInterval, logger)
}

// ProvideCommandBus creates the command bus with every handler registered.
// The lock middleware serializes commands per project; handlers assume
// the lock is held.
func ProvideCommandBus(
	registry *services.ProjectRegistry,
	orchestrator *services.GenerationOrchestrator,
	reconciler *services.ConsistencyReconciler,
	scenes *services.SceneService,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LockMiddleware(registry),
		bus.LoggingMiddleware(logger),
	)

	var regErr error
	register := func(cmdType bus.Command, handler bus.CommandHandler) {
		if err := commandBus.Register(cmdType, handler); err != nil && regErr == nil {
			regErr = err
		}
	}

	projectHandler := commands.NewProjectCommandHandler(registry, orchestrator, scenes, publisher, logger)
	register(&commands.CreateProjectCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.CreateProjectCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return projectHandler.HandleCreate(ctx, c)
	}))
	register(&commands.OpenProjectCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.OpenProjectCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return projectHandler.HandleOpen(ctx, c)
	}))
	register(&commands.RenameProjectCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.RenameProjectCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return projectHandler.HandleRename(ctx, c)
	}))
	register(&commands.SaveProjectCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.SaveProjectCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return projectHandler.HandleSave(ctx, c)
	}))
	register(&commands.CloseProjectCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.CloseProjectCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return projectHandler.HandleClose(ctx, c)
	}))
	register(&commands.DeleteProjectCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.DeleteProjectCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return projectHandler.HandleDelete(ctx, c)
	}))

	nodeHandler := commands.NewNodeCommandHandler(registry, orchestrator, publisher, logger)
	register(&commands.CreateNodeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.CreateNodeCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return nodeHandler.HandleCreate(ctx, c)
	}))
	register(&commands.MoveNodeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.MoveNodeCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return nodeHandler.HandleMove(ctx, c)
	}))
	register(&commands.ResizeNodeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.ResizeNodeCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return nodeHandler.HandleResize(ctx, c)
	}))
	register(&commands.SplitNodeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.SplitNodeCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return nodeHandler.HandleSplit(ctx, c)
	}))
	register(&commands.DeleteNodeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.DeleteNodeCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return nodeHandler.HandleDelete(ctx, c)
	}))
	register(&commands.UpdateNodeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.UpdateNodeCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return nodeHandler.HandleUpdate(ctx, c)
	}))
	register(&commands.SetNodeLockedCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.SetNodeLockedCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return nodeHandler.HandleSetLocked(ctx, c)
	}))

	contentHandler := commands.NewContentCommandHandler(registry, reconciler, publisher, logger)
	register(&commands.WriteNotesCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.WriteNotesCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return contentHandler.HandleWriteNotes(ctx, c)
	}))
	register(&commands.EditBodyCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.EditBodyCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return contentHandler.HandleEditBody(ctx, c)
	}))
	register(&commands.ApplySuggestionCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.ApplySuggestionCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return contentHandler.HandleApplySuggestion(ctx, c)
	}))
	register(&commands.DismissSuggestionCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.DismissSuggestionCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return contentHandler.HandleDismissSuggestion(ctx, c)
	}))

	relationshipHandler := commands.NewRelationshipCommandHandler(registry, publisher, logger)
	register(&commands.AddRelationshipCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.AddRelationshipCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return relationshipHandler.HandleAdd(ctx, c)
	}))
	register(&commands.RemoveRelationshipCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.RemoveRelationshipCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return relationshipHandler.HandleRemove(ctx, c)
	}))

	entityHandler := commands.NewEntityCommandHandler(registry, publisher, logger)
	register(&commands.CreateEntityCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.CreateEntityCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return entityHandler.HandleCreate(ctx, c)
	}))
	register(&commands.UpdateEntityCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.UpdateEntityCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return entityHandler.HandleUpdate(ctx, c)
	}))
	register(&commands.DeleteEntityCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.DeleteEntityCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return entityHandler.HandleDelete(ctx, c)
	}))
	register(&commands.AddEntitySnapshotCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.AddEntitySnapshotCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return entityHandler.HandleAddSnapshot(ctx, c)
	}))
	register(&commands.LinkEntityCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.LinkEntityCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return entityHandler.HandleLink(ctx, c)
	}))

	generationHandler := commands.NewGenerationCommandHandler(orchestrator, logger)
	register(&commands.GenerateNodeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.GenerateNodeCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return generationHandler.HandleGenerate(ctx, c)
	}))
	register(&commands.CancelGenerationCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.CancelGenerationCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return generationHandler.HandleCancel(ctx, c)
	}))
	register(&commands.GenerateChildrenCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.GenerateChildrenCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return generationHandler.HandleGenerateChildren(ctx, c)
	}))
	register(&commands.FillGapCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.FillGapCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return generationHandler.HandleFillGap(ctx, c)
	}))

	historyHandler := commands.NewHistoryCommandHandler(registry, orchestrator, publisher, logger)
	register(&commands.UndoCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.UndoCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return historyHandler.HandleUndo(ctx, c)
	}))
	register(&commands.RedoCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		c, ok := cmd.(*commands.RedoCommand)
		if !ok {
			return pkgerrors.NewInternalError("invalid command type")
		}
		return historyHandler.HandleRedo(ctx, c)
	}))

	if regErr != nil {
		return nil, regErr
	}
	return commandBus, nil
}

// ProvideQueryHandler creates the read-side handler
func ProvideQueryHandler(
	registry *services.ProjectRegistry,
	orchestrator *services.GenerationOrchestrator,
	scenes *services.SceneService,
	gaps *domainservices.GapDetector,
	backend ports.AiBackend,
	logger *zap.Logger,
) *queries.QueryHandler {
	return queries.NewQueryHandler(registry, orchestrator, scenes, gaps, backend, logger)
}

// ProvideQueryBus creates the query bus with every query registered
func ProvideQueryBus(handler *queries.QueryHandler) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	var regErr error
	register := func(queryType querybus.Query, h querybus.QueryHandler) {
		if err := queryBus.Register(queryType, h); err != nil && regErr == nil {
			regErr = err
		}
	}

	register(&queries.GetTimelineQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(*queries.GetTimelineQuery)
		if !ok {
			return nil, pkgerrors.NewInternalError("invalid query type")
		}
		return handler.HandleGetTimeline(ctx, q)
	}))
	register(&queries.GetNodeQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(*queries.GetNodeQuery)
		if !ok {
			return nil, pkgerrors.NewInternalError("invalid query type")
		}
		return handler.HandleGetNode(ctx, q)
	}))
	register(&queries.GetScenesQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(*queries.GetScenesQuery)
		if !ok {
			return nil, pkgerrors.NewInternalError("invalid query type")
		}
		return handler.HandleGetScenes(ctx, q)
	}))
	register(&queries.GetGapsQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(*queries.GetGapsQuery)
		if !ok {
			return nil, pkgerrors.NewInternalError("invalid query type")
		}
		return handler.HandleGetGaps(ctx, q)
	}))
	register(&queries.GetSuggestionsQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(*queries.GetSuggestionsQuery)
		if !ok {
			return nil, pkgerrors.NewInternalError("invalid query type")
		}
		return handler.HandleGetSuggestions(ctx, q)
	}))
	register(&queries.GetHistoryStatusQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(*queries.GetHistoryStatusQuery)
		if !ok {
			return nil, pkgerrors.NewInternalError("invalid query type")
		}
		return handler.HandleGetHistoryStatus(ctx, q)
	}))
	register(&queries.GetEntitiesQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(*queries.GetEntitiesQuery)
		if !ok {
			return nil, pkgerrors.NewInternalError("invalid query type")
		}
		return handler.HandleGetEntities(ctx, q)
	}))
	register(&queries.ListProjectsQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(*queries.ListProjectsQuery)
		if !ok {
			return nil, pkgerrors.NewInternalError("invalid query type")
		}
		return handler.HandleListProjects(ctx, q)
	}))
	register(&queries.GetGenerationStatusQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(*queries.GetGenerationStatusQuery)
		if !ok {
			return nil, pkgerrors.NewInternalError("invalid query type")
		}
		return handler.HandleGetGenerationStatus(ctx, q)
	}))

	if regErr != nil {
		return nil, regErr
	}
	return queryBus, nil
}
