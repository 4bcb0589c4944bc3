package di

import (
	"go.uber.org/zap"

	"fabula-backend/application/commands/bus"
	"fabula-backend/application/ports"
	querybus "fabula-backend/application/queries/bus"
	"fabula-backend/application/services"
	"fabula-backend/infrastructure/config"
	"fabula-backend/interfaces/websocket"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      ports.SnapshotStore
	Backend    ports.AiBackend
	Hub        *websocket.Hub
	Registry   *services.ProjectRegistry
	Scenes     *services.SceneService
	Autosaver  *services.Autosaver
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
}
