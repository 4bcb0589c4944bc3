// Package bus dispatches commands to registered handlers. Commands are
// the only way the application layer mutates a project; the bus validates,
// serializes per project, and logs every execution.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Command represents a command that changes project state
type Command interface {
	Validate() error
	// Project returns the ID of the project the command targets. Commands
	// against the same project execute one at a time.
	Project() string
}

// CommandHandler handles a specific command type
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandHandlerFunc adapts a function to the CommandHandler interface
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// Middleware wraps a handler with cross-cutting behavior
type Middleware func(next CommandHandler) CommandHandler

// CommandBus dispatches commands to their handlers
type CommandBus struct {
	handlers   map[reflect.Type]CommandHandler
	middleware []Middleware
	mu         sync.RWMutex
}

// NewCommandBus creates a command bus with the given middleware chain.
// Middleware runs outermost-first in the order given.
func NewCommandBus(middleware ...Middleware) *CommandBus {
	return &CommandBus{
		handlers:   make(map[reflect.Type]CommandHandler),
		middleware: middleware,
	}
}

// Register registers a handler for a command type
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t)
	}
	for i := len(b.middleware) - 1; i >= 0; i-- {
		handler = b.middleware[i](handler)
	}
	b.handlers[t] = handler
	return nil
}

// Send validates a command and dispatches it to its handler
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for command type %T", cmd)
	}
	return handler.Handle(ctx, cmd)
}

// ProjectLocker serializes work against one project
type ProjectLocker interface {
	LockProject(projectID string)
	UnlockProject(projectID string)
}

// LockMiddleware takes the target project's lock for the duration of the
// command. This is the single-writer guarantee: structural commands never
// interleave within a project.
func LockMiddleware(locker ProjectLocker) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			if id := cmd.Project(); id != "" {
				locker.LockProject(id)
				defer locker.UnlockProject(id)
			}
			return next.Handle(ctx, cmd)
		})
	}
}

// LoggingMiddleware logs command execution with zap
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			cmdType := reflect.TypeOf(cmd).String()
			err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Warn("command failed",
					zap.String("command", cmdType),
					zap.String("project_id", cmd.Project()),
					zap.Error(err),
				)
				return err
			}
			logger.Debug("command executed",
				zap.String("command", cmdType),
				zap.String("project_id", cmd.Project()),
			)
			return nil
		})
	}
}
