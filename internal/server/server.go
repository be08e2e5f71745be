// Package server assembles the HTTP surface: middleware, the event bus, the
// module system, and every module's routes.
package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/mantonx/playerd/internal/config"
	"github.com/mantonx/playerd/internal/database"
	"github.com/mantonx/playerd/internal/events"
	"github.com/mantonx/playerd/internal/logger"
	"github.com/mantonx/playerd/internal/middleware"
	"github.com/mantonx/playerd/internal/modules/modulemanager"

	// Import all modules to trigger their registration
	_ "github.com/mantonx/playerd/internal/modules/assetmodule"
	_ "github.com/mantonx/playerd/internal/modules/enginemodule"
	_ "github.com/mantonx/playerd/internal/modules/playermodule"
)

var (
	systemEventBus    events.EventBus
	moduleInitialized bool
)

// SetupRouter configures and returns the main router.
func SetupRouter() (*gin.Engine, error) {
	cfg := config.Get()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorLogger())

	if cfg.Server.EnableCORS {
		r.Use(corsMiddleware())
	}

	if err := initializeEventBus(); err != nil {
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}

	if err := initializeModules(); err != nil {
		return nil, fmt.Errorf("failed to initialize modules: %w", err)
	}

	registerRoutes(r)
	modulemanager.RegisterRoutes(r)

	return r, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// initializeEventBus builds the event bus, persists events through the main
// database, and registers the bus globally for modules.
func initializeEventBus() error {
	if systemEventBus != nil {
		return nil
	}

	busConfig := events.DefaultEventBusConfig()

	var storage events.EventStorage
	if busConfig.EnablePersistence {
		if db := database.GetDB(); db != nil {
			var err error
			storage, err = events.NewGormEventStorage(db)
			if err != nil {
				return fmt.Errorf("failed to initialize event storage: %w", err)
			}
		}
	}

	bus := events.NewEventBus(busConfig, busLogger{}, storage)
	if err := bus.Start(context.Background()); err != nil {
		return err
	}

	systemEventBus = bus
	events.SetGlobalEventBus(bus)

	systemEventBus.PublishAsync(events.NewSystemEvent(
		events.EventSystemStarted,
		"Playerd started",
		"Event bus is up",
	))
	return nil
}

func initializeModules() error {
	if moduleInitialized {
		return nil
	}

	if err := modulemanager.LoadAll(database.GetDB()); err != nil {
		return err
	}
	moduleInitialized = true
	return nil
}

// DisableModule disables a module before initialization (development only).
func DisableModule(moduleID string) {
	if moduleInitialized {
		logger.Warn("cannot disable module %s after initialization", moduleID)
		return
	}
	modulemanager.DisableModule(moduleID)
}

// Shutdown stops the modules and then the event bus.
func Shutdown(ctx context.Context) error {
	var firstErr error

	if err := modulemanager.StopAll(ctx); err != nil {
		firstErr = err
	}

	if systemEventBus != nil {
		systemEventBus.PublishAsync(events.NewSystemEvent(
			events.EventSystemStopped,
			"Playerd stopping",
			"",
		))
		if err := systemEventBus.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		systemEventBus = nil
	}

	return firstErr
}

// busLogger adapts the process logger to the event bus logging interface.
// The bus logs alternating key-value pairs.
type busLogger struct{}

func (busLogger) Debug(msg string, kv ...interface{}) { logger.Debug(msg, kvFields(kv)) }
func (busLogger) Info(msg string, kv ...interface{})  { logger.Info(msg, kvFields(kv)) }
func (busLogger) Warn(msg string, kv ...interface{})  { logger.Warn(msg, kvFields(kv)) }
func (busLogger) Error(msg string, kv ...interface{}) { logger.Error(msg, kvFields(kv)) }

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		fields = append(fields, logger.Field{Key: key, Value: kv[i+1]})
	}
	return fields
}
