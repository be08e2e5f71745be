// Package enginemodule discovers and manages playback engines. Engines are
// external media players described by engine.cue manifests; the module builds
// a driver for each one and exposes them to the rest of the system through
// the engine service.
package enginemodule

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/mantonx/playerd/internal/config"
	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/events"
	"github.com/mantonx/playerd/internal/services"
)

const (
	ModuleID   = "system.engines"
	ModuleName = "Engine Manager"
)

// Module wires engine discovery into the module system
type Module struct {
	manager *Manager
	logger  hclog.Logger
}

// NewModule creates the engine module.
func NewModule() *Module {
	return &Module{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "engine-module",
			Level: hclog.Info,
		}),
	}
}

func (m *Module) ID() string {
	return ModuleID
}

func (m *Module) Name() string {
	return ModuleName
}

func (m *Module) Core() bool {
	return true
}

// Migrate has no schema; engines are discovered from disk, not persisted.
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

// RegisterServices registers the engine service so dependent modules can look
// it up during their own Init.
func (m *Module) RegisterServices() error {
	cfg := config.Get()
	m.manager = NewManager(cfg.Engines, m.logger, events.GetGlobalEventBus())
	services.RegisterService[services.EngineService]("engines", m.manager)
	return nil
}

// Init scans for engines and starts the directory watcher.
func (m *Module) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return m.manager.Start(ctx)
}

// Stop shuts down the watcher and every engine.
func (m *Module) Stop(ctx context.Context) error {
	if m.manager == nil {
		return nil
	}
	return m.manager.Stop(ctx)
}

// RegisterRoutes exposes the engine inventory.
func (m *Module) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/engines")
	{
		group.GET("", m.handleListEngines)
		group.GET("/:id", m.handleGetEngine)
		group.POST("/refresh", m.handleRefresh)
	}
}

func (m *Module) handleListEngines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"engines": m.manager.ListEngines(),
	})
}

func (m *Module) handleGetEngine(c *gin.Context) {
	engine, err := m.manager.GetEngine(c.Param("id"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"engine":       engine.Info(),
		"capabilities": engine.Capabilities(),
	})
}

func (m *Module) handleRefresh(c *gin.Context) {
	if err := m.manager.Refresh(c.Request.Context()); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"engines": m.manager.ListEngines(),
	})
}

// GetManager returns the engine manager.
func (m *Module) GetManager() *Manager {
	return m.manager
}
