// Package playermodule implements playback sessions. It owns the session
// registry, the lifecycle and event normalization of each session, and the
// Mux analytics binding, and exposes the whole control surface over HTTP.
package playermodule

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/mantonx/playerd/internal/config"
	"github.com/mantonx/playerd/internal/database"
	"github.com/mantonx/playerd/internal/events"
	"github.com/mantonx/playerd/internal/modules/playermodule/api"
	"github.com/mantonx/playerd/internal/modules/playermodule/core"
	"github.com/mantonx/playerd/internal/modules/playermodule/models"
	"github.com/mantonx/playerd/internal/services"
)

const (
	ModuleID   = "system.player"
	ModuleName = "Playback Sessions"
)

// Module wires playback sessions into the module system.
type Module struct {
	registry *core.SessionRegistry
	facade   *core.ControlFacade
	api      *api.API
	logger   hclog.Logger
}

// NewModule creates the player module.
func NewModule() *Module {
	return &Module{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "player-module",
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

// Dependencies orders this module after engine discovery and asset
// resolution, whose services it consumes during Init.
func (m *Module) Dependencies() []string {
	return []string{"system.engines", "system.assets"}
}

// Migrate creates the session journal and analytics view tables.
func (m *Module) Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.SessionRecord{},
		&models.AnalyticsView{},
	)
}

// RegisterServices registers the player service. The module itself fronts
// the service because the facade is only built during Init, after the engine
// and asset services exist.
func (m *Module) RegisterServices() error {
	services.RegisterService[services.PlayerService]("player", m)
	return nil
}

// Init builds the session registry, analytics binder, and control facade
// from the services registered by the modules this one depends on.
func (m *Module) Init() error {
	engines, err := services.GetService[services.EngineService]("engines")
	if err != nil {
		return fmt.Errorf("player module requires the engine service: %w", err)
	}
	assets, err := services.GetService[services.AssetService]("assets")
	if err != nil {
		return fmt.Errorf("player module requires the asset service: %w", err)
	}

	db := database.GetDB()
	eventBus := events.GetGlobalEventBus()
	cfg := config.Get()

	m.registry = core.NewSessionRegistry(db, eventBus, m.logger)
	binder := core.NewAnalyticsBinder(db, eventBus, assets, cfg.Analytics.Enabled, m.logger)
	m.facade = core.NewControlFacade(m.registry, engines, assets, binder, m.logger)
	m.api = api.NewAPI(m.facade, m.logger)

	m.logger.Info("player module initialized")
	return nil
}

// Stop disposes every live session so engine processes do not outlive the
// daemon.
func (m *Module) Stop(ctx context.Context) error {
	if m.registry == nil {
		return nil
	}
	return m.registry.DisposeAll(ctx)
}

// RegisterRoutes mounts the playback control surface.
func (m *Module) RegisterRoutes(router *gin.Engine) {
	if m.api != nil {
		m.api.RegisterRoutes(router)
	}
}

// Facade returns the control facade.
func (m *Module) Facade() *core.ControlFacade {
	return m.facade
}

// ActiveHandles implements services.PlayerService.
func (m *Module) ActiveHandles() []int64 {
	if m.registry == nil {
		return nil
	}
	return m.registry.ActiveHandles()
}

// SessionCount implements services.PlayerService.
func (m *Module) SessionCount() int {
	if m.registry == nil {
		return 0
	}
	return m.registry.SessionCount()
}

// DisposeAll implements services.PlayerService.
func (m *Module) DisposeAll(ctx context.Context) error {
	if m.registry == nil {
		return nil
	}
	return m.registry.DisposeAll(ctx)
}
