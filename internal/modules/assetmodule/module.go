// Package assetmodule resolves bundled asset names to playable file paths.
package assetmodule

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/mantonx/playerd/internal/config"
	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/services"
)

const (
	ModuleID   = "system.assets"
	ModuleName = "Asset Store"
)

// Module wires the asset resolver into the module system
type Module struct {
	resolver *Resolver
	logger   hclog.Logger
}

// NewModule creates the asset module.
func NewModule() *Module {
	return &Module{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "asset-module",
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

// Migrate has no schema; assets live on disk.
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

// RegisterServices registers the asset service.
func (m *Module) RegisterServices() error {
	cfg := config.Get()
	m.resolver = NewResolver(afero.NewOsFs(), cfg.Assets.AssetDir, cfg.Assets.MaxFileSize, m.logger)
	services.RegisterService[services.AssetService]("assets", m.resolver)
	return nil
}

// Init ensures the asset directory exists.
func (m *Module) Init() error {
	cfg := config.Get()
	if err := os.MkdirAll(cfg.Assets.AssetDir, 0o755); err != nil {
		return err
	}
	m.logger.Info("asset store ready", "dir", cfg.Assets.AssetDir)
	return nil
}

// RegisterRoutes exposes asset listing and resolution.
func (m *Module) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/assets")
	{
		group.GET("", m.handleListAssets)
		group.GET("/resolve", m.handleResolveAsset)
	}
}

func (m *Module) handleListAssets(c *gin.Context) {
	names, err := m.resolver.ListAssets(c.Request.Context(), c.Query("package"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": names})
}

func (m *Module) handleResolveAsset(c *gin.Context) {
	name := c.Query("name")
	pkg := c.Query("package")

	path, err := m.resolver.ResolveAsset(c.Request.Context(), name, pkg)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":  path,
		"title": m.resolver.TitleFor(c.Request.Context(), name, pkg),
	})
}

// GetResolver returns the asset resolver.
func (m *Module) GetResolver() *Resolver {
	return m.resolver
}
