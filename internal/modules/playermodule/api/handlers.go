// Package api exposes the playback control operations over HTTP and
// streams normalized playback events over WebSocket.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/modules/playermodule/core"
	"github.com/mantonx/playerd/internal/types"
)

// API serves the playback control surface.
type API struct {
	facade *core.ControlFacade
	logger hclog.Logger
}

// NewAPI creates the playback API.
func NewAPI(facade *core.ControlFacade, logger hclog.Logger) *API {
	return &API{
		facade: facade,
		logger: logger.Named("api"),
	}
}

// RegisterRoutes mounts the playback routes.
func (a *API) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/player")
	{
		group.POST("/init", a.handleInitialize)
		group.GET("/sessions", a.handleListSessions)
		group.POST("/sessions", a.handleCreate)
		group.GET("/sessions/:handle", a.handleGetSession)
		group.DELETE("/sessions/:handle", a.handleDispose)
		group.POST("/sessions/:handle/play", a.handlePlay)
		group.POST("/sessions/:handle/pause", a.handlePause)
		group.POST("/sessions/:handle/seek", a.handleSeekTo)
		group.POST("/sessions/:handle/looping", a.handleSetLooping)
		group.POST("/sessions/:handle/volume", a.handleSetVolume)
		group.POST("/sessions/:handle/speed", a.handleSetSpeed)
		group.GET("/sessions/:handle/position", a.handleGetPosition)
		group.POST("/sessions/:handle/mux", a.handleSetupMux)
		group.GET("/sessions/:handle/events", a.handleEvents)
		group.POST("/mix-with-others", a.handleSetMixWithOthers)
	}
}

func (a *API) handleInitialize(c *gin.Context) {
	if err := a.facade.Initialize(c.Request.Context()); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "initialized"})
}

func (a *API) handleCreate(c *gin.Context) {
	var req core.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleValidationError(c, "invalid request body: "+err.Error(), "body")
		return
	}

	handle, err := a.facade.Create(c.Request.Context(), req)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"handle": handle})
}

func (a *API) handleListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"handles": a.facade.ActiveHandles(),
		"count":   a.facade.SessionCount(),
	})
}

func (a *API) handleGetSession(c *gin.Context) {
	handle, ok := a.parseHandle(c)
	if !ok {
		return
	}
	session, err := a.facade.GetSession(handle)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	width, height := session.Dimensions()
	c.JSON(http.StatusOK, gin.H{
		"handle":      session.Handle(),
		"engine_id":   session.EngineID(),
		"state":       session.State(),
		"source":      session.Source(),
		"duration_ms": session.DurationMs(),
		"width":       width,
		"height":      height,
		"volume":      session.Volume(),
	})
}

func (a *API) handleDispose(c *gin.Context) {
	handle, ok := a.parseHandle(c)
	if !ok {
		return
	}
	if err := a.facade.Dispose(c.Request.Context(), handle); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disposed"})
}

func (a *API) handlePlay(c *gin.Context) {
	a.control(c, a.facade.Play)
}

func (a *API) handlePause(c *gin.Context) {
	a.control(c, a.facade.Pause)
}

func (a *API) handleSeekTo(c *gin.Context) {
	handle, ok := a.parseHandle(c)
	if !ok {
		return
	}
	var req struct {
		PositionMs int64 `json:"position_ms"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleValidationError(c, "invalid request body: "+err.Error(), "body")
		return
	}
	if err := a.facade.SeekTo(c.Request.Context(), handle, req.PositionMs); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) handleSetLooping(c *gin.Context) {
	handle, ok := a.parseHandle(c)
	if !ok {
		return
	}
	var req struct {
		Looping bool `json:"looping"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleValidationError(c, "invalid request body: "+err.Error(), "body")
		return
	}
	if err := a.facade.SetLooping(c.Request.Context(), handle, req.Looping); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) handleSetVolume(c *gin.Context) {
	handle, ok := a.parseHandle(c)
	if !ok {
		return
	}
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleValidationError(c, "invalid request body: "+err.Error(), "body")
		return
	}
	if err := a.facade.SetVolume(c.Request.Context(), handle, req.Volume); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) handleSetSpeed(c *gin.Context) {
	handle, ok := a.parseHandle(c)
	if !ok {
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleValidationError(c, "invalid request body: "+err.Error(), "body")
		return
	}
	if err := a.facade.SetPlaybackSpeed(c.Request.Context(), handle, req.Speed); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) handleGetPosition(c *gin.Context) {
	handle, ok := a.parseHandle(c)
	if !ok {
		return
	}
	position, err := a.facade.GetPosition(c.Request.Context(), handle)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"position_ms": position})
}

func (a *API) handleSetupMux(c *gin.Context) {
	handle, ok := a.parseHandle(c)
	if !ok {
		return
	}
	var cfg types.MuxConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		errors.HandleValidationError(c, "invalid request body: "+err.Error(), "body")
		return
	}
	if err := a.facade.SetupMux(c.Request.Context(), handle, cfg); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "attached"})
}

func (a *API) handleSetMixWithOthers(c *gin.Context) {
	var req struct {
		MixWithOthers bool `json:"mix_with_others"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleValidationError(c, "invalid request body: "+err.Error(), "body")
		return
	}
	a.facade.SetMixWithOthers(req.MixWithOthers)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) control(c *gin.Context, op func(ctx context.Context, handle int64) error) {
	handle, ok := a.parseHandle(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), handle); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) parseHandle(c *gin.Context) (int64, bool) {
	handle, err := strconv.ParseInt(c.Param("handle"), 10, 64)
	if err != nil {
		errors.HandleValidationError(c, "handle must be an integer", "handle")
		return 0, false
	}
	return handle, true
}
