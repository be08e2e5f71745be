package server

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/events"
	"github.com/mantonx/playerd/internal/services"
)

var startTime = time.Now()

// registerRoutes mounts the routes owned by the server itself: health,
// process status, and the event log. Module routes mount separately.
func registerRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", handleHealth)
		api.GET("/status", handleStatus)

		eventsGroup := api.Group("/events")
		{
			eventsGroup.GET("", handleListEvents)
			eventsGroup.GET("/stats", handleEventStats)
		}
	}
}

func handleHealth(c *gin.Context) {
	status := "ok"
	if systemEventBus != nil {
		if err := systemEventBus.Health(); err != nil {
			status = "degraded"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"uptime": time.Since(startTime).String(),
	})
}

// handleStatus reports process and host resource usage alongside the live
// session count, the numbers operators check when an engine process runs hot.
func handleStatus(c *gin.Context) {
	response := gin.H{
		"uptime": time.Since(startTime).String(),
	}

	if virtualMem, err := mem.VirtualMemory(); err == nil {
		response["memory"] = gin.H{
			"total_bytes": virtualMem.Total,
			"used_bytes":  virtualMem.Used,
		}
	}
	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		response["cpu_percent"] = percentages[0]
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil {
			response["process_rss_bytes"] = memInfo.RSS
		}
	}

	if player, err := services.GetService[services.PlayerService]("player"); err == nil {
		response["sessions"] = gin.H{
			"count":   player.SessionCount(),
			"handles": player.ActiveHandles(),
		}
	}

	c.JSON(http.StatusOK, response)
}

func handleListEvents(c *gin.Context) {
	if systemEventBus == nil {
		errors.HandleInternalError(c, "event bus not initialized", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := events.EventFilter{}
	if eventType := c.Query("type"); eventType != "" {
		filter.Types = []events.EventType{events.EventType(eventType)}
	}
	if source := c.Query("source"); source != "" {
		filter.Sources = []string{source}
	}

	items, total, err := systemEventBus.GetEvents(filter, limit, offset)
	if err != nil {
		errors.HandleInternalError(c, "failed to load events", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func handleEventStats(c *gin.Context) {
	if systemEventBus == nil {
		errors.HandleInternalError(c, "event bus not initialized", nil)
		return
	}
	c.JSON(http.StatusOK, systemEventBus.GetStats())
}
