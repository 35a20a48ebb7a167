package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vzahanych/weather-data-fetcher/internal/server/utils"
)

type HealthHandler struct {
	logger    *zap.Logger
	dataDir   string
	startTime time.Time
}

func NewHealthHandler(logger *zap.Logger, dataDir string) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		dataDir:   dataDir,
		startTime: time.Now(),
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "alive",
		Uptime: time.Since(h.startTime).String(),
	})
}

// Readiness fails until the data directory exists.
func (h *HealthHandler) Readiness(c *gin.Context) {
	fi, err := os.Stat(h.dataDir)
	if err != nil || !fi.IsDir() {
		utils.RequestLogger(c, h.logger).Warn("Data directory unavailable",
			zap.String("data_dir", h.dataDir),
			zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Uptime: time.Since(h.startTime).String(),
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status: "ready",
		Uptime: time.Since(h.startTime).String(),
	})
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
