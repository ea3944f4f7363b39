package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/horizonml/horizon-go/internal/database"
	"github.com/horizonml/horizon-go/internal/erp"
)

var startTime = time.Now()

// serviceVersion is reported by the health endpoint.
const serviceVersion = "1.0.0"

// HealthHandler reports service status plus the health of each collaborator.
type HealthHandler struct {
	db    *database.PostgresDB
	redis *database.RedisClient
	erp   *erp.Client
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Services  map[string]string `json:"services"`
	System    SystemStats       `json:"system"`
}

// SystemStats carries process and host memory figures.
type SystemStats struct {
	ProcessMemoryMB float64 `json:"process_memory_mb"`
	HostMemoryUsed  float64 `json:"host_memory_used_percent"`
}

// NewHealthHandler creates the health handler. Any dependency may be nil when
// that collaborator is not configured.
func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient, erpClient *erp.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, erp: erpClient}
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	services := make(map[string]string)

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			services["database"] = "unhealthy: " + err.Error()
		} else {
			services["database"] = "healthy"
		}
	} else {
		services["database"] = "not configured"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.erp != nil {
		if err := h.erp.HealthCheck(ctx); err != nil {
			services["erp"] = "unhealthy: " + err.Error()
		} else {
			services["erp"] = "healthy"
		}
	} else {
		services["erp"] = "not configured"
	}

	// The record source is load-bearing; everything else degrades.
	status := "healthy"
	httpStatus := http.StatusOK
	if services["erp"] != "healthy" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   serviceVersion,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Services:  services,
		System:    collectSystemStats(),
	})
}

func collectSystemStats() SystemStats {
	var stats SystemStats

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			stats.ProcessMemoryMB = float64(info.RSS) / 1024 / 1024
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		stats.HostMemoryUsed = vm.UsedPercent
	}

	return stats
}
