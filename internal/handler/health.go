package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/metrics"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/ws"
	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	db        *sql.DB
	wsHub     *ws.Hub
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. db and wsHub may be nil.
func NewHealthHandler(db *sql.DB, wsHub *ws.Hub, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		wsHub:     wsHub,
		version:   version,
		startTime: time.Now(),
	}
}

// LivenessCheck returns basic liveness status
// @Summary Liveness check
// @Tags health
// @Produce json
// @Router /health/live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck returns readiness status including dependencies
// @Summary Readiness check
// @Tags health
// @Produce json
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	components := make(map[string]metrics.HealthStatus)

	components["database"] = metrics.CheckDatabaseHealth(h.db)
	components["memory"] = metrics.CheckMemoryHealth(512)

	h.respond(c, components)
}

// DetailedHealthCheck returns comprehensive health information
// @Summary Detailed health check
// @Tags health
// @Produce json
// @Router /health [get]
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	components := make(map[string]metrics.HealthStatus)

	components["database"] = metrics.CheckDatabaseHealth(h.db)
	components["memory"] = metrics.CheckMemoryHealth(512)

	if h.wsHub != nil {
		components["websocket"] = h.checkWebSocketHealth()
	}
	components["runs"] = h.checkRunHealth()

	h.respond(c, components)
}

func (h *HealthHandler) respond(c *gin.Context, components map[string]metrics.HealthStatus) {
	overallStatus := metrics.DetermineOverallStatus(components)

	healthCheck := metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthCheck)
}

// checkWebSocketHealth checks WebSocket hub health
func (h *HealthHandler) checkWebSocketHealth() metrics.HealthStatus {
	if h.wsHub == nil {
		return metrics.HealthStatus{
			Status:  "unhealthy",
			Message: "WebSocket hub not initialized",
		}
	}

	if h.wsHub.GetConnectionCount() > 100 {
		return metrics.HealthStatus{
			Status:  "degraded",
			Message: "WebSocket connections near limit",
		}
	}

	return metrics.HealthStatus{Status: "healthy"}
}

// checkRunHealth flags a high run failure rate
func (h *HealthHandler) checkRunHealth() metrics.HealthStatus {
	snapshot := metrics.Get().GetSnapshot()

	totalRuns := snapshot.Runs.Completed + snapshot.Runs.Failed
	if totalRuns > 0 {
		failureRate := float64(snapshot.Runs.Failed) / float64(totalRuns) * 100
		if failureRate > 50 {
			return metrics.HealthStatus{
				Status:  "degraded",
				Message: "High run failure rate",
			}
		}
	}

	return metrics.HealthStatus{Status: "healthy"}
}

// GetMetrics returns application metrics
// @Summary Get application metrics
// @Tags metrics
// @Produce json
// @Router /metrics [get]
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	snapshot := metrics.Get().GetSnapshot()
	c.JSON(http.StatusOK, snapshot)
}

// GetMetricsSummary returns a summary of key metrics
// @Summary Get metrics summary
// @Tags metrics
// @Produce json
// @Router /metrics/summary [get]
func (h *HealthHandler) GetMetricsSummary(c *gin.Context) {
	snapshot := metrics.Get().GetSnapshot()

	requestSuccessRate := float64(0)
	if snapshot.Requests.Total > 0 {
		requestSuccessRate = float64(snapshot.Requests.Successful) / float64(snapshot.Requests.Total) * 100
	}

	runSuccessRate := float64(0)
	totalRuns := snapshot.Runs.Completed + snapshot.Runs.Failed
	if totalRuns > 0 {
		runSuccessRate = float64(snapshot.Runs.Completed) / float64(totalRuns) * 100
	}

	summary := gin.H{
		"uptime_seconds": snapshot.UptimeSeconds,
		"version":        h.version,
		"requests": gin.H{
			"total":        snapshot.Requests.Total,
			"success_rate": requestSuccessRate,
			"avg_latency":  snapshot.Requests.AvgLatencyMs,
		},
		"runs": gin.H{
			"started":          snapshot.Runs.Started,
			"completed":        snapshot.Runs.Completed,
			"failed":           snapshot.Runs.Failed,
			"outliers_removed": snapshot.Runs.OutliersRemoved,
			"success_rate":     runSuccessRate,
		},
		"websocket": gin.H{
			"connections": snapshot.WebSocket.Connections,
		},
		"system": gin.H{
			"goroutines":  snapshot.System.Goroutines,
			"heap_mb":     snapshot.System.HeapAllocMB,
			"heap_use_mb": snapshot.System.HeapInUseMB,
		},
	}

	c.JSON(http.StatusOK, summary)
}
