package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nursery/backend/internal/infrastructure/logger"
	"github.com/nursery/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// DefaultHealthTimeout bounds each dependency probe
const DefaultHealthTimeout = 2 * time.Second

// HealthCheck probes one dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves liveness and dependency status
type HealthHandler struct {
	BaseHandler
	name      string
	version   string
	checks    []HealthCheck
	timeout   time.Duration
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(name, version string, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		name:      name,
		version:   version,
		checks:    checks,
		timeout:   DefaultHealthTimeout,
		startTime: time.Now(),
	}
}

// HealthResponse reports service and dependency status
type HealthResponse struct {
	Status    string            `json:"status"`
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// Health answers 200 when every dependency responds and 503 otherwise.
//
//	GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    make(map[string]string, len(h.checks)),
	}

	for _, check := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := check.Check(ctx)
		cancel()
		if err != nil {
			logger.L(c.Request.Context()).Warn("Health check failed", zap.String("check", check.Name), zap.Error(err))
			resp.Status = "unavailable"
			resp.Checks[check.Name] = "error"
			continue
		}
		resp.Checks[check.Name] = "ok"
	}

	if resp.Status != "ok" {
		details := make(map[string]any, len(resp.Checks))
		for k, v := range resp.Checks {
			details[k] = v
		}
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithDetails(
			dto.ErrCodeUnavailable,
			"One or more dependencies are unavailable",
			getRequestID(c),
			details,
		))
		return
	}
	h.Success(c, resp)
}
