package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Health statuses
const (
	StatusUp       = "UP"
	StatusDown     = "DOWN"
	StatusDegraded = "DEGRADED"
)

// Pinger is a dependency the health check pings
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx)
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type healthComponent struct {
	name     string
	pinger   Pinger
	critical bool
}

// HealthHandler reports the state of the database and its satellites
type HealthHandler struct {
	BaseHandler
	components []healthComponent
	timeout    time.Duration
	logger     *zap.Logger
}

// NewHealthHandler creates a health handler; each check gets timeout.
func NewHealthHandler(timeout time.Duration, logger *zap.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{timeout: timeout, logger: logger}
}

// Critical adds a component whose failure makes the service unavailable
func (h *HealthHandler) Critical(name string, p Pinger) *HealthHandler {
	h.components = append(h.components, healthComponent{name: name, pinger: p, critical: true})
	return h
}

// Optional adds a component whose failure only degrades the service
func (h *HealthHandler) Optional(name string, p Pinger) *HealthHandler {
	h.components = append(h.components, healthComponent{name: name, pinger: p})
	return h
}

// Check handles GET /health. A failed critical component yields 503.
//
//	@ID				health
//	@Summary		Health check
//	@Description	UP when every component answers, DEGRADED when an optional one fails, DOWN when a critical one fails
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	dto.HealthResponse
//	@Failure		503	{object}	dto.HealthResponse
//	@Router			/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:     StatusUp,
		Time:       time.Now().UTC().Format(time.RFC3339),
		Components: make(map[string]string, len(h.components)),
	}

	for _, comp := range h.components {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := comp.pinger.Ping(ctx)
		cancel()

		if err == nil {
			resp.Components[comp.name] = StatusUp
			continue
		}
		h.logger.Warn("Health check failed", zap.String("component", comp.name), zap.Error(err))
		resp.Components[comp.name] = StatusDown
		switch {
		case comp.critical:
			resp.Status = StatusDown
		case resp.Status == StatusUp:
			resp.Status = StatusDegraded
		}
	}

	status := http.StatusOK
	if resp.Status == StatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
