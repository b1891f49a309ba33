package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemInfoResponse describes the running build
type SystemInfoResponse struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Env            string `json:"env"`
	GoVersion      string `json:"go_version"`
	SearchProvider string `json:"search_provider"`
	Uptime         string `json:"uptime"`
}

// SystemHandler serves build and runtime information
type SystemHandler struct {
	BaseHandler
	info      SystemInfoResponse
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version, env, searchProvider string) *SystemHandler {
	return &SystemHandler{
		info: SystemInfoResponse{
			Name:           name,
			Version:        version,
			Env:            env,
			GoVersion:      runtime.Version(),
			SearchProvider: searchProvider,
		},
		startTime: time.Now(),
	}
}

// Info handles GET /api/admin/info
//
//	@ID				getSystemInfo
//	@Summary		Build and runtime information
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	SystemInfoResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		403	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/admin/info [get]
func (h *SystemHandler) Info(c *gin.Context) {
	info := h.info
	info.Uptime = time.Since(h.startTime).Round(time.Second).String()
	c.JSON(http.StatusOK, info)
}
