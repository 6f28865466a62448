package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/library-catalog/pkg/response"
)

// Pinger is any backend the health check should probe.
type Pinger func(ctx context.Context) error

type SystemHandler struct {
	AppName string
	Checks  map[string]Pinger
}

func NewSystemHandler(appName string, checks map[string]Pinger) *SystemHandler {
	return &SystemHandler{AppName: appName, Checks: checks}
}

// Welcome GET /
func (h *SystemHandler) Welcome(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"name": h.AppName, "docs": "/api"}, "Welcome to the library catalog API", nil)
}

// Health GET /api/healthz
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.Checks))
	for name, ping := range h.Checks {
		if err := ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	if status != http.StatusOK {
		response.Error[any](c, status, "unhealthy", checks)
		return
	}
	response.Success(c, status, checks, "ok", nil)
}
