package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck is one named dependency probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandlers struct {
	checks      []HealthCheck
	modelLoaded func() bool
}

func NewHealthHandlers(modelLoaded func() bool, checks ...HealthCheck) *HealthHandlers {
	return &HealthHandlers{checks: checks, modelLoaded: modelLoaded}
}

// Health reports 503 when any backing store is unreachable. A model that is
// not loaded yet does not make the service unhealthy; it is loaded on demand.
func (h *HealthHandlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			deps[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[check.Name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":               state,
		"dependencies":         deps,
		"embeddingModelLoaded": h.modelLoaded != nil && h.modelLoaded(),
	})
}
