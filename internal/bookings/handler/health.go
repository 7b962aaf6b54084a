package handler

import (
	"context"
	"net/http"
	"staybook/pkg/client"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type HealthHandler struct {
	checks []client.HealthCheck
	log    *logger.Logger
}

func NewHealthHandler(checks []client.HealthCheck, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		log:    log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

// Ready pings every store. Any failure answers 503 with the per-check results.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	var failed []string
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.log.Error("Health check failed", "check", c.Name, "error", err, "path", r.URL.Path)
			checks[c.Name] = "error"
			failed = append(failed, c.Name)
			continue
		}
		checks[c.Name] = "ok"
	}

	if len(failed) > 0 {
		appErr := apperrors.Unavailable(strings.Join(failed, ", ")).WithDetails(map[string]any{"checks": checks})
		if err := httputil.WriteError(w, appErr); err != nil {
			h.log.Error("failed to write error response", "handler", "Ready", "operation", "WriteError", "error", err)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ready", Checks: checks}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
