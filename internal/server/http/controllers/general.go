package controllers

import (
	"net/http"

	"github.com/rzbill/logbook/internal/runtime"
)

// GeneralController handles endpoints that are not about stored events.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
//
// This method sets up HTTP endpoints for:
// - Health checks (/v1/healthz)
// - Instance info (/v1/info)
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/info", c.handleInfo)
}

// handleHealth returns the health status of the service.
//
// Returns 200 OK with {"status": "ok"} if healthy, 503 Service Unavailable otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleInfo describes the running engine.
func (c *GeneralController) handleInfo(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	cfg := c.rt.Config()
	writeJSON(w, map[string]any{
		"engine":          cfg.Engine,
		"level":           c.rt.Logger().LogLevel().String(),
		"max_age":         cfg.Store.MaxAge,
		"delete_interval": cfg.Store.DeleteInterval,
		"compression":     cfg.Store.UseCompression,
		"default_tag":     cfg.Store.DefaultTag,
		"shipping":        cfg.Ship.Enabled(),
	})
}
