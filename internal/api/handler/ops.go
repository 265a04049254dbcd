// Package handler provides HTTP handlers for the mobility API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sfmobility/sfmobility/internal/api/models"
	"github.com/sfmobility/sfmobility/internal/api/response"
	"github.com/sfmobility/sfmobility/internal/provider/resilience"
)

// CheckFunc probes one dependency. A nil error means the dependency is
// reachable.
type CheckFunc func(ctx context.Context) error

// OpsConfig holds configuration for the ops handler.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Checks are probed by the readiness and status endpoints.
	Checks map[string]CheckFunc

	// Providers are listed on the status endpoint by name.
	Providers []string

	// Registry supplies circuit breaker health for providers that
	// have one (optional).
	Registry *resilience.Registry
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    map[string]CheckFunc
	providers []string
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		checks:    cfg.Checks,
		providers: cfg.Providers,
		registry:  cfg.Registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Returns 503
// when any registered dependency check fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := models.HealthStatusOK
	details := make(map[string]interface{}, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = models.HealthStatusFail
			details[name] = err.Error()
			continue
		}
		details[name] = "ok"
	}

	health := models.Health{
		Status:  status,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	}

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	now := models.Timestamp(time.Now())
	overall := models.HealthStatusOK

	subsystems := make([]models.SubsystemStatus, 0, len(h.checks))
	for name, check := range h.checks {
		sub := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := check(ctx); err != nil {
			detail := err.Error()
			sub.Status = models.HealthStatusFail
			sub.Detail = &detail
			overall = models.HealthStatusDegraded
		}
		subsystems = append(subsystems, sub)
	}

	providers := make([]models.ProviderStatus, 0, len(h.providers))
	for _, name := range h.providers {
		ps := models.ProviderStatus{
			Provider: name,
			Status:   models.HealthStatusOK,
		}

		// Providers behind a circuit breaker report its state.
		if h.registry != nil {
			if health := h.registry.GetHealth(name); health != nil {
				ps = providerStatus(health)
				if ps.Status != models.HealthStatusOK {
					overall = models.HealthStatusDegraded
				}
			}
		}

		providers = append(providers, ps)
	}

	status := models.SystemStatus{
		Status:     overall,
		Time:       now,
		Subsystems: subsystems,
		Providers:  providers,
	}
	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(health *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider: health.Name,
		Status:   models.HealthStatusOK,
	}

	switch {
	case health.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case health.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}

	if health.LastSuccessAt != nil {
		t := models.Timestamp(*health.LastSuccessAt)
		ps.LastSuccessAt = &t
	}
	if health.LastFailureAt != nil {
		t := models.Timestamp(*health.LastFailureAt)
		ps.LastFailureAt = &t
	}
	if health.LastError != "" {
		msg := health.LastError
		ps.Message = &msg
	}

	return ps
}
