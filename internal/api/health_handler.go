package api

import (
	"net/http"

	"jude-e/backend/internal/interfaces"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	service interfaces.HealthService
}

func NewHealthHandler(svc interfaces.HealthService) *HealthHandler {
	return &HealthHandler{service: svc}
}

// HandleHealthz godoc
// @Summary      Liveness probe
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /healthz [get]
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleReadyz godoc
// @Summary      Readiness probe
// @Description  Checks that the context service answers and the generation backend serves the configured model.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  service.Readiness
// @Failure      503  {object}  service.Readiness
// @Router       /readyz [get]
func (h *HealthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	readiness := h.service.Ready(r.Context())
	status := http.StatusOK
	if !readiness.Ready {
		status = http.StatusServiceUnavailable
	}
	respondWithJSON(w, status, readiness)
}
