package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/interfaces"
)

// TurnHandler exposes the turn ledger.
type TurnHandler struct {
	service interfaces.TurnService
}

func NewTurnHandler(svc interfaces.TurnService) *TurnHandler {
	return &TurnHandler{service: svc}
}

// HandleListTurns godoc
// @Summary      List recent turns
// @Description  Returns the most recent chat turns, newest first. Question and answer text is never stored.
// @Tags         Turns
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of turns"  default(50)
// @Success      200    {array}   model.Turn
// @Failure      400    {object}  ErrorResponse
// @Failure      500    {object}  ErrorResponse
// @Router       /api/turns [get]
func (h *TurnHandler) HandleListTurns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondWithError(w, fmt.Errorf("%w: limit must be a non-negative integer", app_errors.ErrValidation))
			return
		}
		limit = parsed
	}

	turns, err := h.service.ListTurns(r.Context(), limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, turns)
}

// HandleGetTurn godoc
// @Summary      Get a turn
// @Tags         Turns
// @Produce      json
// @Param        turnID  path      string  true  "Turn ID"
// @Success      200     {object}  model.Turn
// @Failure      404     {object}  ErrorResponse
// @Router       /api/turns/{turnID} [get]
func (h *TurnHandler) HandleGetTurn(w http.ResponseWriter, r *http.Request) {
	turnID := chi.URLParam(r, "turnID")
	turn, err := h.service.GetTurn(r.Context(), turnID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, turn)
}
