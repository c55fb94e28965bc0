package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/interfaces"
	"jude-e/backend/internal/llm"
	"jude-e/backend/internal/observability"
	"jude-e/backend/internal/service"
)

// TurnIDHeader carries the turn identifier on every /api/chat reply.
const TurnIDHeader = "X-Turn-ID"

// ChatHandler serves the chat pipeline.
type ChatHandler struct {
	service interfaces.ChatService
	metrics *observability.Metrics
}

func NewChatHandler(svc interfaces.ChatService, metrics *observability.Metrics) *ChatHandler {
	return &ChatHandler{service: svc, metrics: metrics}
}

// HandleChat godoc
// @Summary      Ask the assistant
// @Description  Fetches context for the prompt, builds the role-specific system prompt and returns the generation backend's raw output. In streamed mode the body is NDJSON flushed as it arrives.
// @Tags         Chat
// @Accept       json
// @Produce      application/x-ndjson
// @Param        chatRequest  body      service.ChatRequest  true  "Question and optional role"
// @Success      200          {string}  string               "Raw NDJSON from the generation backend"
// @Failure      400          {object}  ErrorResponse
// @Failure      502          {object}  ErrorResponse
// @Failure      503          {object}  ErrorResponse
// @Failure      504          {object}  ErrorResponse
// @Router       /api/chat [post]
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	result, err := h.service.Chat(r.Context(), &req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	w.Header().Set(TurnIDHeader, result.TurnID)

	if result.Mode == llm.ModeBuffered {
		h.writeBuffered(w, r, result)
		return
	}
	h.writeStreamed(w, r, result)
}

func (h *ChatHandler) writeBuffered(w http.ResponseWriter, r *http.Request, result *service.ChatResult) {
	contentType := "application/x-ndjson"
	if json.Valid(result.Body) {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)

	n, err := w.Write(result.Body)
	if err != nil {
		slog.Warn("Failed to write buffered response, client might have disconnected", "turn_id", result.TurnID, "error", err)
	}
	h.service.CompleteTurn(r.Context(), result, int64(n), err)
}

func (h *ChatHandler) writeStreamed(w http.ResponseWriter, r *http.Request, result *service.ChatResult) {
	defer func() {
		if err := result.Stream.Close(); err != nil {
			slog.Debug("Failed to close generation stream", "turn_id", result.TurnID, "error", err)
		}
	}()
	done := h.metrics.StreamStarted()
	defer done()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	// Send headers now; the first frame may take a while.
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	watcher := newFrameWatcher(result.TurnID, h.metrics)
	n, err := relay(w, io.TeeReader(result.Stream, watcher))
	if frameErr := watcher.Close(); err == nil && frameErr != nil {
		err = frameErr
	}

	clientGone := r.Context().Err() != nil
	if err != nil {
		if clientGone {
			slog.Info("Client disconnected during stream", "turn_id", result.TurnID, "bytes", n)
		} else {
			slog.Warn("Stream relay failed", "turn_id", result.TurnID, "bytes", n, "error", err)
		}
	}
	h.service.CompleteTurn(r.Context(), result, n, err)

	// The 200 is already sent. Cutting the chunked body without its terminator
	// is the only way left to tell the client the answer is incomplete.
	if err != nil && !clientGone {
		panic(http.ErrAbortHandler)
	}
}

// HandleGetContext godoc
// @Summary      Placeholder context lookup
// @Description  Echoes a fixed context string for a date and time. Not used by the chat pipeline.
// @Tags         Chat
// @Accept       json
// @Produce      plain
// @Param        contextRequest  body      GetContextRequest  true  "Date and time"
// @Success      200             {string}  string             "Context for {date} at {time}"
// @Failure      400             {object}  ErrorResponse
// @Router       /get_context [post]
func (h *ChatHandler) HandleGetContext(w http.ResponseWriter, r *http.Request) {
	var req GetContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Context for %s at %s", req.Date, req.Time)
}
