package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/llm"
	"jude-e/backend/internal/model"
	"jude-e/backend/internal/observability"
	"jude-e/backend/internal/prompt"
	"jude-e/backend/internal/repository"
	"jude-e/backend/internal/retrieval"
)

// ContextPolicy decides what happens to a turn when context retrieval fails.
type ContextPolicy string

const (
	// ContextPolicyFail aborts the turn.
	ContextPolicyFail ContextPolicy = "fail"
	// ContextPolicyDegrade continues with an empty context block.
	ContextPolicyDegrade ContextPolicy = "degrade"
)

// ParseContextPolicy accepts "fail" and "degrade", case-insensitively.
func ParseContextPolicy(s string) (ContextPolicy, error) {
	switch ContextPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case ContextPolicyFail:
		return ContextPolicyFail, nil
	case ContextPolicyDegrade:
		return ContextPolicyDegrade, nil
	default:
		return "", fmt.Errorf("%w: unknown context failure policy %q", app_errors.ErrValidation, s)
	}
}

// ChatOptions are fixed per deployment.
type ChatOptions struct {
	Mode              llm.Mode
	ContextPolicy     ContextPolicy
	ContextTimeout    time.Duration
	GenerationTimeout time.Duration
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Prompt   string `json:"prompt" validate:"required" example:"What is AML?"`
	UserRole string `json:"userRole,omitempty" example:"child"`
}

// ChatResult carries the generation output to the transport layer. Exactly
// one of Body and Stream is set, according to Mode.
type ChatResult struct {
	TurnID         string
	Mode           llm.Mode
	Role           model.Role
	DocumentCount  int
	ContextSkipped bool
	StartedAt      time.Time

	// Body is the verbatim backend response in buffered mode.
	Body []byte
	// Stream is the raw NDJSON body in streamed mode. Closing it releases the
	// generation deadline.
	Stream io.ReadCloser
}

type ChatService struct {
	retriever retrieval.Retriever
	composer  *prompt.Composer
	gateway   llm.Gateway
	turns     repository.TurnRepository
	metrics   *observability.Metrics
	opts      ChatOptions
}

func NewChatService(
	retriever retrieval.Retriever,
	composer *prompt.Composer,
	gateway llm.Gateway,
	turns repository.TurnRepository,
	metrics *observability.Metrics,
	opts ChatOptions,
) *ChatService {
	if opts.Mode == "" {
		opts.Mode = llm.ModeStreamed
	}
	if opts.ContextPolicy == "" {
		opts.ContextPolicy = ContextPolicyFail
	}
	if turns == nil {
		turns = repository.NewNopRepository()
	}
	return &ChatService{
		retriever: retriever,
		composer:  composer,
		gateway:   gateway,
		turns:     turns,
		metrics:   metrics,
		opts:      opts,
	}
}

// Mode returns the configured relay mode.
func (s *ChatService) Mode() llm.Mode { return s.opts.Mode }

// withTimeout applies d when it is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Chat runs one turn: fetch context, compose the prompt, and call the
// generation backend. In streamed mode the caller owns result.Stream and must
// call CompleteTurn once relaying ends. Failures before that point are
// recorded here.
func (s *ChatService) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt must not be empty", app_errors.ErrValidation)
	}

	result := &ChatResult{
		TurnID:    uuid.NewString(),
		Mode:      s.opts.Mode,
		Role:      model.ParseRole(req.UserRole),
		StartedAt: time.Now().UTC(),
	}
	logger := slog.With("turn_id", result.TurnID, "role", result.Role, "mode", result.Mode)

	bundle, err := s.fetchContext(ctx, req.Prompt)
	if err != nil {
		if s.opts.ContextPolicy != ContextPolicyDegrade {
			logger.Error("Context retrieval failed", "error", err)
			s.finish(ctx, result, 0, err)
			return nil, err
		}
		logger.Warn("Context retrieval failed, continuing without context", "error", err)
		result.ContextSkipped = true
		bundle = nil
	}
	result.DocumentCount = bundle.Len()
	if bundle != nil {
		s.metrics.ObserveContext(bundle.Len(), bundle.Dropped)
	}

	composed := s.composer.Compose(req.Prompt, bundle, result.Role)
	composed.Stream = s.opts.Mode == llm.ModeStreamed

	genCtx, cancel := withTimeout(ctx, s.opts.GenerationTimeout)
	start := time.Now()

	if s.opts.Mode == llm.ModeBuffered {
		body, err := s.gateway.Generate(genCtx, composed)
		cancel()
		s.metrics.ObserveUpstream(observability.UpstreamGeneration, err, time.Since(start))
		if err != nil {
			logger.Error("Generation failed", "error", err)
			s.finish(ctx, result, 0, err)
			return nil, err
		}
		result.Body = body
		logger.Info("Generated buffered response", "documents", result.DocumentCount, "bytes", len(body))
		return result, nil
	}

	stream, err := s.gateway.GenerateStream(genCtx, composed)
	s.metrics.ObserveUpstream(observability.UpstreamGeneration, err, time.Since(start))
	if err != nil {
		cancel()
		logger.Error("Generation stream failed to open", "error", err)
		s.finish(ctx, result, 0, err)
		return nil, err
	}
	result.Stream = llm.WithCancelOnClose(stream, cancel)
	logger.Info("Generation stream opened", "documents", result.DocumentCount)
	return result, nil
}

func (s *ChatService) fetchContext(ctx context.Context, question string) (*retrieval.Bundle, error) {
	fetchCtx, cancel := withTimeout(ctx, s.opts.ContextTimeout)
	defer cancel()

	start := time.Now()
	bundle, err := s.retriever.Fetch(fetchCtx, question)
	s.metrics.ObserveUpstream(observability.UpstreamContext, err, time.Since(start))
	if err != nil {
		if !errors.Is(err, app_errors.ErrContextUnavailable) {
			err = fmt.Errorf("%w: %w", app_errors.ErrContextUnavailable, err)
		}
		return nil, err
	}
	return bundle, nil
}

// CompleteTurn records the outcome of a turn whose result was handed to the
// caller. relayErr is the error that ended relaying, if any.
func (s *ChatService) CompleteTurn(ctx context.Context, result *ChatResult, bytesRelayed int64, relayErr error) {
	if result == nil {
		return
	}
	s.metrics.AddRelayedBytes(bytesRelayed)
	if relayErr != nil {
		slog.Warn("Relay ended with an error", "turn_id", result.TurnID, "bytes", bytesRelayed, "error", relayErr)
	}
	s.finish(ctx, result, bytesRelayed, relayErr)
}

func (s *ChatService) finish(ctx context.Context, result *ChatResult, bytesRelayed int64, err error) {
	status := TurnStatusFor(err)
	s.metrics.ObserveRequest(string(result.Mode), string(status))

	turn := &model.Turn{
		ID:             result.TurnID,
		Role:           result.Role,
		Mode:           string(result.Mode),
		DocumentCount:  result.DocumentCount,
		ContextSkipped: result.ContextSkipped,
		Status:         status,
		BytesRelayed:   bytesRelayed,
		StartedAt:      result.StartedAt,
		DurationMs:     time.Since(result.StartedAt).Milliseconds(),
	}
	if status != model.TurnStatusOK {
		turn.ErrorKind = string(status)
	}

	// The request context may already be cancelled by a disconnect.
	if err := s.turns.RecordTurn(context.WithoutCancel(ctx), turn); err != nil {
		slog.Warn("Failed to record turn", "turn_id", turn.ID, "error", err)
	}
}

// TurnStatusFor classifies the error that ended a turn.
func TurnStatusFor(err error) model.TurnStatus {
	switch {
	case err == nil:
		return model.TurnStatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return model.TurnStatusTimeout
	case errors.Is(err, app_errors.ErrContextUnavailable):
		return model.TurnStatusContextUnavailable
	case errors.Is(err, app_errors.ErrGenerationFailed):
		return model.TurnStatusGenerationFailed
	default:
		return model.TurnStatusRelayFailed
	}
}
