package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"

	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/prompt"
)

var tracer = otel.Tracer("judee.llm")

// Gateway forwards composed prompts to a generation backend.
type Gateway interface {
	// Generate performs a non-streamed request and returns the backend body verbatim.
	Generate(ctx context.Context, req *prompt.Request) ([]byte, error)
	// GenerateStream performs a streamed request. The returned body is NDJSON and
	// is only handed out after the upstream status has been checked. The caller
	// must close it.
	GenerateStream(ctx context.Context, req *prompt.Request) (io.ReadCloser, error)
	// Ready reports whether the backend is reachable and serves the configured model.
	Ready(ctx context.Context) error
	// Model returns the configured model name.
	Model() string
}

// Mode selects how a turn is relayed to the caller.
type Mode string

const (
	ModeBuffered Mode = "buffered"
	ModeStreamed Mode = "streamed"
)

// ParseMode accepts "buffered" and "streamed", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBuffered:
		return ModeBuffered, nil
	case ModeStreamed:
		return ModeStreamed, nil
	default:
		return "", fmt.Errorf("%w: unknown relay mode %q", app_errors.ErrValidation, s)
	}
}

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config selects and configures the generation provider.
type Config struct {
	Provider      string
	OllamaURL     string
	OllamaModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

func NewGateway(cfg Config) (Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOllama:
		return NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", app_errors.ErrValidation, cfg.Provider)
	}
}

// validateBody accepts a single JSON document or NDJSON where every non-blank
// line is a JSON value.
func validateBody(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty response body", app_errors.ErrGenerationFailed)
	}
	if json.Valid(trimmed) {
		return nil
	}
	for i, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return fmt.Errorf("%w: response line %d is not valid JSON", app_errors.ErrGenerationFailed, i+1)
		}
	}
	return nil
}

// cancelOnClose releases a per-call context when the relay body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// WithCancelOnClose wraps body so that closing it also calls cancel.
func WithCancelOnClose(body io.ReadCloser, cancel context.CancelFunc) io.ReadCloser {
	return &cancelOnClose{ReadCloser: body, cancel: cancel}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
