package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/prompt"
)

type ollamaProvider struct {
	client *http.Client
	url    string
	model  string
}

// NewOllamaProvider talks to an Ollama server. The client has no timeout of its
// own; deadlines come from the caller's context.
func NewOllamaProvider(url, model string) Gateway {
	return &ollamaProvider{
		client: &http.Client{},
		url:    strings.TrimRight(url, "/"),
		model:  model,
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

// GenerateRequest is the /api/generate body. Sampling is sent both at the top
// level and under options, since Ollama only honours the latter.
type GenerateRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system"`
	Prompt      string        `json:"prompt"`
	Think       bool          `json:"think"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	TopK        int           `json:"top_k"`
	Options     ollamaOptions `json:"options"`
}

func (p *ollamaProvider) Model() string { return p.model }

func (p *ollamaProvider) newGenerateRequest(req *prompt.Request, stream bool) *GenerateRequest {
	return &GenerateRequest{
		Model:       p.model,
		System:      req.System,
		Prompt:      req.Prompt,
		Think:       req.Think,
		Stream:      stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		TopK:        req.TopK,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			TopK:        req.TopK,
		},
	}
}

// post sends the request and returns the response only when the status is 2xx.
func (p *ollamaProvider) post(ctx context.Context, req *prompt.Request, stream bool) (*http.Response, error) {
	body, err := json.Marshal(p.newGenerateRequest(req, stream))
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: could not create http request: %v", app_errors.ErrGenerationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: http request failed: %w", app_errors.ErrGenerationFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: api returned status %d: %s",
			app_errors.ErrGenerationFailed, resp.StatusCode, truncate(string(bodyBytes), 200))
	}
	return resp, nil
}

func (p *ollamaProvider) Generate(ctx context.Context, req *prompt.Request) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "llm.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", ProviderOllama), attribute.String("llm.model", p.model))

	resp, err := p.post(ctx, req, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("%w: could not read response body: %w", app_errors.ErrGenerationFailed, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := validateBody(bodyBytes); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("llm.response_bytes", len(bodyBytes)))
	return bodyBytes, nil
}

func (p *ollamaProvider) GenerateStream(ctx context.Context, req *prompt.Request) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "llm.GenerateStream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", ProviderOllama), attribute.String("llm.model", p.model))

	resp, err := p.post(ctx, req, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	slog.Debug("Generation stream opened", "model", p.model, "status", resp.StatusCode)
	return resp.Body, nil
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Ready lists the local models and checks the configured one is pulled.
func (p *ollamaProvider) Ready(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("could not create readiness request: %w", err)
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", app_errors.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: /api/tags returned status %d", app_errors.ErrGenerationFailed, resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("%w: could not decode /api/tags: %v", app_errors.ErrGenerationFailed, err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, p.model) || sameModel(m.Model, p.model) {
			return nil
		}
	}
	return fmt.Errorf("%w: model %q is not available", app_errors.ErrGenerationFailed, p.model)
}

// sameModel treats "name" and "name:latest" as the same model.
func sameModel(a, b string) bool {
	if a == b {
		return true
	}
	return strings.TrimSuffix(a, ":latest") == strings.TrimSuffix(b, ":latest")
}
