package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/prompt"
)

type openAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider targets any OpenAI-compatible chat completion API. Output
// is re-encoded in the Ollama NDJSON shape so relays and clients stay the same.
func NewOpenAIProvider(apiKey, baseURL, model string) Gateway {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &openAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// frame is one NDJSON line as emitted by Ollama's /api/generate.
type frame struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *openAIProvider) Model() string { return p.model }

func (p *openAIProvider) chatRequest(req *prompt.Request, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		Stream:      stream,
	}
}

func (p *openAIProvider) Generate(ctx context.Context, req *prompt.Request) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "llm.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", ProviderOpenAI), attribute.String("llm.model", p.model))

	resp, err := p.client.CreateChatCompletion(ctx, p.chatRequest(req, false))
	if err != nil {
		err = fmt.Errorf("%w: create openai chat completion: %w", app_errors.ErrGenerationFailed, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%w: openai chat completion returned no choices", app_errors.ErrGenerationFailed)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	body, err := json.Marshal(frame{Model: p.model, Response: resp.Choices[0].Message.Content, Done: true})
	if err != nil {
		return nil, fmt.Errorf("could not encode response: %w", err)
	}
	return body, nil
}

func (p *openAIProvider) GenerateStream(ctx context.Context, req *prompt.Request) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "llm.GenerateStream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", ProviderOpenAI), attribute.String("llm.model", p.model))

	stream, err := p.client.CreateChatCompletionStream(ctx, p.chatRequest(req, true))
	if err != nil {
		err = fmt.Errorf("%w: create openai chat completion stream: %w", app_errors.ErrGenerationFailed, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		defer stream.Close()
		enc := json.NewEncoder(pw)
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				if err := enc.Encode(frame{Model: p.model, Done: true}); err != nil {
					pw.CloseWithError(err)
					return
				}
				pw.Close()
				return
			}
			if err != nil {
				pw.CloseWithError(fmt.Errorf("%w: openai stream: %w", app_errors.ErrGenerationFailed, err))
				return
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			// A failed write means the reader closed the pipe.
			if err := enc.Encode(frame{Model: p.model, Response: chunk.Choices[0].Delta.Content}); err != nil {
				return
			}
		}
	}()
	return pr, nil
}

func (p *openAIProvider) Ready(ctx context.Context) error {
	models, err := p.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("%w: list openai models: %w", app_errors.ErrGenerationFailed, err)
	}
	for _, m := range models.Models {
		if m.ID == p.model {
			return nil
		}
	}
	return fmt.Errorf("%w: model %q is not available", app_errors.ErrGenerationFailed, p.model)
}
