package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	app_errors "jude-e/backend/internal/errors"
)

var tracer = otel.Tracer("judee.retrieval")

// DefaultDistanceThreshold is the cut-off used against Chroma L2 distances.
const DefaultDistanceThreshold = 1.5

// Bundle is the ordered set of documents handed to the prompt composer.
type Bundle struct {
	Shape     Shape
	Documents []Document
	// Dropped counts documents removed by distance filtering.
	Dropped int
}

// Texts returns the document texts in retrieval order.
func (b *Bundle) Texts() []string {
	if b == nil {
		return nil
	}
	texts := make([]string, len(b.Documents))
	for i, doc := range b.Documents {
		texts[i] = doc.Text
	}
	return texts
}

// Len is nil-safe.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Documents)
}

// Retriever fetches the context bundle for a question.
type Retriever interface {
	Fetch(ctx context.Context, question string) (*Bundle, error)
	Ready(ctx context.Context) error
}

// Options controls how responses are normalized.
type Options struct {
	FilterByDistance  bool
	DistanceThreshold float64
}

type httpRetriever struct {
	client *http.Client
	url    string
	opts   Options
}

// NewClient returns a Retriever that POSTs to the given /get_context URL.
// Deadlines come from the caller's context; the client itself has none.
func NewClient(contextURL string, opts Options) Retriever {
	if opts.DistanceThreshold == 0 {
		opts.DistanceThreshold = DefaultDistanceThreshold
	}
	return &httpRetriever{
		client: &http.Client{},
		url:    contextURL,
		opts:   opts,
	}
}

type fetchRequest struct {
	Question string `json:"question"`
	Stream   bool   `json:"stream"`
}

func (c *httpRetriever) Fetch(ctx context.Context, question string) (*Bundle, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Fetch")
	defer span.End()

	bundle, err := c.fetch(ctx, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("retrieval.shape", bundle.Shape.String()),
		attribute.Int("retrieval.documents", bundle.Len()),
		attribute.Int("retrieval.dropped", bundle.Dropped),
	)
	return bundle, nil
}

func (c *httpRetriever) fetch(ctx context.Context, question string) (*Bundle, error) {
	// The stream flag is only a hint to the retrieval service; this client
	// always waits for one complete JSON body.
	body, err := json.Marshal(fetchRequest{Question: question, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("could not marshal context request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: could not create request: %v", app_errors.ErrContextUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", app_errors.ErrContextUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read response body: %w", app_errors.ErrContextUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: context service returned status %d: %s",
			app_errors.ErrContextUnavailable, resp.StatusCode, truncate(string(respBody), 200))
	}

	decoded, err := DecodeResponse(respBody)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{Shape: decoded.Shape, Documents: decoded.Documents}
	if decoded.Shape == ShapeNested && c.opts.FilterByDistance {
		bundle.Documents = FilterByDistance(decoded.Documents, c.opts.DistanceThreshold)
		bundle.Dropped = len(decoded.Documents) - len(bundle.Documents)
	}

	slog.Debug("Fetched context",
		"shape", bundle.Shape.String(),
		"documents", bundle.Len(),
		"dropped", bundle.Dropped,
	)
	return bundle, nil
}

// Ready probes the retrieval service root, which answers GET / when it is up.
func (c *httpRetriever) Ready(ctx context.Context) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("invalid context url: %w", err)
	}
	u.Path = "/"
	u.RawQuery = ""

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("could not create readiness request: %w", err)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", app_errors.ErrContextUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: readiness probe returned status %d", app_errors.ErrContextUnavailable, resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
