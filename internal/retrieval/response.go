package retrieval

import (
	"encoding/json"
	"fmt"
	"strings"

	app_errors "jude-e/backend/internal/errors"
)

// Shape identifies which known response layout the retrieval service used.
type Shape int

const (
	// ShapeFlat is {"documents": ["..", ".."]}.
	ShapeFlat Shape = iota + 1
	// ShapeNested is the Chroma query layout: {"documents": [[..]], "distances": [[..]]}.
	ShapeNested
	// ShapeNestedNoDistances is the Chroma layout without the distances field.
	ShapeNestedNoDistances
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeNested:
		return "nested"
	case ShapeNestedNoDistances:
		return "nested_no_distances"
	default:
		return "unknown"
	}
}

// Document is one retrieved text with its optional distance score.
type Document struct {
	Text     string
	Distance *float64
}

// Response is the decoded retrieval payload before any filtering.
type Response struct {
	Shape     Shape
	Documents []Document
}

type rawResponse struct {
	Documents json.RawMessage `json:"documents"`
	Distances json.RawMessage `json:"distances"`
}

// DecodeResponse normalizes every response shape the retrieval service is
// known to produce. Anything else is ErrContextUnavailable.
func DecodeResponse(body []byte) (*Response, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response body: %v", app_errors.ErrContextUnavailable, err)
	}
	if isAbsent(raw.Documents) {
		return nil, fmt.Errorf("%w: response has no documents field", app_errors.ErrContextUnavailable)
	}

	var flat []string
	if err := json.Unmarshal(raw.Documents, &flat); err == nil {
		docs := make([]Document, len(flat))
		for i, text := range flat {
			docs[i] = Document{Text: text}
		}
		return &Response{Shape: ShapeFlat, Documents: docs}, nil
	}

	var nested [][]string
	if err := json.Unmarshal(raw.Documents, &nested); err != nil {
		return nil, fmt.Errorf("%w: documents field has an unknown shape", app_errors.ErrContextUnavailable)
	}

	var first []string
	if len(nested) > 0 {
		first = nested[0]
	}

	if isAbsent(raw.Distances) {
		docs := make([]Document, len(first))
		for i, text := range first {
			docs[i] = Document{Text: text}
		}
		return &Response{Shape: ShapeNestedNoDistances, Documents: docs}, nil
	}

	var distances [][]float64
	if err := json.Unmarshal(raw.Distances, &distances); err != nil {
		return nil, fmt.Errorf("%w: distances field has an unknown shape", app_errors.ErrContextUnavailable)
	}
	var firstDistances []float64
	if len(distances) > 0 {
		firstDistances = distances[0]
	}

	docs := make([]Document, len(first))
	for i, text := range first {
		docs[i] = Document{Text: text}
		if i < len(firstDistances) {
			d := firstDistances[i]
			docs[i].Distance = &d
		}
	}
	return &Response{Shape: ShapeNested, Documents: docs}, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// FilterByDistance keeps documents whose distance is <= threshold, in order.
// A document without a distance is dropped, since it cannot be shown to be
// relevant.
func FilterByDistance(docs []Document, threshold float64) []Document {
	kept := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Distance == nil || *doc.Distance > threshold {
			continue
		}
		kept = append(kept, doc)
	}
	return kept
}
