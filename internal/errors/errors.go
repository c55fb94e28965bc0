package errors

import "errors"

// This package defines a centralized set of sentinel errors for the application.
// Services wrap these with fmt.Errorf("%w: ...") so the API layer can use
// errors.Is() to map them to HTTP responses without knowing which upstream
// produced them.

var (
	// ErrNotFound signifies that a requested resource could not be located.
	// This is typically mapped to a 404 Not Found HTTP status.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that input data provided by a client failed
	// validation.
	// This is typically mapped to a 400 Bad Request HTTP status.
	ErrValidation = errors.New("validation failed")

	// ErrContextUnavailable signifies that the context-retrieval service could
	// not be reached, answered with a non-success status, or returned a body
	// that does not match any known response shape.
	// This is typically mapped to a 503 Service Unavailable HTTP status.
	ErrContextUnavailable = errors.New("context unavailable")

	// ErrGenerationFailed signifies that the generation backend could not be
	// reached, answered with a non-success status, or (in buffered mode)
	// returned a body that is not JSON.
	// This is typically mapped to a 502 Bad Gateway HTTP status.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrMalformedFrame marks a non-blank NDJSON line that failed to parse.
	// It is never fatal: the stream reassembler drops the frame and continues.
	ErrMalformedFrame = errors.New("malformed stream frame")

	// ErrInternal signifies an unexpected error on the server. This is a generic
	// error used to prevent leaking sensitive implementation details to the client.
	// This is typically mapped to a 500 Internal Server Error HTTP status.
	ErrInternal = errors.New("internal server error")
)
