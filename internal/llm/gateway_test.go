package llm

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "jude-e/backend/internal/errors"
)

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("Streamed")
	require.NoError(t, err)
	assert.Equal(t, ModeStreamed, mode)

	mode, err = ParseMode(" buffered ")
	require.NoError(t, err)
	assert.Equal(t, ModeBuffered, mode)

	_, err = ParseMode("chunked")
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}

func TestNewGateway(t *testing.T) {
	gw, err := NewGateway(Config{OllamaURL: "http://localhost:11434", OllamaModel: "gemma3:1b"})
	require.NoError(t, err)
	assert.Equal(t, "gemma3:1b", gw.Model())

	gw, err = NewGateway(Config{Provider: "OpenAI", OpenAIModel: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", gw.Model())

	_, err = NewGateway(Config{Provider: "bard"})
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}

func TestValidateBody(t *testing.T) {
	assert.NoError(t, validateBody([]byte(`{"response":"x","done":true}`)))
	assert.NoError(t, validateBody([]byte("{\"a\":1}\n\n{\"b\":2}\n")))
	assert.ErrorIs(t, validateBody([]byte("  \n")), app_errors.ErrGenerationFailed)
	assert.ErrorIs(t, validateBody([]byte("{\"a\":1}\nnope")), app_errors.ErrGenerationFailed)
}

type trackingCloser struct {
	io.Reader
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return nil
}

func TestWithCancelOnClose(t *testing.T) {
	inner := &trackingCloser{Reader: strings.NewReader("data")}
	cancelled := false

	body := WithCancelOnClose(inner, func() { cancelled = true })
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
	assert.False(t, cancelled)

	require.NoError(t, body.Close())
	assert.True(t, inner.closed)
	assert.True(t, cancelled)
}
