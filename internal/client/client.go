// Package client sends questions to the chat server and streams the answer
// into a session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/session"
	"jude-e/backend/internal/stream"
)

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Prompt   string `json:"prompt"`
	UserRole string `json:"userRole,omitempty"`
}

// Send runs one turn: the question is appended to sess, and the answer is
// streamed into a new assistant message. Any failure leaves
// session.ErrorMessage as the answer and is returned. Cancelling ctx stops
// the read.
func (c *Client) Send(ctx context.Context, sess *session.Session, question string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: question must not be blank", app_errors.ErrValidation)
	}
	sess.AppendUser(question)

	body, err := json.Marshal(chatRequest{Prompt: question, UserRole: string(sess.Role())})
	if err != nil {
		sess.Fail(session.ErrorMessage)
		return fmt.Errorf("could not marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		sess.Fail(session.ErrorMessage)
		return fmt.Errorf("could not create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		sess.Fail(session.ErrorMessage)
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		sess.Fail(session.ErrorMessage)
		return fmt.Errorf("HTTP error! Status: %d", resp.StatusCode)
	}

	sess.BeginAssistant()
	malformed := stream.WithMalformedHook(func(line []byte, err error) {
		slog.Debug("Skipping malformed stream line", "error", err, "bytes", len(line))
	})
	for delta, err := range stream.Deltas(ctx, resp.Body, malformed) {
		if err != nil {
			sess.Fail(session.ErrorMessage)
			return fmt.Errorf("reading chat stream: %w", err)
		}
		sess.ApplyDelta(delta)
	}
	sess.EndAssistant()
	return nil
}
