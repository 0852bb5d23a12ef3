// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/orchat/internal/credential"
	"github.com/jeranaias/orchat/internal/model"
)

// Configuration constants for the OpenRouter API.
const (
	// DefaultEndpoint is the chat completions endpoint.
	DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

	// DefaultReferer is sent as HTTP-Referer when no origin is configured.
	DefaultReferer = "http://localhost"

	// DefaultTitle is sent as X-Title.
	DefaultTitle = "OpenRouter Chat App"

	// FallbackErrorMessage is used when an error response carries no message.
	FallbackErrorMessage = "Failed to get response"

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// sharedHTTPClient pools connections across clients. It has no timeout:
// requests are bounded by their context.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Error variables for completion failures.
var (
	// ErrMissingCredential indicates no API key was available. No request is made.
	ErrMissingCredential = errors.New("OpenRouter API key is missing")

	// ErrMalformedResponse indicates a 2xx response that could not be used.
	ErrMalformedResponse = errors.New("malformed response")
)

// RemoteError is a non-2xx answer from the API.
type RemoteError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("OpenRouter error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends conversation histories to OpenRouter.
//
// A Client holds no per-conversation state and is safe for concurrent use.
// Configure it with the With* methods before first use.
type Client struct {
	creds        credential.Source
	endpoint     string
	httpClient   *http.Client
	mode         ContentMode
	systemPrompt string
	referer      string
	title        string
	logger       *zap.Logger
}

// NewClient creates a client that looks the API key up in creds on every call.
func NewClient(creds credential.Source) *Client {
	return &Client{
		creds:        creds,
		endpoint:     DefaultEndpoint,
		httpClient:   sharedHTTPClient,
		mode:         ContentStructured,
		systemPrompt: DefaultSystemPrompt,
		referer:      DefaultReferer,
		title:        DefaultTitle,
		logger:       zap.NewNop(),
	}
}

// WithEndpoint sets the chat completions URL.
func (c *Client) WithEndpoint(endpoint string) *Client {
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		c.endpoint = endpoint
	}
	return c
}

// WithHTTPClient sets the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithContentMode selects the wire representation of message content.
func (c *Client) WithContentMode(mode ContentMode) *Client {
	if mode != "" {
		c.mode = mode
	}
	return c
}

// WithSystemPrompt sets the leading system instruction.
func (c *Client) WithSystemPrompt(prompt string) *Client {
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		c.systemPrompt = prompt
	}
	return c
}

// WithReferer sets the origin sent as HTTP-Referer.
func (c *Client) WithReferer(referer string) *Client {
	if referer != "" {
		c.referer = referer
	}
	return c
}

// WithTitle sets the application name sent as X-Title.
func (c *Client) WithTitle(title string) *Client {
	if title != "" {
		c.title = title
	}
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// ContentMode returns the configured content mode.
func (c *Client) ContentMode() ContentMode {
	return c.mode
}

// Endpoint returns the configured chat completions URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// BuildRequest returns the request body Complete would send.
func (c *Client) BuildRequest(history []model.Message, m model.ModelDescriptor) ChatRequest {
	return buildRequest(history, m, c.mode, c.systemPrompt)
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete sends the full history to model m and returns the assistant reply.
//
// Exactly one HTTP request is made. The caller appends the reply to its
// conversation; Complete does not touch any store.
func (c *Client) Complete(ctx context.Context, history []model.Message, m model.ModelDescriptor) (model.Message, error) {
	key, err := c.apiKey(ctx)
	if err != nil {
		return model.Message{}, err
	}

	bodyBytes, err := json.Marshal(c.BuildRequest(history, m))
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, key)

	c.logger.Debug("completion request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("model", m.ID),
		zap.Int("messages", len(history)),
		zap.String("key", credential.Fingerprint(key)),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// SECURITY: Drop the key from the request before anything can log it
	req.Header.Del("Authorization")

	if err != nil {
		return model.Message{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := readResponse(resp)
	c.logger.Debug("completion response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Message{}, handleErrorResponse(resp.StatusCode, body)
	}
	if readErr != nil {
		return model.Message{}, readErr
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return model.Message{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(chatResp.Choices) == 0 {
		return model.Message{}, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	return model.NewAssistantText(chatResp.Choices[0].Message.Content), nil
}

// apiKey resolves the key. Every failure is reported as ErrMissingCredential.
func (c *Client) apiKey(ctx context.Context) (string, error) {
	if c.creds == nil {
		return "", ErrMissingCredential
	}
	key, err := c.creds.APIKey(ctx)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			c.logger.Warn("credential lookup failed", zap.Error(err))
		}
		return "", fmt.Errorf("%w: %v", ErrMissingCredential, err)
	}
	if key = strings.TrimSpace(key); key == "" {
		return "", ErrMissingCredential
	}
	return key, nil
}

// setHeaders sets the headers OpenRouter expects.
func (c *Client) setHeaders(req *http.Request, key string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)
}

// readResponse reads the response body with size limits.
//
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeded maximum size of %d bytes", ErrMalformedResponse, MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts a non-2xx response into a RemoteError.
func handleErrorResponse(status int, body []byte) error {
	msg := FallbackErrorMessage
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if m := strings.TrimSpace(apiErr.Error.Message); m != "" {
			msg = m
		}
	}
	return &RemoteError{Status: status, Message: msg}
}
