// Package remote is a chat.Client backed by a palaver server instead of the
// inference endpoint. The server holds the token; this client never sees it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/palaver/pkg/inference"
	"github.com/papercomputeco/palaver/pkg/llm"
	"github.com/papercomputeco/palaver/pkg/stream"
)

const (
	askPath       = "/api/ask"
	askImagePath  = "/api/ask/image"
	askStreamPath = "/api/ask/stream"
)

// Client calls the ask endpoints of a palaver server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete posts the prompt to /api/ask, or /api/ask/image when it carries
// an image, and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	path := askPath
	if prompt.HasImage() {
		path = askImagePath
	}

	resp, err := c.post(ctx, path, prompt, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var result llm.TextResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode server response: %w", err)
	}
	if result.Text == "" {
		return "", inference.ErrEmptyResponse
	}
	return result.Text, nil
}

// Stream posts the prompt to /api/ask/stream and accumulates the relayed
// events. update receives "" once the server has accepted the request.
func (c *Client) Stream(ctx context.Context, prompt llm.Prompt, update stream.UpdateFunc) (string, error) {
	resp, err := c.post(ctx, askStreamPath, prompt, "text/event-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	if update != nil {
		update("")
	}

	text, err := stream.Accumulate(ctx, resp.Body, update)
	if err != nil {
		c.logger.Debug("relayed stream ended with error",
			zap.Int("partial_length", len(text)),
			zap.Error(err),
		)
	}
	return text, err
}

func (c *Client) post(ctx context.Context, path string, prompt llm.Prompt, accept string) (*http.Response, error) {
	body, err := json.Marshal(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	c.logger.Debug("calling palaver server",
		zap.String("url", c.baseURL+path),
		zap.Bool("image", prompt.HasImage()),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server request failed: %w", err)
	}
	return resp, nil
}

// statusError reads the server's error body into an inference.StatusError.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var body llm.ErrorResponse
	msg := string(raw)
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &inference.StatusError{Code: resp.StatusCode, Body: msg}
}
