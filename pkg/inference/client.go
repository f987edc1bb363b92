// Package inference talks to an OpenAI-compatible chat completion endpoint.
package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/papercomputeco/palaver/pkg/config"
	"github.com/papercomputeco/palaver/pkg/llm"
	"github.com/papercomputeco/palaver/pkg/stream"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Client calls the inference endpoint described by a config.Config.
// Streaming goes through the SSE accumulator, blocking and multimodal calls
// through the OpenAI SDK. Nothing is retried.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	sdk        openai.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for both call paths.
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

// New creates a Client.
func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		logger: zap.NewNop(),
		httpClient: &http.Client{
			// LLM requests can be slow
			Timeout: timeout(cfg),
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.sdk = openai.NewClient(
		option.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/")+"/"),
		option.WithAPIKey(cfg.Token),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)

	return c
}

func timeout(cfg config.Config) time.Duration {
	if cfg.Timeout.Duration > 0 {
		return cfg.Timeout.Duration
	}
	return config.DefaultTimeout
}

// BuildRequest composes the chat completion payload for one prompt. Without an
// image the user content is plain text; with one it is exactly a text part
// followed by an image part.
func BuildRequest(cfg config.Config, prompt llm.Prompt, streaming bool) llm.ChatRequest {
	var content any = prompt.Text
	if prompt.HasImage() {
		content = []llm.ContentPart{
			llm.TextPart(prompt.Text),
			llm.ImagePart(prompt.ImageURL),
		}
	}

	messages := make([]llm.Message, 0, 2)
	if cfg.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: cfg.SystemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: content})

	return llm.ChatRequest{
		Messages:    messages,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		TopP:        cfg.TopP,
		Stream:      streaming,
	}
}

// Stream performs a streaming chat completion. Once the stream is open update
// is called with "" to announce the response, then once per fragment with the
// accumulated text.
func (c *Client) Stream(ctx context.Context, prompt llm.Prompt, update stream.UpdateFunc) (string, error) {
	startTime := time.Now()

	reqBody, err := json.Marshal(BuildRequest(c.cfg, prompt, true))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	c.logger.Debug("sending streaming request",
		zap.String("url", url),
		zap.String("model", c.cfg.Model),
		zap.Int("body_size", len(reqBody)),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return "", &StatusError{Code: httpResp.StatusCode, Body: string(body)}
	}

	// The client timeout wraps every body, so an empty stream only shows up
	// as an immediate EOF.
	body := bufio.NewReader(httpResp.Body)
	if httpResp.ContentLength == 0 {
		return "", ErrNoStream
	}
	if _, err := body.Peek(1); errors.Is(err, io.EOF) {
		return "", ErrNoStream
	}

	if update != nil {
		update("")
	}

	res, err := stream.AccumulateResult(ctx, body, update)
	if err != nil {
		return res.Text, err
	}

	c.logger.Debug("stream complete",
		zap.Int("events", res.Events),
		zap.Int("fragments", res.Fragments),
		zap.Bool("sentinel", res.Done),
		zap.Duration("duration", time.Since(startTime)),
	)

	return res.Text, nil
}

// Complete performs a blocking chat completion, multimodal when the prompt
// carries an image.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	startTime := time.Now()

	resp, err := c.sdk.Chat.Completions.New(ctx, c.completionParams(prompt))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Code: apiErr.StatusCode, Err: err}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrMalformedResponse
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.Bool("image", prompt.HasImage()),
		zap.Int("length", len(text)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return text, nil
}

func (c *Client) completionParams(prompt llm.Prompt) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if c.cfg.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(c.cfg.SystemPrompt))
	}

	if prompt.HasImage() {
		messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt.Text),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: prompt.ImageURL,
			}),
		}))
	} else {
		messages = append(messages, openai.UserMessage(prompt.Text))
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(c.cfg.Model),
		Temperature: openai.Float(c.cfg.Temperature),
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.cfg.MaxTokens))
	}
	if c.cfg.TopP != nil {
		params.TopP = openai.Float(*c.cfg.TopP)
	}

	return params
}
