// Package server provides the server-action variant of palaver: HTTP
// endpoints that perform the inference call on behalf of a client.
package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/palaver/pkg/attachment"
	"github.com/papercomputeco/palaver/pkg/chat"
	"github.com/papercomputeco/palaver/pkg/inference"
	"github.com/papercomputeco/palaver/pkg/llm"
	"github.com/papercomputeco/palaver/pkg/logger"
)

// Server exposes a chat.Client over HTTP. It is stateless: every request is
// one blocking or streaming call and nothing is kept between requests.
type Server struct {
	config Config
	client chat.Client
	logger *zap.Logger
	server *fiber.App
}

// New creates a new Server.
func New(config Config, client chat.Client, logger *zap.Logger) (*Server, error) {
	if client == nil {
		return nil, errors.New("server requires a chat client")
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Data URI images can be large
		BodyLimit: attachment.MaxSize * 2,
	})

	s := &Server{
		config: config,
		client: client,
		logger: logger,
		server: app,
	}

	s.routes(app)

	return s, nil
}

func (s *Server) routes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Post("/api/ask", s.handleAsk)
	app.Post("/api/ask/image", s.handleAskImage)
	app.Post("/api/ask/stream", s.handleAskStream)
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting palaver server",
		zap.String("listen", s.config.ListenAddr),
	)

	return s.server.Listen(s.config.ListenAddr)
}

// Close shuts down the server.
func (s *Server) Close() error {
	return s.server.Shutdown()
}

// Handler returns the server as a net/http handler.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.server)
}

// parseAsk decodes the body shared by every ask endpoint.
func (s *Server) parseAsk(c *fiber.Ctx) (llm.Prompt, error) {
	var prompt llm.Prompt
	if err := json.Unmarshal(c.Body(), &prompt); err != nil {
		return llm.Prompt{}, errors.New("invalid request body")
	}
	if strings.TrimSpace(prompt.Text) == "" {
		return llm.Prompt{}, chat.ErrEmptyPrompt
	}
	return prompt, nil
}

// handleAsk performs a blocking text completion.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	prompt, err := s.parseAsk(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	if prompt.HasImage() {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "use /api/ask/image for image prompts"})
	}

	return s.complete(c, prompt)
}

// handleAskImage performs a blocking multimodal completion.
func (s *Server) handleAskImage(c *fiber.Ctx) error {
	prompt, err := s.parseAsk(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	if !prompt.HasImage() {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "image is required"})
	}
	if err := s.validateImage(prompt.ImageURL); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	return s.complete(c, prompt)
}

func (s *Server) validateImage(u string) error {
	if err := attachment.ValidateURL(u); err != nil {
		return err
	}
	if !s.config.AllowImageURLs && !strings.HasPrefix(u, "data:") {
		return errors.New("remote image URLs are disabled; send a data URI")
	}
	return nil
}

func (s *Server) complete(c *fiber.Ctx, prompt llm.Prompt) error {
	startTime := time.Now()

	s.logger.Debug("received ask request",
		zap.Bool("image", prompt.HasImage()),
		zap.String("prompt_preview", logger.Preview(prompt.Text, 50)),
	)

	text, err := s.client.Complete(c.Context(), prompt)
	if err != nil {
		s.logger.Error("completion failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: upstreamMessage(err)})
	}

	s.logger.Debug("completion returned",
		zap.String("content_preview", logger.Preview(text, 100)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return c.JSON(llm.TextResponse{Text: text})
}

type streamResult struct {
	text string
	err  error
}

// handleAskStream relays a streaming completion as an OpenAI-compatible
// event stream. The status is only committed once the upstream stream has
// opened, so upstream failures still get a 502.
func (s *Server) handleAskStream(c *fiber.Ctx) error {
	startTime := time.Now()

	prompt, err := s.parseAsk(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	if prompt.HasImage() {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "image prompts are not streamed; use /api/ask/image"})
	}

	ctx := c.Context()
	updates := make(chan string, 64)
	done := make(chan streamResult, 1)
	go func() {
		text, err := s.client.Stream(ctx, prompt, func(t string) { updates <- t })
		close(updates)
		done <- streamResult{text: text, err: err}
	}()

	// The first update announces the open stream
	if _, ok := <-updates; !ok {
		res := <-done
		if res.err != nil {
			s.logger.Error("upstream stream failed", zap.Error(res.err))
			return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: upstreamMessage(res.err)})
		}
		return s.writeWholeStream(c, res.text)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		prev := ""
		alive := true
		for text := range updates {
			if !alive {
				continue
			}
			if err := writeChunk(w, strings.TrimPrefix(text, prev)); err != nil {
				// Client went away; keep draining so the upstream call finishes.
				s.logger.Warn("client disconnected during stream", zap.Error(err))
				alive = false
				continue
			}
			prev = text
		}

		res := <-done
		if !alive {
			return
		}
		if res.err != nil {
			s.logger.Error("upstream stream failed mid-way", zap.Error(res.err))
			writeErrorEvent(w, upstreamMessage(res.err))
			return
		}

		fmt.Fprintf(w, "data: %s\n\n", llm.DoneSentinel)
		w.Flush()

		s.logger.Debug("stream relayed",
			zap.String("full_content_preview", logger.Preview(res.text, 200)),
			zap.Duration("duration", time.Since(startTime)),
		)
	}))

	return nil
}

// writeWholeStream answers with a single-fragment stream, for clients whose
// Stream returned without announcing.
func (s *Server) writeWholeStream(c *fiber.Ctx, text string) error {
	c.Set("Content-Type", "text/event-stream")
	var b strings.Builder
	w := bufio.NewWriter(&b)
	if err := writeChunk(w, text); err != nil {
		return err
	}
	fmt.Fprintf(w, "data: %s\n\n", llm.DoneSentinel)
	if err := w.Flush(); err != nil {
		return err
	}
	return c.SendString(b.String())
}

func writeChunk(w *bufio.Writer, fragment string) error {
	data, err := json.Marshal(llm.StreamChunk{
		Choices: []llm.StreamChoice{{Delta: llm.Delta{Content: &fragment}}},
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func writeErrorEvent(w *bufio.Writer, msg string) {
	data, _ := json.Marshal(llm.ErrorResponse{Error: msg})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	w.Flush()
}

// upstreamMessage is the error text returned to clients.
func upstreamMessage(err error) string {
	var statusErr *inference.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("upstream returned %d", statusErr.Code)
	}
	return "upstream request failed"
}
