package servecmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/palaver/cmd/palaver/cmdconfig"
	"github.com/papercomputeco/palaver/pkg/inference"
	"github.com/papercomputeco/palaver/pkg/logger"
	"github.com/papercomputeco/palaver/server"
)

const serveLongDesc string = `Run the palaver server.

The server performs inference calls on behalf of its clients so the
API token never leaves this process. It exposes:

  GET  /health
  POST /api/ask          {"prompt": "..."}                 -> {"text": "..."}
  POST /api/ask/image    {"prompt": "...", "image": "..."} -> {"text": "..."}
  POST /api/ask/stream   {"prompt": "..."}                 -> text/event-stream

Examples:
  palaver serve
  palaver serve --listen 127.0.0.1:9000`

const serveShortDesc string = "Run the palaver server"

type serveCommander struct {
	listenAddr     string
	allowImageURLs bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", ":8080", "Address to listen on")
	cmd.Flags().BoolVar(&cmder.allowImageURLs, "allow-image-urls", false, "Accept remote http(s) image URLs as well as data URIs")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := cmdconfig.Load(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	log := logger.NewLogger(cmdconfig.Debug(cmd))
	defer log.Sync()

	log.Info("palaver server starting",
		zap.String("listen", c.listenAddr),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("model", cfg.Model),
		zap.Bool("debug", cmdconfig.Debug(cmd)),
	)

	client := inference.New(*cfg, inference.WithLogger(log))

	s, err := server.New(server.Config{
		ListenAddr:     c.listenAddr,
		AllowImageURLs: c.allowImageURLs,
	}, client, log)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		if err := s.Close(); err != nil {
			return fmt.Errorf("could not shut down server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}
