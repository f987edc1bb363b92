// Package cmdconfig resolves the configuration, logger and chat client shared
// by the palaver subcommands.
package cmdconfig

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/palaver/pkg/chat"
	"github.com/papercomputeco/palaver/pkg/config"
	"github.com/papercomputeco/palaver/pkg/inference"
	"github.com/papercomputeco/palaver/pkg/remote"
)

// Persistent flag names registered by AddFlags.
const (
	FlagConfig = "config"
	FlagDebug  = "debug"
)

// AddFlags registers the persistent flags on the root command.
func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(FlagConfig, "", "Path to config file (default ~/.config/palaver/config.toml)")
	cmd.PersistentFlags().Bool(FlagDebug, false, "Enable debug logging")
}

// Debug reports whether --debug was given.
func Debug(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool(FlagDebug)
	return debug
}

// Load resolves and validates the configuration named by --config.
func Load(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(FlagConfig)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewClient returns a client for the palaver server at serverURL, or for the
// inference endpoint itself when serverURL is empty. Only the latter needs a
// token.
func NewClient(cfg *config.Config, serverURL string, logger *zap.Logger) (chat.Client, error) {
	if serverURL != "" {
		return remote.New(serverURL,
			remote.WithLogger(logger),
		), nil
	}

	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}
	return inference.New(*cfg,
		inference.WithLogger(logger),
	), nil
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
