package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/palaver/cmd/palaver/cmdconfig"
	"github.com/papercomputeco/palaver/pkg/chat"
	"github.com/papercomputeco/palaver/pkg/logger"
	"github.com/papercomputeco/palaver/pkg/tui"
)

const chatLongDesc string = `Start an interactive chat.

The conversation lives only in this session. Type a prompt and press
enter; the answer streams into the transcript above. While an answer
is pending the input is disabled.

Commands:
  /attach <path>   attach a PNG or JPEG image to the next prompt
  /detach          drop the pending image
  /quit            exit (also esc or ctrl+c)

Logs are discarded unless --log-file is given, since the terminal
belongs to the chat view.

Examples:
  palaver chat
  palaver chat --server http://localhost:8080 --log-file /tmp/palaver.log`

const chatShortDesc string = "Start an interactive chat"

// ErrNotTerminal is returned when stdin or stdout is not a terminal.
var ErrNotTerminal = errors.New("chat needs an interactive terminal; use 'palaver ask' instead")

type chatCommander struct {
	serverURL string
	logFile   string
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.serverURL, "server", "", "Palaver server URL to send prompts to")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Append logs to this file")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	if !cmdconfig.IsTerminal(os.Stdin) || !cmdconfig.IsTerminal(cmd.OutOrStdout()) {
		return ErrNotTerminal
	}

	cfg, err := cmdconfig.Load(cmd)
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if c.logFile != "" {
		fileLog, closeLog, err := logger.NewFileLogger(c.logFile, cmdconfig.Debug(cmd))
		if err != nil {
			return err
		}
		defer closeLog()
		defer fileLog.Sync()
		log = fileLog
	}

	client, err := cmdconfig.NewClient(cfg, c.serverURL, log)
	if err != nil {
		return err
	}

	lipgloss.SetColorProfile(termenv.EnvColorProfile())
	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}

	title := fmt.Sprintf("palaver · %s", cfg.Model)
	if c.serverURL != "" {
		title = fmt.Sprintf("palaver · %s", c.serverURL)
	}

	model := tui.New(ctx, chat.NewDispatcher(client, cfg.Stream),
		tui.WithLogger(log),
		tui.WithTitle(title),
		tui.WithGlamourStyle(style),
	)

	log.Info("chat session started",
		zap.String("model", cfg.Model),
		zap.Bool("stream", cfg.Stream),
		zap.Bool("server", c.serverURL != ""),
	)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat view failed: %w", err)
	}

	return nil
}
