package askcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/palaver/cmd/palaver/cmdconfig"
	"github.com/papercomputeco/palaver/pkg/attachment"
	"github.com/papercomputeco/palaver/pkg/chat"
	"github.com/papercomputeco/palaver/pkg/llm"
	"github.com/papercomputeco/palaver/pkg/logger"
)

const askLongDesc string = `Ask a single question and print the answer.

Text-only prompts are streamed to stdout as the answer arrives unless
streaming is disabled in the config or with --no-stream. A prompt with
--image is always answered by a blocking call.

With --server the question is sent to a palaver server, which holds
the API token; otherwise the inference endpoint is called directly.

Examples:
  palaver ask "What is the capital of France?"
  palaver ask --image cat.png "What is in this picture?"
  palaver ask --server http://localhost:8080 --no-stream "Hello"`

const askShortDesc string = "Ask a one-off question"

type askCommander struct {
	imagePath string
	noStream  bool
	serverURL string
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <prompt...>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.imagePath, "image", "i", "", "PNG or JPEG image to attach")
	cmd.Flags().BoolVar(&cmder.noStream, "no-stream", false, "Wait for the whole answer instead of streaming")
	cmd.Flags().StringVar(&cmder.serverURL, "server", "", "Palaver server URL to send the question to")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, text string) error {
	if strings.TrimSpace(text) == "" {
		return chat.ErrEmptyPrompt
	}

	cfg, err := cmdconfig.Load(cmd)
	if err != nil {
		return err
	}

	log := logger.NewLogger(cmdconfig.Debug(cmd))
	defer log.Sync()

	client, err := cmdconfig.NewClient(cfg, c.serverURL, log)
	if err != nil {
		return err
	}

	prompt := llm.Prompt{Text: text}
	if c.imagePath != "" {
		img, err := attachment.Load(c.imagePath)
		if err != nil {
			return fmt.Errorf("could not attach image: %w", err)
		}
		prompt.ImageURL = img.DataURI
	}

	dispatcher := chat.NewDispatcher(client, cfg.Stream && !c.noStream)
	mode := dispatcher.ModeFor(prompt)
	out := cmd.OutOrStdout()

	log.Debug("asking",
		zap.String("mode", string(mode)),
		zap.String("model", cfg.Model),
		zap.Bool("server", c.serverURL != ""),
	)

	if mode == chat.ModeStream {
		return c.stream(ctx, dispatcher, prompt, out)
	}

	answer, err := dispatcher.Dispatch(ctx, prompt, nil)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, render(answer, out))
	return nil
}

// stream writes each new fragment as it arrives.
func (c *askCommander) stream(ctx context.Context, dispatcher *chat.Dispatcher, prompt llm.Prompt, out io.Writer) error {
	written := 0
	_, err := dispatcher.Dispatch(ctx, prompt, func(text string) {
		if len(text) > written {
			io.WriteString(out, text[written:])
			written = len(text)
		}
	})
	if written > 0 {
		fmt.Fprintln(out)
	}
	return err
}

// render formats a blocking answer as markdown on a terminal and leaves it
// untouched otherwise.
func render(text string, out io.Writer) string {
	if !cmdconfig.IsTerminal(out) {
		return text
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
