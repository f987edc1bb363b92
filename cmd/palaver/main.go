package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/palaver/cmd/palaver/ask"
	chatcmder "github.com/papercomputeco/palaver/cmd/palaver/chat"
	"github.com/papercomputeco/palaver/cmd/palaver/cmdconfig"
	servecmder "github.com/papercomputeco/palaver/cmd/palaver/serve"
	versioncmder "github.com/papercomputeco/palaver/cmd/palaver/version"
)

const rootLongDesc string = `palaver is a minimal chat front-end for OpenAI-compatible
chat completion endpoints, such as GitHub Models.

Configuration is read from ~/.config/palaver/config.toml when present,
then from PALAVER_ENDPOINT, PALAVER_MODEL and the token variable
(GITHUB_TOKEN by default).`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "palaver",
		Short:         "A minimal LLM chat front-end",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmdconfig.AddFlags(cmd)

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
