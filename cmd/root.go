package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wayde1122/chat-box-code/config"
)

var cfgPath string

// Execute runs the assistant CLI.
func Execute() error {
	root := &cobra.Command{
		Use:           "assistant",
		Short:         "Research, news digest, chat and travel assistant",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config/config.json or ./config.json)")
	root.AddCommand(serveCMD(), researchCMD(), digestCMD(), chatCMD(), tokenCMD())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(cfgPath)
}
