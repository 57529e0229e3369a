package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	srv "github.com/wayde1122/chat-box-code/internal/server"
)

func tokenCMD() *cobra.Command {
	var ttl time.Duration
	token := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an API token signed with server.jwt_secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret is not configured")
			}
			signed, err := srv.SignToken(args[0], []byte(cfg.Server.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return token
}
