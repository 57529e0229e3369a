package cmd

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	srv "github.com/wayde1122/chat-box-code/internal/server"
)

var errNoModel = errors.New("llm.api_key is not configured")

func researchCMD() *cobra.Command {
	var backend string
	research := &cobra.Command{
		Use:   "research <topic>",
		Short: "Run a deep-research pipeline and print its events as JSON lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := srv.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			if app.Research == nil {
				return errNoModel
			}
			req := core.ResearchRequest{Topic: strings.Join(args, " "), SearchBackend: app.Deps.ResolveBackend(backend)}
			return printEvents(cmd.OutOrStdout(), app.Research.Stream(cmd.Context(), req))
		},
	}
	research.Flags().StringVarP(&backend, "backend", "b", "", "search backend (tavily, serper, duckduckgo, bing, brave)")
	return research
}

func digestCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "digest <topic>",
		Short: "Build today's news digest and print its events as JSON lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := srv.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			if app.Digest == nil {
				return errNoModel
			}
			return printEvents(cmd.OutOrStdout(), app.Digest.Stream(cmd.Context(), strings.Join(args, " ")))
		},
	}
}

// printEvents writes one JSON object per event and fails if the run ended
// with an error event.
func printEvents(w io.Writer, events <-chan core.Event) error {
	enc := json.NewEncoder(w)
	var failed error
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		if p, ok := ev.Data.(core.ErrorPayload); ok && ev.Name == core.EventError {
			failed = errors.New(p.Message)
		}
	}
	return failed
}
