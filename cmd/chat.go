package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	srv "github.com/wayde1122/chat-box-code/internal/server"
)

func chatCMD() *cobra.Command {
	var showSteps bool
	chat := &cobra.Command{
		Use:   "chat <question>",
		Short: "Answer one question with the tool-using agent",
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
			question := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			if app.Agent == nil {
				fmt.Fprintln(out, app.Deps.FAQ.Answer(question))
				return nil
			}
			res, err := app.Agent.Run(cmd.Context(), question)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "agent failed, answering from FAQ:", err)
				fmt.Fprintln(out, app.Deps.FAQ.Answer(question))
				return nil
			}
			if showSteps {
				for i, s := range res.Steps {
					fmt.Fprintf(out, "[%d] thought: %s\n    action: %s\n    observation: %s\n", i+1, s.Thought, s.Action, s.Observation)
				}
			}
			fmt.Fprintln(out, res.Answer)
			return nil
		},
	}
	chat.Flags().BoolVar(&showSteps, "steps", false, "print the reasoning steps")
	return chat
}
