package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSuggestCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <task name...>",
		Short: "Ask the suggestion service for subtasks without saving anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			names, err := svc.SuggestSubtasks(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if e.jsonOutput {
				return printJSON(cmd, map[string][]string{"subtasks": names})
			}
			for i, n := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, n)
			}
			return nil
		},
	}
}

func newGenerateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <task name...>",
		Short: "Create a task with suggested subtasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.GenerateTask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if e.jsonOutput {
				return printJSON(cmd, t)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s with %d subtasks\n", t.ID, len(t.Subtasks))
			for _, st := range t.Subtasks {
				fmt.Fprintf(out, "  %s  %s\n", st.ID, st.TaskName)
			}
			return nil
		},
	}
}
