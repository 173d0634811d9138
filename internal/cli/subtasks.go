package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSubtaskCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtask",
		Short: "Manage the subtasks of a task",
	}
	cmd.AddCommand(newSubtaskAddCmd(e), newSubtaskUpdateCmd(e), newSubtaskDeleteCmd(e))
	return cmd
}

func newSubtaskAddCmd(e *env) *cobra.Command {
	var points int
	var assign []string
	cmd := &cobra.Command{
		Use:   "add <task-id> <name...>",
		Short: "Add a subtask",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			st, err := svc.CreateSubtask(cmd.Context(), args[0], strings.Join(args[1:], " "), assign, points)
			if err != nil {
				return err
			}
			return printCreated(cmd, e, st.ID, st)
		},
	}
	cmd.Flags().IntVarP(&points, "points", "p", 0, "Story points")
	cmd.Flags().StringSliceVarP(&assign, "assign", "a", nil, "Assigned user ids")
	return cmd
}

func newSubtaskUpdateCmd(e *env) *cobra.Command {
	var uf updateFlags
	cmd := &cobra.Command{
		Use:   "update <task-id> <subtask-id>",
		Short: "Change a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := uf.fields(cmd)
			if err != nil {
				return err
			}
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			st, err := svc.UpdateSubtask(cmd.Context(), args[0], args[1], f)
			if err != nil {
				return err
			}
			if e.jsonOutput {
				return printJSON(cmd, st)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s, %d points)\n", st.ID, st.Status, st.StoryPoints)
			return nil
		},
	}
	uf.register(cmd)
	return cmd
}

func newSubtaskDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id> <subtask-id>",
		Short: "Delete a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.DeleteSubtask(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[1])
			return nil
		},
	}
}
