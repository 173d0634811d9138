package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskboard/pkg/task"
)

func newListCmd(e *env) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks with their point totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			sums, err := svc.Summaries(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			if status != "" {
				want, err := task.ParseStatus(status)
				if err != nil {
					return err
				}
				filtered := sums[:0]
				for _, s := range sums {
					if s.Status == want {
						filtered = append(filtered, s)
					}
				}
				sums = filtered
			}
			if e.jsonOutput {
				return printJSON(cmd, sums)
			}
			if len(sums) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
				return nil
			}
			users, err := svc.Users(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPOINTS\tTOTAL\tDONE\tASSIGNEES")
			for _, s := range sums {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d/%d\t%s\n",
					s.ID, s.TaskName, s.Status, s.StoryPoints, s.TotalPoints,
					s.SubtaskCounts[task.Completed], len(s.Subtasks), assigneeNames(users, s.AssignedUserIDs))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show tasks in this status")
	return cmd
}

func newShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task, its subtasks and its status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sum := task.Summarize(t)
			if e.jsonOutput {
				return printJSON(cmd, sum)
			}

			users, err := svc.Users(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", t.ID, t.TaskName)
			fmt.Fprintf(out, "  status:    %s\n", t.Status)
			fmt.Fprintf(out, "  points:    %d (total %d)\n", t.StoryPoints, sum.TotalPoints)
			fmt.Fprintf(out, "  assignees: %s\n", assigneeNames(users, t.AssignedUserIDs))
			for _, h := range t.History {
				fmt.Fprintf(out, "  %s  → %s\n", h.Timestamp.Format("2006-01-02 15:04:05"), h.Status)
			}
			if len(t.Subtasks) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SUBTASK\tNAME\tSTATUS\tPOINTS\tASSIGNEES")
			for _, st := range t.Subtasks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", st.ID, st.TaskName, st.Status, st.StoryPoints, assigneeNames(users, st.AssignedUserIDs))
			}
			return w.Flush()
		},
	}
}

func newCreateCmd(e *env) *cobra.Command {
	var points int
	var assign []string
	cmd := &cobra.Command{
		Use:   "create <name...>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.CreateTask(cmd.Context(), strings.Join(args, " "), assign, points)
			if err != nil {
				return err
			}
			return printCreated(cmd, e, t.ID, t)
		},
	}
	cmd.Flags().IntVarP(&points, "points", "p", 0, "Story points")
	cmd.Flags().StringSliceVarP(&assign, "assign", "a", nil, "Assigned user ids")
	return cmd
}

func newUpdateCmd(e *env) *cobra.Command {
	var uf updateFlags
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change a task's name, status, points or assignees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := uf.fields(cmd)
			if err != nil {
				return err
			}
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.UpdateTask(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			if e.jsonOutput {
				return printJSON(cmd, t)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s, %d points)\n", t.ID, t.Status, t.StoryPoints)
			return nil
		},
	}
	uf.register(cmd)
	return cmd
}

func newDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and all of its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// updateFlags are the flags shared by task and subtask updates. Only flags
// that were set become fields.
type updateFlags struct {
	name   string
	status string
	points int
	assign []string
}

func (u *updateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&u.name, "name", "", "New name")
	cmd.Flags().StringVar(&u.status, "status", "", `New status ("Not Started", "In Progress", "Completed")`)
	cmd.Flags().IntVarP(&u.points, "points", "p", 0, "New story points")
	cmd.Flags().StringSliceVarP(&u.assign, "assign", "a", nil, "Replace assigned user ids")
}

func (u *updateFlags) fields(cmd *cobra.Command) (task.Fields, error) {
	var f task.Fields
	flags := cmd.Flags()
	if flags.Changed("name") {
		f.TaskName = &u.name
	}
	if flags.Changed("status") {
		s, err := task.ParseStatus(u.status)
		if err != nil {
			return f, err
		}
		f.Status = &s
	}
	if flags.Changed("points") {
		f.StoryPoints = &u.points
	}
	if flags.Changed("assign") {
		f.AssignedUserIDs = &u.assign
	}
	if f.Empty() {
		return f, errors.New("nothing to update: set --name, --status, --points or --assign")
	}
	return f, nil
}
