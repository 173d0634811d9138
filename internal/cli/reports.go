package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskboard/pkg/task"
)

func newReportCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Story-point reports",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Points per status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := e.service(cmd)
				if err != nil {
					return err
				}
				report, err := svc.ReportByStatus(cmd.Context())
				if err != nil {
					return err
				}
				if e.jsonOutput {
					return printJSON(cmd, report)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "STATUS\tPOINTS")
				for _, s := range task.Statuses {
					fmt.Fprintf(w, "%s\t%d\n", s, report[s])
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "assignees",
			Short: "Points per user",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := e.service(cmd)
				if err != nil {
					return err
				}
				rows, err := svc.AssigneeReport(cmd.Context())
				if err != nil {
					return err
				}
				if e.jsonOutput {
					return printJSON(cmd, rows)
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No users configured.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "USER\tNAME\tPOINTS")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%d\n", r.UserID, r.Name, r.Points)
				}
				return w.Flush()
			},
		},
	)
	return cmd
}

func newUsersCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the user directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd)
			if err != nil {
				return err
			}
			users, err := svc.Users(cmd.Context())
			if err != nil {
				return err
			}
			if e.jsonOutput {
				return printJSON(cmd, users)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\n", u.ID, u.Name)
			}
			return w.Flush()
		},
	}
}
