package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskboard/pkg/user"
)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printCreated prints the new id, or the whole entity with --json.
func printCreated(cmd *cobra.Command, e *env, id string, v any) error {
	if e.jsonOutput {
		return printJSON(cmd, v)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", id)
	return nil
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

// assigneeNames renders assigned ids by directory name. Ids missing from the
// directory are left out.
func assigneeNames(users []user.User, ids []string) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name := user.NameOf(users, id); name != "" {
			names = append(names, name)
		}
	}
	return joinOrDash(names)
}
