package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"taskboard/internal/app"
	"taskboard/internal/config"
	"taskboard/internal/logging"
	"taskboard/pkg/tracker"
)

// env carries the lazily opened service through the command tree.
type env struct {
	configPath string
	logLevel   string
	jsonOutput bool

	app *app.App
}

// service opens the configured app on first use.
func (e *env) service(cmd *cobra.Command) (*tracker.Service, error) {
	if e.app != nil {
		return e.app.Service, nil
	}
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, err
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	logger := logging.New(cmd.ErrOrStderr(), logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Prefix: "taskctl",
	})
	a, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	e.app = a
	return a.Service, nil
}

func (e *env) close() {
	if e.app != nil {
		e.app.Close()
		e.app = nil
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:          "taskctl",
		Short:        "Manage tasks, subtasks and story-point reports",
		Long:         `taskctl works directly on the configured task store, the same one the taskboard server uses.`,
		Version:      "0.1.0",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "Path to taskboard.toml (default ./taskboard.toml if present)")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "Override the configured log level")
	root.PersistentFlags().BoolVar(&e.jsonOutput, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		newListCmd(e),
		newShowCmd(e),
		newCreateCmd(e),
		newUpdateCmd(e),
		newDeleteCmd(e),
		newSubtaskCmd(e),
		newReportCmd(e),
		newUsersCmd(e),
		newSuggestCmd(e),
		newGenerateCmd(e),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background(), os.Args[1:])
}

// ExecuteContext runs taskctl with args.
func ExecuteContext(ctx context.Context, args []string) error {
	e := &env{}
	defer e.close()
	root := newRootCmd(e)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
