package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"reconaudit/backend/application"
	"reconaudit/backend/executor"
	"reconaudit/backend/service/service/audit"
)

const appName = "reconaudit"

type globalFlags struct {
	config  string
	verbose bool
}

// Execute runs the root command against the host and exits on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd(nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. launcher may be nil to spawn real processes.
func NewRootCmd(launcher executor.Launcher) *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Scope-aware security audit pipeline",
		Long: `reconaudit turns a one-line audit request such as
"Scan example.com for open ports and directories" into nmap and gobuster
tasks, drops everything outside the allowed scope, runs the rest with retry
and fallback, and prints a consolidated report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Config file path (YAML), default ~/.reconaudit/config.yaml")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newRunCmd(flags, launcher),
		newScanCmd(flags, launcher),
		newHistoryCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, application.Version)
		},
	}
}

func loadApp(flags *globalFlags) (*application.Application, error) {
	app, err := application.NewApp(flags.config)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if flags.verbose {
		app.Logger.SetLevel(logrus.DebugLevel)
	}
	return app, nil
}

func openBridge(app *application.Application, launcher executor.Launcher) (*audit.Bridge, error) {
	bridge, err := audit.NewBridge(app, launcher)
	if err != nil {
		return nil, errors.Wrap(err, "init audit service")
	}
	return bridge, nil
}
