package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"reconaudit/backend/executor"
)

// ScanDescription is the request built for every target of the scan command.
func ScanDescription(target string) string {
	return fmt.Sprintf("Scan %s for open ports and directories", target)
}

func newScanCmd(flags *globalFlags, launcher executor.Launcher) *cobra.Command {
	out := &outputFlags{}
	cmd := &cobra.Command{
		Use:   "scan <target>...",
		Short: "Audit several targets concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptions := make([]string, 0, len(args))
			for _, target := range args {
				descriptions = append(descriptions, ScanDescription(target))
			}
			tasks, err := runAll(cmd.Context(), flags, out, launcher, descriptions)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), out, tasks, true)
		},
	}
	out.register(cmd)
	return cmd
}
