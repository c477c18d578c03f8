package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"reconaudit/backend/application"
	"reconaudit/backend/constant/status"
	"reconaudit/backend/executor"
	"reconaudit/backend/export"
	"reconaudit/backend/pipeline"
	"reconaudit/backend/service/service/audit"
)

type outputFlags struct {
	scope  []string
	json   bool
	xlsx   string
	export bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&o.scope, "scope", "s", nil, "Override allowed scope for this invocation (comma separated, * for any)")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print results as JSON")
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "Write the run to this XLSX file")
	cmd.Flags().BoolVar(&o.export, "export", false, "Write an XLSX file per run into the configured export directory")
}

func (o *outputFlags) apply(app *application.Application) {
	if len(o.scope) > 0 {
		app.Config.Scope = append([]string(nil), o.scope...)
	}
}

// exportPath uses --xlsx as is for a single run; with several runs its stem
// becomes the directory holding one file per target.
func (o *outputFlags) exportPath(exportDir, target string, runs int) string {
	switch {
	case o.xlsx != "" && runs == 1:
		return o.xlsx
	case o.xlsx != "":
		return export.DefaultPath(strings.TrimSuffix(o.xlsx, filepath.Ext(o.xlsx)), target, time.Now())
	case o.export:
		return export.DefaultPath(exportDir, target, time.Now())
	}
	return ""
}

func newRunCmd(flags *globalFlags, launcher executor.Launcher) *cobra.Command {
	out := &outputFlags{}
	cmd := &cobra.Command{
		Use:   "run <description>",
		Short: "Run the audit pipeline for one task description",
		Example: `  reconaudit run "Scan example.com for open ports and directories"
  reconaudit run "Scan 10.0.0.5 for open ports" --scope 10.0.0.0/24 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args, " ")
			tasks, err := runAll(cmd.Context(), flags, out, launcher, []string{description})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), out, tasks, false)
		},
	}
	out.register(cmd)
	return cmd
}

// runAll starts every description on the manager and waits for all of them.
func runAll(ctx context.Context, flags *globalFlags, out *outputFlags, launcher executor.Launcher, descriptions []string) ([]*audit.Task, error) {
	app, err := loadApp(flags)
	if err != nil {
		return nil, err
	}
	out.apply(app)

	bridge, err := openBridge(app, launcher)
	if err != nil {
		return nil, err
	}
	defer bridge.Close()
	manager := bridge.Manager()

	type started struct {
		id  int64
		err error
	}
	queued := make(chan started, len(descriptions))
	go func() {
		defer close(queued)
		for _, description := range descriptions {
			task, err := manager.StartTask(description)
			if err != nil {
				queued <- started{err: err}
				continue
			}
			queued <- started{id: task.ID}
		}
	}()

	tasks := make([]*audit.Task, 0, len(descriptions))
	for s := range queued {
		if s.err != nil {
			return nil, s.err
		}
		task, err := manager.Wait(ctx, s.id)
		if err != nil {
			return nil, err
		}
		if task.Status == status.Error {
			return nil, errors.New(task.Error)
		}
		tasks = append(tasks, task)
	}

	for _, task := range tasks {
		path := out.exportPath(app.Config.ExportDataDir, task.Target, len(tasks))
		if path == "" {
			continue
		}
		if err := export.WriteXLSX(path, task.State); err != nil {
			return nil, err
		}
		app.Logger.WithField("file", path).Info("run exported")
	}
	return tasks, nil
}

type scanResult struct {
	ID     int64           `json:"id"`
	Target string          `json:"target"`
	Status string          `json:"status"`
	Output pipeline.Output `json:"output"`
}

func render(w io.Writer, out *outputFlags, tasks []*audit.Task, many bool) error {
	if out.json {
		var payload any
		if many {
			items := make([]scanResult, 0, len(tasks))
			for _, task := range tasks {
				items = append(items, scanResult{
					ID:     task.ID,
					Target: task.Target,
					Status: status.Name(task.Status),
					Output: task.Output(),
				})
			}
			payload = items
		} else if len(tasks) > 0 {
			payload = tasks[0].Output()
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode output")
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	for i, task := range tasks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if many {
			fmt.Fprintf(w, "# %s (%s)\n", task.Target, status.Name(task.Status))
		}
		fmt.Fprintln(w, task.Output().FinalReport)
	}
	return nil
}
