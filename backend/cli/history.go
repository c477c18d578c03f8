package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"reconaudit/backend/constant/status"
	"reconaudit/backend/database"
	"reconaudit/backend/database/models"
	"reconaudit/backend/database/repository"
)

type historyItem struct {
	ID          int64    `json:"id"`
	Task        string   `json:"task"`
	Target      string   `json:"target"`
	Status      string   `json:"status"`
	Error       string   `json:"error,omitempty"`
	TaskList    []string `json:"taskList"`
	ReportHash  string   `json:"reportHash"`
	CompletedAt string   `json:"completedAt"`
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		limit  int
		target string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pipeline runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			if !app.Config.History {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "run history is disabled (history: false in %s)\n", app.ConfigFile)
				return err
			}
			db, err := database.Open(app.Config.DatabaseFile)
			if err != nil {
				return err
			}
			defer database.Close(db)
			repo := repository.NewAuditRunRepository(db)

			var records []*models.AuditRun
			if target != "" {
				records, err = repo.ListByTarget(target, limit)
			} else {
				records, err = repo.List(limit)
			}
			if err != nil {
				return err
			}

			items := make([]historyItem, 0, len(records))
			for _, r := range records {
				item := historyItem{
					ID:          r.RunID,
					Task:        r.Task,
					Target:      r.Target,
					Status:      status.Name(r.Status),
					Error:       r.Error,
					ReportHash:  r.ReportHash,
					CompletedAt: r.CompletedAt.Format("2006-01-02 15:04:05"),
				}
				if len(r.TaskList) > 0 {
					if err := json.Unmarshal(r.TaskList, &item.TaskList); err != nil {
						return errors.Wrapf(err, "decode run %d", r.RunID)
					}
				}
				items = append(items, item)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(items, "", "  ")
				if err != nil {
					return errors.Wrap(err, "encode history")
				}
				_, err = fmt.Fprintln(w, string(data))
				return err
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCOMPLETED\tTARGET\tSTATUS\tTASKS\tREPORT")
			for _, item := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", item.ID, item.CompletedAt, item.Target, item.Status, len(item.TaskList), item.ReportHash)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list, 0 for all")
	cmd.Flags().StringVar(&target, "target", "", "Only list runs against this target")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print history as JSON")
	return cmd
}
