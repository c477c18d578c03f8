package audit

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/twmb/murmur3"
	"gorm.io/datatypes"

	"reconaudit/backend/database/models"
)

// ReportDigest identifies identical reports across runs.
func ReportDigest(report string) string {
	return fmt.Sprintf("%016x", murmur3.Sum64([]byte(report)))
}

// NewRecord converts a finished task into its history row.
func NewRecord(t *Task) (*models.AuditRun, error) {
	if t == nil || t.State == nil {
		return nil, errors.New("task has no state")
	}
	st := t.State
	record := &models.AuditRun{
		RunID:       t.ID,
		Task:        t.Description,
		Target:      t.Target,
		Status:      t.Status,
		Error:       t.Error,
		FinalReport: st.FinalReport,
		ReportHash:  ReportDigest(st.FinalReport),
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
	fields := []struct {
		dst *datatypes.JSON
		src any
	}{
		{&record.Scope, st.AllowedScope},
		{&record.TaskList, st.TaskList},
		{&record.Results, st.Results},
		{&record.Logs, st.Logs},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.src)
		if err != nil {
			return nil, errors.Wrap(err, "encode audit run")
		}
		*f.dst = datatypes.JSON(data)
	}
	return record, nil
}
