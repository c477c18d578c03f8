package audit

import (
	"time"

	"reconaudit/backend/pipeline"
)

// Task describes a queued, running or finished audit pipeline run.
type Task struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Target      string          `json:"target"`
	Status      int             `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt"`
	State       *pipeline.State `json:"state,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Output returns the caller-facing view, empty until the run finished.
func (t *Task) Output() pipeline.Output {
	if t == nil || t.State == nil {
		return pipeline.Output{}
	}
	return t.State.Output()
}

// TaskMetrics aggregates result counters of a finished run.
type TaskMetrics struct {
	Tasks     int `json:"tasks"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Unknown   int `json:"unknown"`
}

func (t *Task) Metrics() TaskMetrics {
	var m TaskMetrics
	if t == nil || t.State == nil {
		return m
	}
	m.Tasks = len(t.State.TaskList)
	for _, r := range t.State.Results {
		switch r.Status {
		case pipeline.StatusCompleted:
			m.Completed++
		case pipeline.StatusFailed:
			m.Failed++
		case pipeline.StatusSkipped:
			m.Skipped++
		default:
			m.Unknown++
		}
	}
	return m
}
