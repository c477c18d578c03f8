package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditRun 保存一次流水线运行的最终状态。
type AuditRun struct {
	BaseModel
	RunID       int64 `gorm:"uniqueIndex"`
	Task        string
	Target      string `gorm:"index"`
	Status      int
	Error       string
	Scope       datatypes.JSON
	TaskList    datatypes.JSON
	Results     datatypes.JSON
	Logs        datatypes.JSON
	FinalReport string
	ReportHash  string
	StartedAt   time.Time
	CompletedAt time.Time
}

func (AuditRun) TableName() string {
	return "audit_run"
}
