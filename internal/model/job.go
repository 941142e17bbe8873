package model

import (
	"time"
)

// 任务类型
const (
	JobTypeProcessMeeting    = "PROCESS_MEETING"
	JobTypeReprocessCall     = "REPROCESS_CALL"
	JobTypeExtractPhrases    = "EXTRACT_PHRASES"
	JobTypeRunWeeklyAnalysis = "RUN_WEEKLY_ANALYSIS"
)

// 任务状态流转：queued → running → {succeeded | queued(重试) | dead}
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusDead      = "dead"
)

// Job 持久化任务行，只允许 JobRepository 的原子操作修改
type Job struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	Type      string     `gorm:"size:50;not null;index" json:"type"`
	Status    string     `gorm:"size:20;default:queued;index" json:"status"`
	Payload   string     `gorm:"type:text" json:"payload"` // JSON 编码
	Attempts  int        `gorm:"not null;default:0" json:"attempts"`
	RunAfter  time.Time  `gorm:"index" json:"run_after"`
	LockedBy  *string    `gorm:"size:64" json:"locked_by,omitempty"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	LastError string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
