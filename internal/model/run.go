package model

import (
	"time"
)

// 处理运行状态
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// ProcessingRun 一次处理尝试；历史 run 全部保留，不覆盖
type ProcessingRun struct {
	ID                     int64      `gorm:"primaryKey" json:"id"`
	CallID                 int64      `gorm:"not null;index" json:"call_id"`
	Status                 string     `gorm:"size:20;not null" json:"status"`
	RubricVersion          string     `gorm:"size:50" json:"rubric_version"`
	ExtractorPromptVersion string     `gorm:"size:50" json:"extractor_prompt_version"`
	EvaluatorPromptVersion string     `gorm:"size:50" json:"evaluator_prompt_version"`
	TranscriptHash         string     `gorm:"size:64" json:"transcript_hash"` // 归一化转写内容指纹
	StartedAt              time.Time  `json:"started_at"`
	FinishedAt             *time.Time `json:"finished_at,omitempty"`
	Error                  string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt              time.Time  `gorm:"index" json:"created_at"`
}

func (ProcessingRun) TableName() string {
	return "processing_runs"
}

// ExtractedSignalsRecord 信号提取结果，追加写入，展示时取 created_at 最新一条
type ExtractedSignalsRecord struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	ProcessingRunID int64     `gorm:"not null;index" json:"processing_run_id"`
	CallID          int64     `gorm:"not null;index" json:"call_id"`
	SignalsJSON     string    `gorm:"type:longtext" json:"signals_json"`
	Model           string    `gorm:"size:50" json:"model"`
	PromptVersion   string    `gorm:"size:50" json:"prompt_version"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

func (ExtractedSignalsRecord) TableName() string {
	return "extracted_signals"
}

// Evaluation 资格评估结果，追加写入
type Evaluation struct {
	ID                int64     `gorm:"primaryKey" json:"id"`
	ProcessingRunID   int64     `gorm:"not null;index" json:"processing_run_id"`
	CallID            int64     `gorm:"not null;index" json:"call_id"`
	OverallStatus     string    `gorm:"size:20;index" json:"overall_status"`
	StageProbability  int       `json:"stage_probability"`
	EvaluationJSON    string    `gorm:"type:longtext" json:"evaluation_json"`
	CrossCheckApplied bool      `json:"cross_check_applied"`
	MismatchReason    *string   `gorm:"type:text" json:"mismatch_reason,omitempty"`
	Model             string    `gorm:"size:50" json:"model"`
	PromptVersion     string    `gorm:"size:50" json:"prompt_version"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}
