package model

import (
	"time"
)

// 短语分析运行类型
const (
	GeoRunTypeDaily    = "daily_extraction"
	GeoRunTypeWeekly   = "weekly_analysis"
	GeoRunTypeBackfill = "backfill"
)

// GeoAnalysisRun 一轮短语提取或周度聚合
type GeoAnalysisRun struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Type           string     `gorm:"size:30;not null;index" json:"type"`
	Status         string     `gorm:"size:20;not null;index" json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	CallsProcessed int        `json:"calls_processed"`
	Error          string     `gorm:"type:text" json:"error,omitempty"`
	Config         string     `gorm:"type:text" json:"config,omitempty"` // JSON 编码
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

func (GeoAnalysisRun) TableName() string {
	return "geo_analysis_runs"
}

// CallPhraseExtraction 每通电话一行；存在即表示该通话已处理，后续提取跳过。
// 零短语也要写入空结果行作为处理标记。
type CallPhraseExtraction struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	CallID        int64     `gorm:"not null;uniqueIndex" json:"call_id"`
	RunID         int64     `gorm:"not null;index" json:"run_id"`
	PhrasesJSON   string    `gorm:"type:longtext" json:"phrases_json"` // category → [{phrase, quote, speaker, context}]
	Model         string    `gorm:"size:50" json:"model"`
	PromptVersion string    `gorm:"size:50" json:"prompt_version"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (CallPhraseExtraction) TableName() string {
	return "call_phrase_extractions"
}

// PhraseStatistic 每 (run, category, 归一化短语) 一行，累计计数单调递增
type PhraseStatistic struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	RunID               int64     `gorm:"not null;index" json:"run_id"`
	Phrase              string    `gorm:"size:500;not null" json:"phrase"`
	Category            string    `gorm:"size:50;not null;index" json:"category"`
	Frequency           int       `json:"frequency"`
	CallCount           int       `json:"call_count"`
	CumulativeFrequency int       `gorm:"index" json:"cumulative_frequency"`
	CumulativeCallCount int       `json:"cumulative_call_count"`
	ExampleContexts     string    `gorm:"type:text" json:"example_contexts"` // JSON，最多 5 条
	FirstSeenAt         time.Time `json:"first_seen_at"`
	LastSeenAt          time.Time `json:"last_seen_at"`
	CreatedAt           time.Time `json:"created_at"`
}

func (PhraseStatistic) TableName() string {
	return "phrase_statistics"
}
