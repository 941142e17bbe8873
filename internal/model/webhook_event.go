package model

import (
	"time"
)

// 事件处理状态（仅供展示，真正的工作跟踪在 jobs 表）
const (
	EventStatusQueued = "queued"
)

// WebhookEvent 入站 webhook 事件，按 external_event_id 幂等去重
type WebhookEvent struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	ExternalEventID  string    `gorm:"size:255;not null;uniqueIndex" json:"external_event_id"`
	Verified         bool      `gorm:"not null" json:"verified"`
	RawHeaders       string    `gorm:"type:text" json:"raw_headers"`
	RawBody          string    `gorm:"type:longtext" json:"raw_body"` // 创建后不可变
	ProcessingStatus string    `gorm:"size:20;default:queued" json:"processing_status"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
