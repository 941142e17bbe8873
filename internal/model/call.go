package model

import (
	"time"
)

// 参会人角色
const (
	RoleInternal = "internal"
	RoleExternal = "external"
	RoleUnknown  = "unknown"
)

// Call 一通已录制的销售通话，按 external_recording_id / share_url 去重
type Call struct {
	ID                  int64      `gorm:"primaryKey" json:"id"`
	ExternalRecordingID string     `gorm:"size:64;uniqueIndex" json:"external_recording_id"`
	Title               string     `gorm:"size:500;not null" json:"title"`
	StartTime           *time.Time `json:"start_time,omitempty"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	ShareURL            string     `gorm:"size:500;index" json:"share_url,omitempty"`
	SourceURL           string     `gorm:"size:500" json:"source_url,omitempty"`
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Call) TableName() string {
	return "calls"
}

// Participant 每次归一化全量重建（先删后插）
type Participant struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	CallID      int64     `gorm:"not null;index" json:"call_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Email       *string   `gorm:"size:255;index" json:"email,omitempty"`
	Role        string    `gorm:"size:20;not null;index" json:"role"` // internal / external / unknown
	SourceLabel *string   `gorm:"size:255" json:"source_label,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Participant) TableName() string {
	return "participants"
}

// Utterance 转写片段，idx 从 0 连续递增，决定原始顺序
type Utterance struct {
	ID                   int64     `gorm:"primaryKey" json:"id"`
	CallID               int64     `gorm:"not null;uniqueIndex:uniq_call_idx" json:"call_id"`
	Idx                  int       `gorm:"not null;uniqueIndex:uniq_call_idx" json:"idx"`
	SpeakerParticipantID *int64    `gorm:"index" json:"speaker_participant_id,omitempty"`
	SpeakerLabelRaw      string    `gorm:"size:255" json:"speaker_label_raw"`
	TimestampStartSec    *int      `json:"timestamp_start_sec,omitempty"`
	TimestampEndSec      *int      `json:"timestamp_end_sec,omitempty"`
	TextRaw              string    `gorm:"type:text" json:"text_raw"`
	TextNormalized       string    `gorm:"type:text" json:"text_normalized"`
	CreatedAt            time.Time `json:"created_at"`
}

func (Utterance) TableName() string {
	return "utterances"
}
