package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/console-hq/calleval_go_server/internal/model"
)

// TestCall 创建测试通话
func TestCall(t *testing.T, db *gorm.DB, opts ...func(*model.Call)) *model.Call {
	t.Helper()

	call := &model.Call{
		ExternalRecordingID: fmt.Sprintf("rec_%d", time.Now().UnixNano()),
		Title:               "Console/Lattice (Legal)",
		ShareURL:            fmt.Sprintf("https://fathom.video/share/%d", time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(call)
	}
	if err := db.Create(call).Error; err != nil {
		t.Fatalf("Failed to create test call: %v", err)
	}
	return call
}

// TestParticipant 创建测试参会人
func TestParticipant(t *testing.T, db *gorm.DB, callID int64, opts ...func(*model.Participant)) *model.Participant {
	t.Helper()

	email := fmt.Sprintf("p_%d@example.com", time.Now().UnixNano())
	label := "Dana Wu"
	p := &model.Participant{
		CallID:      callID,
		Name:        "Dana Wu",
		Email:       &email,
		Role:        model.RoleExternal,
		SourceLabel: &label,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create test participant: %v", err)
	}
	return p
}

// TestUtterance 创建测试转写片段
func TestUtterance(t *testing.T, db *gorm.DB, callID int64, idx int, opts ...func(*model.Utterance)) *model.Utterance {
	t.Helper()

	u := &model.Utterance{
		CallID:          callID,
		Idx:             idx,
		SpeakerLabelRaw: "Dana Wu",
		TextRaw:         "our contract review is painfully slow",
		TextNormalized:  "our contract review is painfully slow",
	}
	for _, opt := range opts {
		opt(u)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("Failed to create test utterance: %v", err)
	}
	return u
}

// TestJob 创建测试任务
func TestJob(t *testing.T, db *gorm.DB, opts ...func(*model.Job)) *model.Job {
	t.Helper()

	job := &model.Job{
		Type:     model.JobTypeProcessMeeting,
		Status:   model.JobStatusQueued,
		Payload:  `{"webhook_event_id":1}`,
		RunAfter: time.Now().Add(-time.Minute),
	}
	for _, opt := range opts {
		opt(job)
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}
	return job
}

// TestEvaluationRecord 创建测试评估记录
func TestEvaluationRecord(t *testing.T, db *gorm.DB, callID int64, status string) *model.Evaluation {
	t.Helper()

	ev := &model.Evaluation{
		ProcessingRunID: 1,
		CallID:          callID,
		OverallStatus:   status,
		EvaluationJSON:  "{}",
	}
	if err := db.Create(ev).Error; err != nil {
		t.Fatalf("Failed to create test evaluation: %v", err)
	}
	return ev
}

// TestExtraction 创建测试短语提取记录
func TestExtraction(t *testing.T, db *gorm.DB, callID, runID int64, phrasesJSON string) *model.CallPhraseExtraction {
	t.Helper()

	ext := &model.CallPhraseExtraction{
		CallID:      callID,
		RunID:       runID,
		PhrasesJSON: phrasesJSON,
	}
	if err := db.Create(ext).Error; err != nil {
		t.Fatalf("Failed to create test extraction: %v", err)
	}
	return ext
}
