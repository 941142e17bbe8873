package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/model/dto"
	"github.com/console-hq/calleval_go_server/internal/pkg/fathom"
	"github.com/console-hq/calleval_go_server/internal/pkg/webhook"
	"github.com/console-hq/calleval_go_server/internal/repository"
)

// ErrInvalidSignature 签名校验失败
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrMeetingNotFound 录音供应商查不到对应会议
var ErrMeetingNotFound = errors.New("meeting not found at recording provider")

// MeetingFetcher 从录音供应商检索会议原始载荷,实现为 fathom 客户端
type MeetingFetcher interface {
	FindByRecordingID(ctx context.Context, recordingID string) (json.RawMessage, error)
	FindByURL(ctx context.Context, url string) (json.RawMessage, error)
	ListAll(ctx context.Context) ([]json.RawMessage, error)
}

// IntakeService 事件准入：验签、幂等入库、入队
type IntakeService struct {
	eventRepo     *repository.EventRepository
	jobRepo       *repository.JobRepository
	fetcher       MeetingFetcher
	webhookSecret string
}

func NewIntakeService(eventRepo *repository.EventRepository, jobRepo *repository.JobRepository, fetcher MeetingFetcher, webhookSecret string) *IntakeService {
	return &IntakeService{
		eventRepo:     eventRepo,
		jobRepo:       jobRepo,
		fetcher:       fetcher,
		webhookSecret: webhookSecret,
	}
}

// AdmitWebhook 验签后幂等入库并入队处理任务。
// 重复投递返回已有事件且不再入队;签名不合法返回 ErrInvalidSignature,事件不落库。
func (s *IntakeService) AdmitWebhook(headers webhook.Headers, rawHeadersJSON string, rawBody []byte) (*model.WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, errors.New("webhook secret not configured")
	}
	if !webhook.Verify(s.webhookSecret, headers, rawBody) {
		return nil, ErrInvalidSignature
	}
	ev, _, err := s.admit(headers.ID, true, rawHeadersJSON, string(rawBody), "")
	return ev, err
}

// AdmitSynthetic 为非 webhook 入口(手动触发/导入)合成事件并入队。
// externalEventID 由调用方保证稳定,同一来源重复提交不会重复处理。
func (s *IntakeService) AdmitSynthetic(externalEventID string, rawBody []byte, callbackURL string) (*model.WebhookEvent, error) {
	ev, _, err := s.admit(externalEventID, false, "", string(rawBody), callbackURL)
	return ev, err
}

func (s *IntakeService) admit(externalEventID string, verified bool, rawHeaders, rawBody, callbackURL string) (*model.WebhookEvent, bool, error) {
	ev, created, err := s.eventRepo.Admit(externalEventID, verified, rawHeaders, rawBody)
	if err != nil {
		return nil, false, fmt.Errorf("admit event: %w", err)
	}
	if !created {
		log.Printf("Duplicate event %s, skipping enqueue (event_id=%d)", externalEventID, ev.ID)
		return ev, false, nil
	}

	payload, err := json.Marshal(dto.ProcessMeetingPayload{
		WebhookEventID: ev.ID,
		CallbackURL:    callbackURL,
	})
	if err != nil {
		return nil, false, err
	}
	job, err := s.jobRepo.Enqueue(model.JobTypeProcessMeeting, string(payload))
	if err != nil {
		return nil, false, fmt.Errorf("enqueue job: %w", err)
	}
	log.Printf("Admitted event %s (event_id=%d, job_id=%d)", externalEventID, ev.ID, job.ID)
	return ev, true, nil
}

// ProcessByRecordingID 手动触发处理:按录音 ID 拉取会议并合成事件入队
func (s *IntakeService) ProcessByRecordingID(ctx context.Context, recordingID, callbackURL string) (*model.WebhookEvent, error) {
	raw, err := s.fetcher.FindByRecordingID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("fetch meeting %s: %w", recordingID, err)
	}
	if raw == nil {
		return nil, ErrMeetingNotFound
	}
	return s.AdmitSynthetic("pipeline_"+recordingID, raw, callbackURL)
}

// ImportByURL 按分享链接手动导入会议并合成事件入队
func (s *IntakeService) ImportByURL(ctx context.Context, url string) (*model.WebhookEvent, error) {
	raw, err := s.fetcher.FindByURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch meeting by url: %w", err)
	}
	if raw == nil {
		return nil, ErrMeetingNotFound
	}
	meeting, err := fathom.ParseMeeting(raw)
	if err != nil {
		return nil, err
	}
	if !meeting.IsValid() {
		return nil, ErrMeetingNotFound
	}
	externalID := fmt.Sprintf("manual_import_%d", meeting.RecordingID)
	return s.AdmitSynthetic(externalID, raw, "")
}

// BulkImport 拉取供应商侧全部会议,导入带转写的;已入库或不可处理的计入 skipped
func (s *IntakeService) BulkImport(ctx context.Context) (imported, skipped int, err error) {
	raws, err := s.fetcher.ListAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list meetings: %w", err)
	}
	for _, raw := range raws {
		meeting, parseErr := fathom.ParseMeeting(raw)
		if parseErr != nil || !meeting.IsValid() || len(meeting.Transcript) == 0 {
			skipped++
			continue
		}
		externalID := fmt.Sprintf("manual_import_%d", meeting.RecordingID)
		_, created, admitErr := s.admit(externalID, false, "", string(raw), "")
		if admitErr != nil {
			return imported, skipped, admitErr
		}
		if created {
			imported++
		} else {
			skipped++
		}
	}
	log.Printf("Bulk import finished: %d imported, %d skipped", imported, skipped)
	return imported, skipped, nil
}

// EnqueueReprocess 为已有通话入队重处理任务
func (s *IntakeService) EnqueueReprocess(callID int64) (*model.Job, error) {
	payload, err := json.Marshal(dto.ReprocessCallPayload{CallID: callID})
	if err != nil {
		return nil, err
	}
	return s.jobRepo.Enqueue(model.JobTypeReprocessCall, string(payload))
}

// EnqueuePhraseExtraction 入队短语提取任务
func (s *IntakeService) EnqueuePhraseExtraction(req dto.GeoTriggerRequest) (*model.Job, error) {
	payload, err := json.Marshal(dto.ExtractPhrasesPayload{
		CRMPipelineID: req.CRMPipelineID,
		CRMStageID:    req.CRMStageID,
		Backfill:      req.Backfill,
		QualifiedOnly: req.QualifiedOnly,
	})
	if err != nil {
		return nil, err
	}
	return s.jobRepo.Enqueue(model.JobTypeExtractPhrases, string(payload))
}

// EnqueueWeeklyAnalysis 入队周度聚合任务
func (s *IntakeService) EnqueueWeeklyAnalysis() (*model.Job, error) {
	payload, err := json.Marshal(dto.RunWeeklyAnalysisPayload{})
	if err != nil {
		return nil, err
	}
	return s.jobRepo.Enqueue(model.JobTypeRunWeeklyAnalysis, string(payload))
}
