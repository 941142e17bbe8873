package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/console-hq/calleval_go_server/internal/evaluation"
	"github.com/console-hq/calleval_go_server/internal/extraction"
	"github.com/console-hq/calleval_go_server/internal/formatting"
	"github.com/console-hq/calleval_go_server/internal/ingestion"
	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/model/dto"
	"github.com/console-hq/calleval_go_server/internal/pkg/apollo"
	"github.com/console-hq/calleval_go_server/internal/pkg/fathom"
	"github.com/console-hq/calleval_go_server/internal/pkg/llm"
	"github.com/console-hq/calleval_go_server/internal/pkg/pubsub"
	"github.com/console-hq/calleval_go_server/internal/repository"
)

// ErrInvalidPayload 载荷缺少可处理会议必需的字段
var ErrInvalidPayload = errors.New("payload is not a processable meeting")

// Enricher 公司画像查询,实现为 apollo 客户端
type Enricher interface {
	EnrichOrganization(ctx context.Context, domain string) (*apollo.Organization, error)
}

// PipelineService 单通电话处理流水线:
// 归一化 → 上下文增强 → 信号提取 → 资格评估 → 规则复核 → 落库
type PipelineService struct {
	callRepo  *repository.CallRepository
	runRepo   *repository.RunRepository
	eventRepo *repository.EventRepository
	completer llm.Completer
	modelName string
	enricher  Enricher
	builder   *ingestion.ContextBuilder
	roster    []string
	publisher *pubsub.Publisher
	callbacks *http.Client
}

func NewPipelineService(
	callRepo *repository.CallRepository,
	runRepo *repository.RunRepository,
	eventRepo *repository.EventRepository,
	completer llm.Completer,
	modelName string,
	enricher Enricher,
	ourCompany string,
	roster []string,
	publisher *pubsub.Publisher,
) *PipelineService {
	return &PipelineService{
		callRepo:  callRepo,
		runRepo:   runRepo,
		eventRepo: eventRepo,
		completer: completer,
		modelName: modelName,
		enricher:  enricher,
		builder:   ingestion.NewContextBuilder(ourCompany, roster),
		roster:    roster,
		publisher: publisher,
		callbacks: &http.Client{Timeout: 15 * time.Second},
	}
}

// ProcessEvent 处理一条已准入事件:解析原始载荷、归一化落库、跑完整流水线
func (s *PipelineService) ProcessEvent(ctx context.Context, eventID int64, callbackURL string, jobID int64) error {
	ev, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return fmt.Errorf("load event %d: %w", eventID, err)
	}

	meeting, err := fathom.ParseMeeting([]byte(ev.RawBody))
	if err != nil {
		return fmt.Errorf("parse meeting payload: %w", err)
	}
	if !meeting.IsValid() {
		return ErrInvalidPayload
	}

	s.progress(ctx, 0, jobID, pubsub.StepNormalizing)

	normalized := ingestion.MapMeeting(meeting, s.roster)
	call, participants, utterances, err := s.persistNormalized(normalized)
	if err != nil {
		return err
	}

	return s.run(ctx, call, participants, utterances, callbackURL, jobID)
}

// ExtractInfo 纯上下文提取,不落库:给外部工具复用标题解析和参会人分组逻辑
func (s *PipelineService) ExtractInfo(req dto.ExtractInfoRequest) ingestion.MeetingContext {
	m := &fathom.Meeting{Title: req.Title}
	for i := range req.CalendarInvitees {
		inv := req.CalendarInvitees[i]
		m.CalendarInvitees = append(m.CalendarInvitees, fathom.Invitee{
			Name:       &inv.Name,
			Email:      &inv.Email,
			IsExternal: inv.IsExternal,
		})
	}
	if req.RecordedBy != nil {
		m.RecordedBy = &fathom.RecordedBy{Name: req.RecordedBy.Name, Email: req.RecordedBy.Email}
	}
	normalized := ingestion.MapMeeting(m, s.roster)
	return s.builder.Build(req.Title, normalized.Participants)
}

// ReprocessCall 对已入库通话重跑流水线,跳过归一化,复用存量参会人和转写
func (s *PipelineService) ReprocessCall(ctx context.Context, callID int64, jobID int64) error {
	call, err := s.callRepo.GetByID(callID)
	if err != nil {
		return fmt.Errorf("load call %d: %w", callID, err)
	}
	participants, err := s.callRepo.GetParticipants(callID)
	if err != nil {
		return err
	}
	utterances, err := s.callRepo.GetUtterances(callID)
	if err != nil {
		return err
	}
	return s.run(ctx, call, participants, utterances, "", jobID)
}

// persistNormalized 通话去重落库,参会人和转写整体替换,发言人按来源标签回链参会人
func (s *PipelineService) persistNormalized(n *ingestion.NormalizedCall) (*model.Call, []*model.Participant, []*model.Utterance, error) {
	call, err := s.callRepo.FindOrCreate(&model.Call{
		ExternalRecordingID: n.ExternalRecordingID,
		Title:               n.Title,
		StartTime:           n.StartTime,
		EndTime:             n.EndTime,
		ShareURL:            n.ShareURL,
		SourceURL:           n.SourceURL,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("find or create call: %w", err)
	}

	participants := make([]*model.Participant, 0, len(n.Participants))
	for _, p := range n.Participants {
		participants = append(participants, &model.Participant{
			CallID:      call.ID,
			Name:        p.Name,
			Email:       p.Email,
			Role:        p.Role,
			SourceLabel: p.SourceLabel,
		})
	}
	if err := s.callRepo.ReplaceParticipants(call.ID, participants); err != nil {
		return nil, nil, nil, fmt.Errorf("replace participants: %w", err)
	}
	stored, err := s.callRepo.GetParticipants(call.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	utterances := make([]*model.Utterance, 0, len(n.Utterances))
	for _, u := range n.Utterances {
		utterances = append(utterances, &model.Utterance{
			CallID:              call.ID,
			Idx:                 u.Idx,
			SpeakerParticipantID: linkSpeaker(u.SpeakerLabelRaw, stored),
			SpeakerLabelRaw:     u.SpeakerLabelRaw,
			TimestampStartSec:   u.TimestampStartSec,
			TimestampEndSec:     u.TimestampEndSec,
			TextRaw:             u.TextRaw,
			TextNormalized:      u.TextNormalized,
		})
	}
	if err := s.callRepo.ReplaceUtterances(call.ID, utterances); err != nil {
		return nil, nil, nil, fmt.Errorf("replace utterances: %w", err)
	}
	return call, stored, utterances, nil
}

// linkSpeaker 先按来源标签精确匹配,再退回按姓名匹配;匹配不到保持 nil
func linkSpeaker(label string, participants []*model.Participant) *int64 {
	for _, p := range participants {
		if p.SourceLabel != nil && *p.SourceLabel == label {
			id := p.ID
			return &id
		}
	}
	for _, p := range participants {
		if strings.EqualFold(p.Name, label) {
			id := p.ID
			return &id
		}
	}
	return nil
}

func (s *PipelineService) run(ctx context.Context, call *model.Call, participants []*model.Participant, utterances []*model.Utterance, callbackURL string, jobID int64) error {
	normalized := toNormalizedParticipants(participants)
	normUtterances := toNormalizedUtterances(utterances)

	run := &model.ProcessingRun{
		CallID:                 call.ID,
		Status:                 model.RunStatusRunning,
		RubricVersion:          evaluation.RubricVersion,
		ExtractorPromptVersion: extraction.PromptVersion,
		EvaluatorPromptVersion: evaluation.PromptVersion,
		TranscriptHash:         transcriptHash(normUtterances),
		StartedAt:              time.Now(),
	}
	if err := s.runRepo.CreateRun(run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	result, err := s.execute(ctx, call, run, normalized, normUtterances, jobID)
	if err != nil {
		if markErr := s.runRepo.MarkRunFailed(run.ID, err.Error()); markErr != nil {
			log.Printf("Failed to mark run %d failed: %v", run.ID, markErr)
		}
		s.progressError(ctx, call.ID, run.ID, jobID, err)
		return err
	}

	if err := s.runRepo.MarkRunSucceeded(run.ID); err != nil {
		return fmt.Errorf("mark run succeeded: %w", err)
	}
	s.progress(ctx, call.ID, jobID, pubsub.StepDone)

	if callbackURL != "" && result != nil {
		go s.fireCallback(callbackURL, result)
	}
	return nil
}

// CallbackPayload 完成回调载荷:团队文摘、销售个人文摘,以及原始评估与信号
type CallbackPayload struct {
	GrowthDigest *formatting.Digest           `json:"growth_digest"`
	AEDigest     *formatting.Digest           `json:"ae_digest"`
	Evaluation   *evaluation.EvaluationResult `json:"evaluation"`
	Signals      *extraction.ExtractedSignals `json:"signals"`
}

func (s *PipelineService) execute(ctx context.Context, call *model.Call, run *model.ProcessingRun, participants []ingestion.NormalizedParticipant, utterances []ingestion.NormalizedUtterance, jobID int64) (*CallbackPayload, error) {
	s.progress(ctx, call.ID, jobID, pubsub.StepEnriching)
	mctx := s.builder.Build(call.Title, participants)
	s.enrich(ctx, &mctx)

	s.progress(ctx, call.ID, jobID, pubsub.StepExtracting)
	signals, err := extraction.Extract(ctx, s.completer, utterances, mctx)
	if err != nil {
		return nil, fmt.Errorf("extract signals: %w", err)
	}

	s.progress(ctx, call.ID, jobID, pubsub.StepEvaluating)
	eval, err := evaluation.Evaluate(ctx, s.completer, signals, &mctx)
	if err != nil {
		return nil, fmt.Errorf("evaluate call: %w", err)
	}
	applied, reason := evaluation.CrossCheck(eval, mctx.DealSegment)
	if applied {
		log.Printf("Cross-check override on call %d: %s", call.ID, reason)
	}

	s.progress(ctx, call.ID, jobID, pubsub.StepPersisting)
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return nil, err
	}
	if err := s.runRepo.SaveSignals(&model.ExtractedSignalsRecord{
		ProcessingRunID: run.ID,
		CallID:          call.ID,
		SignalsJSON:     string(signalsJSON),
		Model:           s.modelName,
		PromptVersion:   extraction.PromptVersion,
	}); err != nil {
		return nil, fmt.Errorf("save signals: %w", err)
	}

	evalJSON, err := json.Marshal(eval)
	if err != nil {
		return nil, err
	}
	record := &model.Evaluation{
		ProcessingRunID:   run.ID,
		CallID:            call.ID,
		OverallStatus:     eval.OverallStatus,
		StageProbability:  eval.StageProbability,
		EvaluationJSON:    string(evalJSON),
		CrossCheckApplied: applied,
		Model:             s.modelName,
		PromptVersion:     evaluation.PromptVersion,
	}
	if applied {
		record.MismatchReason = &reason
	}
	if err := s.runRepo.SaveEvaluation(record); err != nil {
		return nil, fmt.Errorf("save evaluation: %w", err)
	}

	dctx := formatting.DigestContext{
		AEName:       mctx.AEName,
		AccountName:  mctx.ProspectCompany,
		MeetingTitle: call.Title,
	}
	return &CallbackPayload{
		GrowthDigest: formatting.GrowthTeamDigest(eval, signals, dctx),
		AEDigest:     formatting.AEDigest(eval, dctx),
		Evaluation:   eval,
		Signals:      signals,
	}, nil
}

// enrich 按标题解析出的公司名查画像定客户分层;画像服务缺席或失败时维持默认分层
func (s *PipelineService) enrich(ctx context.Context, mctx *ingestion.MeetingContext) {
	if s.enricher == nil || mctx.ProspectCompany == "" {
		return
	}
	domain := apollo.GuessDomain(mctx.ProspectCompany)
	if domain == "" {
		return
	}
	org, err := s.enricher.EnrichOrganization(ctx, domain)
	if err != nil {
		log.Printf("Enrichment failed for %s: %v", domain, err)
		return
	}
	if apollo.SegmentFor(org) == apollo.SegmentEnterprise {
		mctx.DealSegment = ingestion.SegmentEnterprise
	}
}

func (s *PipelineService) fireCallback(url string, payload *CallbackPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Callback marshal failed: %v", err)
		return
	}
	resp, err := s.callbacks.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Callback to %s failed: %v", url, err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("Callback to %s returned status %d", url, resp.StatusCode)
	}
}

func (s *PipelineService) progress(ctx context.Context, callID, jobID int64, step string) {
	if err := s.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
		CallID: callID,
		JobID:  jobID,
		Status: "running",
		Step:   step,
	}); err != nil {
		log.Printf("Failed to publish progress: %v", err)
	}
}

func (s *PipelineService) progressError(ctx context.Context, callID, runID, jobID int64, cause error) {
	if err := s.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
		CallID: callID,
		RunID:  runID,
		JobID:  jobID,
		Status: "failed",
		Error:  cause.Error(),
	}); err != nil {
		log.Printf("Failed to publish progress: %v", err)
	}
}

func toNormalizedParticipants(participants []*model.Participant) []ingestion.NormalizedParticipant {
	out := make([]ingestion.NormalizedParticipant, 0, len(participants))
	for _, p := range participants {
		out = append(out, ingestion.NormalizedParticipant{
			Name:        p.Name,
			Email:       p.Email,
			Role:        p.Role,
			SourceLabel: p.SourceLabel,
		})
	}
	return out
}

func toNormalizedUtterances(utterances []*model.Utterance) []ingestion.NormalizedUtterance {
	out := make([]ingestion.NormalizedUtterance, 0, len(utterances))
	for _, u := range utterances {
		out = append(out, ingestion.NormalizedUtterance{
			Idx:               u.Idx,
			SpeakerLabelRaw:   u.SpeakerLabelRaw,
			TimestampStartSec: u.TimestampStartSec,
			TimestampEndSec:   u.TimestampEndSec,
			TextRaw:           u.TextRaw,
			TextNormalized:    u.TextNormalized,
		})
	}
	return out
}

// transcriptHash 归一化转写指纹,用于判断重跑是否基于相同输入
func transcriptHash(utterances []ingestion.NormalizedUtterance) string {
	h := sha256.New()
	for _, u := range utterances {
		h.Write([]byte(u.SpeakerLabelRaw))
		h.Write([]byte{0})
		h.Write([]byte(u.TextNormalized))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
