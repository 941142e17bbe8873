package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/console-hq/calleval_go_server/internal/geo"
	"github.com/console-hq/calleval_go_server/internal/ingestion"
	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/model/dto"
	"github.com/console-hq/calleval_go_server/internal/pkg/hubspot"
	"github.com/console-hq/calleval_go_server/internal/pkg/llm"
	"github.com/console-hq/calleval_go_server/internal/repository"
)

// DealSource CRM 交易检索,实现为 hubspot 客户端
type DealSource interface {
	SearchDealsByStage(ctx context.Context, pipelineID, stageID string) ([]hubspot.Deal, error)
	GetDealCompanyName(ctx context.Context, dealID string) (string, error)
	GetDealContactEmails(ctx context.Context, dealID string) ([]string, error)
}

// GeoService 客户用语挖掘:通话级短语提取与周度跨通话聚合
type GeoService struct {
	geoRepo    *repository.GeoRepository
	callRepo   *repository.CallRepository
	runRepo    *repository.RunRepository
	completer  llm.Completer
	modelName  string
	deals      DealSource
	ourCompany string
}

func NewGeoService(
	geoRepo *repository.GeoRepository,
	callRepo *repository.CallRepository,
	runRepo *repository.RunRepository,
	completer llm.Completer,
	modelName string,
	deals DealSource,
	ourCompany string,
) *GeoService {
	return &GeoService{
		geoRepo:    geoRepo,
		callRepo:   callRepo,
		runRepo:    runRepo,
		completer:  completer,
		modelName:  modelName,
		deals:      deals,
		ourCompany: ourCompany,
	}
}

// RunExtraction 对候选通话逐通提取短语。
// 已处理通话一律跳过;零短语结果也写入标记行,保证不重复计费。
func (s *GeoService) RunExtraction(ctx context.Context, payload dto.ExtractPhrasesPayload) (err error) {
	runType := model.GeoRunTypeDaily
	if payload.Backfill {
		runType = model.GeoRunTypeBackfill
	}
	config, _ := json.Marshal(payload)
	run, err := s.geoRepo.CreateRun(runType, string(config))
	if err != nil {
		return fmt.Errorf("create geo run: %w", err)
	}
	defer func() {
		if err != nil {
			if markErr := s.geoRepo.MarkRunFailed(run.ID, err.Error()); markErr != nil {
				log.Printf("Failed to mark geo run %d failed: %v", run.ID, markErr)
			}
		}
	}()

	callIDs, err := s.candidateCalls(ctx, payload)
	if err != nil {
		return err
	}
	if payload.QualifiedOnly {
		callIDs, err = s.filterQualified(callIDs)
		if err != nil {
			return err
		}
	}
	// 已有提取记录的通话无条件跳过,call_id 唯一索引保证一通只提取一次
	callIDs, err = s.geoRepo.FilterUnprocessedCalls(callIDs)
	if err != nil {
		return err
	}

	processed := 0
	for _, callID := range callIDs {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = s.extractCall(ctx, run.ID, callID); err != nil {
			return fmt.Errorf("extract call %d: %w", callID, err)
		}
		processed++
	}

	if err = s.geoRepo.MarkRunSucceeded(run.ID, processed); err != nil {
		return err
	}
	log.Printf("Phrase extraction run %d processed %d calls", run.ID, processed)
	return nil
}

func (s *GeoService) extractCall(ctx context.Context, runID, callID int64) error {
	utterances, err := s.callRepo.GetUtterances(callID)
	if err != nil {
		return err
	}
	external, err := s.callRepo.GetParticipantsByRole(callID, model.RoleExternal)
	if err != nil {
		return err
	}

	labels := make(map[string]struct{}, len(external))
	for _, p := range external {
		if p.SourceLabel != nil && *p.SourceLabel != "" {
			labels[*p.SourceLabel] = struct{}{}
		}
		labels[p.Name] = struct{}{}
	}

	values := make([]model.Utterance, 0, len(utterances))
	for _, u := range utterances {
		values = append(values, *u)
	}

	extraction, err := geo.ExtractPhrases(ctx, s.completer, values, labels)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(extraction)
	if err != nil {
		return err
	}
	return s.geoRepo.SaveExtraction(&model.CallPhraseExtraction{
		CallID:        callID,
		RunID:         runID,
		PhrasesJSON:   string(raw),
		Model:         s.modelName,
		PromptVersion: geo.ExtractorPromptVersion,
	})
}

// candidateCalls 无 CRM 过滤时取全部通话;否则按交易关联邮箱与公司名圈定通话
func (s *GeoService) candidateCalls(ctx context.Context, payload dto.ExtractPhrasesPayload) ([]int64, error) {
	if payload.CRMPipelineID == "" || s.deals == nil {
		calls, err := s.callRepo.ListAll()
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(calls))
		for _, c := range calls {
			ids = append(ids, c.ID)
		}
		return ids, nil
	}

	deals, err := s.deals.SearchDealsByStage(ctx, payload.CRMPipelineID, payload.CRMStageID)
	if err != nil {
		return nil, fmt.Errorf("search deals: %w", err)
	}

	var emails []string
	companyNames := map[string]struct{}{}
	for _, d := range deals {
		name, err := s.deals.GetDealCompanyName(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("deal %s company: %w", d.ID, err)
		}
		if name != "" {
			companyNames[strings.ToLower(name)] = struct{}{}
		}
		dealEmails, err := s.deals.GetDealContactEmails(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("deal %s contacts: %w", d.ID, err)
		}
		emails = append(emails, dealEmails...)
	}

	matched := map[int64]struct{}{}
	if len(emails) > 0 {
		byEmail, err := s.callRepo.FindCallIDsByParticipantEmails(emails)
		if err != nil {
			return nil, err
		}
		for _, id := range byEmail {
			matched[id] = struct{}{}
		}
	}

	// 邮箱匹配之外,再按标题解析出的公司名兜底匹配
	if len(companyNames) > 0 {
		calls, err := s.callRepo.ListAll()
		if err != nil {
			return nil, err
		}
		for _, c := range calls {
			company, ok := ingestion.ParseMeetingTitle(c.Title, s.ourCompany)
			if !ok {
				continue
			}
			if _, hit := companyNames[strings.ToLower(company)]; hit {
				matched[c.ID] = struct{}{}
			}
		}
	}

	ids := make([]int64, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *GeoService) filterQualified(callIDs []int64) ([]int64, error) {
	qualified, err := s.runRepo.QualifiedCallIDs()
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]struct{}, len(qualified))
	for _, id := range qualified {
		allowed[id] = struct{}{}
	}
	var out []int64
	for _, id := range callIDs {
		if _, ok := allowed[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// RunWeeklyAnalysis 聚合本周(周一零点起)的全部通话级提取,并叠加历史累计
func (s *GeoService) RunWeeklyAnalysis(ctx context.Context) (err error) {
	run, err := s.geoRepo.CreateRun(model.GeoRunTypeWeekly, "{}")
	if err != nil {
		return fmt.Errorf("create weekly run: %w", err)
	}
	defer func() {
		if err != nil {
			if markErr := s.geoRepo.MarkRunFailed(run.ID, err.Error()); markErr != nil {
				log.Printf("Failed to mark geo run %d failed: %v", run.ID, markErr)
			}
		}
	}()

	weekStart, _ := geo.WeekWindow(time.Now())
	rows, err := s.geoRepo.ExtractionsSince(weekStart)
	if err != nil {
		return err
	}
	extractions := make([]model.CallPhraseExtraction, 0, len(rows))
	for _, r := range rows {
		extractions = append(extractions, *r)
	}

	var prior []model.PhraseStatistic
	if last, lastErr := s.geoRepo.LatestSucceededWeeklyRun(run.ID); lastErr == nil {
		priorRows, statErr := s.geoRepo.StatisticsByRun(last.ID)
		if statErr != nil {
			err = statErr
			return err
		}
		for _, p := range priorRows {
			prior = append(prior, *p)
		}
	} else if !errors.Is(lastErr, repository.ErrNotFound) {
		err = lastErr
		return err
	}

	stats, err := geo.Aggregate(run.ID, extractions, prior)
	if err != nil {
		return err
	}
	rowsToInsert := make([]*model.PhraseStatistic, 0, len(stats))
	for i := range stats {
		rowsToInsert = append(rowsToInsert, &stats[i])
	}
	if err = s.geoRepo.InsertStatistics(rowsToInsert); err != nil {
		return err
	}

	if err = s.geoRepo.MarkRunSucceeded(run.ID, len(extractions)); err != nil {
		return err
	}
	log.Printf("Weekly phrase analysis run %d aggregated %d extractions into %d statistics", run.ID, len(extractions), len(stats))
	return nil
}

// ListRuns 最近的分析运行
func (s *GeoService) ListRuns(limit int) ([]*model.GeoAnalysisRun, error) {
	return s.geoRepo.ListRuns(limit)
}

// QueryResults 查询某轮(缺省为最近一轮成功周度分析)的短语统计
func (s *GeoService) QueryResults(runID int64, category string, limit int) ([]*model.PhraseStatistic, error) {
	if runID == 0 {
		last, err := s.geoRepo.LatestSucceededWeeklyRun(0)
		if err != nil {
			return nil, err
		}
		runID = last.ID
	}
	return s.geoRepo.QueryStatistics(runID, category, limit)
}
