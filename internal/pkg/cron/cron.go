package cron

import (
	"encoding/json"
	"log"
	"time"

	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/model/dto"
	"github.com/console-hq/calleval_go_server/internal/repository"
)

type Service struct {
	jobRepo       *repository.JobRepository
	crmPipelineID string
	crmStageID    string
	stopChan      chan struct{}
}

func NewService(jobRepo *repository.JobRepository, crmPipelineID, crmStageID string) *Service {
	return &Service{
		jobRepo:       jobRepo,
		crmPipelineID: crmPipelineID,
		crmStageID:    crmStageID,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runDailyExtraction()
	go s.runWeeklyAnalysis()
	log.Println("Cron service started (daily phrase extraction + weekly analysis)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runDailyExtraction 每日凌晨入队短语提取任务
func (s *Service) runDailyExtraction() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 2, 0, 0, 0, now.Location())
	timer := time.NewTimer(next.Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.enqueueExtraction()
			timer.Reset(24 * time.Hour)
		}
	}
}

// runWeeklyAnalysis 每周一早上入队周度聚合任务
func (s *Service) runWeeklyAnalysis() {
	timer := time.NewTimer(untilNextMonday(time.Now()))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.enqueueWeekly()
			timer.Reset(untilNextMonday(time.Now()))
		}
	}
}

func untilNextMonday(now time.Time) time.Duration {
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	next := time.Date(now.Year(), now.Month(), now.Day()+days, 6, 0, 0, 0, now.Location())
	return next.Sub(now)
}

func (s *Service) enqueueExtraction() {
	payload, err := json.Marshal(dto.ExtractPhrasesPayload{
		CRMPipelineID: s.crmPipelineID,
		CRMStageID:    s.crmStageID,
		QualifiedOnly: true,
	})
	if err != nil {
		log.Printf("Failed to marshal extraction payload: %v", err)
		return
	}
	if _, err := s.jobRepo.Enqueue(model.JobTypeExtractPhrases, string(payload)); err != nil {
		log.Printf("Failed to enqueue daily phrase extraction: %v", err)
		return
	}
	log.Println("Enqueued daily phrase extraction job")
}

func (s *Service) enqueueWeekly() {
	payload, err := json.Marshal(dto.RunWeeklyAnalysisPayload{})
	if err != nil {
		log.Printf("Failed to marshal weekly payload: %v", err)
		return
	}
	if _, err := s.jobRepo.Enqueue(model.JobTypeRunWeeklyAnalysis, string(payload)); err != nil {
		log.Printf("Failed to enqueue weekly analysis: %v", err)
		return
	}
	log.Println("Enqueued weekly phrase analysis job")
}
