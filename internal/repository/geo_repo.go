package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/console-hq/calleval_go_server/internal/model"
)

// 插入批大小，防止单条语句超出后端限制
const phraseStatBatchSize = 500

type GeoRepository struct {
	db *gorm.DB
}

func NewGeoRepository(db *gorm.DB) *GeoRepository {
	return &GeoRepository{db: db}
}

func (r *GeoRepository) CreateRun(runType string, config string) (*model.GeoAnalysisRun, error) {
	run := &model.GeoAnalysisRun{
		Type:      runType,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now(),
		Config:    config,
	}
	if err := r.db.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *GeoRepository) MarkRunSucceeded(runID int64, callsProcessed int) error {
	now := time.Now()
	return r.db.Model(&model.GeoAnalysisRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"status":          model.RunStatusSucceeded,
			"finished_at":     now,
			"calls_processed": callsProcessed,
		}).Error
}

func (r *GeoRepository) MarkRunFailed(runID int64, errMsg string) error {
	now := time.Now()
	return r.db.Model(&model.GeoAnalysisRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"status":      model.RunStatusFailed,
			"finished_at": now,
			"error":       errMsg,
		}).Error
}

// ListRuns 最近的运行记录
func (r *GeoRepository) ListRuns(limit int) ([]*model.GeoAnalysisRun, error) {
	var runs []*model.GeoAnalysisRun
	err := r.db.Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// LatestSucceededWeeklyRun 最近一次成功的周度聚合；excludeRunID 排除当前 run 自身
func (r *GeoRepository) LatestSucceededWeeklyRun(excludeRunID int64) (*model.GeoAnalysisRun, error) {
	var run model.GeoAnalysisRun
	err := r.db.Where("type = ? AND status = ? AND id <> ?",
		model.GeoRunTypeWeekly, model.RunStatusSucceeded, excludeRunID).
		Order("created_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// FilterUnprocessedCalls 剔除已有提取记录的通话；分批 IN 查询规避单条语句过长
func (r *GeoRepository) FilterUnprocessedCalls(callIDs []int64) ([]int64, error) {
	if len(callIDs) == 0 {
		return nil, nil
	}

	const batchSize = 50
	processed := make(map[int64]struct{})

	for i := 0; i < len(callIDs); i += batchSize {
		end := i + batchSize
		if end > len(callIDs) {
			end = len(callIDs)
		}
		var existing []*model.CallPhraseExtraction
		err := r.db.Where("call_id IN ?", callIDs[i:end]).Find(&existing).Error
		if err != nil {
			return nil, err
		}
		for _, e := range existing {
			processed[e.CallID] = struct{}{}
		}
	}

	var remaining []int64
	for _, id := range callIDs {
		if _, ok := processed[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	return remaining, nil
}

// SaveExtraction 每通电话一行，零短语也写入作为已处理标记
func (r *GeoRepository) SaveExtraction(ext *model.CallPhraseExtraction) error {
	return r.db.Create(ext).Error
}

// ExtractionsSince 某时刻之后创建的提取记录（周窗口查询）
func (r *GeoRepository) ExtractionsSince(since time.Time) ([]*model.CallPhraseExtraction, error) {
	var exts []*model.CallPhraseExtraction
	err := r.db.Where("created_at >= ?", since).Find(&exts).Error
	return exts, err
}

// StatisticsByRun 某次周度运行的全部短语统计
func (r *GeoRepository) StatisticsByRun(runID int64) ([]*model.PhraseStatistic, error) {
	var stats []*model.PhraseStatistic
	err := r.db.Where("run_id = ?", runID).Find(&stats).Error
	return stats, err
}

// QueryStatistics 结果接口用：按累计频次倒序，可按类别过滤
func (r *GeoRepository) QueryStatistics(runID int64, category string, limit int) ([]*model.PhraseStatistic, error) {
	q := r.db.Where("run_id = ?", runID).
		Order("cumulative_frequency DESC").
		Limit(limit)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var stats []*model.PhraseStatistic
	err := q.Find(&stats).Error
	return stats, err
}

// InsertStatistics 分批插入
func (r *GeoRepository) InsertStatistics(stats []*model.PhraseStatistic) error {
	if len(stats) == 0 {
		return nil
	}
	return r.db.CreateInBatches(stats, phraseStatBatchSize).Error
}
