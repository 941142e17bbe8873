package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/console-hq/calleval_go_server/internal/model"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun 每次处理尝试新建一条 run，历史保留
func (r *RunRepository) CreateRun(run *model.ProcessingRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = model.RunStatusRunning
	return r.db.Create(run).Error
}

func (r *RunRepository) MarkRunSucceeded(runID int64) error {
	now := time.Now()
	return r.db.Model(&model.ProcessingRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"status":      model.RunStatusSucceeded,
			"finished_at": now,
		}).Error
}

func (r *RunRepository) MarkRunFailed(runID int64, errMsg string) error {
	now := time.Now()
	return r.db.Model(&model.ProcessingRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"status":      model.RunStatusFailed,
			"finished_at": now,
			"error":       errMsg,
		}).Error
}

func (r *RunRepository) GetRun(id int64) (*model.ProcessingRun, error) {
	var run model.ProcessingRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// SaveSignals 追加写入提取信号
func (r *RunRepository) SaveSignals(rec *model.ExtractedSignalsRecord) error {
	return r.db.Create(rec).Error
}

// SaveEvaluation 追加写入评估结果
func (r *RunRepository) SaveEvaluation(ev *model.Evaluation) error {
	return r.db.Create(ev).Error
}

// LatestEvaluation 展示口径：created_at 最新一条为准
func (r *RunRepository) LatestEvaluation(callID int64) (*model.Evaluation, error) {
	var ev model.Evaluation
	err := r.db.Where("call_id = ?", callID).
		Order("created_at DESC").
		First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}

// QualifiedCallIDs 所有评估为 Qualified 的通话（去重）
func (r *RunRepository) QualifiedCallIDs() ([]int64, error) {
	var evals []*model.Evaluation
	err := r.db.Where("overall_status = ?", "Qualified").Find(&evals).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var ids []int64
	for _, ev := range evals {
		if _, ok := seen[ev.CallID]; !ok {
			seen[ev.CallID] = struct{}{}
			ids = append(ids, ev.CallID)
		}
	}
	return ids, nil
}
