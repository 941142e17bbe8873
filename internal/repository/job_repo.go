package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/console-hq/calleval_go_server/internal/model"
)

// ErrNotFound 通用的记录不存在错误
var ErrNotFound = errors.New("record not found")

// 失败重试退避：min(60 * 2^attempts, 3600) 秒
const (
	backoffBaseSec = 60
	backoffCapSec  = 3600
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Enqueue 新建任务行，status=queued，attempts=0，run_after=now
func (r *JobRepository) Enqueue(jobType string, payload string) (*model.Job, error) {
	job := &model.Job{
		Type:     jobType,
		Status:   model.JobStatusQueued,
		Payload:  payload,
		Attempts: 0,
		RunAfter: time.Now(),
	}
	if err := r.db.Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// Claim 原子认领最老的可执行任务。
// 可执行 = queued 且 run_after 已到，或 running 但租约过期（持有者大概率已崩溃）。
// 先选后改会产生竞态，因此状态迁移用带状态守卫的条件 UPDATE 完成：
// 影响 0 行即视为竞争失败，返回 nil，调用方继续轮询。
func (r *JobRepository) Claim(workerID string, leaseTimeout time.Duration) (*model.Job, error) {
	now := time.Now()
	staleBefore := now.Add(-leaseTimeout)

	var candidate model.Job
	err := r.db.
		Where("(status = ? AND run_after <= ?) OR (status = ? AND locked_at < ?)",
			model.JobStatusQueued, now, model.JobStatusRunning, staleBefore).
		Order("created_at ASC").
		Limit(1).
		Find(&candidate).Error
	if err != nil {
		return nil, err
	}
	if candidate.ID == 0 {
		return nil, nil
	}

	prevStatus := candidate.Status
	tx := r.db.Model(&model.Job{}).
		Where("id = ? AND status = ?", candidate.ID, prevStatus)
	if prevStatus == model.JobStatusRunning {
		// 过期 running 行的回收同样要守住旧租约，避免抢走刚被别人续租的任务
		tx = tx.Where("locked_at < ?", staleBefore)
	}

	res := tx.Updates(map[string]interface{}{
		"status":     model.JobStatusRunning,
		"locked_by":  workerID,
		"locked_at":  now,
		"updated_at": now,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// 另一个 worker 抢先了
		return nil, nil
	}

	var claimed model.Job
	if err := r.db.Where("id = ?", candidate.ID).First(&claimed).Error; err != nil {
		return nil, err
	}
	return &claimed, nil
}

// MarkSucceeded 终态迁移，重复调用无副作用
func (r *JobRepository) MarkSucceeded(jobID int64) error {
	return r.db.Model(&model.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     model.JobStatusSucceeded,
			"updated_at": time.Now(),
		}).Error
}

// MarkFailed 递增 attempts；达到 maxAttempts 进入 dead（不再设置 run_after），
// 否则回到 queued 并按指数退避延后，同时清空锁字段。
func (r *JobRepository) MarkFailed(jobID int64, maxAttempts int, errMsg string) error {
	var job model.Job
	if err := r.db.Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	attempts := job.Attempts + 1
	now := time.Now()

	updates := map[string]interface{}{
		"attempts":   attempts,
		"locked_by":  nil,
		"locked_at":  nil,
		"last_error": errMsg,
		"updated_at": now,
	}

	if attempts >= maxAttempts {
		updates["status"] = model.JobStatusDead
	} else {
		backoffSec := backoffBaseSec * (1 << attempts)
		if backoffSec > backoffCapSec {
			backoffSec = backoffCapSec
		}
		updates["status"] = model.JobStatusQueued
		updates["run_after"] = now.Add(time.Duration(backoffSec) * time.Second)
	}

	return r.db.Model(&model.Job{}).Where("id = ?", jobID).Updates(updates).Error
}

func (r *JobRepository) GetByID(id int64) (*model.Job, error) {
	var job model.Job
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// ListByStatus 按状态查询（死信任务的人工排查入口）
func (r *JobRepository) ListByStatus(status string, limit int) ([]*model.Job, error) {
	var jobs []*model.Job
	err := r.db.Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}
