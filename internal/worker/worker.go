package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/model/dto"
	"github.com/console-hq/calleval_go_server/internal/repository"
	"github.com/console-hq/calleval_go_server/internal/service"
)

// Worker 轮询任务队列并按类型分发。
// 一个进程可跑多个 Worker,原子认领保证同一任务只被一个实例执行。
type Worker struct {
	id           string
	jobRepo      *repository.JobRepository
	pipeline     *service.PipelineService
	geo          *service.GeoService
	pollInterval time.Duration
	leaseTimeout time.Duration
	maxAttempts  int
}

func New(
	id string,
	jobRepo *repository.JobRepository,
	pipeline *service.PipelineService,
	geo *service.GeoService,
	pollInterval time.Duration,
	leaseTimeout time.Duration,
	maxAttempts int,
) *Worker {
	return &Worker{
		id:           id,
		jobRepo:      jobRepo,
		pipeline:     pipeline,
		geo:          geo,
		pollInterval: pollInterval,
		leaseTimeout: leaseTimeout,
		maxAttempts:  maxAttempts,
	}
}

// Run 阻塞运行直到 ctx 取消。空轮询按 pollInterval 退避,有任务时立即继续认领。
func (w *Worker) Run(ctx context.Context) {
	log.Printf("Worker %s started (poll=%s, lease=%s)", w.id, w.pollInterval, w.leaseTimeout)
	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %s stopped", w.id)
			return
		default:
		}

		job, err := w.jobRepo.Claim(w.id, w.leaseTimeout)
		if err != nil {
			log.Printf("Worker %s claim failed: %v", w.id, err)
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.handle(ctx, job)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

// RunOnce 认领并执行至多一个任务,返回是否执行了任务。供手动排障使用。
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.jobRepo.Claim(w.id, w.leaseTimeout)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.handle(ctx, job)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, job *model.Job) {
	log.Printf("Worker %s executing job %d (%s, attempt %d)", w.id, job.ID, job.Type, job.Attempts+1)

	if err := w.dispatch(ctx, job); err != nil {
		log.Printf("Job %d failed: %v", job.ID, err)
		if markErr := w.jobRepo.MarkFailed(job.ID, w.maxAttempts, err.Error()); markErr != nil {
			log.Printf("Failed to mark job %d failed: %v", job.ID, markErr)
		}
		return
	}

	if err := w.jobRepo.MarkSucceeded(job.ID); err != nil {
		log.Printf("Failed to mark job %d succeeded: %v", job.ID, err)
		return
	}
	log.Printf("Job %d succeeded", job.ID)
}

func (w *Worker) dispatch(ctx context.Context, job *model.Job) error {
	switch job.Type {
	case model.JobTypeProcessMeeting:
		var payload dto.ProcessMeetingPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.pipeline.ProcessEvent(ctx, payload.WebhookEventID, payload.CallbackURL, job.ID)

	case model.JobTypeReprocessCall:
		var payload dto.ReprocessCallPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.pipeline.ReprocessCall(ctx, payload.CallID, job.ID)

	case model.JobTypeExtractPhrases:
		var payload dto.ExtractPhrasesPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.geo.RunExtraction(ctx, payload)

	case model.JobTypeRunWeeklyAnalysis:
		return w.geo.RunWeeklyAnalysis(ctx)

	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}
