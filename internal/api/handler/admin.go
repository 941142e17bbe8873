package handler

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/console-hq/calleval_go_server/internal/model/dto"
	"github.com/console-hq/calleval_go_server/internal/pkg/response"
	"github.com/console-hq/calleval_go_server/internal/repository"
	"github.com/console-hq/calleval_go_server/internal/service"
)

type AdminHandler struct {
	intakeService *service.IntakeService
	callRepo      *repository.CallRepository
	jobRepo       *repository.JobRepository
}

func NewAdminHandler(intakeService *service.IntakeService, callRepo *repository.CallRepository, jobRepo *repository.JobRepository) *AdminHandler {
	return &AdminHandler{
		intakeService: intakeService,
		callRepo:      callRepo,
		jobRepo:       jobRepo,
	}
}

// ImportMeeting 按分享链接手动导入
// POST /api/v1/admin/import-meeting
func (h *AdminHandler) ImportMeeting(c *gin.Context) {
	var req dto.ImportMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ev, err := h.intakeService.ImportByURL(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, service.ErrMeetingNotFound) {
			response.NotFound(c, "meeting not found")
			return
		}
		log.Printf("Import failed: %v", err)
		response.UpstreamError(c, "")
		return
	}

	response.Accepted(c, gin.H{"ok": true, "event_id": ev.ID})
}

// BulkImport 扫描供应商侧全部会议,导入带转写且尚未入库的
// POST /api/v1/admin/bulk-import
func (h *AdminHandler) BulkImport(c *gin.Context) {
	imported, skipped, err := h.intakeService.BulkImport(c.Request.Context())
	if err != nil {
		log.Printf("Bulk import failed: %v", err)
		response.UpstreamError(c, "")
		return
	}
	response.Accepted(c, gin.H{"ok": true, "imported": imported, "skipped": skipped})
}

// Reprocess 对已入库通话重跑流水线
// POST /api/v1/admin/reprocess
func (h *AdminHandler) Reprocess(c *gin.Context) {
	var req dto.ReprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.callRepo.GetByID(req.CallID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "call not found")
			return
		}
		response.ServerError(c, "")
		return
	}

	job, err := h.intakeService.EnqueueReprocess(req.CallID)
	if err != nil {
		log.Printf("Reprocess enqueue failed: %v", err)
		response.ServerError(c, "")
		return
	}

	response.Accepted(c, gin.H{"ok": true, "job_id": job.ID})
}

// ListJobs 按状态查询任务,用于排障和死信巡检
// GET /api/v1/admin/jobs?status=dead&limit=50
func (h *AdminHandler) ListJobs(c *gin.Context) {
	status := c.DefaultQuery("status", "dead")
	limit := intQuery(c, "limit", 50)

	jobs, err := h.jobRepo.ListByStatus(status, limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.OK(c, gin.H{"jobs": jobs})
}
