package handler

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/console-hq/calleval_go_server/internal/model/dto"
	"github.com/console-hq/calleval_go_server/internal/pkg/response"
	"github.com/console-hq/calleval_go_server/internal/service"
)

type PipelineHandler struct {
	intakeService   *service.IntakeService
	pipelineService *service.PipelineService
}

func NewPipelineHandler(intakeService *service.IntakeService, pipelineService *service.PipelineService) *PipelineHandler {
	return &PipelineHandler{
		intakeService:   intakeService,
		pipelineService: pipelineService,
	}
}

// Process 按录音 ID 手动触发处理
// POST /api/v1/pipeline/process
func (h *PipelineHandler) Process(c *gin.Context) {
	var req dto.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ev, err := h.intakeService.ProcessByRecordingID(c.Request.Context(), req.RecordingID, req.CallbackURL)
	if err != nil {
		if errors.Is(err, service.ErrMeetingNotFound) {
			response.NotFound(c, "recording not found")
			return
		}
		log.Printf("Manual process failed: %v", err)
		response.UpstreamError(c, "")
		return
	}

	response.Accepted(c, gin.H{"ok": true, "event_id": ev.ID})
}

// ExtractInfo 纯上下文提取,不落库
// POST /api/v1/pipeline/extract-info
func (h *PipelineHandler) ExtractInfo(c *gin.Context) {
	var req dto.ExtractInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	mctx := h.pipelineService.ExtractInfo(req)
	response.OK(c, mctx)
}
