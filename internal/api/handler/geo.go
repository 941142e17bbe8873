package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/console-hq/calleval_go_server/internal/model/dto"
	"github.com/console-hq/calleval_go_server/internal/pkg/response"
	"github.com/console-hq/calleval_go_server/internal/repository"
	"github.com/console-hq/calleval_go_server/internal/service"
)

type GeoHandler struct {
	intakeService *service.IntakeService
	geoService    *service.GeoService
}

func NewGeoHandler(intakeService *service.IntakeService, geoService *service.GeoService) *GeoHandler {
	return &GeoHandler{
		intakeService: intakeService,
		geoService:    geoService,
	}
}

// Trigger 触发短语提取(异步执行)
// POST /api/v1/geo/trigger
func (h *GeoHandler) Trigger(c *gin.Context) {
	var req dto.GeoTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	job, err := h.intakeService.EnqueuePhraseExtraction(req)
	if err != nil {
		log.Printf("Geo trigger failed: %v", err)
		response.ServerError(c, "")
		return
	}
	response.Accepted(c, gin.H{"ok": true, "job_id": job.ID})
}

// TriggerWeekly 触发周度聚合(异步执行)
// POST /api/v1/geo/weekly
func (h *GeoHandler) TriggerWeekly(c *gin.Context) {
	job, err := h.intakeService.EnqueueWeeklyAnalysis()
	if err != nil {
		log.Printf("Weekly trigger failed: %v", err)
		response.ServerError(c, "")
		return
	}
	response.Accepted(c, gin.H{"ok": true, "job_id": job.ID})
}

// ListRuns 最近的分析运行
// GET /api/v1/geo/runs?limit=20
func (h *GeoHandler) ListRuns(c *gin.Context) {
	limit := intQuery(c, "limit", 20)
	runs, err := h.geoService.ListRuns(limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.OK(c, gin.H{"runs": runs})
}

// Results 查询短语统计,缺省取最近一轮成功的周度分析
// GET /api/v1/geo/results?run_id=3&category=pain_language&limit=50
func (h *GeoHandler) Results(c *gin.Context) {
	runID, _ := strconv.ParseInt(c.Query("run_id"), 10, 64)
	category := c.Query("category")
	limit := intQuery(c, "limit", 50)
	if limit > 500 {
		limit = 500
	}

	stats, err := h.geoService.QueryResults(runID, category, limit)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "no completed weekly analysis")
			return
		}
		response.ServerError(c, "")
		return
	}
	response.OK(c, gin.H{"statistics": stats})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
