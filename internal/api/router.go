package api

import (
	"github.com/gin-gonic/gin"

	"github.com/console-hq/calleval_go_server/config"
	"github.com/console-hq/calleval_go_server/internal/api/handler"
	"github.com/console-hq/calleval_go_server/internal/api/middleware"
)

type Router struct {
	webhookHandler   *handler.WebhookHandler
	pipelineHandler  *handler.PipelineHandler
	adminHandler     *handler.AdminHandler
	geoHandler       *handler.GeoHandler
	websocketHandler *handler.WebSocketHandler
	cfg              *config.Config
}

func NewRouter(
	webhookHandler *handler.WebhookHandler,
	pipelineHandler *handler.PipelineHandler,
	adminHandler *handler.AdminHandler,
	geoHandler *handler.GeoHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		webhookHandler:   webhookHandler,
		pipelineHandler:  pipelineHandler,
		adminHandler:     adminHandler,
		geoHandler:       geoHandler,
		websocketHandler: websocketHandler,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket 进度推送
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 供应商回调(自带签名校验)
		api.POST("/webhooks/fathom", r.webhookHandler.Receive)

		// 内部接口 - 静态 Key 认证
		authenticated := api.Group("")
		authenticated.Use(middleware.APIKeyAuth(r.cfg.Pipeline.APIKey))
		{
			pipeline := authenticated.Group("/pipeline")
			{
				pipeline.POST("/process", r.pipelineHandler.Process)
				pipeline.POST("/extract-info", r.pipelineHandler.ExtractInfo)
			}

			admin := authenticated.Group("/admin")
			{
				admin.POST("/import-meeting", r.adminHandler.ImportMeeting)
			admin.POST("/bulk-import", r.adminHandler.BulkImport)
				admin.POST("/reprocess", r.adminHandler.Reprocess)
				admin.GET("/jobs", r.adminHandler.ListJobs)
			}

			geo := authenticated.Group("/geo")
			{
				geo.POST("/trigger", r.geoHandler.Trigger)
				geo.POST("/weekly", r.geoHandler.TriggerWeekly)
				geo.GET("/runs", r.geoHandler.ListRuns)
				geo.GET("/results", r.geoHandler.Results)
			}
		}
	}

	return engine
}
