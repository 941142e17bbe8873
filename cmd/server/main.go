package main

import (
	"context"
	"fmt"
	"log"

	"github.com/console-hq/calleval_go_server/config"
	"github.com/console-hq/calleval_go_server/internal/api"
	"github.com/console-hq/calleval_go_server/internal/api/handler"
	"github.com/console-hq/calleval_go_server/internal/database"
	"github.com/console-hq/calleval_go_server/internal/pkg/apollo"
	"github.com/console-hq/calleval_go_server/internal/pkg/cron"
	"github.com/console-hq/calleval_go_server/internal/pkg/fathom"
	"github.com/console-hq/calleval_go_server/internal/pkg/hubspot"
	"github.com/console-hq/calleval_go_server/internal/pkg/llm"
	"github.com/console-hq/calleval_go_server/internal/pkg/pubsub"
	"github.com/console-hq/calleval_go_server/internal/pkg/ws"
	"github.com/console-hq/calleval_go_server/internal/repository"
	"github.com/console-hq/calleval_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 WebSocket Hub,并把 Redis 进度消息桥接到前端
	wsHub := ws.NewHub()
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
			if err := wsHub.Broadcast(&ws.Message{Type: msg.Type, Data: msg}); err != nil {
				log.Printf("Failed to broadcast progress: %v", err)
			}
		})
		if err != nil && err != context.Canceled {
			log.Printf("Progress subscription ended: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 初始化 Repository
	eventRepo := repository.NewEventRepository(db)
	jobRepo := repository.NewJobRepository(db)
	callRepo := repository.NewCallRepository(db)
	runRepo := repository.NewRunRepository(db)
	geoRepo := repository.NewGeoRepository(db)

	// 初始化外部客户端
	fathomClient := fathom.NewClient(cfg.Fathom.APIKey, cfg.Fathom.BaseURL)
	llmClient := llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	var enricher service.Enricher
	if cfg.Apollo.APIKey != "" {
		enricher = apollo.NewClient(cfg.Apollo.APIKey, cfg.Apollo.BaseURL)
	}
	var deals service.DealSource
	if cfg.HubSpot.APIKey != "" {
		deals = hubspot.NewClient(cfg.HubSpot.APIKey, cfg.HubSpot.BaseURL)
	}

	// 初始化 Service
	intakeService := service.NewIntakeService(eventRepo, jobRepo, fathomClient, cfg.Fathom.WebhookSecret)
	pipelineService := service.NewPipelineService(
		callRepo, runRepo, eventRepo,
		llmClient, cfg.OpenAI.Model,
		enricher,
		cfg.Team.Company, cfg.Team.Roster,
		pubsub.NewPublisher(rdb),
	)
	geoService := service.NewGeoService(geoRepo, callRepo, runRepo, llmClient, cfg.OpenAI.Model, deals, cfg.Team.Company)

	// 初始化 Handler
	webhookHandler := handler.NewWebhookHandler(intakeService)
	pipelineHandler := handler.NewPipelineHandler(intakeService, pipelineService)
	adminHandler := handler.NewAdminHandler(intakeService, callRepo, jobRepo)
	geoHandler := handler.NewGeoHandler(intakeService, geoService)
	websocketHandler := handler.NewWebSocketHandler(wsHub)

	// 启动定时任务
	cronService := cron.NewService(jobRepo, cfg.HubSpot.PipelineID, cfg.HubSpot.StageID)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Router
	router := api.NewRouter(
		webhookHandler,
		pipelineHandler,
		adminHandler,
		geoHandler,
		websocketHandler,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
