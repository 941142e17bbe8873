package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/console-hq/calleval_go_server/config"
	"github.com/console-hq/calleval_go_server/internal/database"
	"github.com/console-hq/calleval_go_server/internal/pkg/apollo"
	"github.com/console-hq/calleval_go_server/internal/pkg/hubspot"
	"github.com/console-hq/calleval_go_server/internal/pkg/llm"
	"github.com/console-hq/calleval_go_server/internal/pkg/pubsub"
	"github.com/console-hq/calleval_go_server/internal/repository"
	"github.com/console-hq/calleval_go_server/internal/service"
	"github.com/console-hq/calleval_go_server/internal/worker"
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

	// 初始化 Redis(进度发布)
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 Repository
	eventRepo := repository.NewEventRepository(db)
	jobRepo := repository.NewJobRepository(db)
	callRepo := repository.NewCallRepository(db)
	runRepo := repository.NewRunRepository(db)
	geoRepo := repository.NewGeoRepository(db)

	// 初始化外部客户端
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
	pipelineService := service.NewPipelineService(
		callRepo, runRepo, eventRepo,
		llmClient, cfg.OpenAI.Model,
		enricher,
		cfg.Team.Company, cfg.Team.Roster,
		pubsub.NewPublisher(rdb),
	)
	geoService := service.NewGeoService(geoRepo, callRepo, runRepo, llmClient, cfg.OpenAI.Model, deals, cfg.Team.Company)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	// 实例标识用 uuid,容器重启后 pid 会重复,租约归属必须全局唯一
	hostname, _ := os.Hostname()
	instanceID := uuid.NewString()[:8]
	pollInterval := time.Duration(cfg.Worker.PollIntervalSec) * time.Second
	leaseTimeout := time.Duration(cfg.Worker.LeaseTimeoutSec) * time.Second

	log.Printf("Worker starting, max workers: %d", cfg.Worker.MaxWorkers)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.MaxWorkers; i++ {
		workerID := fmt.Sprintf("%s-%s-%d", hostname, instanceID, i)
		w := worker.New(workerID, jobRepo, pipelineService, geoService, pollInterval, leaseTimeout, cfg.Worker.MaxAttempts)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	wg.Wait()
	log.Println("Worker shutdown complete")
}
