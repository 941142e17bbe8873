package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
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

// runonce 认领并执行队列中的任务直到队列为空,然后退出。
// 用于本地排障和一次性补数,不依赖常驻 worker。
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	maxJobs := flag.Int("max-jobs", 0, "stop after this many jobs (0 = drain queue)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis 缺席时进度发布退化为空操作
	publisher := pubsub.NewPublisher(nil)
	if rdb, err := database.NewRedis(&cfg.Redis); err == nil {
		publisher = pubsub.NewPublisher(rdb)
	} else {
		log.Printf("Redis unavailable, progress publishing disabled: %v", err)
	}

	eventRepo := repository.NewEventRepository(db)
	jobRepo := repository.NewJobRepository(db)
	callRepo := repository.NewCallRepository(db)
	runRepo := repository.NewRunRepository(db)
	geoRepo := repository.NewGeoRepository(db)

	llmClient := llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	var enricher service.Enricher
	if cfg.Apollo.APIKey != "" {
		enricher = apollo.NewClient(cfg.Apollo.APIKey, cfg.Apollo.BaseURL)
	}
	var deals service.DealSource
	if cfg.HubSpot.APIKey != "" {
		deals = hubspot.NewClient(cfg.HubSpot.APIKey, cfg.HubSpot.BaseURL)
	}

	pipelineService := service.NewPipelineService(
		callRepo, runRepo, eventRepo,
		llmClient, cfg.OpenAI.Model,
		enricher,
		cfg.Team.Company, cfg.Team.Roster,
		publisher,
	)
	geoService := service.NewGeoService(geoRepo, callRepo, runRepo, llmClient, cfg.OpenAI.Model, deals, cfg.Team.Company)

	hostname, _ := os.Hostname()
	workerID := fmt.Sprintf("%s-%s-runonce", hostname, uuid.NewString()[:8])
	leaseTimeout := time.Duration(cfg.Worker.LeaseTimeoutSec) * time.Second
	w := worker.New(workerID, jobRepo, pipelineService, geoService, time.Second, leaseTimeout, cfg.Worker.MaxAttempts)

	ctx := context.Background()
	executed := 0
	for {
		ran, err := w.RunOnce(ctx)
		if err != nil {
			log.Fatalf("Job execution failed: %v", err)
		}
		if !ran {
			break
		}
		executed++
		if *maxJobs > 0 && executed >= *maxJobs {
			break
		}
	}
	log.Printf("Done, executed %d jobs", executed)
}
