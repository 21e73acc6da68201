package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"podcast-pipeline-service/internal/config"
	"podcast-pipeline-service/internal/repository/memory"
	"podcast-pipeline-service/internal/repository/postgresql"
	"podcast-pipeline-service/internal/service"
	"podcast-pipeline-service/internal/stages"
	"podcast-pipeline-service/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// store backend
	var store worker.JobStore
	switch cfg.StoreBackend {
	case "postgres":
		pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("pg: %v", err)
		}
		defer pool.Close()
		store = postgresql.NewJobRepository(pool)
		log.Printf("[worker] store=postgres dsn=%s", config.RedactDSN(cfg.PostgresDSN))
	default:
		store = memory.NewJobRepository()
		log.Printf("[worker] store=memory (non-durable)")
	}

	// redis queue
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}
	queue := service.NewRedisStageQueue(rdb, cfg.QueueKey, cfg.ProcessingKey, cfg.DeliveriesKey)

	// reaper: periodically moves messages back to the queue once their claim
	// is older than the handler deadline, so work lost with a crashed worker
	// gets redelivered without reclaiming in-flight slow stages
	go func() {
		ticker := time.NewTicker(cfg.RequeueEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := queue.RequeueStale(ctx, cfg.RequeueStaleAfter, 100)
				if err != nil {
					log.Printf("requeue error: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("requeued %d stage messages from processing", n)
				}
			}
		}
	}()

	handlers := stages.Registry(stages.Config{StorageDir: cfg.StorageDir})
	engine := worker.NewEngine(store, queue, handlers, cfg.HandlerTimeout)
	pool := worker.NewPool(queue, engine, cfg.Workers, cfg.MaxDeliveries)

	log.Printf("[worker] config workers=%d redis_addr=%s queue_key=%s handler_timeout=%s requeue_stale_after=%s storage_dir=%s",
		cfg.Workers, cfg.RedisAddr, cfg.QueueKey, cfg.HandlerTimeout, cfg.RequeueStaleAfter, cfg.StorageDir,
	)

	pool.Run(ctx)

	log.Println("worker stopped")
}
