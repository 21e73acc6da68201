package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "podcast-pipeline-service/docs"
	"podcast-pipeline-service/internal/config"
	"podcast-pipeline-service/internal/repository/memory"
	"podcast-pipeline-service/internal/repository/postgresql"
	"podcast-pipeline-service/internal/service"
	httptransport "podcast-pipeline-service/internal/transport/http"
)

// @title Podcast Pipeline Service API
// @version 1.0
// @description Submits generation jobs, reports pipeline progress and streams the finished audio.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	var repo service.JobRepository
	switch cfg.StoreBackend {
	case "postgres":
		pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("pg: %v", err)
		}
		defer pool.Close()
		repo = postgresql.NewJobRepository(pool)
		log.Printf("[api] store=postgres dsn=%s", config.RedactDSN(cfg.PostgresDSN))
	default:
		repo = memory.NewJobRepository()
		log.Printf("[api] store=memory (non-durable)")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}
	queue := service.NewRedisStageQueue(rdb, cfg.QueueKey, cfg.ProcessingKey, cfg.DeliveriesKey)

	jobSvc := service.NewJobService(repo, queue)
	handler := httptransport.NewHandler(jobSvc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httptransport.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[api] listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[api] shutdown: %v", err)
	}
	log.Println("api stopped")
}
