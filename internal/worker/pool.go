package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"podcast-pipeline-service/internal/service"
)

// Pool runs N workers draining the stage queue into the engine. Multiple pool
// instances may run against the same queue; the store's compare-and-set keeps
// them from double-applying a stage.
type Pool struct {
	queue         service.Queue
	engine        *Engine
	workers       int
	claimDelay    time.Duration
	maxDeliveries int64
}

func NewPool(queue service.Queue, engine *Engine, workers int, maxDeliveries int64) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if maxDeliveries <= 0 {
		maxDeliveries = 3
	}
	return &Pool{
		queue:         queue,
		engine:        engine,
		workers:       workers,
		claimDelay:    5 * time.Second,
		maxDeliveries: maxDeliveries,
	}
}

func (p *Pool) Run(ctx context.Context) {
	log.Printf("worker pool started: workers=%d max_deliveries=%d", p.workers, p.maxDeliveries)

	deliveries := make(chan service.Delivery)

	for i := 0; i < p.workers; i++ {
		go func(n int) {
			for d := range deliveries {
				p.work(ctx, n, d)
			}
		}(i + 1)
	}

	for {
		select {
		case <-ctx.Done():
			close(deliveries)
			log.Println("worker pool stopped")
			return
		default:
			d, err := p.queue.ClaimBlocking(ctx, p.claimDelay)
			if err != nil {
				if !errors.Is(err, service.ErrNoMessage) && ctx.Err() == nil {
					log.Printf("[pool] claim error: %v", err)
				}
				continue
			}
			select {
			case deliveries <- d:
			case <-ctx.Done():
				close(deliveries)
				return
			}
		}
	}
}

func (p *Pool) work(ctx context.Context, n int, d service.Delivery) {
	if d.Attempt > p.maxDeliveries {
		// dead-letter: the payload keeps coming back, fail the job and ack
		p.engine.Abandon(ctx, d.Message, d.Attempt)
		if err := p.queue.Ack(ctx, d); err != nil {
			log.Printf("[worker-%d] ack job %s error: %v", n, d.Message.JobID, err)
		}
		return
	}

	if err := p.engine.Process(ctx, d.Message); err != nil {
		// transient failure: leave the message in the processing list so the
		// requeue reaper redelivers it
		log.Printf("[worker-%d] process job %s stage %s error: %v", n, d.Message.JobID, d.Message.Stage, err)
		return
	}

	if err := p.queue.Ack(ctx, d); err != nil {
		log.Printf("[worker-%d] ack job %s error: %v", n, d.Message.JobID, err)
	}
}
