package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/repository"
	"podcast-pipeline-service/internal/stage"
)

// Store port (implementations: postgresql.JobRepository, memory.JobRepository)
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	CompareAndSetStage(ctx context.Context, id uuid.UUID, expected, next entity.Stage, patch entity.StagePatch) (bool, error)
}

// Enqueue-only port; the engine never claims or acks.
type StageQueue interface {
	Enqueue(ctx context.Context, msg entity.StageMessage) error
}

// Engine is the pipeline state machine. It consumes one stage message at a
// time, runs the registered handler and advances the job through the fixed
// stage order. All writes go through compare-and-set, so under duplicate
// delivery only the first successful invocation's result is kept.
type Engine struct {
	store          JobStore
	queue          StageQueue
	handlers       stage.Registry
	handlerTimeout time.Duration
}

func NewEngine(store JobStore, queue StageQueue, handlers stage.Registry, handlerTimeout time.Duration) *Engine {
	if handlerTimeout <= 0 {
		handlerTimeout = 10 * time.Minute
	}
	return &Engine{
		store:          store,
		queue:          queue,
		handlers:       handlers,
		handlerTimeout: handlerTimeout,
	}
}

// Process handles one delivered stage message. A nil return means the message
// is finished with (done or deliberately dropped) and must be acked; a non-nil
// return means a transient failure and the message should be redelivered.
func (e *Engine) Process(ctx context.Context, msg entity.StageMessage) error {
	start := time.Now()

	if !msg.Stage.Valid() || msg.Stage.Terminal() {
		log.Printf("[engine] job_id=%s stage=%s drop=invalid_stage", msg.JobID, msg.Stage)
		return nil
	}

	job, err := e.store.GetByID(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// job deleted (cancellation) — not an error
			log.Printf("[engine] job_id=%s stage=%s drop=job_absent", msg.JobID, msg.Stage)
			return nil
		}
		return fmt.Errorf("load job %s: %w", msg.JobID, err)
	}

	if job.Stage != msg.Stage {
		return e.dropStale(ctx, job, msg)
	}

	handler, ok := e.handlers[msg.Stage]
	if !ok {
		e.failJob(ctx, msg.JobID, msg.Stage, fmt.Sprintf("no handler registered for stage %s", msg.Stage))
		return nil
	}

	hctx, cancel := context.WithTimeout(ctx, e.handlerTimeout)
	out, handlerErr := handler.Run(hctx, job, job.Artifact)
	cancel()

	if handlerErr != nil {
		// business failure is terminal, never auto-retried
		e.failJob(ctx, msg.JobID, msg.Stage, handlerErr.Error())
		log.Printf("[engine] job_id=%s stage=%s status=failed duration_ms=%d error=%s",
			msg.JobID, msg.Stage, time.Since(start).Milliseconds(), handlerErr)
		return nil
	}

	next, ok := msg.Stage.Next()
	if !ok {
		e.failJob(ctx, msg.JobID, msg.Stage, fmt.Sprintf("stage %s has no successor", msg.Stage))
		return nil
	}

	won, err := e.store.CompareAndSetStage(ctx, msg.JobID, msg.Stage, next, entity.StagePatch{
		Artifact:  out.Artifact,
		AudioPath: out.AudioPath,
		Result:    out.Result,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("[engine] job_id=%s stage=%s drop=deleted_during_stage", msg.JobID, msg.Stage)
			return nil
		}
		return fmt.Errorf("advance job %s: %w", msg.JobID, err)
	}
	if !won {
		// duplicate delivery raced us and already advanced the job;
		// this invocation's result is discarded
		log.Printf("[engine] job_id=%s stage=%s drop=lost_cas_race", msg.JobID, msg.Stage)
		return nil
	}

	log.Printf("[engine] job_id=%s stage=%s -> %s progress=%d duration_ms=%d",
		msg.JobID, msg.Stage, next, next.Progress(), time.Since(start).Milliseconds())

	if next == entity.StageCompleted {
		return nil
	}
	return e.enqueueNext(ctx, entity.StageMessage{JobID: msg.JobID, Stage: next})
}

// dropStale handles a message whose stage no longer matches the persisted one.
// Almost always this is a redelivered duplicate and a plain no-op. The one
// case worth repairing: the job advanced exactly one stage but the successor
// trigger was lost (enqueue failed after a successful CAS) — re-enqueue the
// current stage so the chain keeps moving. Duplicates of that message are
// dropped by the same check.
func (e *Engine) dropStale(ctx context.Context, job *entity.Job, msg entity.StageMessage) error {
	if !job.Stage.Terminal() && job.Stage.Index() == msg.Stage.Index()+1 {
		log.Printf("[engine] job_id=%s stage=%s resume=%s", msg.JobID, msg.Stage, job.Stage)
		return e.enqueueNext(ctx, entity.StageMessage{JobID: job.ID, Stage: job.Stage})
	}
	log.Printf("[engine] job_id=%s stage=%s drop=stale current=%s", msg.JobID, msg.Stage, job.Stage)
	return nil
}

func (e *Engine) enqueueNext(ctx context.Context, msg entity.StageMessage) error {
	var err error
	for attempt, backoff := 0, 100*time.Millisecond; attempt < 3; attempt, backoff = attempt+1, backoff*2 {
		if err = e.queue.Enqueue(ctx, msg); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("enqueue %s for job %s: %w", msg.Stage, msg.JobID, err)
}

// failJob moves the job to the terminal failed stage. Losing the CAS here
// means someone else already decided the job's fate; that is fine.
func (e *Engine) failJob(ctx context.Context, id uuid.UUID, from entity.Stage, cause string) {
	_, err := e.store.CompareAndSetStage(ctx, id, from, entity.StageFailed, entity.StagePatch{
		Error: &cause,
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("[engine] job_id=%s stage=%s fail_write_error=%v", id, from, err)
	}
}

// Abandon dead-letters a message that exceeded the redelivery bound: the job
// is failed as if its handler had failed.
func (e *Engine) Abandon(ctx context.Context, msg entity.StageMessage, deliveries int64) {
	e.failJob(ctx, msg.JobID, msg.Stage,
		fmt.Sprintf("stage %s abandoned after %d deliveries", msg.Stage, deliveries))
	log.Printf("[engine] job_id=%s stage=%s abandoned deliveries=%d", msg.JobID, msg.Stage, deliveries)
}
