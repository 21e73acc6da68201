package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/repository"
)

// ErrInvalidSubmission marks validation failures surfaced synchronously at
// submit time; the job is never created.
var ErrInvalidSubmission = errors.New("invalid submission")

// MaxInputs is the submission cap on content references.
const MaxInputs = 4

// Repository port (implementations: postgresql.JobRepository, memory.JobRepository)
type JobRepository interface {
	Create(ctx context.Context, inputs []entity.InputRef, mainIndex int, opts entity.Options) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Small enqueue-only port so the submission path does not see claim/ack.
type JobQueue interface {
	Enqueue(ctx context.Context, msg entity.StageMessage) error
}

type JobService struct {
	repo  JobRepository
	queue JobQueue
}

func NewJobService(repo JobRepository, queue JobQueue) *JobService {
	return &JobService{repo: repo, queue: queue}
}

type SubmitJobRequest struct {
	Inputs    []entity.InputRef
	MainIndex int
	Options   entity.Options
}

// SubmitJob validates the submission, persists the job at stage=start and
// enqueues the first stage message.
func (s *JobService) SubmitJob(ctx context.Context, req SubmitJobRequest) (uuid.UUID, error) {
	if err := validateSubmission(req); err != nil {
		return uuid.Nil, err
	}

	id, err := s.repo.Create(ctx, req.Inputs, req.MainIndex, req.Options)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.enqueueStart(ctx, id); err != nil {
		// without the start trigger the record would sit at stage=start
		// forever; compensate so a failed submit leaves nothing behind
		if derr := s.repo.Delete(ctx, id); derr != nil && !errors.Is(derr, repository.ErrNotFound) {
			log.Printf("[service] job_id=%s orphan cleanup failed: %v", id, derr)
		}
		return uuid.Nil, err
	}

	return id, nil
}

// enqueueStart retries transient transport failures with the same bounded
// backoff the worker uses between stages.
func (s *JobService) enqueueStart(ctx context.Context, id uuid.UUID) error {
	var err error
	for attempt, backoff := 0, 100*time.Millisecond; attempt < 3; attempt, backoff = attempt+1, backoff*2 {
		if err = s.queue.Enqueue(ctx, entity.StageMessage{JobID: id, Stage: entity.StageStart}); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("enqueue start for job %s: %w", id, err)
}

func validateSubmission(req SubmitJobRequest) error {
	if len(req.Inputs) == 0 {
		return fmt.Errorf("%w: at least one input is required", ErrInvalidSubmission)
	}
	if len(req.Inputs) > MaxInputs {
		return fmt.Errorf("%w: at most %d inputs allowed, got %d", ErrInvalidSubmission, MaxInputs, len(req.Inputs))
	}
	if req.MainIndex < 0 || req.MainIndex >= len(req.Inputs) {
		return fmt.Errorf("%w: main_index %d out of range for %d inputs", ErrInvalidSubmission, req.MainIndex, len(req.Inputs))
	}
	for i, in := range req.Inputs {
		if in.Kind != entity.InputFile && in.Kind != entity.InputLink {
			return fmt.Errorf("%w: input %d has unknown kind %q", ErrInvalidSubmission, i, in.Kind)
		}
		if in.Ref == "" {
			return fmt.Errorf("%w: input %d has an empty ref", ErrInvalidSubmission, i)
		}
	}
	return nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *JobService) ListJobs(ctx context.Context, limit, offset int) ([]*entity.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// DeleteJob is the cancellation path: the record disappears and any in-flight
// stage message for the job is dropped by the engine when it can no longer
// load the job.
func (s *JobService) DeleteJob(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
