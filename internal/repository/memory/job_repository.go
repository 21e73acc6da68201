// Package memory holds a non-durable job store for development and tests.
// It mirrors the compare-and-set semantics of the postgres store exactly.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/repository"
)

var ErrNotFound = repository.ErrNotFound

type JobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.Job
}

func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[uuid.UUID]*entity.Job)}
}

func (r *JobRepository) Create(ctx context.Context, inputs []entity.InputRef, mainIndex int, opts entity.Options) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	j := &entity.Job{
		ID:        uuid.New(),
		Stage:     entity.StageStart,
		Inputs:    append([]entity.InputRef(nil), inputs...),
		MainIndex: mainIndex,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.jobs[j.ID] = j
	return j.ID, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(j), nil
}

func (r *JobRepository) List(ctx context.Context, limit, offset int) ([]*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*entity.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		all = append(all, clone(j))
	}
	// newest first, stable enough for a dev backend
	for i := 0; i < len(all); i++ {
		for k := i + 1; k < len(all); k++ {
			if all[k].CreatedAt.After(all[i].CreatedAt) {
				all[i], all[k] = all[k], all[i]
			}
		}
	}

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// CompareAndSetStage advances the job only if its persisted stage still equals
// expected. Returns false when another writer got there first.
func (r *JobRepository) CompareAndSetStage(ctx context.Context, id uuid.UUID, expected, next entity.Stage, patch entity.StagePatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	if j.Stage != expected {
		return false, nil
	}

	j.Stage = next
	j.UpdatedAt = time.Now().UTC()
	if patch.Artifact != nil {
		j.Artifact = patch.Artifact
	}
	if patch.AudioPath != "" {
		j.AudioPath = patch.AudioPath
	}
	if patch.Result != nil {
		j.Result = patch.Result
	}
	if patch.Error != nil {
		j.Error = patch.Error
	}
	return true, nil
}

func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

func clone(j *entity.Job) *entity.Job {
	c := *j
	c.Inputs = append([]entity.InputRef(nil), j.Inputs...)
	if j.Artifact != nil {
		c.Artifact = append([]byte(nil), j.Artifact...)
	}
	if j.Result != nil {
		res := *j.Result
		res.Chapters = append([]entity.Chapter(nil), j.Result.Chapters...)
		c.Result = &res
	}
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	return &c
}
