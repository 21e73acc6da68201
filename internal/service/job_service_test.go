package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/repository/memory"
	"podcast-pipeline-service/internal/service"
)

type fakeQueue struct {
	enqueued   []entity.StageMessage
	enqueueErr error
}

func (q *fakeQueue) Enqueue(ctx context.Context, msg entity.StageMessage) error {
	q.enqueued = append(q.enqueued, msg)
	return q.enqueueErr
}

func oneFileInput() []entity.InputRef {
	return []entity.InputRef{{Kind: entity.InputFile, Ref: "lecture.txt"}}
}

func TestSubmitJob_CreatesAndEnqueuesStart(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepository()
	queue := &fakeQueue{}
	svc := service.NewJobService(repo, queue)

	id, err := svc.SubmitJob(ctx, service.SubmitJobRequest{
		Inputs:    oneFileInput(),
		MainIndex: 0,
		Options:   entity.Options{Voice: "nova", DurationMinutes: 5},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected a job id")
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(queue.enqueued))
	}
	if queue.enqueued[0].JobID != id || queue.enqueued[0].Stage != entity.StageStart {
		t.Fatalf("expected {%s start}, got %+v", id, queue.enqueued[0])
	}

	j, err := svc.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if j.Stage != entity.StageStart || j.Progress() != 0 {
		t.Fatalf("expected stage=start progress=0, got %s/%d", j.Stage, j.Progress())
	}
}

func TestSubmitJob_Validation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		req  service.SubmitJobRequest
	}{
		{"empty inputs", service.SubmitJobRequest{}},
		{"too many inputs", service.SubmitJobRequest{
			Inputs: []entity.InputRef{
				{Kind: entity.InputFile, Ref: "a"}, {Kind: entity.InputFile, Ref: "b"},
				{Kind: entity.InputFile, Ref: "c"}, {Kind: entity.InputFile, Ref: "d"},
				{Kind: entity.InputFile, Ref: "e"},
			},
		}},
		{"main index out of range", service.SubmitJobRequest{
			Inputs: oneFileInput(), MainIndex: 1,
		}},
		{"negative main index", service.SubmitJobRequest{
			Inputs: oneFileInput(), MainIndex: -1,
		}},
		{"unknown kind", service.SubmitJobRequest{
			Inputs: []entity.InputRef{{Kind: "ftp", Ref: "x"}},
		}},
		{"empty ref", service.SubmitJobRequest{
			Inputs: []entity.InputRef{{Kind: entity.InputFile, Ref: ""}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := memory.NewJobRepository()
			queue := &fakeQueue{}
			svc := service.NewJobService(repo, queue)

			_, err := svc.SubmitJob(ctx, tc.req)
			if !errors.Is(err, service.ErrInvalidSubmission) {
				t.Fatalf("expected ErrInvalidSubmission, got %v", err)
			}
			if len(queue.enqueued) != 0 {
				t.Fatalf("invalid submission must not enqueue, got %d messages", len(queue.enqueued))
			}
		})
	}
}

func TestSubmitJob_EnqueueFailureLeavesNoOrphan(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepository()
	queue := &fakeQueue{enqueueErr: errors.New("redis down")}
	svc := service.NewJobService(repo, queue)

	_, err := svc.SubmitJob(ctx, service.SubmitJobRequest{Inputs: oneFileInput()})
	if err == nil {
		t.Fatal("expected enqueue error to propagate")
	}
	if len(queue.enqueued) != 3 {
		t.Fatalf("expected 3 enqueue attempts before giving up, got %d", len(queue.enqueued))
	}

	// the created record must be compensated away, not left stuck at start
	jobs, err := repo.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no job after a failed submit, got %d", len(jobs))
	}
}

func TestDeleteJob(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepository()
	svc := service.NewJobService(repo, &fakeQueue{})

	id, err := svc.SubmitJob(ctx, service.SubmitJobRequest{Inputs: oneFileInput()})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.DeleteJob(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetJob(ctx, id); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
