package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"podcast-pipeline-service/internal/entity"
)

func newJob(t *testing.T, r *JobRepository) uuid.UUID {
	t.Helper()
	id, err := r.Create(context.Background(),
		[]entity.InputRef{{Kind: entity.InputFile, Ref: "doc.txt"}}, 0, entity.Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}

func TestCreateAndGet(t *testing.T) {
	r := NewJobRepository()
	id := newJob(t, r)

	j, err := r.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if j.Stage != entity.StageStart {
		t.Fatalf("expected stage=start, got %s", j.Stage)
	}
	if j.Progress() != 0 {
		t.Fatalf("expected progress=0, got %d", j.Progress())
	}
}

func TestGet_NotFound(t *testing.T) {
	r := NewJobRepository()
	if _, err := r.GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompareAndSetStage_AdvancesOnce(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()
	id := newJob(t, r)

	ok, err := r.CompareAndSetStage(ctx, id, entity.StageStart, entity.StageExtract, entity.StagePatch{
		Artifact: json.RawMessage(`{"ready":true}`),
	})
	if err != nil || !ok {
		t.Fatalf("expected first CAS to win, ok=%v err=%v", ok, err)
	}

	// second writer with the stale expectation must lose
	ok, err = r.CompareAndSetStage(ctx, id, entity.StageStart, entity.StageExtract, entity.StagePatch{})
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if ok {
		t.Fatal("stale CAS must not win")
	}

	j, _ := r.GetByID(ctx, id)
	if j.Stage != entity.StageExtract {
		t.Fatalf("expected stage=extract, got %s", j.Stage)
	}
	if string(j.Artifact) != `{"ready":true}` {
		t.Fatalf("artifact not persisted: %s", j.Artifact)
	}
}

func TestCompareAndSetStage_PatchFields(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()
	id := newJob(t, r)

	errText := "boom"
	ok, err := r.CompareAndSetStage(ctx, id, entity.StageStart, entity.StageFailed, entity.StagePatch{
		Error: &errText,
	})
	if err != nil || !ok {
		t.Fatalf("cas failed: ok=%v err=%v", ok, err)
	}

	j, _ := r.GetByID(ctx, id)
	if j.Stage != entity.StageFailed || j.Error == nil || *j.Error != "boom" {
		t.Fatalf("failed state not persisted: %+v", j)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()
	id := newJob(t, r)

	if err := r.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := r.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()
	id := newJob(t, r)

	j, _ := r.GetByID(ctx, id)
	j.Stage = entity.StageFailed
	j.Inputs[0].Ref = "mutated"

	fresh, _ := r.GetByID(ctx, id)
	if fresh.Stage != entity.StageStart || fresh.Inputs[0].Ref != "doc.txt" {
		t.Fatal("GetByID must return an isolated snapshot")
	}
}
