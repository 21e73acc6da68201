package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/repository/memory"
	"podcast-pipeline-service/internal/service"
	httptransport "podcast-pipeline-service/internal/transport/http"
)

// ---- fakes & helpers ----

type queueStub struct {
	enqueued []entity.StageMessage
}

func (q *queueStub) Enqueue(ctx context.Context, msg entity.StageMessage) error {
	q.enqueued = append(q.enqueued, msg)
	return nil
}

type env struct {
	repo   *memory.JobRepository
	queue  *queueStub
	router http.Handler
}

func newEnv() *env {
	repo := memory.NewJobRepository()
	queue := &queueStub{}
	svc := service.NewJobService(repo, queue)
	h := httptransport.NewHandler(svc)
	return &env{repo: repo, queue: queue, router: httptransport.Routes(h)}
}

func (e *env) submit(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := e.repo.Create(context.Background(),
		[]entity.InputRef{{Kind: entity.InputFile, Ref: "doc.txt"}}, 0, entity.Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}

// advance walks the job forward through CAS transitions, stopping once its
// stage equals target.
func (e *env) advance(t *testing.T, id uuid.UUID, target entity.Stage) {
	t.Helper()
	ctx := context.Background()
	for {
		j, err := e.repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if j.Stage == target {
			return
		}
		next, ok := j.Stage.Next()
		if !ok {
			t.Fatalf("cannot advance past %s", j.Stage)
		}
		patch := entity.StagePatch{}
		if next == entity.StageTranscript {
			patch.AudioPath = "/tmp/does-not-matter.mp3"
		}
		if next == entity.StageCompleted {
			patch.Result = &entity.Result{
				Chapters:             []entity.Chapter{{Index: 1, Title: "Episode", DurationSeconds: 120}},
				TotalDurationSeconds: 120,
			}
		}
		if ok, err := e.repo.CompareAndSetStage(ctx, id, j.Stage, next, patch); err != nil || !ok {
			t.Fatalf("cas %s->%s: ok=%v err=%v", j.Stage, next, ok, err)
		}
	}
}

func (e *env) getStatus(t *testing.T, id uuid.UUID) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/jobs/"+id.String(), nil)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	var body map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid json: %v, body=%s", err, rr.Body.String())
		}
	}
	return rr.Code, body
}

// ---- tests ----

func TestHTTP_SubmitJob_201(t *testing.T) {
	e := newEnv()

	body := `{"inputs":[{"kind":"file","ref":"lecture.txt"}],"main_index":0,"options":{"voice":"nova","duration_minutes":5}}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	e.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["status"] != "processing" || resp["stage"] != "start" || resp["progress"] != float64(0) {
		t.Fatalf("unexpected response: %v", resp)
	}
	if _, err := uuid.Parse(resp["job_id"].(string)); err != nil {
		t.Fatalf("job_id is not a uuid: %v", resp["job_id"])
	}

	if len(e.queue.enqueued) != 1 || e.queue.enqueued[0].Stage != entity.StageStart {
		t.Fatalf("expected one start message, got %+v", e.queue.enqueued)
	}
}

func TestHTTP_SubmitJob_400_OnValidation(t *testing.T) {
	e := newEnv()

	cases := []string{
		`{"inputs":[]}`,
		`{"inputs":[{"kind":"file","ref":"a"},{"kind":"file","ref":"b"},{"kind":"file","ref":"c"},{"kind":"file","ref":"d"},{"kind":"file","ref":"e"}]}`,
		`{"inputs":[{"kind":"file","ref":"a"}],"main_index":3}`,
		`{"inputs":[{"kind":"tape","ref":"a"}]}`,
		`not json`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		e.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rr.Code)
		}
	}
	if len(e.queue.enqueued) != 0 {
		t.Fatalf("invalid submissions must not enqueue, got %d", len(e.queue.enqueued))
	}
}

func TestHTTP_GetStatus_ProgressTable(t *testing.T) {
	e := newEnv()
	id := e.submit(t)

	table := []struct {
		stage    entity.Stage
		progress float64
		status   string
	}{
		{entity.StageStart, 0, "processing"},
		{entity.StageExtract, 30, "processing"},
		{entity.StageCombine, 40, "processing"},
		{entity.StageScript, 60, "processing"},
		{entity.StageAudio, 80, "processing"},
		{entity.StageMerge, 90, "processing"},
		{entity.StageTranscript, 100, "processing"},
		{entity.StageCompleted, 100, "completed"},
	}

	for _, tc := range table {
		e.advance(t, id, tc.stage)
		code, body := e.getStatus(t, id)
		if code != http.StatusOK {
			t.Fatalf("stage %s: expected 200, got %d", tc.stage, code)
		}
		if body["progress"] != tc.progress {
			t.Fatalf("stage %s: expected progress=%v, got %v", tc.stage, tc.progress, body["progress"])
		}
		if body["status"] != tc.status {
			t.Fatalf("stage %s: expected status=%s, got %v", tc.stage, tc.status, body["status"])
		}
		if body["current_step"] != string(tc.stage) {
			t.Fatalf("stage %s: expected current_step=%s, got %v", tc.stage, tc.stage, body["current_step"])
		}
		if tc.stage != entity.StageCompleted && body["result"] != nil {
			t.Fatalf("stage %s: result must be null, got %v", tc.stage, body["result"])
		}
	}

	_, body := e.getStatus(t, id)
	result, ok := body["result"].(map[string]any)
	if !ok {
		t.Fatalf("completed status must carry a result, got %v", body["result"])
	}
	if result["total_duration_seconds"] != float64(120) {
		t.Fatalf("expected total_duration_seconds=120, got %v", result["total_duration_seconds"])
	}
	if body["error"] != nil {
		t.Fatalf("completed job must have null error, got %v", body["error"])
	}
}

func TestHTTP_GetStatus_Failed(t *testing.T) {
	e := newEnv()
	id := e.submit(t)

	cause := "script generation failed"
	if ok, err := e.repo.CompareAndSetStage(context.Background(), id,
		entity.StageStart, entity.StageFailed, entity.StagePatch{Error: &cause}); err != nil || !ok {
		t.Fatalf("cas: ok=%v err=%v", ok, err)
	}

	code, body := e.getStatus(t, id)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "failed" || body["progress"] != float64(-1) {
		t.Fatalf("expected failed/-1, got %v/%v", body["status"], body["progress"])
	}
	if body["error"] != cause {
		t.Fatalf("expected error %q, got %v", cause, body["error"])
	}
	if body["result"] != nil {
		t.Fatalf("failed job must have null result, got %v", body["result"])
	}
}

func TestHTTP_GetStatus_404(t *testing.T) {
	e := newEnv()
	code, _ := e.getStatus(t, uuid.New())
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestHTTP_ListJobs(t *testing.T) {
	e := newEnv()
	a := e.submit(t)
	b := e.submit(t)
	e.advance(t, b, entity.StageExtract)

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		Jobs []struct {
			JobID    string `json:"job_id"`
			Progress int    `json:"progress"`
		} `json:"jobs"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 2 || len(resp.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %+v", resp)
	}

	progressByID := map[string]int{}
	for _, j := range resp.Jobs {
		progressByID[j.JobID] = j.Progress
	}
	if progressByID[a.String()] != 0 || progressByID[b.String()] != 30 {
		t.Fatalf("unexpected progress snapshot: %v", progressByID)
	}
}

func TestHTTP_DeleteJob(t *testing.T) {
	e := newEnv()
	id := e.submit(t)

	req := httptest.NewRequest(http.MethodDelete, "/jobs/"+id.String(), nil)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	code, _ := e.getStatus(t, id)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", code)
	}

	rr2 := httptest.NewRecorder()
	e.router.ServeHTTP(rr2, httptest.NewRequest(http.MethodDelete, "/jobs/"+id.String(), nil))
	if rr2.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on double delete, got %d", rr2.Code)
	}
}
