package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/repository"
	"podcast-pipeline-service/internal/service"
)

type Handler struct {
	jobSvc *service.JobService
}

func NewHandler(jobSvc *service.JobService) *Handler {
	return &Handler{jobSvc: jobSvc}
}

type inputDTO struct {
	Kind string `json:"kind"` // "file" | "link"
	Ref  string `json:"ref"`
}

type optionsDTO struct {
	Voice           string `json:"voice"`
	Style           string `json:"style"`
	DurationMinutes int    `json:"duration_minutes"`
	Difficulty      string `json:"difficulty"`
	Prompt          string `json:"prompt"`
}

type submitJobDTO struct {
	Inputs    []inputDTO `json:"inputs"`
	MainIndex int        `json:"main_index"`
	Options   optionsDTO `json:"options"`
}

type submitJobResp struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
}

type statusResp struct {
	JobID       string         `json:"job_id"`
	Status      string         `json:"status"`
	Progress    int            `json:"progress"`
	CurrentStep string         `json:"current_step"`
	Result      *entity.Result `json:"result"`
	Error       *string        `json:"error"`
	CreatedAt   string         `json:"created_at"`
}

type listItemResp struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	CreatedAt string `json:"created_at"`
}

type listResp struct {
	Jobs  []listItemResp `json:"jobs"`
	Total int            `json:"total"`
}

// SubmitJob godoc
// @Summary Submit a generation job
// @Description Persists the job at stage=start and enqueues the first pipeline message.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body submitJobDTO true "content references (max 4), main index, generation options"
// @Success 201 {object} submitJobResp
// @Failure 400 {object} apiError
// @Failure 500 {object} apiError
// @Router /jobs [post]
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var dto submitJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	inputs := make([]entity.InputRef, 0, len(dto.Inputs))
	for _, in := range dto.Inputs {
		inputs = append(inputs, entity.InputRef{Kind: entity.InputKind(in.Kind), Ref: in.Ref})
	}

	id, err := h.jobSvc.SubmitJob(r.Context(), service.SubmitJobRequest{
		Inputs:    inputs,
		MainIndex: dto.MainIndex,
		Options: entity.Options{
			Voice:           dto.Options.Voice,
			Style:           dto.Options.Style,
			DurationMinutes: dto.Options.DurationMinutes,
			Difficulty:      dto.Options.Difficulty,
			Prompt:          dto.Options.Prompt,
		},
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidSubmission) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	writeJSON(w, http.StatusCreated, submitJobResp{
		JobID:    id.String(),
		Status:   "processing",
		Stage:    string(entity.StageStart),
		Progress: 0,
	})
}

// GetJobStatus godoc
// @Summary Get job status
// @Description Progress is a fixed function of the pipeline stage; result is only present once completed.
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} statusResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /jobs/{id} [get]
func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	j, err := h.jobSvc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	writeJSON(w, http.StatusOK, statusResp{
		JobID:       j.ID.String(),
		Status:      j.Stage.Status(),
		Progress:    j.Progress(),
		CurrentStep: string(j.Stage),
		Result:      j.Result,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt.Format(time.RFC3339),
	})
}

// ListJobs godoc
// @Summary List jobs
// @Tags jobs
// @Produce json
// @Param limit query int false "max jobs to return (default 50)"
// @Param offset query int false "jobs to skip"
// @Success 200 {object} listResp
// @Failure 500 {object} apiError
// @Router /jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	jobs, err := h.jobSvc.ListJobs(r.Context(), limit, offset)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	resp := listResp{Jobs: make([]listItemResp, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, listItemResp{
			JobID:     j.ID.String(),
			Status:    j.Stage.Status(),
			Progress:  j.Progress(),
			CreatedAt: j.CreatedAt.Format(time.RFC3339),
		})
	}
	resp.Total = len(resp.Jobs)

	writeJSON(w, http.StatusOK, resp)
}

// DeleteJob godoc
// @Summary Delete a job
// @Description Cancellation path: in-flight stage messages for the job are dropped by the worker.
// @Tags jobs
// @Param id path string true "job id (uuid)"
// @Success 204
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /jobs/{id} [delete]
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	if err := h.jobSvc.DeleteJob(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
