package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stage is one step of the fixed generation pipeline.
type Stage string

const (
	StageStart      Stage = "start"
	StageExtract    Stage = "extract"
	StageCombine    Stage = "combine"
	StageScript     Stage = "script"
	StageAudio      Stage = "audio"
	StageMerge      Stage = "merge"
	StageTranscript Stage = "transcript"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// stageOrder is the only legal forward path. failed is reachable from any
// non-terminal stage and is not part of the order.
var stageOrder = []Stage{
	StageStart,
	StageExtract,
	StageCombine,
	StageScript,
	StageAudio,
	StageMerge,
	StageTranscript,
	StageCompleted,
}

// Index returns the position of s in the pipeline order, or -1 for failed
// and unknown values.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage after s in the pipeline order.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i >= len(stageOrder)-1 {
		return "", false
	}
	return stageOrder[i+1], true
}

func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

func (s Stage) Valid() bool {
	return s == StageFailed || s.Index() >= 0
}

// Progress maps a stage to its fixed progress percentage.
func (s Stage) Progress() int {
	switch s {
	case StageStart:
		return 0
	case StageExtract:
		return 30
	case StageCombine:
		return 40
	case StageScript:
		return 60
	case StageAudio:
		return 80
	case StageMerge:
		return 90
	case StageTranscript, StageCompleted:
		return 100
	case StageFailed:
		return -1
	default:
		return 0
	}
}

// Status collapses a stage into the three externally visible states.
func (s Stage) Status() string {
	switch s {
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return "processing"
	}
}

type InputKind string

const (
	InputFile InputKind = "file"
	InputLink InputKind = "link"
)

// InputRef points at one uploaded file or submitted link.
type InputRef struct {
	Kind InputKind `json:"kind"`
	Ref  string    `json:"ref"`
}

// Options are the user-chosen generation knobs, opaque to the engine and
// threaded as-is into the stage handlers.
type Options struct {
	Voice           string `json:"voice,omitempty"`
	Style           string `json:"style,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Difficulty      string `json:"difficulty,omitempty"`
	Prompt          string `json:"prompt,omitempty"`
}

type Chapter struct {
	Index           int    `json:"index"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Result is populated once the job reaches completed.
type Result struct {
	Chapters             []Chapter `json:"chapters"`
	TotalDurationSeconds int       `json:"total_duration_seconds"`
}

// Job is one submitted generation run tracked end-to-end by the engine.
type Job struct {
	ID        uuid.UUID       `json:"id"`
	Stage     Stage           `json:"stage"`
	Inputs    []InputRef      `json:"inputs"`
	MainIndex int             `json:"main_index"`
	Options   Options         `json:"options"`
	Artifact  json.RawMessage `json:"artifact,omitempty"`
	AudioPath string          `json:"audio_path,omitempty"`
	Result    *Result         `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (j *Job) Progress() int {
	return j.Stage.Progress()
}

// StageMessage is the queue payload. It carries no business data: the worker
// re-reads the job from the store, so the queue stays a trigger, not a data
// channel.
type StageMessage struct {
	JobID uuid.UUID `json:"job_id"`
	Stage Stage     `json:"stage"`
}

// StagePatch is the field set applied together with a stage transition.
// Nil/empty fields are left untouched by the store.
type StagePatch struct {
	Artifact  json.RawMessage
	AudioPath string
	Result    *Result
	Error     *string
}
