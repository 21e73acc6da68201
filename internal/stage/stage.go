// Package stage defines the contract between the pipeline engine and the
// pluggable per-stage business logic.
package stage

import (
	"context"
	"encoding/json"

	"podcast-pipeline-service/internal/entity"
)

// Output is what a handler hands back to the engine. Artifact becomes the
// input of the next stage; AudioPath and Result are persisted onto the job
// when set (merge and transcript respectively).
type Output struct {
	Artifact  json.RawMessage
	AudioPath string
	Result    *entity.Result
}

// Handler runs the business logic of one stage. It must not touch the queue
// or the job store: it returns an Output or an error and the engine persists
// the outcome. A handler may be re-invoked for the same transition under
// queue redelivery, so side effects on external resources must be safe to
// repeat.
type Handler interface {
	Run(ctx context.Context, job *entity.Job, input json.RawMessage) (Output, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, job *entity.Job, input json.RawMessage) (Output, error)

func (f HandlerFunc) Run(ctx context.Context, job *entity.Job, input json.RawMessage) (Output, error) {
	return f(ctx, job, input)
}

// Registry maps each runnable stage to its handler. It is injected into the
// engine at construction so tests can substitute fakes per stage.
type Registry map[entity.Stage]Handler
