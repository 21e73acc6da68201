// Package stages holds the default stage handlers: a local generation
// pipeline over a storage directory. Extraction, script writing and synthesis
// stand in for the external AI vendor calls; each handler keeps the contract
// the engine expects and can be swapped out per stage.
package stages

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/stage"
)

type Config struct {
	// StorageDir is the root for uploaded inputs and generated output.
	StorageDir string
	// Client fetches link inputs; defaults to a 30s-timeout client.
	Client *http.Client
	// Synth renders script segments to audio; defaults to the local renderer.
	Synth Synthesizer
}

// Registry wires the default handler for every runnable stage.
func Registry(cfg Config) stage.Registry {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Synth == nil {
		cfg.Synth = NewLocalSynthesizer()
	}

	return stage.Registry{
		entity.StageStart:      &startHandler{cfg: cfg},
		entity.StageExtract:    &extractHandler{cfg: cfg},
		entity.StageCombine:    &combineHandler{},
		entity.StageScript:     &scriptHandler{},
		entity.StageAudio:      &audioHandler{cfg: cfg},
		entity.StageMerge:      &mergeHandler{cfg: cfg},
		entity.StageTranscript: &transcriptHandler{cfg: cfg},
	}
}

// workdir is the per-job output directory.
func workdir(storageDir string, id uuid.UUID) string {
	return filepath.Join(storageDir, id.String())
}

// inputPath resolves a file ref against the storage root.
func inputPath(storageDir, ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(storageDir, ref)
}
