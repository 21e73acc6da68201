package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/stage"
)

// transcriptHandler writes the speaker-labelled transcript next to the merged
// audio and produces the final job result.
type transcriptHandler struct {
	cfg Config
}

func (h *transcriptHandler) Run(ctx context.Context, job *entity.Job, input json.RawMessage) (stage.Output, error) {
	var merged MergeArtifact
	if err := json.Unmarshal(input, &merged); err != nil {
		return stage.Output{}, fmt.Errorf("decode merge artifact: %w", err)
	}

	var b strings.Builder
	b.WriteString(merged.Title)
	b.WriteString("\n\n")
	for _, seg := range merged.Segments {
		fmt.Fprintf(&b, "[%s] %s\n", seg.Speaker, seg.Text)
	}

	dir := workdir(h.cfg.StorageDir, job.ID)
	path := filepath.Join(dir, "transcript.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return stage.Output{}, fmt.Errorf("write transcript: %w", err)
	}

	title := merged.Title
	if title == "" {
		title = "Generated podcast"
	}

	return stage.Output{
		Result: &entity.Result{
			Chapters: []entity.Chapter{
				{Index: 1, Title: title, DurationSeconds: merged.DurationSeconds},
			},
			TotalDurationSeconds: merged.DurationSeconds,
		},
	}, nil
}
