package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/stage"
)

// combineHandler merges the extracted documents into one source text, main
// document first.
type combineHandler struct{}

func (h *combineHandler) Run(ctx context.Context, job *entity.Job, input json.RawMessage) (stage.Output, error) {
	var extracted ExtractArtifact
	if err := json.Unmarshal(input, &extracted); err != nil {
		return stage.Output{}, fmt.Errorf("decode extract artifact: %w", err)
	}
	if len(extracted.Documents) == 0 {
		return stage.Output{}, fmt.Errorf("no documents extracted")
	}

	var title string
	parts := make([]string, 0, len(extracted.Documents))
	for _, doc := range extracted.Documents {
		if doc.Main {
			title = titleFromRef(doc.Ref)
			parts = append([]string{doc.Text}, parts...)
			continue
		}
		parts = append(parts, doc.Text)
	}
	if title == "" {
		title = titleFromRef(extracted.Documents[0].Ref)
	}

	artifact, err := json.Marshal(CombineArtifact{
		Title: title,
		Text:  strings.Join(parts, "\n\n---\n\n"),
	})
	if err != nil {
		return stage.Output{}, err
	}
	return stage.Output{Artifact: artifact}, nil
}

func titleFromRef(ref string) string {
	base := filepath.Base(ref)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	if base == "" || base == "." {
		return "Generated podcast"
	}
	return base
}

// wordsPerMinute is the pacing assumption for sizing the script against the
// requested episode duration.
const wordsPerMinute = 150

// segmentWords is roughly one conversational turn.
const segmentWords = 40

// scriptHandler turns the combined text into alternating host/guest turns
// sized by the requested duration.
type scriptHandler struct{}

func (h *scriptHandler) Run(ctx context.Context, job *entity.Job, input json.RawMessage) (stage.Output, error) {
	var combined CombineArtifact
	if err := json.Unmarshal(input, &combined); err != nil {
		return stage.Output{}, fmt.Errorf("decode combine artifact: %w", err)
	}

	words := strings.Fields(combined.Text)
	if len(words) == 0 {
		return stage.Output{}, fmt.Errorf("combined text is empty")
	}

	minutes := job.Options.DurationMinutes
	if minutes <= 0 {
		minutes = 5
	}
	target := minutes * wordsPerMinute
	if len(words) > target {
		words = words[:target]
	}

	var segments []Segment
	speakers := [2]string{"host", "guest"}
	for i := 0; len(words) > 0; i++ {
		n := segmentWords
		if n > len(words) {
			n = len(words)
		}
		segments = append(segments, Segment{
			Speaker: speakers[i%2],
			Text:    strings.Join(words[:n], " "),
		})
		words = words[n:]
	}

	artifact, err := json.Marshal(ScriptArtifact{
		Title:    combined.Title,
		Segments: segments,
	})
	if err != nil {
		return stage.Output{}, err
	}
	return stage.Output{Artifact: artifact}, nil
}
