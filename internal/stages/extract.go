package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/stage"
)

// maxLinkBytes caps how much of a linked page is pulled in.
const maxLinkBytes = 2 << 20

// startHandler prepares the per-job working directory and checks every file
// input actually exists before any expensive work begins.
type startHandler struct {
	cfg Config
}

func (h *startHandler) Run(ctx context.Context, job *entity.Job, _ json.RawMessage) (stage.Output, error) {
	dir := workdir(h.cfg.StorageDir, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stage.Output{}, fmt.Errorf("create workdir: %w", err)
	}

	for _, in := range job.Inputs {
		if in.Kind != entity.InputFile {
			continue
		}
		if _, err := os.Stat(inputPath(h.cfg.StorageDir, in.Ref)); err != nil {
			return stage.Output{}, fmt.Errorf("input %s: %w", in.Ref, err)
		}
	}

	artifact, err := json.Marshal(StartArtifact{Workdir: dir})
	if err != nil {
		return stage.Output{}, err
	}
	return stage.Output{Artifact: artifact}, nil
}

// extractHandler pulls raw text out of every input: file refs are read from
// the storage root, link refs are fetched over HTTP.
type extractHandler struct {
	cfg Config
}

func (h *extractHandler) Run(ctx context.Context, job *entity.Job, _ json.RawMessage) (stage.Output, error) {
	docs := make([]Document, 0, len(job.Inputs))

	for i, in := range job.Inputs {
		var (
			text string
			err  error
		)
		switch in.Kind {
		case entity.InputFile:
			text, err = h.readFile(in.Ref)
		case entity.InputLink:
			text, err = h.fetchLink(ctx, in.Ref)
		default:
			err = fmt.Errorf("unknown input kind %q", in.Kind)
		}
		if err != nil {
			return stage.Output{}, fmt.Errorf("extract input %d (%s): %w", i, in.Ref, err)
		}

		docs = append(docs, Document{
			Ref:  in.Ref,
			Main: i == job.MainIndex,
			Text: text,
		})
	}

	artifact, err := json.Marshal(ExtractArtifact{Documents: docs})
	if err != nil {
		return stage.Output{}, err
	}
	return stage.Output{Artifact: artifact}, nil
}

func (h *extractHandler) readFile(ref string) (string, error) {
	b, err := os.ReadFile(inputPath(h.cfg.StorageDir, ref))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *extractHandler) fetchLink(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.cfg.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxLinkBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
