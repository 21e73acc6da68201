package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/stage"
)

// bytesPerSecond is the fixed output bitrate (32 kbit/s) shared by the
// synthesizer and the merge duration math.
const bytesPerSecond = 4000

// Synthesizer renders one script segment to audio bytes. The default local
// implementation stands in for the TTS vendor call.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice, text string) ([]byte, error)
}

type localSynthesizer struct{}

func NewLocalSynthesizer() Synthesizer {
	return &localSynthesizer{}
}

// Synthesize emits fixed-bitrate frames sized by the spoken length of the
// text, so downstream duration math behaves like real audio would.
func (s *localSynthesizer) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return nil, fmt.Errorf("empty segment text")
	}
	seconds := float64(words) / (wordsPerMinute / 60.0)
	n := int(seconds * bytesPerSecond)
	if n < bytesPerSecond {
		n = bytesPerSecond
	}

	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return buf, nil
}

// audioHandler renders one audio file per script segment. Segment files are
// written under the job workdir with deterministic names, so a re-invoked
// handler overwrites its own previous output instead of duplicating it.
type audioHandler struct {
	cfg Config
}

func (h *audioHandler) Run(ctx context.Context, job *entity.Job, input json.RawMessage) (stage.Output, error) {
	var script ScriptArtifact
	if err := json.Unmarshal(input, &script); err != nil {
		return stage.Output{}, fmt.Errorf("decode script artifact: %w", err)
	}
	if len(script.Segments) == 0 {
		return stage.Output{}, fmt.Errorf("script has no segments")
	}

	dir := workdir(h.cfg.StorageDir, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stage.Output{}, err
	}

	paths := make([]string, 0, len(script.Segments))
	for i, seg := range script.Segments {
		b, err := h.cfg.Synth.Synthesize(ctx, job.Options.Voice, seg.Text)
		if err != nil {
			return stage.Output{}, fmt.Errorf("synthesize segment %d: %w", i, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("seg_%03d.mp3", i))
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return stage.Output{}, err
		}
		paths = append(paths, path)
	}

	artifact, err := json.Marshal(AudioArtifact{
		Title:        script.Title,
		Segments:     script.Segments,
		SegmentPaths: paths,
	})
	if err != nil {
		return stage.Output{}, err
	}
	return stage.Output{Artifact: artifact}, nil
}

// mergeHandler concatenates the segment files into the final chapter file.
// The output is written once and is read-only afterwards; the streaming
// server relies on that.
type mergeHandler struct {
	cfg Config
}

func (h *mergeHandler) Run(ctx context.Context, job *entity.Job, input json.RawMessage) (stage.Output, error) {
	var audio AudioArtifact
	if err := json.Unmarshal(input, &audio); err != nil {
		return stage.Output{}, fmt.Errorf("decode audio artifact: %w", err)
	}
	if len(audio.SegmentPaths) == 0 {
		return stage.Output{}, fmt.Errorf("no segment files to merge")
	}

	dir := workdir(h.cfg.StorageDir, job.ID)
	outPath := filepath.Join(dir, "audio_1.mp3")

	// write to a temp name first so a crash never leaves a half-written
	// file under the final path
	tmp, err := os.CreateTemp(dir, "merge-*.tmp")
	if err != nil {
		return stage.Output{}, err
	}
	defer os.Remove(tmp.Name())

	var total int64
	for _, p := range audio.SegmentPaths {
		n, err := appendFile(tmp, p)
		if err != nil {
			tmp.Close()
			return stage.Output{}, fmt.Errorf("merge %s: %w", p, err)
		}
		total += n
	}
	if err := tmp.Close(); err != nil {
		return stage.Output{}, err
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return stage.Output{}, err
	}

	duration := int(total / bytesPerSecond)
	if duration < 1 {
		duration = 1
	}

	artifact, err := json.Marshal(MergeArtifact{
		Title:           audio.Title,
		Segments:        audio.Segments,
		AudioPath:       outPath,
		DurationSeconds: duration,
	})
	if err != nil {
		return stage.Output{}, err
	}
	return stage.Output{Artifact: artifact, AudioPath: outPath}, nil
}

func appendFile(dst io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(dst, f)
}
