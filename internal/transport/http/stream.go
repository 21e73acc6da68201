package httptransport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/repository"
)

var rangeRe = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// StreamAudio godoc
// @Summary Stream the generated chapter audio
// @Description Serves the merged MP3 with byte-range support. Only chapter 1 exists.
// @Tags streaming
// @Produce audio/mpeg
// @Param id path string true "job id (uuid)"
// @Param chapter path int true "chapter index (only 1)"
// @Success 200
// @Success 206
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 416 {object} apiError
// @Router /jobs/{id}/audio/{chapter} [get]
func (h *Handler) StreamAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}
	if chi.URLParam(r, "chapter") != "1" {
		writeErr(w, http.StatusNotFound, "chapter not found")
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

	// precondition: streaming only after the pipeline finished, regardless of
	// whether a file happens to exist on disk
	if j.Stage != entity.StageCompleted {
		writeErr(w, http.StatusBadRequest, "job not completed")
		return
	}
	if j.AudioPath == "" {
		writeErr(w, http.StatusInternalServerError, "completed job has no audio file")
		return
	}

	f, err := os.Open(j.AudioPath)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "audio file unavailable")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "audio file unavailable")
		return
	}
	size := info.Size()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Accept-Ranges", "bytes")

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, f)
		return
	}

	start, end, ok := parseRange(rangeHeader, size)
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		writeErr(w, http.StatusRequestedRangeNotSatisfiable, "invalid range")
		return
	}

	length := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)

	// stream only the requested window; outputs can be tens of megabytes
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return
	}
	_, _ = io.CopyN(w, f, length)
}

// parseRange handles the three header forms: bytes=a-b, bytes=a- and
// bytes=-n. An open end clamps to size-1; a suffix larger than the file
// yields the whole file.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	m := rangeRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, false
	}
	startStr, endStr := m[1], m[2]

	if startStr == "" && endStr == "" {
		return 0, 0, false
	}

	if startStr == "" {
		// suffix form: last n bytes
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		return start, size - 1, size > 0
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start >= size {
		return 0, 0, false
	}

	end = size - 1
	if endStr != "" {
		e, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		if e < start {
			return 0, 0, false
		}
		if e < end {
			end = e
		}
	}
	return start, end, true
}
