package httptransport

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// responseRecorder captures the status code and body size for the access log.
type responseRecorder struct {
	http.ResponseWriter
	code    int
	written int
}

func (rec *responseRecorder) WriteHeader(code int) {
	if rec.code == 0 {
		rec.code = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *responseRecorder) Write(b []byte) (int, error) {
	if rec.code == 0 {
		rec.code = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.written += n
	return n, err
}

// RequestLogger emits one access-log line per request once the handler chain
// returns, tagged with the chi request id.
func RequestLogger(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(rec, r)

		log.Printf("[http] req_id=%s %s %s status=%d bytes=%d took=%s",
			middleware.GetReqID(r.Context()), r.Method, r.URL.Path,
			rec.code, rec.written, time.Since(start).Round(time.Millisecond))
	}
	return http.HandlerFunc(fn)
}
