package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/PolarWolf314/lastwill/internal/clock"
	"github.com/PolarWolf314/lastwill/internal/liveness"
	logger "github.com/PolarWolf314/lastwill/internal/logging"
)

type requestIDKey struct{}

// RequestID returns the id LoggingMiddleware assigned to the request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	reqID  string
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
		w.Header().Set("X-Request-Id", w.reqID)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

// LoggingMiddleware logs one line per request and tags the response with
// an X-Request-Id header.
func LoggingMiddleware(next http.Handler, clk clock.Clock, log logger.Logger) http.Handler {
	if clk == nil {
		clk = clock.Real()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := clk.Now()
		reqID := uuid.NewString()
		rw := &statusRecorder{ResponseWriter: w, reqID: reqID}
		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID)))
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		log.Infof("method=%s path=%s status=%d dur_ms=%d req_id=%s",
			r.Method, r.URL.Path, rw.status, clk.Now().Sub(start).Milliseconds(), reqID)
	})
}

// RecoverMiddleware turns a panic into a structured ERROR response.
func RecoverMiddleware(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Errorf("panic serving %s %s req_id=%s: %v", r.Method, r.URL.Path, RequestID(r.Context()), v)
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"status":  string(liveness.StatusError),
					"message": "internal error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
