// Package server exposes the dead man's switch over HTTP.
//
//	POST /ping            record a heartbeat (alias POST /user/ping)
//	GET  /status          evaluate the switch (alias GET /system/status)
//	GET  /download/{name} fetch a released package
//
// Every response body is JSON except downloads. Checking the status can
// fire the switch, exactly like the poll loop.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/lastwill/internal/clock"
	"github.com/PolarWolf314/lastwill/internal/liveness"
	logger "github.com/PolarWolf314/lastwill/internal/logging"
)

// Switch is the part of the liveness monitor the server drives.
type Switch interface {
	Ping() error
	Check(ctx context.Context) liveness.Result
}

// Options configures the handler.
type Options struct {
	Switch     Switch
	ReleaseDir string
	Clock      clock.Clock
	Logger     logger.Logger
}

// NewHandler returns the HTTP handler with logging and panic recovery.
func NewHandler(opts Options) http.Handler {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	h := &handler{opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ping", h.ping)
	mux.HandleFunc("POST /user/ping", h.ping)
	mux.HandleFunc("GET /status", h.status)
	mux.HandleFunc("GET /system/status", h.status)
	mux.HandleFunc("GET /download/{name}", h.download)

	return LoggingMiddleware(RecoverMiddleware(mux, opts.Logger), opts.Clock, opts.Logger)
}

// NewServer wraps the handler in an http.Server with conservative timeouts.
func NewServer(addr string, opts Options) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewHandler(opts),
		ReadHeaderTimeout: 10 * time.Second,
		// Status checks may run the release protocol, which includes a
		// bounded notification attempt.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  time.Minute,
	}
}

type handler struct {
	opts Options
}

func (h *handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Switch.Ping(); err != nil {
		h.opts.Logger.Errorf("Failed to record heartbeat req_id=%s: %v", RequestID(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  string(liveness.StatusError),
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.opts.Switch.Check(r.Context()))
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "ERROR", "message": "invalid file name"})
		return
	}
	path := filepath.Join(h.opts.ReleaseDir, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "ERROR", "message": "no such release"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "ERROR", "message": "release unavailable"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "ERROR", "message": "no such release"})
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
