package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/modbisect/internal/bisect"
	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/harness"
)

// status is the body of GET /status.
type status struct {
	bisect.Snapshot
	Boots int `json:"boots"`
}

// statusHandler serves /health and /status for a running search.
func (a *App) statusHandler(progress *bisect.Progress, boots func() int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status{Snapshot: progress.Snapshot(), Boots: boots()}); err != nil {
			a.logger.Debug("Status response not written.", "error", err)
		}
	})
	return mux
}

// startStatusServer serves the search's progress when a status port is
// configured. The returned func shuts the server down.
func (a *App) startStatusServer(ctx context.Context, progress *bisect.Progress, h *harness.Harness) (func(), error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring status server.")
	if a.opts.StatusPort <= 0 {
		logger.Debug("Status server not started: disabled.")
		return func() {}, nil
	}

	addr := fmt.Sprintf(":%d", a.opts.StatusPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("status server: %w", err)
	}
	srv := &http.Server{
		Handler:           a.statusHandler(progress, func() int { return len(h.History()) }),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Status server starting.", "address", fmt.Sprintf("http://localhost%s/status", addr))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly.", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		logger.Debug("Shutting down status server...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Status server shutdown failed.", "error", err)
		}
	}, nil
}
