// Package server exposes the scrape workflow over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/v0xg/chartscrape/internal/chart"
)

const welcome = "Welcome to the Birth Chart API!"

// Fetcher runs one scrape
type Fetcher interface {
	Fetch(ctx context.Context, in chart.Input) (chart.Record, error)
}

// Snapshots reads the last persisted record
type Snapshots interface {
	Load() (chart.Record, error)
}

type response struct {
	Success bool          `json:"success"`
	Data    *chart.Record `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Router builds the HTTP routes
func Router(fetcher Fetcher, snaps Snapshots, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(welcome))
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/birth-chart", func(w http.ResponseWriter, r *http.Request) {
		var in chart.Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, response{Error: "invalid JSON body"})
			return
		}
		if err := in.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, response{Error: err.Error()})
			return
		}

		// A scrape runs to completion even if the client goes away
		rec, err := fetcher.Fetch(context.WithoutCancel(r.Context()), in)
		if err != nil {
			if errors.Is(err, chart.ErrMissingField) {
				writeJSON(w, http.StatusBadRequest, response{Error: err.Error()})
				return
			}
			log.Error("birth chart request failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
			writeJSON(w, http.StatusInternalServerError, response{Error: "scrape failed"})
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Data: &rec})
	})

	r.Get("/api/birth-chart/latest", func(w http.ResponseWriter, _ *http.Request) {
		rec, err := snaps.Load()
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, response{Error: "no chart fetched yet"})
			return
		}
		if err != nil {
			log.Error("load snapshot", "error", err)
			writeJSON(w, http.StatusInternalServerError, response{Error: "snapshot unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Data: &rec})
	})

	return r
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
