package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contact-extractor/internal/extract"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/pipeline"
	"github.com/sells-group/contact-extractor/internal/reconcile"
)

// Request body limits.
const (
	maxDocumentBytes = 32 << 20
	maxJSONBytes     = 8 << 20
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the contact reconciliation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		rs, err := loadRuleset(cfg)
		if err != nil {
			return err
		}

		// The extractor is optional: reconcile and dedupe work without it.
		ex, err := extract.NewExtractor(cfg.Extractor)
		if err != nil {
			zap.L().Warn("extractor unavailable, /v1/documents disabled", zap.Error(err))
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(pipeline.New(ex, rs, nil), ex != nil),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	},
}

type api struct {
	p          *pipeline.Pipeline
	canExtract bool
}

type reconcileRequest struct {
	Fragments []model.Fragment `json:"fragments"`
}

type reconcileResponse struct {
	model.DocumentResult
	Stats pipeline.Stats `json:"stats"`
}

type dedupeRequest struct {
	Records []model.CleanRecord `json:"records"`
}

type dedupeResponse struct {
	Records           []model.CleanRecord `json:"records"`
	DuplicatesRemoved int                 `json:"duplicates_removed"`
}

// newRouter wires the HTTP API. canExtract reports whether p was built with
// a working extractor.
func newRouter(p *pipeline.Pipeline, canExtract bool) http.Handler {
	a := &api{p: p, canExtract: canExtract}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/reconcile", a.handleReconcile)
		r.Post("/dedupe", a.handleDedupe)
		r.Post("/documents", a.handleDocument)
	})
	return r
}

func (a *api) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, stats := a.p.Reconcile(req.Fragments)
	writeJSON(w, http.StatusOK, reconcileResponse{DocumentResult: result, Stats: stats})
}

func (a *api) handleDedupe(w http.ResponseWriter, r *http.Request) {
	var req dedupeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deduped := reconcile.Dedupe(req.Records)
	writeJSON(w, http.StatusOK, dedupeResponse{
		Records:           deduped,
		DuplicatesRemoved: len(req.Records) - len(deduped),
	})
}

func (a *api) handleDocument(w http.ResponseWriter, r *http.Request) {
	if !a.canExtract {
		writeError(w, http.StatusServiceUnavailable, "extractor not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "document too large")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty document")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.pdf"
	}
	mime := r.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/pdf"
	}

	result, err := a.p.ProcessDocument(r.Context(), model.Document{Name: name, MimeType: mime, Content: body})
	if err != nil {
		zap.L().Error("document extraction failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("name", name),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "extraction failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

