// Package server exposes fusion, parsing and corpus export over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/export"
	"github.com/gaurav-prasanna/structmark/core/fuse"
	"github.com/gaurav-prasanna/structmark/core/markup"
	"github.com/gaurav-prasanna/structmark/core/metrics"
	"github.com/gaurav-prasanna/structmark/core/parse"
	"github.com/gaurav-prasanna/structmark/core/render"
	"github.com/gaurav-prasanna/structmark/internal/logging"
)

const defaultMaxBodyBytes = 10 << 20

// Options configures a Server.
type Options struct {
	Table        *markup.Table
	LineBreak    string
	MaxTokens    int
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the pipeline stages that need no source file.
type Server struct {
	opts     Options
	fuser    *fuse.Engine
	parser   *parse.Parser
	exporter *export.Exporter
	logger   *slog.Logger
}

// New creates a Server. A nil logger selects slog.Default().
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.LineBreak == "" {
		opts.LineBreak = parse.DefaultLineBreak
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		opts:     opts,
		fuser:    fuse.New(opts.Table, logger),
		parser:   parse.New(opts.LineBreak),
		exporter: export.New(export.Options{Table: opts.Table, MaxTokens: opts.MaxTokens}),
		logger:   logger,
	}
}

// Handler returns the routes wrapped in request-id and access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /v1/fuse", s.handleFuse)
	mux.HandleFunc("POST /v1/parse", s.handleParse)
	mux.HandleFunc("POST /v1/export", s.handleExport)
	mux.HandleFunc("POST /v1/render/{format}", s.handleRender)
	return logging.Middleware(s.logger, mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type fuseRequest struct {
	Text  string      `json:"text"`
	Spans []core.Span `json:"spans"`
}

type fuseStats struct {
	Applied     int `json:"applied"`
	PassThrough int `json:"pass_through"`
	Dropped     int `json:"dropped"`
}

type fuseResponse struct {
	Text  string    `json:"text"`
	Stats fuseStats `json:"stats"`
}

type textRequest struct {
	Text string `json:"text"`
}

type exportRequest struct {
	Text    string        `json:"text"`
	Records []core.Record `json:"records"`
}

type recordsResponse struct {
	Records []core.Record `json:"records"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFuse(w http.ResponseWriter, r *http.Request) {
	var req fuseRequest
	if !s.decode(w, r, &req) {
		return
	}
	start := time.Now()
	text, st := s.fuser.FuseStats(req.Text, req.Spans)
	metrics.Stage("fuse", start)
	metrics.Spans(st.Applied, st.PassThrough, st.Dropped)

	respond(w, http.StatusOK, fuseResponse{
		Text:  text,
		Stats: fuseStats{Applied: st.Applied, PassThrough: st.PassThrough, Dropped: st.Dropped},
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	respond(w, http.StatusOK, recordsResponse{Records: s.parse(req.Text)})
}

// handleExport accepts labeled Markdown or an already parsed record stream
// and answers with the corpus as plain text.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !s.decode(w, r, &req) {
		return
	}
	records := req.Records
	if records == nil {
		records = s.parse(req.Text)
	}

	start := time.Now()
	lines := s.exporter.Export(records)
	metrics.Stage("export", start)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := export.WriteTo(w, lines); err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("writing corpus response", "error", err)
	}
}

// handleRender parses labeled Markdown and renders it in the named format.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	renderer, err := render.ByName(r.PathValue("format"), render.Options{LineBreak: s.opts.LineBreak})
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown_format", err.Error())
		return
	}
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	data, err := renderer.Render(s.parse(req.Text), core.Meta{Source: "request"})
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("render failed", "error", err)
		respondError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType(renderer.Extension()))
	w.Write(data)
}

func (s *Server) parse(text string) []core.Record {
	start := time.Now()
	records := s.parser.Parse(text)
	metrics.Stage("parse", start)
	metrics.Records(records)
	return records
}

// decode reads a JSON body into v, answering 400 or 413 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func contentType(ext string) string {
	switch ext {
	case ".json":
		return "application/json"
	case ".html":
		return "text/html; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	default:
		return "text/markdown; charset=utf-8"
	}
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]apiError{"error": {Code: code, Message: message}})
}
