// Package server exposes a session Controller over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/mesh-intelligence/bringtolife/internal/session"
	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// DefaultMaxUpload bounds multipart and import request bodies.
const DefaultMaxUpload = 20 << 20

// Server serves the creation API. One generation runs at a time; an
// overlapping request is rejected with 409.
type Server struct {
	ctrl      *session.Controller
	gate      *semaphore.Weighted
	logger    *zap.Logger
	maxUpload int64
	timeout   time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxUpload sets the request body limit in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// WithGenerateTimeout bounds each generation call. Zero means no bound
// beyond the request context.
func WithGenerateTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a Server over ctrl.
func New(ctrl *session.Controller, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		gate:      semaphore.NewWeighted(1),
		logger:    zap.NewNop(),
		maxUpload: DefaultMaxUpload,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP registers the API routes on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Post("/api/generate", s.handleGenerate)
	r.Post("/api/import", s.handleImport)
	r.Post("/api/select/{id}", s.handleSelect)
	r.Post("/api/reset", s.handleReset)
	r.Get("/api/creations", s.handleList)
	r.Get("/api/creations/{id}/export", s.handleExport)
	r.Delete("/api/creations/{id}", s.handleDelete)
	r.Get("/api/active", s.handleActive)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeStatus(w, http.StatusBadRequest, "BadRequest", "could not read the form")
		return
	}

	mode, err := types.ParseMode(r.FormValue("mode"))
	if err != nil {
		writeError(w, err)
		return
	}

	in := session.GenerateInput{
		Credential: r.FormValue("key"),
		Prompt:     r.FormValue("prompt"),
		Mode:       mode,
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		data, rerr := io.ReadAll(file)
		file.Close()
		if rerr != nil {
			writeStatus(w, http.StatusBadRequest, "BadRequest", "could not read the attached file")
			return
		}
		in.File = session.NewAttachment(header.Filename, header.Header.Get("Content-Type"), data)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		writeStatus(w, http.StatusBadRequest, "BadRequest", "could not read the attached file")
		return
	}

	if !s.gate.TryAcquire(1) {
		writeStatus(w, http.StatusConflict, "Busy", "A generation is already running. Wait for it to finish.")
		return
	}
	defer s.gate.Release(1)

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	created, err := s.ctrl.StartGeneration(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		writeStatus(w, http.StatusRequestEntityTooLarge, "BadRequest", "the document is too large")
		return
	}
	created, err := s.ctrl.ImportCreation(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.SelectCreation(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// summary is one history row; html and image are fetched separately.
type summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	HasImage  bool   `json:"hasImage"`
	Active    bool   `json:"active"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	activeID := ""
	if a := s.ctrl.Active(); a != nil {
		activeID = a.ID
	}
	history := s.ctrl.History()
	out := make([]summary, len(history))
	for i, c := range history {
		out[i] = summary{
			ID:        c.ID,
			Name:      c.Name,
			Timestamp: c.Timestamp.UTC().Format(types.TimestampLayout),
			HasImage:  c.OriginalImage != "",
			Active:    c.ID == activeID,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.ctrl.ExportCreation(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": id + ".json"}))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.DeleteCreation(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	active := s.ctrl.Active()
	if active == nil {
		writeStatus(w, http.StatusNotFound, types.KindNotFound.String(), "No creation is active.")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, active.HTML)
}

// kindStatus maps an error kind to an HTTP status.
var kindStatus = map[types.Kind]int{
	types.KindMissingCredential:    http.StatusUnauthorized,
	types.KindInvalidCredential:    http.StatusUnauthorized,
	types.KindQuotaExceeded:        http.StatusTooManyRequests,
	types.KindNetworkFailure:       http.StatusBadGateway,
	types.KindMalformedAttachment:  http.StatusBadRequest,
	types.KindInvalidImportFormat:  http.StatusBadRequest,
	types.KindStorageQuotaExceeded: http.StatusInsufficientStorage,
	types.KindGenerationFailed:     http.StatusBadGateway,
	types.KindMalformedInput:       http.StatusBadRequest,
	types.KindNotFound:             http.StatusNotFound,
	types.KindStorage:              http.StatusServiceUnavailable,
}

// errorBody is the JSON error document.
type errorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := types.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorBody{
		Kind:      kind.String(),
		Message:   session.UserMessage(err),
		Retryable: kind.Retryable(),
	})
}

func writeStatus(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Kind: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
