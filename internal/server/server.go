package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/richardbrinkman/plagiarism/internal/convert"
	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/similarity"
	"github.com/richardbrinkman/plagiarism/internal/source"
)

const (
	// ReportName is the file name of every generated report.
	ReportName = "plagiarism.xlsx"
	// xlsxContentType is the media type of the report download.
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultKeepalive  = 15 * time.Second
	defaultSessionTTL = time.Hour
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	minSweepInterval  = time.Second
)

// Config configures a Server.
type Config struct {
	Addr       string
	UploadDir  string
	Keepalive  time.Duration
	SessionTTL time.Duration
	Workers    int
	Similarity similarity.Func
	Columns    source.Columns
	// Converter defaults to a convert.Dispatcher.
	Converter convert.Converter
	Security  SecurityConfig
}

// Server serves detection runs over HTTP.
type Server struct {
	cfg      Config
	router   *mux.Router
	metrics  *Metrics
	logger   logging.Logger
	sessions *sessionStore

	// ctx bounds every run; it is cancelled on shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// New creates a server. Call Start to listen, or use Handler directly.
func New(cfg Config, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.Security.AllowedMethods == nil {
		cfg.Security = DefaultSecurityConfig()
	}
	if cfg.Similarity == nil {
		cfg.Similarity = similarity.Ratio
	}
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = defaultKeepalive
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		metrics:  NewMetrics(),
		logger:   logger,
		sessions: newSessionStore(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/detect", s.wrap(s.handleDetect)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/progress/{id}", s.wrap(s.handleProgress)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/report/{id}", s.wrap(s.handleReport)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/healthz", s.wrap(s.handleHealth)).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.metricsMiddleware(s.handleMetrics))
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Start listens on cfg.Addr and serves until ctx is cancelled. Shutting
// down cancels the runs in progress and waits for them.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	go s.reap(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("server listening", logging.String("addr", s.cfg.Addr))

	var err error
	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		// Ends the progress streams so that Shutdown does not wait for them.
		s.cancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}
	s.Close()
	return err
}

// Close cancels every run in progress and waits for them to end.
func (s *Server) Close() {
	s.cancel()
	s.runs.Wait()
}

// reap drops expired sessions until ctx is cancelled.
func (s *Server) reap(ctx context.Context) {
	interval := max(s.cfg.SessionTTL/4, minSweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.sessions.sweep(now, s.cfg.SessionTTL); n > 0 {
				s.logger.Debug("expired sessions removed", logging.Int("count", n))
			}
		}
	}
}

// wrap applies the middleware chain shared by the API routes.
func (s *Server) wrap(h http.HandlerFunc) http.HandlerFunc {
	return s.metricsMiddleware(SecurityMiddleware(s.cfg.Security, h))
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// metricsMiddleware tracks active and served requests.
func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncrementActiveRequests()
		defer s.metrics.DecrementActiveRequests()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.metrics.ObserveRequest(r.Method, rec.status)
	}
}

// handleMetrics serves the Prometheus metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.logger.Warn("method not allowed", logging.String("method", r.Method), logging.String("path", r.URL.Path))
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	s.metrics.WritePrometheus(w, r)
}

// DetectResponse is the body of a successful POST /detect.
type DetectResponse struct {
	ID       string   `json:"id"`
	Count    int      `json:"count"`
	Units    []string `json:"units"`
	Progress string   `json:"progress"`
	Report   string   `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleDetect stores the uploaded input_file, opens it and starts the run
// in the background. Ingestion errors are reported before any job starts.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Security.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Security.MaxUploadBytes)
	}
	file, header, err := r.FormFile("input_file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing input_file: %w", err))
		return
	}
	defer file.Close()

	id := uuid.NewString()
	dir := filepath.Join(s.cfg.UploadDir, id)
	input, err := saveUpload(dir, uploadName(header.Filename), file)
	if err != nil {
		_ = os.RemoveAll(dir)
		s.logger.Error("cannot store upload", err, logging.String("session", id))
		writeError(w, http.StatusInternalServerError, errors.New("cannot store upload"))
		return
	}

	src, err := source.Open(r.Context(), input, source.Options{
		Converter: s.cfg.Converter,
		Columns:   s.cfg.Columns,
		Logger:    s.logger,
		TempDir:   dir,
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		s.logger.Warn("rejected upload", logging.String("session", id), logging.Err(err))
		writeError(w, statusFor(err), err)
		return
	}

	sess := &session{
		id:     id,
		dir:    dir,
		output: filepath.Join(dir, ReportName),
		units:  src.UnitIDs(),
		hub:    progress.NewHub(),
	}
	s.sessions.add(sess)
	s.startRun(sess, src)

	s.logger.Info("detection started",
		logging.String("session", id),
		logging.String("kind", src.Kind().String()),
		logging.Int("units", len(sess.units)))
	writeJSON(w, http.StatusAccepted, DetectResponse{
		ID:       id,
		Count:    len(sess.units),
		Units:    sess.units,
		Progress: "/progress/" + id,
		Report:   "/report/" + id,
	})
}

// startRun executes the detection of sess in the background.
func (s *Server) startRun(sess *session, src source.Source) {
	s.runs.Add(1)
	s.metrics.RunStarted()
	go func() {
		defer s.runs.Done()
		summary, err := orchestration.ExecuteDetection(s.ctx, src, orchestration.Options{
			Workers:    s.cfg.Workers,
			Similarity: s.cfg.Similarity,
			Output:     sess.output,
			Hub:        sess.hub,
			Logger:     s.logger,
			Observer:   s.metrics,
		}, nil, io.Discard)
		if cerr := src.Close(); cerr != nil {
			s.logger.Warn("cannot release input", logging.String("session", sess.id), logging.Err(cerr))
		}
		sess.finish(summary, err, time.Now())

		switch {
		case err == nil:
			s.metrics.RunFinished("completed")
			s.logger.Info("detection completed",
				logging.String("session", sess.id),
				logging.Int("sheets", len(summary.Sheets)),
				logging.Int("failed", summary.Failed))
		case apperrors.IsContextError(err):
			s.metrics.RunFinished("canceled")
		default:
			s.metrics.RunFinished("failed")
			s.logger.Error("detection failed", err, logging.String("session", sess.id))
		}
	}()
}

// handleProgress streams the progress events of a run as server-sent
// events, each a "data: {json}" record. Keepalive records are interleaved
// while the run is quiet. The stream is released once the completed event
// has been delivered.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown session"))
		return
	}
	hub := sess.stream()
	if hub == nil {
		writeError(w, http.StatusGone, errors.New("progress stream already delivered"))
		return
	}

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	sub := hub.Subscribe()
	defer sub.Unsubscribe()
	for e := range progress.WithKeepalive(r.Context(), sub.C, s.cfg.Keepalive) {
		data, err := json.Marshal(e)
		if err != nil {
			s.logger.Error("cannot encode event", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
		if e.Terminal() {
			sess.release()
			return
		}
	}
}

// handleReport downloads the report of a completed run.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown session"))
		return
	}
	done, _, err := sess.result()
	switch {
	case err != nil:
		writeError(w, http.StatusInternalServerError, fmt.Errorf("detection failed: %w", err))
		return
	case !done && !sess.completed():
		writeError(w, http.StatusConflict, errors.New("report not ready"))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ReportName))
	http.ServeFile(w, r, sess.output)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.len(),
	})
}

// statusFor maps an ingestion error to an HTTP status.
func statusFor(err error) int {
	switch apperrors.ExitCodeFor(err) {
	case apperrors.ExitErrorInput:
		return http.StatusUnprocessableEntity
	case apperrors.ExitErrorConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// uploadName returns the base name of a client supplied file name.
func uploadName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "input"
	}
	return base
}

func saveUpload(dir, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
