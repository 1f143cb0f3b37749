package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipress/internal/api"
	"clipress/internal/config"
	"clipress/internal/logging"
	"clipress/internal/queue"
	"clipress/internal/services"
)

const (
	maxRequestBody    = 1 << 20
	eventKeepAlive    = 15 * time.Second
	shutdownGrace     = 5 * time.Second
	requestIDHeader   = "X-Request-ID"
	eventStreamFormat = "event: %s\ndata: %s\n\n"
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService
	handler  http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:     strings.TrimSpace(cfg.Paths.APIBind),
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
		queueSvc: api.NewQueueService(d.store),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/jobs", srv.handleListJobs)
	mux.HandleFunc("POST /api/jobs", srv.handleSubmit)
	mux.HandleFunc("GET /api/jobs/{id}", srv.handleShowJob)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", srv.handleCancel)
	mux.HandleFunc("GET /api/users/{id}/jobs", srv.handleUserJobs)
	mux.HandleFunc("GET /api/users/{id}/stats", srv.handleUserStats)
	mux.HandleFunc("PUT /api/users/{id}/settings", srv.handleUserSettings)
	mux.HandleFunc("GET /api/stats", srv.handleStats)
	mux.HandleFunc("GET /api/events", srv.handleEvents)
	mux.HandleFunc("POST /api/actions", srv.handleAction)

	srv.handler = srv.withRequestID(authMiddleware(cfg.Paths.APIToken, cfg.Paths.APITokenHash, mux))
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("api server already running")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.listener = listener
	s.server = server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()
	}
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, APIStatus(status))
}

// APIStatus converts daemon status into its transport form.
func APIStatus(status Status) api.DaemonStatus {
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		APIBind:      status.APIBind,
		Delivery:     status.Delivery,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromDependencies(status.Dependencies),
		EventSinks:   api.FromChecks(status.EventSinks),
	}
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatuses(r.URL.Query()["status"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jobs, err := s.queueSvc.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if user := strings.TrimSpace(r.URL.Query().Get("user")); user != "" {
		filtered := jobs[:0]
		for _, job := range jobs {
			if job.UserID == user {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: s.withPositions(jobs)})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	resp, err := api.Submit(r.Context(), s.daemon.workflow, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleShowJob(w http.ResponseWriter, r *http.Request) {
	resp, err := api.ShowJob(r.Context(), s.daemon.workflow, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.daemon.workflow.Cancel(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := api.ShowJob(r.Context(), s.daemon.workflow, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleUserJobs(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	var (
		jobs []*queue.Job
		err  error
	)
	if r.URL.Query().Get("active") != "" {
		jobs, err = s.daemon.workflow.GetUserQueue(r.Context(), userID)
	} else {
		jobs, err = s.daemon.workflow.UserJobs(r.Context(), userID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: s.withPositions(api.FromJobs(jobs))})
}

func (s *apiServer) handleUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := api.UserStatsFor(r.Context(), s.daemon.workflow, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleUserSettings(w http.ResponseWriter, r *http.Request) {
	var body api.Settings
	if !s.decodeBody(w, r, &body) {
		return
	}
	out, err := api.Dispatch(r.Context(), s.daemon.workflow, api.DefaultsAction{UserID: r.PathValue("id"), Settings: body})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.daemon.workflow.Totals(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	counts, err := s.queueSvc.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatsResponse{Totals: api.FromTotals(totals), Queue: counts})
}

func (s *apiServer) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody(err.Error(), "invalid_request"))
		return
	}
	action, err := api.DecodeAction(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := api.Dispatch(r.Context(), s.daemon.workflow, action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleEvents streams engine events as server-sent events. The optional
// job and user query parameters filter the stream; a job-filtered stream ends
// after that job's terminal event.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorBody("streaming unsupported", "internal"))
		return
	}
	jobFilter := strings.TrimSpace(r.URL.Query().Get("job"))
	userFilter := strings.TrimSpace(r.URL.Query().Get("user"))

	events, unsubscribe := s.daemon.workflow.Subscribe()
	defer unsubscribe()

	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(eventKeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if jobFilter != "" && event.JobID != jobFilter {
				continue
			}
			if userFilter != "" && event.UserID != userFilter {
				continue
			}
			payload, err := json.Marshal(api.FromEvent(event))
			if err != nil {
				s.logger.Error("failed to encode event", logging.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, eventStreamFormat, event.Type, payload); err != nil {
				return
			}
			flusher.Flush()
			if jobFilter != "" && event.Terminal() {
				return
			}
		}
	}
}

func (s *apiServer) withPositions(jobs []api.Job) []api.Job {
	if jobs == nil {
		return []api.Job{}
	}
	for i := range jobs {
		if pos, ok := s.daemon.workflow.QueuePosition(jobs[i].ID); ok {
			jobs[i].QueuePosition = pos
		}
	}
	return jobs
}

func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error(), "invalid_request"))
		return false
	}
	return true
}

func parseStatuses(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := queue.ParseStatus(part)
			if !ok {
				return nil, &api.ActionError{Message: fmt.Sprintf("unknown status %q", part)}
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

// httpStatus maps an error kind onto a response code.
func httpStatus(kind string) int {
	switch {
	case kind == "queue_full", kind == "already_terminal":
		return http.StatusConflict
	case kind == "file_too_large":
		return http.StatusRequestEntityTooLarge
	case kind == "not_found":
		return http.StatusNotFound
	case kind == "validation_error", kind == "validation", kind == "source_not_found",
		kind == "invalid_action", strings.HasPrefix(kind, "invalid_"):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := api.ErrorKind(err)
	status := httpStatus(kind)
	if status == http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldImpact, "request returned 500"),
			logging.String(logging.FieldErrorHint, "check the queue database and daemon logs"),
		)
	}
	s.writeJSON(w, status, errorBody(err.Error(), kind))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func errorBody(message, kind string) api.ErrorResponse {
	return api.ErrorResponse{Error: message, Kind: kind}
}
