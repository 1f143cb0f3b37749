package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"clipress/internal/api"
	"clipress/internal/daemon"
	"clipress/internal/logging"
	"clipress/internal/queue"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. ctx bounds
// the daemon lifetime: processing started over IPC runs until ctx ends or a
// Stop call arrives.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.logger.Info("daemon started via IPC", logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC", logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = daemon.APIStatus(s.daemon.Status(s.ctx))
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	out, err := api.Submit(s.ctx, s.daemon.Workflow(), req)
	if err != nil {
		return encodeError(err)
	}
	*resp = out
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	out, err := api.Dispatch(s.ctx, s.daemon.Workflow(), api.CancelAction{JobID: req.JobID})
	if err != nil {
		return encodeError(err)
	}
	resp.Job = out.(api.JobResponse).Job
	s.logger.Info("job cancelled via IPC",
		logging.String(logging.FieldJobID, req.JobID),
		logging.String(logging.FieldEventType, "job_cancel"),
	)
	return nil
}

func (s *service) JobShow(req JobShowRequest, resp *JobShowResponse) error {
	out, err := api.ShowJob(s.ctx, s.daemon.Workflow(), req.JobID)
	if err != nil {
		return encodeError(err)
	}
	resp.Job = out.Job
	return nil
}

func (s *service) JobList(req JobListRequest, resp *JobListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, value := range req.Statuses {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return encodeError(&api.ActionError{Message: fmt.Sprintf("unknown status %q", value)})
		}
		statuses = append(statuses, status)
	}
	jobs, err := api.NewQueueService(s.daemon.Workflow()).List(s.ctx, statuses...)
	if err != nil {
		return encodeError(err)
	}
	resp.Jobs = make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if req.UserID != "" && job.UserID != req.UserID {
			continue
		}
		resp.Jobs = append(resp.Jobs, s.withPosition(job))
	}
	return nil
}

func (s *service) UserQueue(req UserQueueRequest, resp *UserQueueResponse) error {
	out, err := api.Dispatch(s.ctx, s.daemon.Workflow(), api.QueueAction{UserID: req.UserID})
	if err != nil {
		return encodeError(err)
	}
	resp.Jobs = out.(api.JobListResponse).Jobs
	return nil
}

func (s *service) UserStats(req UserStatsRequest, resp *UserStatsResponse) error {
	out, err := api.UserStatsFor(s.ctx, s.daemon.Workflow(), req.UserID)
	if err != nil {
		return encodeError(err)
	}
	*resp = out
	return nil
}

func (s *service) SetUserDefaults(req SetUserDefaultsRequest, resp *SetUserDefaultsResponse) error {
	out, err := api.Dispatch(s.ctx, s.daemon.Workflow(), api.DefaultsAction{UserID: req.UserID, Settings: req.Settings})
	if err != nil {
		return encodeError(err)
	}
	resp.Settings = out.(api.Settings)
	return nil
}

func (s *service) Totals(_ TotalsRequest, resp *TotalsResponse) error {
	wf := s.daemon.Workflow()
	totals, err := wf.Totals(s.ctx)
	if err != nil {
		return encodeError(err)
	}
	counts, err := api.NewQueueService(wf).Stats(s.ctx)
	if err != nil {
		return encodeError(err)
	}
	*resp = api.StatsResponse{Totals: api.FromTotals(totals), Queue: counts}
	return nil
}

func (s *service) QueueClear(req QueueClearRequest, resp *QueueClearResponse) error {
	removed, err := s.daemon.ClearQueue(s.ctx, req.All)
	if err != nil {
		return encodeError(err)
	}
	resp.Removed = removed
	s.logger.Info("queue cleared",
		logging.String(logging.FieldEventType, "queue_clear"),
		logging.Bool("all", req.All),
		logging.Int64("removed_count", removed),
	)
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	health, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return encodeError(err)
	}
	*resp = QueueHealthResponse{
		Total:      health.Total,
		Queued:     health.Queued,
		Processing: health.Processing,
		Completed:  health.Completed,
		Failed:     health.Failed,
		Cancelled:  health.Cancelled,
	}
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	*resp = api.FromDatabaseHealth(health)
	if err != nil && health.Error == "" {
		return encodeError(err)
	}
	return nil
}

func (s *service) withPosition(job Job) Job {
	if pos, ok := s.daemon.Workflow().QueuePosition(job.ID); ok {
		job.QueuePosition = pos
	}
	return job
}
