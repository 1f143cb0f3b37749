package queueaccess

import (
	"context"
	"errors"
	"strings"

	"clipress/internal/api"
	"clipress/internal/ipc"
	"clipress/internal/queue"
	"clipress/internal/services"
)

// Access provides read-only queue queries regardless of IPC or direct store
// backing.
type Access interface {
	List(ctx context.Context, statuses []string, userID string) ([]api.Job, error)
	Describe(ctx context.Context, id string) (*api.Job, error)
	Stats(ctx context.Context) (map[string]int, error)
	// Live reports whether answers come from the running daemon. Store-backed
	// answers carry no queue positions.
	Live() bool
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{service: api.NewQueueService(store)}
}

// IsNotFound reports whether err means the job does not exist, for either
// backing.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var remote *ipc.RemoteError
	if errors.As(err, &remote) {
		return remote.Kind == "not_found"
	}
	return errors.Is(err, services.ErrNotFound)
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) List(_ context.Context, statuses []string, userID string) ([]api.Job, error) {
	resp, err := a.client.JobList(statuses, userID)
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (a *ipcAccess) Describe(_ context.Context, id string) (*api.Job, error) {
	resp, err := a.client.JobShow(id)
	if err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.Workflow.QueueStats, nil
}

func (a *ipcAccess) Live() bool { return true }

type storeAccess struct {
	service *api.QueueService
}

func (a *storeAccess) List(ctx context.Context, statuses []string, userID string) ([]api.Job, error) {
	var filters []queue.Status
	for _, s := range statuses {
		parsed, ok := queue.ParseStatus(s)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "queue", "list", "unknown status "+strings.TrimSpace(s), nil)
		}
		filters = append(filters, parsed)
	}
	jobs, err := a.service.List(ctx, filters...)
	if err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return jobs, nil
	}
	filtered := jobs[:0]
	for _, job := range jobs {
		if job.UserID == userID {
			filtered = append(filtered, job)
		}
	}
	return filtered, nil
}

func (a *storeAccess) Describe(ctx context.Context, id string) (*api.Job, error) {
	return a.service.Describe(ctx, id)
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) Live() bool { return false }
