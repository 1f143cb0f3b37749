package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, decodeError(err)
	}
	return &resp, nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Submit queues a job.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	return call[SubmitResponse](c, "Submit", req)
}

// Cancel cancels a job.
func (c *Client) Cancel(jobID string) (*CancelResponse, error) {
	return call[CancelResponse](c, "Cancel", CancelRequest{JobID: jobID})
}

// JobShow returns one job.
func (c *Client) JobShow(jobID string) (*JobShowResponse, error) {
	return call[JobShowResponse](c, "JobShow", JobShowRequest{JobID: jobID})
}

// JobList returns jobs optionally filtered by statuses and user.
func (c *Client) JobList(statuses []string, userID string) (*JobListResponse, error) {
	return call[JobListResponse](c, "JobList", JobListRequest{Statuses: statuses, UserID: userID})
}

// UserQueue returns a user's active jobs.
func (c *Client) UserQueue(userID string) (*UserQueueResponse, error) {
	return call[UserQueueResponse](c, "UserQueue", UserQueueRequest{UserID: userID})
}

// UserStats returns a user's counters.
func (c *Client) UserStats(userID string) (*UserStatsResponse, error) {
	return call[UserStatsResponse](c, "UserStats", UserStatsRequest{UserID: userID})
}

// SetUserDefaults stores a user's default settings.
func (c *Client) SetUserDefaults(req SetUserDefaultsRequest) (*SetUserDefaultsResponse, error) {
	return call[SetUserDefaultsResponse](c, "SetUserDefaults", req)
}

// Totals returns cross-user totals.
func (c *Client) Totals() (*TotalsResponse, error) {
	return call[TotalsResponse](c, "Totals", TotalsRequest{})
}

// QueueClear removes finished jobs, or every job when all is set.
func (c *Client) QueueClear(all bool) (*QueueClearResponse, error) {
	return call[QueueClearResponse](c, "QueueClear", QueueClearRequest{All: all})
}

// QueueHealth returns aggregate queue counts.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	return call[QueueHealthResponse](c, "QueueHealth", QueueHealthRequest{})
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}
