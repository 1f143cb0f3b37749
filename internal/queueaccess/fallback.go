package queueaccess

import (
	"fmt"
	"os"

	"clipress/internal/config"
	"clipress/internal/ipc"
	"clipress/internal/queue"
)

// Session is a queue access handle and its cleanup function.
type Session struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open tries the daemon socket first and falls back to reading the queue
// database directly. dialErr is returned when neither is available.
func Open(socketPath string, cfg *config.Config) (Session, error) {
	client, dialErr := ipc.Dial(socketPath)
	if dialErr == nil {
		return Session{Access: NewIPCAccess(client), close: client.Close}, nil
	}
	if cfg == nil {
		return Session{}, dialErr
	}
	if _, err := os.Stat(cfg.DatabasePath()); err != nil {
		return Session{}, dialErr
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{Access: NewStoreAccess(store), close: store.Close}, nil
}
