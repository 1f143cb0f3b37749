package ipc

import (
	"errors"
	"fmt"
	"net/rpc"
	"strings"

	"clipress/internal/api"
)

// RemoteError is a daemon-side failure decoded by the client.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// ErrorKind satisfies services.ErrorClassifier.
func (e *RemoteError) ErrorKind() string { return e.Kind }

// encodeError prefixes err with its kind for transport.
func encodeError(err error) error {
	if err == nil {
		return nil
	}
	kind := api.ErrorKind(err)
	if kind == "" {
		kind = "internal"
	}
	return fmt.Errorf("[%s] %s", kind, err.Error())
}

// decodeError converts an RPC server error back into a RemoteError. Other
// errors, such as connection failures, are returned unchanged.
func decodeError(err error) error {
	var serverErr rpc.ServerError
	if !errors.As(err, &serverErr) {
		return err
	}
	msg := string(serverErr)
	if rest, ok := strings.CutPrefix(msg, "["); ok {
		if kind, message, found := strings.Cut(rest, "] "); found {
			return &RemoteError{Kind: kind, Message: message}
		}
	}
	return &RemoteError{Kind: "internal", Message: msg}
}
