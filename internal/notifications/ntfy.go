package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipress/internal/textutil"
)

const userAgent = "Clipress-Go/0.1.0"

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// NtfySink posts terminal events to an ntfy topic URL. Non-terminal events
// are ignored.
type NtfySink struct {
	endpoint string
	client   *http.Client
}

// NewNtfySink creates a sink posting to endpoint.
func NewNtfySink(endpoint string, timeout time.Duration) *NtfySink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NtfySink{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// Publish sends a message for completed, failed, or cancelled jobs.
func (n *NtfySink) Publish(ctx context.Context, event Event) error {
	data, ok := formatEvent(event)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

// Close is a no-op.
func (n *NtfySink) Close() error { return nil }

func formatEvent(event Event) (payload, bool) {
	name := strings.TrimSpace(event.SourceName)
	if name == "" {
		name = event.JobID
	}
	switch event.Type {
	case EventCompleted:
		message := fmt.Sprintf("Compressed %s", name)
		if r := event.Result; r != nil {
			message = fmt.Sprintf("Compressed %s: %s -> %s (%.1f%% smaller) in %s",
				name,
				textutil.FormatBytes(r.OriginalSize),
				textutil.FormatBytes(r.CompressedSize),
				r.Ratio,
				textutil.FormatSeconds(r.ElapsedSeconds),
			)
		}
		return payload{
			title:   "Clipress - Compression Complete",
			message: message,
			tags:    []string{"clipress", "compress", "completed"},
		}, true
	case EventFailed:
		detail := strings.TrimSpace(event.Error)
		if detail == "" {
			detail = event.ErrorKind
		}
		return payload{
			title:    "Clipress - Compression Failed",
			message:  fmt.Sprintf("%s failed: %s", name, detail),
			tags:     []string{"clipress", "error"},
			priority: "high",
		}, true
	case EventCancelled:
		return payload{
			title:   "Clipress - Cancelled",
			message: fmt.Sprintf("Cancelled %s", name),
			tags:    []string{"clipress", "cancelled"},
		}, true
	}
	return payload{}, false
}

func (n *NtfySink) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
