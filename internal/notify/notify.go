// Package notify publishes run lifecycle events to NATS so downstream
// services (render workers, dashboards) can react to timeline runs
// without polling the status endpoint.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects for run lifecycle announcements.
const (
	SubjectRunStarted   = "contextcut.run.started"
	SubjectRunCompleted = "contextcut.run.completed"
	SubjectRunFailed    = "contextcut.run.failed"
)

// Publisher abstracts the outbound connection for tests.
type Publisher interface {
	PublishRunEvent(subject, runID string, detail map[string]any) error
	Close()
}

// NATSNotifier publishes run events over a core NATS connection.
type NATSNotifier struct {
	nc *nats.Conn
}

func New(natsURL string) (*NATSNotifier, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSNotifier{nc: nc}, nil
}

func (n *NATSNotifier) PublishRunEvent(subject, runID string, detail map[string]any) error {
	payload := map[string]any{
		"run_id":    runID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range detail {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	if err := n.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection so queued publishes flush before exit.
func (n *NATSNotifier) Close() {
	n.nc.Drain()
}

// Noop is used when no NATS URL is configured.
type Noop struct{}

func (Noop) PublishRunEvent(string, string, map[string]any) error { return nil }
func (Noop) Close()                                               {}
