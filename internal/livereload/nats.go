package livereload

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitebuilder/internal/events"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// DefaultSubject is used when no NATS subject is configured.
const DefaultSubject = "sitebuilder.reload"

// Publisher is the subset of *nats.Conn used by the bridge.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSBridge mirrors reload events onto a NATS subject so that clients outside
// the dev server can react to rebuilds.
type NATSBridge struct {
	pub     Publisher
	subject string
	logger  *slog.Logger
	conn    *nats.Conn
}

// NewNATSBridge wraps an existing publisher.
func NewNATSBridge(pub Publisher, subject string, logger *slog.Logger) *NATSBridge {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSBridge{pub: pub, subject: subject, logger: logger}
}

// DialNATSBridge connects to url and returns a bridge owning the connection.
func DialNATSBridge(url, subject string, logger *slog.Logger) (*NATSBridge, error) {
	conn, err := nats.Connect(url, nats.Name("sitebuilder"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	b := NewNATSBridge(conn, subject, logger)
	b.conn = conn
	b.logger.Info("NATS reload bridge connected", slog.String("url", url), slog.String("subject", b.subject))
	return b, nil
}

// Publish sends a single event.
func (b *NATSBridge) Publish(evt ReloadEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal reload event: %w", err)
	}
	if err := b.pub.Publish(b.subject, data); err != nil {
		return fmt.Errorf("failed to publish reload event: %w", err)
	}
	b.logger.Debug("Published reload event to NATS", logfields.ReloadKind(string(evt.Kind)), logfields.RunID(evt.RunID))
	return nil
}

// Attach forwards every reload event on bus to NATS until the returned function
// is called. Publish failures are logged and do not stop the bridge.
func (b *NATSBridge) Attach(bus *events.Bus) func() {
	ch, unsubscribe := events.Subscribe[ReloadEvent](bus, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for evt := range ch {
			if err := b.Publish(evt); err != nil {
				b.logger.Warn("NATS reload mirror failed", logfields.Error(err))
			}
		}
	}()
	return func() {
		unsubscribe()
		wg.Wait()
	}
}

// Close drains and closes the connection when the bridge owns it.
func (b *NATSBridge) Close() {
	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
		}
	}
}
