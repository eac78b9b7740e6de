package messagebroker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSClient wraps a NATS connection for the adapter service.
type NATSClient struct {
	Conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSClient connects to NATS with reconnect handling.
// natsURL example: "nats://localhost:4222".
func NewNATSClient(natsURL string, logger *slog.Logger, appName string) (*NATSClient, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Error("NATS connection closed", "error", nc.LastError())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", natsURL, err)
	}

	logger.Info("Connected to NATS", "url", nc.ConnectedUrl())
	return &NATSClient{Conn: nc, logger: logger}, nil
}

// Publish sends data on the given subject.
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := c.Conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to subject %s: %w", subject, err)
	}
	return nil
}

// SubscribeWithQueue subscribes to subject as part of queueGroup and blocks
// until ctx is cancelled, then drains the subscription.
func (c *NATSClient) SubscribeWithQueue(ctx context.Context, subject, queueGroup string, handler nats.MsgHandler) error {
	sub, err := c.Conn.QueueSubscribe(subject, queueGroup, handler)
	if err != nil {
		return fmt.Errorf("subscribing to subject %s: %w", subject, err)
	}

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		c.logger.Warn("Failed to drain NATS subscription", "subject", subject, "error", err)
	}
	return ctx.Err()
}

// Close drains and closes the underlying connection.
func (c *NATSClient) Close() {
	if c.Conn != nil && !c.Conn.IsClosed() {
		if err := c.Conn.Drain(); err != nil {
			c.logger.Warn("Failed to drain NATS connection", "error", err)
		}
	}
}
