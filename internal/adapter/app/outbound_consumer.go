package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/convobridge/gupshup-gateway/internal/adapter/domain"
	"github.com/convobridge/gupshup-gateway/internal/adapter/gupshup"
	"github.com/convobridge/gupshup-gateway/internal/canonical"
)

// MessageBus is the slice of the message broker the consumer needs.
type MessageBus interface {
	Publish(ctx context.Context, subject string, data []byte) error
	SubscribeWithQueue(ctx context.Context, subject, queueGroup string, handler nats.MsgHandler) error
}

// OutboundConsumer consumes canonical messages destined for WhatsApp users,
// sends them through the Gupshup gateway and publishes the updated message
// (provider id + SENT) for the downstream engine.
type OutboundConsumer struct {
	sender           *gupshup.Sender
	credentials      domain.CredentialStore
	bus              MessageBus
	defaultAdapterID uuid.UUID
	publishSubject   string
	logger           *slog.Logger
}

// NewOutboundConsumer creates an OutboundConsumer. defaultAdapterID selects
// credentials for messages that carry no adapter id of their own.
func NewOutboundConsumer(
	sender *gupshup.Sender,
	credentials domain.CredentialStore,
	bus MessageBus,
	defaultAdapterID uuid.UUID,
	publishSubject string,
	logger *slog.Logger,
) *OutboundConsumer {
	return &OutboundConsumer{
		sender:           sender,
		credentials:      credentials,
		bus:              bus,
		defaultAdapterID: defaultAdapterID,
		publishSubject:   publishSubject,
		logger:           logger.With("component", "outbound_consumer"),
	}
}

// StartConsuming subscribes to the outbound subject with a queue group and
// blocks until ctx is done.
func (c *OutboundConsumer) StartConsuming(ctx context.Context, subject, queueGroup string) error {
	msgHandler := func(natsMsg *nats.Msg) {
		c.logger.InfoContext(ctx, "Received outbound canonical message", "subject", natsMsg.Subject, "data_len", len(natsMsg.Data))

		var msg canonical.Message
		if err := json.Unmarshal(natsMsg.Data, &msg); err != nil {
			outboundProcessedCounter.WithLabelValues("error").Inc()
			c.logger.ErrorContext(ctx, "Failed to unmarshal outbound canonical message", "error", err, "data", string(natsMsg.Data))
			return
		}

		sendCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		if err := c.handle(sendCtx, &msg); err != nil {
			c.logger.ErrorContext(ctx, "Failed to process outbound message",
				"error", err, "state", msg.MessageState, "to", msg.To.UserID)
		}
	}

	c.logger.InfoContext(ctx, "Starting outbound NATS subscription", "subject", subject, "queue_group", queueGroup)
	return c.bus.SubscribeWithQueue(ctx, subject, queueGroup, msgHandler)
}

// handle loads credentials, sends one message and publishes the update.
// The opt-in side call inside the sender completes before the primary call;
// a nil result from the sender is a no-op, not an error.
func (c *OutboundConsumer) handle(ctx context.Context, msg *canonical.Message) error {
	adapterID := c.defaultAdapterID
	if msg.AdapterID != "" {
		parsed, err := uuid.Parse(msg.AdapterID)
		if err != nil {
			c.logger.WarnContext(ctx, "Invalid adapter id on message, using default", "adapter_id", msg.AdapterID, "error", err)
		} else {
			adapterID = parsed
		}
	}

	creds, err := c.credentials.GetByAdapterID(ctx, adapterID)
	if err != nil {
		outboundProcessedCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("loading adapter credentials: %w", err)
	}

	timer := prometheus.NewTimer(providerRequestDurationHist.WithLabelValues(string(msg.MessageState)))
	sent, err := c.sender.Send(ctx, msg, creds)
	timer.ObserveDuration()
	if err != nil {
		outboundProcessedCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("sending outbound message: %w", err)
	}
	if sent == nil {
		outboundProcessedCounter.WithLabelValues("skipped").Inc()
		c.logger.InfoContext(ctx, "Outbound message selected no provider branch, skipped",
			"state", msg.MessageState, "type", msg.MessageType)
		return nil
	}

	data, err := json.Marshal(sent)
	if err != nil {
		outboundProcessedCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("marshalling sent message: %w", err)
	}
	if err := c.bus.Publish(ctx, c.publishSubject, data); err != nil {
		outboundProcessedCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("publishing sent message: %w", err)
	}

	outboundProcessedCounter.WithLabelValues("sent").Inc()
	c.logger.InfoContext(ctx, "Outbound message sent",
		"channel_message_id", sent.MessageID.ChannelMessageID, "to", sent.To.UserID)
	return nil
}
