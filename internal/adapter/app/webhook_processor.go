package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/convobridge/gupshup-gateway/internal/adapter/gupshup"
)

// Publisher is the slice of the message broker the processor needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// WebhookProcessor translates inbound webhook payloads and hands the
// canonical result to the downstream conversation engine over NATS.
type WebhookProcessor struct {
	translator *gupshup.Translator
	publisher  Publisher
	subject    string
	logger     *slog.Logger
}

// NewWebhookProcessor creates a WebhookProcessor publishing canonical
// messages on the given subject.
func NewWebhookProcessor(translator *gupshup.Translator, publisher Publisher, subject string, logger *slog.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		translator: translator,
		publisher:  publisher,
		subject:    subject,
		logger:     logger.With("component", "webhook_processor"),
	}
}

// Process translates one raw provider message. An untranslatable payload is
// an acknowledged no-op, not an error.
func (p *WebhookProcessor) Process(ctx context.Context, raw *gupshup.InboundMessage) error {
	webhookPayloadsReceivedCounter.WithLabelValues(raw.Type).Inc()

	msg, err := p.translator.Translate(ctx, raw)
	if err != nil {
		inboundTranslatedCounter.WithLabelValues("error").Inc()
		p.logger.ErrorContext(ctx, "Failed to translate inbound message", "error", err, "type", raw.Type, "message_id", raw.MessageID)
		return fmt.Errorf("translating inbound message: %w", err)
	}
	if msg == nil {
		inboundTranslatedCounter.WithLabelValues("skipped").Inc()
		p.logger.InfoContext(ctx, "Inbound payload not translatable, acknowledged", "type", raw.Type, "message_id", raw.MessageID)
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		inboundTranslatedCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("marshalling canonical message: %w", err)
	}

	if err := p.publisher.Publish(ctx, p.subject, data); err != nil {
		inboundTranslatedCounter.WithLabelValues("error").Inc()
		p.logger.ErrorContext(ctx, "Failed to publish canonical message", "error", err, "subject", p.subject)
		return fmt.Errorf("publishing canonical message: %w", err)
	}

	inboundTranslatedCounter.WithLabelValues("translated").Inc()
	p.logger.InfoContext(ctx, "Published canonical message",
		"subject", p.subject, "state", msg.MessageState, "from", msg.From.UserID)
	return nil
}
