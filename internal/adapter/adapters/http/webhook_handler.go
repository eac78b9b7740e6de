package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/convobridge/gupshup-gateway/internal/adapter/gupshup"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// InboundProcessor is the interface the handler needs from the app layer.
// Using an interface keeps the handler testable with mocks.
type InboundProcessor interface {
	Process(ctx context.Context, raw *gupshup.InboundMessage) error
}

// WebhookHandler receives Gupshup callback payloads. The provider posts
// either a JSON document or form-encoded parameters depending on the
// callback style configured on the account; both are accepted.
type WebhookHandler struct {
	processor InboundProcessor
	logger    *slog.Logger
}

func NewWebhookHandler(processor InboundProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    logger.With("component", "webhook_handler"),
	}
}

// HandleInbound receives one provider callback. Untranslatable payloads are
// acknowledged with 200 so the provider does not retry them.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	raw, err := decodeInbound(r)
	if err != nil {
		logger.WarnContext(ctx, "Failed to decode webhook payload", "error", err, "content_type", r.Header.Get("Content-Type"))
		if strings.Contains(err.Error(), "request body too large") {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "Malformed payload", http.StatusBadRequest)
		}
		return
	}

	logger.InfoContext(ctx, "Received inbound webhook",
		"remote_addr", r.RemoteAddr, "type", raw.Type, "message_id", raw.MessageID)

	if err := h.processor.Process(ctx, raw); err != nil {
		logger.ErrorContext(ctx, "Error processing inbound webhook", "error", err)
		http.Error(w, "Internal server error processing webhook", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func decodeInbound(r *http.Request) (*gupshup.InboundMessage, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var raw gupshup.InboundMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		return &raw, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return fromForm(r.PostForm), nil
}

// fromForm maps the provider's form-encoded callback parameters onto the
// inbound DTO. Field names match the JSON callback style.
func fromForm(values url.Values) *gupshup.InboundMessage {
	raw := &gupshup.InboundMessage{
		WANumber:    values.Get("waNumber"),
		Mobile:      values.Get("mobile"),
		ReplyID:     values.Get("reply_id"),
		MessageID:   values.Get("message_id"),
		Name:        values.Get("name"),
		Type:        values.Get("type"),
		Text:        values.Get("text"),
		Image:       values.Get("image"),
		Audio:       values.Get("audio"),
		Voice:       values.Get("voice"),
		Video:       values.Get("video"),
		Document:    values.Get("document"),
		Location:    values.Get("location"),
		Interactive: values.Get("interactive"),
		Response:    values.Get("response"),
		Extra:       values.Get("extra"),
		App:         values.Get("app"),
	}
	if ts := values.Get("timestamp"); ts != "" {
		if parsed, err := strconv.ParseInt(ts, 10, 64); err == nil {
			raw.Timestamp = &parsed
		}
	}
	return raw
}
