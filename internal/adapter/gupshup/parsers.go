package gupshup

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/convobridge/gupshup-gateway/internal/canonical"
)

type locationContent struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
}

// parseLocationContent decodes the location sub-document. A malformed or
// absent document yields empty params; coordinates stay nil rather than
// being coerced to zero.
func (t *Translator) parseLocationContent(ctx context.Context, raw *InboundMessage) *canonical.LocationParams {
	params := &canonical.LocationParams{}
	if raw.Location == "" {
		return params
	}

	var content locationContent
	if err := json.Unmarshal([]byte(raw.Location), &content); err != nil {
		t.logger.ErrorContext(ctx, "Failed to parse inbound location content", "error", err, "message_id", raw.MessageID)
		return params
	}

	params.Latitude = content.Latitude
	params.Longitude = content.Longitude
	params.Address = content.Address
	params.Name = content.Name
	params.URL = content.URL
	return params
}

type interactiveReply struct {
	Type        string `json:"type"`
	ListReply   struct {
		Title string `json:"title"`
	} `json:"list_reply"`
	ButtonReply struct {
		Title string `json:"title"`
	} `json:"button_reply"`
}

// parseInteractiveReplyText extracts the chosen option's title from the
// interactive sub-document. Unknown or missing reply types yield empty text.
func (t *Translator) parseInteractiveReplyText(ctx context.Context, raw *InboundMessage) string {
	if raw.Interactive == "" {
		return ""
	}

	var reply interactiveReply
	if err := json.Unmarshal([]byte(raw.Interactive), &reply); err != nil {
		t.logger.ErrorContext(ctx, "Failed to parse inbound interactive content", "error", err, "message_id", raw.MessageID)
		return ""
	}

	switch strings.ToLower(reply.Type) {
	case "list_reply":
		return reply.ListReply.Title
	case "button_reply":
		return reply.ButtonReply.Title
	default:
		return ""
	}
}
