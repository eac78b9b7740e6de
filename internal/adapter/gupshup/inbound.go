package gupshup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/convobridge/gupshup-gateway/internal/adapter/domain"
	"github.com/convobridge/gupshup-gateway/internal/canonical"
)

const (
	channelURI  = "WhatsApp"
	providerURI = "gupshup"

	// receiverUserID is the fixed downstream identity inbound messages are
	// addressed to.
	receiverUserID = "admin"

	// optOutSentinel is the fixed payload text the downstream engine expects
	// for a WhatsApp opt-out.
	optOutSentinel = "stop-wa"

	// countryPrefixLen is the number of leading country-code characters the
	// provider prepends to sender numbers.
	countryPrefixLen = 2
)

// Translator converts raw Gupshup webhook payloads into canonical messages.
type Translator struct {
	mediaStore domain.MediaStore
	sizeLimits domain.SizeLimitPolicy
	logger     *slog.Logger
}

// NewTranslator creates a Translator. mediaStore and sizeLimits are consulted
// only for inbound media messages.
func NewTranslator(mediaStore domain.MediaStore, sizeLimits domain.SizeLimitPolicy, logger *slog.Logger) *Translator {
	return &Translator{
		mediaStore: mediaStore,
		sizeLimits: sizeLimits,
		logger:     logger.With("component", "gupshup_translator"),
	}
}

// Translate classifies a raw provider message and produces its canonical
// form. A message with no translatable classification yields (nil, nil);
// callers must treat that as "nothing to do", not an error.
func (t *Translator) Translate(ctx context.Context, raw *InboundMessage) (*canonical.Message, error) {
	from := canonical.SenderReceiver{}
	to := canonical.SenderReceiver{UserID: receiverUserID}
	state := canonical.MessageStateReplied
	var messageID canonical.MessageID
	payload := canonical.Payload{}

	switch {
	case raw.Response != "":
		var reports []DeliveryReport
		if err := json.Unmarshal([]byte(raw.Response), &reports); err != nil {
			return nil, fmt.Errorf("parsing delivery report response: %w", err)
		}
		// Reports in one batch overwrite sequentially; the last one
		// determines the final state.
		for _, report := range reports {
			t.logger.InfoContext(ctx, "Processing delivery report",
				"event_type", report.EventType, "external_id", report.ExternalID, "dest_addr", report.DestAddr)
			payload.Text = ""
			messageID.ChannelMessageID = report.ExternalID
			from.UserID = stripCountryPrefix(report.DestAddr)
			state = mapEventState(report.EventType)
		}

	case raw.Type == inboundTypeText, raw.Type == inboundTypeOptIn, raw.Type == inboundTypeOptOut:
		from.UserID = stripCountryPrefix(raw.Mobile)
		messageID.ReplyID = raw.ReplyID

		switch raw.Type {
		case inboundTypeOptIn:
			state = canonical.MessageStateOptedIn
		case inboundTypeOptOut:
			payload.Text = optOutSentinel
			state = canonical.MessageStateOptedOut
		default:
			state = canonical.MessageStateReplied
			payload.Text = raw.Text
			messageID.ChannelMessageID = raw.MessageID
		}

	case raw.Type == inboundTypeInteractive:
		from.UserID = stripCountryPrefix(raw.Mobile)
		messageID.ReplyID = raw.ReplyID
		state = canonical.MessageStateReplied
		payload.Text = t.parseInteractiveReplyText(ctx, raw)
		messageID.ChannelMessageID = raw.MessageID

	case raw.Type == inboundTypeLocation:
		from.UserID = stripCountryPrefix(raw.Mobile)
		messageID.ReplyID = raw.ReplyID
		state = canonical.MessageStateReplied
		payload.Location = t.parseLocationContent(ctx, raw)
		payload.Text = ""
		messageID.ChannelMessageID = raw.MessageID

	case isInboundMediaType(raw.Type):
		from.UserID = stripCountryPrefix(raw.Mobile)
		messageID.ReplyID = raw.ReplyID
		state = canonical.MessageStateReplied
		payload.Text = ""
		payload.Media = t.inboundMedia(ctx, raw)
		messageID.ChannelMessageID = raw.MessageID

	case raw.Type == inboundTypeButton:
		// Raw button taps carry no content; only the sender is resolved and
		// the payload stays empty.
		from.UserID = stripCountryPrefix(raw.Mobile)

	default:
		t.logger.InfoContext(ctx, "No translatable classification for inbound message", "type", raw.Type, "message_id", raw.MessageID)
		return nil, nil
	}

	return t.canonicalMessage(raw, payload, to, from, state, messageID), nil
}

func (t *Translator) canonicalMessage(raw *InboundMessage, payload canonical.Payload, to, from canonical.SenderReceiver,
	state canonical.MessageState, messageID canonical.MessageID) *canonical.Message {

	timestamp := time.Now()
	if raw.Timestamp != nil {
		timestamp = time.UnixMilli(*raw.Timestamp)
	}

	return &canonical.Message{
		From:         from,
		To:           to,
		ChannelURI:   channelURI,
		ProviderURI:  providerURI,
		MessageState: state,
		MessageType:  canonical.MessageTypeText,
		MessageID:    messageID,
		Timestamp:    timestamp,
		Payload:      payload,
	}
}

// stripCountryPrefix removes the 2-character country-code prefix the
// provider prepends to phone numbers.
func stripCountryPrefix(number string) string {
	if len(number) <= countryPrefixLen {
		return ""
	}
	return number[countryPrefixLen:]
}
