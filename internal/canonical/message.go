package canonical

import (
	"time"
)

// MessageState defines the delivery/consent state of a canonical message.
type MessageState string

const (
	MessageStateSent            MessageState = "SENT"
	MessageStateDelivered       MessageState = "DELIVERED"
	MessageStateRead            MessageState = "READ"
	MessageStateReplied         MessageState = "REPLIED"
	MessageStateFailedToDeliver MessageState = "FAILED_TO_DELIVER"
	MessageStateOptedIn         MessageState = "OPTED_IN"
	MessageStateOptedOut        MessageState = "OPTED_OUT"
)

// MessageType classifies the content of a canonical message.
type MessageType string

const (
	MessageTypeText          MessageType = "TEXT"
	MessageTypeImage         MessageType = "IMAGE"
	MessageTypeAudio         MessageType = "AUDIO"
	MessageTypeVideo         MessageType = "VIDEO"
	MessageTypeDocument      MessageType = "DOCUMENT"
	MessageTypeHSM           MessageType = "HSM"
	MessageTypeHSMWithButton MessageType = "HSM_WITH_BUTTON"
)

// StylingTag selects the outbound rendering of a message: plain text,
// a media attachment (stored key or direct URL), or an interactive layout.
type StylingTag string

const (
	StylingTagText          StylingTag = "TEXT"
	StylingTagImage         StylingTag = "IMAGE"
	StylingTagAudio         StylingTag = "AUDIO"
	StylingTagVideo         StylingTag = "VIDEO"
	StylingTagDocument      StylingTag = "DOCUMENT"
	StylingTagImageURL      StylingTag = "IMAGE_URL"
	StylingTagAudioURL      StylingTag = "AUDIO_URL"
	StylingTagVideoURL      StylingTag = "VIDEO_URL"
	StylingTagDocumentURL   StylingTag = "DOCUMENT_URL"
	StylingTagList          StylingTag = "LIST"
	StylingTagQuickReplyBtn StylingTag = "QUICKREPLYBTN"
)

// IsMedia reports whether the tag refers to a stored media object that
// needs a signed URL resolved before sending.
func (s StylingTag) IsMedia() bool {
	switch s {
	case StylingTagImage, StylingTagAudio, StylingTagVideo, StylingTagDocument:
		return true
	}
	return false
}

// IsMediaURL reports whether the tag carries an already-resolvable media URL.
func (s StylingTag) IsMediaURL() bool {
	switch s {
	case StylingTagImageURL, StylingTagAudioURL, StylingTagVideoURL, StylingTagDocumentURL:
		return true
	}
	return false
}

// IsInteractive reports whether the tag selects a list or quick-reply layout.
func (s StylingTag) IsInteractive() bool {
	return s == StylingTagList || s == StylingTagQuickReplyBtn
}

// MediaCategory buckets inbound media by MIME family.
type MediaCategory string

const (
	MediaCategoryImage MediaCategory = "IMAGE"
	MediaCategoryAudio MediaCategory = "AUDIO"
	MediaCategoryVideo MediaCategory = "VIDEO"
	MediaCategoryFile  MediaCategory = "FILE"
)

// MediaError marks a media descriptor whose upload yielded nothing usable.
type MediaError string

const MediaErrorEmptyResponse MediaError = "EMPTY_RESPONSE"

// MessageID pairs the reply-correlation id with the provider's own
// channel message id. Either side may be empty.
type MessageID struct {
	ReplyID          string `json:"reply_id,omitempty"`
	ChannelMessageID string `json:"channel_message_id,omitempty"`
}

// SenderReceiver identifies one end of a conversation.
type SenderReceiver struct {
	UserID string `json:"user_id"`
}

// ButtonChoice is one selectable option in a list or quick-reply set.
// Order within the containing slice is significant and preserved end to end.
type ButtonChoice struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// LocationParams carries an inbound shared location. Latitude and longitude
// are pointers so an absent coordinate stays distinguishable from zero.
type LocationParams struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
	Name      string   `json:"name,omitempty"`
	URL       string   `json:"url,omitempty"`
}

// MessageMedia describes an inbound media attachment after it has been
// mirrored into object storage.
type MessageMedia struct {
	Name     string        `json:"name,omitempty"`
	URL      string        `json:"url,omitempty"`
	Category MediaCategory `json:"category,omitempty"`
	Error    MediaError    `json:"error,omitempty"`
}

// Payload is the content of a canonical message. Text is always present
// (empty string when the message type carries none).
type Payload struct {
	Text          string          `json:"text"`
	Media         *MessageMedia   `json:"media,omitempty"`
	Location      *LocationParams `json:"location,omitempty"`
	ButtonChoices []ButtonChoice  `json:"button_choices,omitempty"`
	StylingTag    StylingTag      `json:"styling_tag,omitempty"`
	MediaCaption  string          `json:"media_caption,omitempty"`
}

// Message is the channel-agnostic representation every adapter translates
// to and from. It always carries a non-empty MessageState.
type Message struct {
	From         SenderReceiver `json:"from"`
	To           SenderReceiver `json:"to"`
	ChannelURI   string         `json:"channel_uri"`
	ProviderURI  string         `json:"provider_uri"`
	AdapterID    string         `json:"adapter_id,omitempty"`
	MessageState MessageState   `json:"message_state"`
	MessageType  MessageType    `json:"message_type"`
	MessageID    MessageID      `json:"message_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Payload      Payload        `json:"payload"`
}
