package gupshup

// InboundMessage is the raw Gupshup webhook payload. The per-type media,
// location and interactive fields arrive as JSON-encoded strings nested
// inside the outer document, exactly as the provider posts them.
type InboundMessage struct {
	WANumber  string `json:"waNumber,omitempty"`
	Mobile    string `json:"mobile"`
	ReplyID   string `json:"reply_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Timestamp *int64 `json:"timestamp,omitempty"`
	Name      string `json:"name,omitempty"`
	Version   int    `json:"version,omitempty"`
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`

	// JSON-encoded sub-documents, keyed by Type.
	Image       string `json:"image,omitempty"`
	Audio       string `json:"audio,omitempty"`
	Voice       string `json:"voice,omitempty"`
	Video       string `json:"video,omitempty"`
	Document    string `json:"document,omitempty"`
	Location    string `json:"location,omitempty"`
	Interactive string `json:"interactive,omitempty"`

	// Response carries a JSON array of delivery reports. When present it
	// overrides all type-based dispatch.
	Response string `json:"response,omitempty"`

	Extra string `json:"extra,omitempty"`
	App   string `json:"app,omitempty"`
}

// DeliveryReport is one element of the inbound Response array.
type DeliveryReport struct {
	EventType  string `json:"eventType"`
	ExternalID string `json:"externalId"`
	DestAddr   string `json:"destAddr"`
}

// outboundResponse is the body the Gupshup gateway returns for a send call.
type outboundResponse struct {
	Response struct {
		ID      string `json:"id"`
		Phone   string `json:"phone"`
		Details string `json:"details"`
		Status  string `json:"status"`
	} `json:"response"`
}

// Raw inbound type discriminants.
const (
	inboundTypeText        = "text"
	inboundTypeInteractive = "interactive"
	inboundTypeLocation    = "location"
	inboundTypeImage       = "image"
	inboundTypeAudio       = "audio"
	inboundTypeVoice       = "voice"
	inboundTypeVideo       = "video"
	inboundTypeDocument    = "document"
	inboundTypeButton      = "button"
	inboundTypeOptIn       = "OPT_IN"
	inboundTypeOptOut      = "OPT_OUT"
)

func isInboundMediaType(t string) bool {
	switch t {
	case inboundTypeImage, inboundTypeAudio, inboundTypeVoice, inboundTypeVideo, inboundTypeDocument:
		return true
	}
	return false
}
