package gupshup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/convobridge/gupshup-gateway/internal/adapter/domain"
	"github.com/convobridge/gupshup-gateway/internal/canonical"
)

// DefaultAPIURL is the Gupshup gateway endpoint.
const DefaultAPIURL = "https://media.smsgupshup.com/GatewayAPI/rest"

// outboundCountryPrefix is prepended to destination numbers, which are
// stored without their country code.
const outboundCountryPrefix = "91"

// Provider method selectors.
const (
	methodSimpleMessage = "SIMPLEMESSAGE"
	methodMediaMessage  = "MEDIAMESSAGE"
	methodSendMessage   = "SendMessage"
	methodOptIn         = "OPTIN"
	methodOptInSideCall = "OPT_IN"
)

// Provider msg_type values.
const (
	msgTypeText     = "TEXT"
	msgTypeImage    = "IMAGE"
	msgTypeAudio    = "AUDIO"
	msgTypeVideo    = "VIDEO"
	msgTypeDocument = "DOCUMENT"
	msgTypeHSM      = "HSM"
)

// Sender composes and issues outbound Gupshup requests from canonical
// messages. It is safe for concurrent use; each send works on its own
// copy of the message and commits the id/state update only on success.
type Sender struct {
	apiURL     string
	extraTag   string
	httpClient *http.Client
	mediaStore domain.MediaStore
	logger     *slog.Logger
}

// NewSender creates a Sender. The extra tag is echoed back by the provider
// on delivery reports. A nil httpClient falls back to a 10s-timeout default.
func NewSender(apiURL, extraTag string, mediaStore domain.MediaStore, httpClient *http.Client, logger *slog.Logger) *Sender {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Sender{
		apiURL:     apiURL,
		extraTag:   extraTag,
		httpClient: httpClient,
		mediaStore: mediaStore,
		logger:     logger.With("component", "gupshup_sender"),
	}
}

// Send composes the provider request for msg, issues it, and returns a copy
// of msg updated with the provider's channel message id and state SENT.
// A message whose state/type combination selects no branch returns
// (nil, nil); callers treat that as a no-op. On any failure the input
// message is left unmodified and the error is returned.
func (s *Sender) Send(ctx context.Context, msg *canonical.Message, creds *domain.Credentials) (*canonical.Message, error) {
	params, err := s.compose(ctx, msg, creds)
	if err != nil {
		return nil, err
	}
	if params == nil {
		s.logger.InfoContext(ctx, "No outbound branch for message, skipping",
			"state", msg.MessageState, "type", msg.MessageType)
		return nil, nil
	}

	resp, err := s.call(ctx, params)
	if err != nil {
		return nil, err
	}

	out := *msg
	out.MessageID = canonical.MessageID{ChannelMessageID: resp.Response.ID}
	out.MessageState = canonical.MessageStateSent
	return &out, nil
}

// compose builds the request query for msg, or returns nil when no branch
// applies. The HSM branches perform the opt-in side call; it completes,
// successfully or not, strictly before the primary call is issued.
func (s *Sender) compose(ctx context.Context, msg *canonical.Message, creds *domain.Credentials) (url.Values, error) {
	text := msg.Payload.Text
	params := s.baseQuery()

	switch {
	case msg.MessageState == canonical.MessageStateOptedIn:
		setCredentialsAndMethod(params, methodOptIn, creds.Username2Way, creds.Password2Way)
		params.Set("channel", strings.ToLower(msg.ChannelURI))
		params.Set("phone_number", outboundCountryPrefix+msg.To.UserID)

	case msg.MessageType == canonical.MessageTypeHSM:
		s.optInUser(ctx, msg.To.UserID, creds)

		text += renderMessageChoices(msg.Payload.ButtonChoices)
		setCredentialsAndMethod(params, methodSimpleMessage, creds.UsernameHSM, creds.PasswordHSM)
		params.Set("send_to", outboundCountryPrefix+msg.To.UserID)
		params.Set("msg", text)
		params.Set("isHSM", "true")
		params.Set("msg_type", msgTypeHSM)

	case msg.MessageType == canonical.MessageTypeHSMWithButton:
		s.optInUser(ctx, msg.To.UserID, creds)

		text += renderMessageChoices(msg.Payload.ButtonChoices)
		setCredentialsAndMethod(params, methodSendMessage, creds.UsernameHSM, creds.PasswordHSM)
		params.Set("send_to", outboundCountryPrefix+msg.To.UserID)
		params.Set("msg", text)
		params.Set("isTemplate", "true")
		params.Set("msg_type", msgTypeHSM)

	case msg.MessageState == canonical.MessageStateReplied:
		s.composeReplied(ctx, msg, creds, params)

	default:
		return nil, nil
	}

	return params, nil
}

// composeReplied fills params for the session-message branch, routed by the
// payload's styling tag. Every specialized sub-branch that cannot apply
// falls back to plain text with rendered choices appended.
func (s *Sender) composeReplied(ctx context.Context, msg *canonical.Message, creds *domain.Credentials, params url.Values) {
	text := msg.Payload.Text
	tag := msg.Payload.StylingTag
	plain := true

	setCredentialsAndMethod(params, methodForStylingTag(tag), creds.Username2Way, creds.Password2Way)
	params.Set("send_to", outboundCountryPrefix+msg.To.UserID)
	params.Set("msg_type", msgTypeForStylingTag(tag))

	switch {
	case tag.IsMedia():
		signedURL := s.signedMediaURL(ctx, strings.TrimSpace(text))
		if signedURL != "" {
			params.Set("media_url", signedURL)
			if tag == canonical.StylingTagImage || tag == canonical.StylingTagDocument {
				caption := msg.Payload.MediaCaption
				if caption == "" {
					caption = string(tag)
				}
				params.Set("caption", caption)
			}
			params.Set("isHSM", "false")
			plain = false
		}

	case tag.IsMediaURL():
		// The payload text is already a resolvable URL; no upload step.
		params.Set("media_url", text)
		params.Set("isHSM", "false")
		plain = false

	case tag == canonical.StylingTagList && validateInteractiveChoices(tag, msg.Payload.ButtonChoices):
		content, err := buildListAction(msg.Payload.ButtonChoices)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to build list action content", "error", err)
		} else if content != "" {
			params.Set("interactive_type", "list")
			params.Set("action", content)
			params.Set("msg", text)
			plain = false
		}

	case tag == canonical.StylingTagQuickReplyBtn && validateInteractiveChoices(tag, msg.Payload.ButtonChoices):
		content, err := buildQuickReplyAction(msg.Payload.ButtonChoices)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to build quick reply action content", "error", err)
		} else if content != "" {
			params.Set("interactive_type", "dr_button")
			params.Set("action", content)
			params.Set("msg", text)
			plain = false
		}
	}

	if plain {
		text += renderMessageChoices(msg.Payload.ButtonChoices)
		params.Set("msg", text)
	}
}

// signedMediaURL resolves the payload text, treated as a storage key, to a
// signed URL. Empty on any failure; the caller falls back to plain text.
func (s *Sender) signedMediaURL(ctx context.Context, name string) string {
	if s.mediaStore == nil || name == "" {
		return ""
	}
	signedURL, err := s.mediaStore.SignedURL(ctx, name)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to resolve signed media URL", "error", err, "name", name)
		return ""
	}
	return signedURL
}

// call performs the provider HTTP GET and maps the response body.
func (s *Sender) call(ctx context.Context, params url.Values) (*outboundResponse, error) {
	requestURL := s.apiURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating provider request: %w", err)
	}

	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending provider request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading provider response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider request failed: status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp outboundResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing provider response: %w", err)
	}

	s.logger.InfoContext(ctx, "Provider send succeeded",
		"channel_message_id", resp.Response.ID, "status", resp.Response.Status)
	return &resp, nil
}

// optInUser performs the side-effecting opt-in round trip the template
// branches require. Its failure is logged, not propagated: the primary
// call proceeds regardless, it just must not start earlier.
func (s *Sender) optInUser(ctx context.Context, userID string, creds *domain.Credentials) {
	params := url.Values{}
	params.Set("v", "1.1")
	params.Set("format", "json")
	params.Set("auth_scheme", "plain")
	params.Set("method", methodOptInSideCall)
	params.Set("userid", creds.UsernameHSM)
	params.Set("password", creds.PasswordHSM)
	params.Set("channel", "WHATSAPP")
	params.Set("phone_number", outboundCountryPrefix+userID)
	params.Set("messageId", defaultMessageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create opt-in request", "error", err)
		return
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.ErrorContext(ctx, "Opt-in side call failed", "error", err, "user_id", userID)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	s.logger.InfoContext(ctx, "Opt-in side call completed", "user_id", userID, "status_code", resp.StatusCode)
}

// defaultMessageID is the constant correlation id the gateway API expects.
const defaultMessageID = "123456789"

func (s *Sender) baseQuery() url.Values {
	params := url.Values{}
	params.Set("v", "1.1")
	params.Set("format", "json")
	params.Set("auth_scheme", "plain")
	params.Set("extra", s.extraTag)
	params.Set("data_encoding", "text")
	params.Set("messageId", defaultMessageID)
	return params
}

func setCredentialsAndMethod(params url.Values, method, username, password string) {
	params.Set("method", method)
	params.Set("userid", username)
	params.Set("password", password)
}

func methodForStylingTag(tag canonical.StylingTag) string {
	if tag.IsMedia() {
		return methodMediaMessage
	}
	return methodSimpleMessage
}

func msgTypeForStylingTag(tag canonical.StylingTag) string {
	switch tag {
	case canonical.StylingTagImage:
		return msgTypeImage
	case canonical.StylingTagAudio:
		return msgTypeAudio
	case canonical.StylingTagVideo:
		return msgTypeVideo
	case canonical.StylingTagDocument:
		return msgTypeDocument
	default:
		return msgTypeText
	}
}

// renderMessageChoices renders the display texts of the choices, each on its
// own line, for appending after the message body.
func renderMessageChoices(choices []canonical.ButtonChoice) string {
	var b strings.Builder
	for _, choice := range choices {
		b.WriteString("\n")
		b.WriteString(choice.Text)
	}
	return b.String()
}
