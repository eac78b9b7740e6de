package gupshup

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/convobridge/gupshup-gateway/internal/adapter/domain"
	"github.com/convobridge/gupshup-gateway/internal/canonical"
)

var testCredentials = &domain.Credentials{
	UsernameHSM:  "hsm-user",
	PasswordHSM:  "hsm-pass",
	Username2Way: "2way-user",
	Password2Way: "2way-pass",
}

// recordingProvider captures the query of every request the sender issues.
type recordingProvider struct {
	mu       sync.Mutex
	requests []url.Values
	status   int
	body     string
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{
		status: http.StatusOK,
		body:   `{"response":{"id":"wa-123","status":"success"}}`,
	}
}

func (p *recordingProvider) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requests = append(p.requests, r.URL.Query())
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.status)
		io.WriteString(w, p.body)
	}
}

func (p *recordingProvider) recorded() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.requests...)
}

func newTestSender(t *testing.T, provider *recordingProvider, mediaStore domain.MediaStore) *Sender {
	t.Helper()
	server := httptest.NewServer(provider.handler())
	t.Cleanup(server.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSender(server.URL, "TestTag", mediaStore, server.Client(), logger)
}

func repliedMessage() *canonical.Message {
	return &canonical.Message{
		To:           canonical.SenderReceiver{UserID: "9999912345"},
		ChannelURI:   "WhatsApp",
		ProviderURI:  "gupshup",
		MessageState: canonical.MessageStateReplied,
		MessageType:  canonical.MessageTypeText,
		Payload:      canonical.Payload{Text: "pick one"},
	}
}

func TestSender_Send_PlainTextWithChoices(t *testing.T) {
	provider := newRecordingProvider()
	sender := newTestSender(t, provider, nil)

	msg := repliedMessage()
	msg.Payload.ButtonChoices = []canonical.ButtonChoice{
		{Key: "y", Text: "Yes"},
		{Key: "n", Text: "No"},
	}

	sent, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)
	require.NotNil(t, sent)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	q := requests[0]

	assert.Equal(t, "pick one\nYes\nNo", q.Get("msg"))
	assert.Equal(t, "SIMPLEMESSAGE", q.Get("method"))
	assert.Equal(t, "TEXT", q.Get("msg_type"))
	assert.Equal(t, "2way-user", q.Get("userid"))
	assert.Equal(t, "2way-pass", q.Get("password"))
	assert.Equal(t, "919999912345", q.Get("send_to"))
	assert.Equal(t, "1.1", q.Get("v"))
	assert.Equal(t, "json", q.Get("format"))
	assert.Equal(t, "plain", q.Get("auth_scheme"))
	assert.Equal(t, "TestTag", q.Get("extra"))
	assert.Equal(t, "text", q.Get("data_encoding"))
	assert.Equal(t, "123456789", q.Get("messageId"))

	assert.Equal(t, canonical.MessageStateSent, sent.MessageState)
	assert.Equal(t, "wa-123", sent.MessageID.ChannelMessageID)
	// The input message is committed only through the returned copy.
	assert.Equal(t, canonical.MessageStateReplied, msg.MessageState)
	assert.Empty(t, msg.MessageID.ChannelMessageID)
}

func TestSender_Send_OptedIn(t *testing.T) {
	provider := newRecordingProvider()
	sender := newTestSender(t, provider, nil)

	msg := repliedMessage()
	msg.MessageState = canonical.MessageStateOptedIn

	sent, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)
	require.NotNil(t, sent)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	q := requests[0]

	assert.Equal(t, "OPTIN", q.Get("method"))
	assert.Equal(t, "whatsapp", q.Get("channel"))
	assert.Equal(t, "919999912345", q.Get("phone_number"))
	assert.Equal(t, "2way-user", q.Get("userid"))
	assert.Empty(t, q.Get("send_to"))
}

func TestSender_Send_HSMPerformsOptInFirst(t *testing.T) {
	provider := newRecordingProvider()
	sender := newTestSender(t, provider, nil)

	msg := repliedMessage()
	msg.MessageType = canonical.MessageTypeHSM
	msg.MessageState = canonical.MessageStateSent // not REPLIED: type drives the branch
	msg.Payload.ButtonChoices = []canonical.ButtonChoice{{Key: "1", Text: "Confirm"}}

	sent, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)
	require.NotNil(t, sent)

	requests := provider.recorded()
	require.Len(t, requests, 2)

	optIn := requests[0]
	assert.Equal(t, "OPT_IN", optIn.Get("method"))
	assert.Equal(t, "hsm-user", optIn.Get("userid"))
	assert.Equal(t, "hsm-pass", optIn.Get("password"))
	assert.Equal(t, "WHATSAPP", optIn.Get("channel"))
	assert.Equal(t, "919999912345", optIn.Get("phone_number"))

	primary := requests[1]
	assert.Equal(t, "SIMPLEMESSAGE", primary.Get("method"))
	assert.Equal(t, "hsm-user", primary.Get("userid"))
	assert.Equal(t, "true", primary.Get("isHSM"))
	assert.Equal(t, "HSM", primary.Get("msg_type"))
	assert.Equal(t, "pick one\nConfirm", primary.Get("msg"))
}

func TestSender_Send_HSMWithButton(t *testing.T) {
	provider := newRecordingProvider()
	sender := newTestSender(t, provider, nil)

	msg := repliedMessage()
	msg.MessageType = canonical.MessageTypeHSMWithButton
	msg.MessageState = canonical.MessageStateSent

	sent, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)
	require.NotNil(t, sent)

	requests := provider.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "OPT_IN", requests[0].Get("method"))

	primary := requests[1]
	assert.Equal(t, "SendMessage", primary.Get("method"))
	assert.Equal(t, "true", primary.Get("isTemplate"))
	assert.Equal(t, "HSM", primary.Get("msg_type"))
	assert.Empty(t, primary.Get("isHSM"))
}

func TestSender_Send_ListStylingTag(t *testing.T) {
	provider := newRecordingProvider()
	sender := newTestSender(t, provider, nil)

	msg := repliedMessage()
	msg.Payload.StylingTag = canonical.StylingTagList
	msg.Payload.ButtonChoices = []canonical.ButtonChoice{
		{Key: "a", Text: "Opt A"},
		{Key: "b", Text: "Opt B"},
	}

	_, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	q := requests[0]

	assert.Equal(t, "list", q.Get("interactive_type"))
	assert.Equal(t, "pick one", q.Get("msg"))
	assert.Equal(t, "SIMPLEMESSAGE", q.Get("method"))

	var action listAction
	require.NoError(t, json.Unmarshal([]byte(q.Get("action")), &action))
	require.Len(t, action.Sections, 1)
	require.Len(t, action.Sections[0].Rows, 2)
	assert.Equal(t, "a", action.Sections[0].Rows[0].ID)
	assert.Equal(t, "Opt A", action.Sections[0].Rows[0].Title)
}

func TestSender_Send_QuickReplyStylingTag(t *testing.T) {
	provider := newRecordingProvider()
	sender := newTestSender(t, provider, nil)

	msg := repliedMessage()
	msg.Payload.StylingTag = canonical.StylingTagQuickReplyBtn
	msg.Payload.ButtonChoices = []canonical.ButtonChoice{{Key: "y", Text: "Yes"}}

	_, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "dr_button", requests[0].Get("interactive_type"))
	assert.NotEmpty(t, requests[0].Get("action"))
}

func TestSender_Send_ListValidationFailureFallsBackToPlainText(t *testing.T) {
	provider := newRecordingProvider()
	sender := newTestSender(t, provider, nil)

	msg := repliedMessage()
	msg.Payload.StylingTag = canonical.StylingTagList
	// 11 choices exceed the provider limit of 10.
	for i := 0; i < 11; i++ {
		msg.Payload.ButtonChoices = append(msg.Payload.ButtonChoices, canonical.ButtonChoice{Key: "k", Text: "Choice"})
	}

	_, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	q := requests[0]

	assert.Empty(t, q.Get("interactive_type"))
	assert.Empty(t, q.Get("action"))
	assert.Contains(t, q.Get("msg"), "pick one\nChoice")
}

func TestSender_Send_MediaStylingTag(t *testing.T) {
	provider := newRecordingProvider()
	mediaStore := new(MockMediaStore)
	mediaStore.On("SignedURL", mock.Anything, "stored-key.png").
		Return("https://cdn.internal/stored-key.png?token=abc", nil)
	sender := newTestSender(t, provider, mediaStore)

	msg := repliedMessage()
	msg.Payload.Text = " stored-key.png "
	msg.Payload.StylingTag = canonical.StylingTagImage

	_, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	q := requests[0]

	assert.Equal(t, "MEDIAMESSAGE", q.Get("method"))
	assert.Equal(t, "IMAGE", q.Get("msg_type"))
	assert.Equal(t, "https://cdn.internal/stored-key.png?token=abc", q.Get("media_url"))
	assert.Equal(t, "IMAGE", q.Get("caption"))
	assert.Equal(t, "false", q.Get("isHSM"))
	assert.Empty(t, q.Get("msg"))
	mediaStore.AssertExpectations(t)
}

func TestSender_Send_MediaCaptionFromPayload(t *testing.T) {
	provider := newRecordingProvider()
	mediaStore := new(MockMediaStore)
	mediaStore.On("SignedURL", mock.Anything, "doc-key").Return("https://signed/doc", nil)
	sender := newTestSender(t, provider, mediaStore)

	msg := repliedMessage()
	msg.Payload.Text = "doc-key"
	msg.Payload.StylingTag = canonical.StylingTagDocument
	msg.Payload.MediaCaption = "Quarterly report"

	_, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "Quarterly report", requests[0].Get("caption"))
}

func TestSender_Send_AudioHasNoCaption(t *testing.T) {
	provider := newRecordingProvider()
	mediaStore := new(MockMediaStore)
	mediaStore.On("SignedURL", mock.Anything, "clip").Return("https://signed/clip", nil)
	sender := newTestSender(t, provider, mediaStore)

	msg := repliedMessage()
	msg.Payload.Text = "clip"
	msg.Payload.StylingTag = canonical.StylingTagAudio

	_, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "https://signed/clip", requests[0].Get("media_url"))
	assert.Empty(t, requests[0].Get("caption"))
}

func TestSender_Send_MediaUnresolvedFallsBackToPlainText(t *testing.T) {
	provider := newRecordingProvider()
	mediaStore := new(MockMediaStore)
	mediaStore.On("SignedURL", mock.Anything, "missing-key").Return("", nil)
	sender := newTestSender(t, provider, mediaStore)

	msg := repliedMessage()
	msg.Payload.Text = "missing-key"
	msg.Payload.StylingTag = canonical.StylingTagImage

	_, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	q := requests[0]

	assert.Empty(t, q.Get("media_url"))
	assert.Equal(t, "missing-key", q.Get("msg"))
}

func TestSender_Send_MediaURLStylingTag(t *testing.T) {
	provider := newRecordingProvider()
	mediaStore := new(MockMediaStore)
	sender := newTestSender(t, provider, mediaStore)

	msg := repliedMessage()
	msg.Payload.Text = "https://cdn.public/video.mp4"
	msg.Payload.StylingTag = canonical.StylingTagVideoURL

	_, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)

	requests := provider.recorded()
	require.Len(t, requests, 1)
	q := requests[0]

	assert.Equal(t, "https://cdn.public/video.mp4", q.Get("media_url"))
	assert.Equal(t, "false", q.Get("isHSM"))
	// Direct URLs skip the signed-URL resolution entirely.
	mediaStore.AssertNotCalled(t, "SignedURL", mock.Anything, mock.Anything)
}

func TestSender_Send_NoBranchIsNoOp(t *testing.T) {
	provider := newRecordingProvider()
	sender := newTestSender(t, provider, nil)

	msg := repliedMessage()
	msg.MessageState = canonical.MessageStateDelivered

	sent, err := sender.Send(context.Background(), msg, testCredentials)
	require.NoError(t, err)
	assert.Nil(t, sent)
	assert.Empty(t, provider.recorded())
}

func TestSender_Send_ProviderFailureLeavesMessageUnmodified(t *testing.T) {
	provider := newRecordingProvider()
	provider.status = http.StatusInternalServerError
	provider.body = "gateway exploded"
	sender := newTestSender(t, provider, nil)

	msg := repliedMessage()
	sent, err := sender.Send(context.Background(), msg, testCredentials)

	require.Error(t, err)
	assert.Nil(t, sent)
	assert.Equal(t, canonical.MessageStateReplied, msg.MessageState)
	assert.Empty(t, msg.MessageID.ChannelMessageID)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRenderMessageChoices(t *testing.T) {
	assert.Empty(t, renderMessageChoices(nil))
	assert.Empty(t, renderMessageChoices([]canonical.ButtonChoice{}))
	assert.Equal(t, "\nYes", renderMessageChoices([]canonical.ButtonChoice{{Text: "Yes"}}))
	assert.Equal(t, "\nYes\nNo", renderMessageChoices([]canonical.ButtonChoice{{Text: "Yes"}, {Text: "No"}}))
}
