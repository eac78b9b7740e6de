package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/convobridge/gupshup-gateway/internal/adapter/gupshup"
	"github.com/convobridge/gupshup-gateway/internal/canonical"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProcessor(publisher Publisher) *WebhookProcessor {
	translator := gupshup.NewTranslator(nil, nil, discardLogger())
	return NewWebhookProcessor(translator, publisher, "xmessage.inbound.gupshup", discardLogger())
}

func TestWebhookProcessor_Process_PublishesTranslatedMessage(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, "xmessage.inbound.gupshup", mock.MatchedBy(func(data []byte) bool {
		var msg canonical.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return false
		}
		return msg.MessageState == canonical.MessageStateReplied && msg.Payload.Text == "hello"
	})).Return(nil)
	processor := newTestProcessor(publisher)

	err := processor.Process(context.Background(), &gupshup.InboundMessage{
		Type:   "text",
		Mobile: "919876543210",
		Text:   "hello",
	})

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestWebhookProcessor_Process_UntranslatablePayloadIsAcknowledged(t *testing.T) {
	publisher := new(MockPublisher)
	processor := newTestProcessor(publisher)

	err := processor.Process(context.Background(), &gupshup.InboundMessage{
		Type:   "sticker",
		Mobile: "919876543210",
	})

	require.NoError(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookProcessor_Process_TranslationErrorPropagates(t *testing.T) {
	publisher := new(MockPublisher)
	processor := newTestProcessor(publisher)

	err := processor.Process(context.Background(), &gupshup.InboundMessage{
		Response: "not-a-json-array",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "translating inbound message")
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookProcessor_Process_PublishErrorPropagates(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("nats down"))
	processor := newTestProcessor(publisher)

	err := processor.Process(context.Background(), &gupshup.InboundMessage{
		Type:   "text",
		Mobile: "919876543210",
		Text:   "hello",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing canonical message")
}
