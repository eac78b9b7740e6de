package gupshup

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/convobridge/gupshup-gateway/internal/canonical"
)

// mediaInfo is the resolved description of an inbound attachment.
// Category is empty when the sub-document was absent or unparseable;
// callers must not upload in that case.
type mediaInfo struct {
	URL      string
	MimeType string
	Category canonical.MediaCategory
}

type mediaContent struct {
	URL       string `json:"url"`
	Signature string `json:"signature"`
	MimeType  string `json:"mime_type"`
}

// extractMediaInfo selects the type-specific sub-document, parses it and
// classifies the attachment. The provider returns the signature as a
// detachable query fragment, so the fetchable URL is url+signature.
func (t *Translator) extractMediaInfo(ctx context.Context, raw *InboundMessage) mediaInfo {
	var doc string
	switch raw.Type {
	case inboundTypeImage:
		doc = raw.Image
	case inboundTypeAudio:
		doc = raw.Audio
	case inboundTypeVoice:
		doc = raw.Voice
	case inboundTypeVideo:
		doc = raw.Video
	case inboundTypeDocument:
		doc = raw.Document
	}

	var info mediaInfo
	if doc == "" {
		return info
	}

	var content mediaContent
	if err := json.Unmarshal([]byte(doc), &content); err != nil {
		t.logger.ErrorContext(ctx, "Failed to parse inbound media content", "error", err, "message_id", raw.MessageID, "type", raw.Type)
		return info
	}

	info.URL = content.URL + content.Signature
	info.MimeType = content.MimeType
	info.Category = mediaCategoryForMime(content.MimeType)
	return info
}

func mediaCategoryForMime(mimeType string) canonical.MediaCategory {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return canonical.MediaCategoryImage
	case strings.HasPrefix(mimeType, "audio/"):
		return canonical.MediaCategoryAudio
	case strings.HasPrefix(mimeType, "video/"):
		return canonical.MediaCategoryVideo
	default:
		return canonical.MediaCategoryFile
	}
}

// inboundMedia resolves, mirrors and describes the attachment of an inbound
// media message. Upload failures are recorded on the descriptor, never
// raised; a message whose sub-document could not be classified yields nil.
func (t *Translator) inboundMedia(ctx context.Context, raw *InboundMessage) *canonical.MessageMedia {
	info := t.extractMediaInfo(ctx, raw)
	if info.Category == "" {
		t.logger.WarnContext(ctx, "Inbound media could not be classified, skipping upload", "message_id", raw.MessageID, "type", raw.Type)
		return nil
	}

	name, signedURL := t.uploadInboundMedia(ctx, raw.MessageID, info.URL, info.MimeType)

	media := &canonical.MessageMedia{
		Name:     name,
		URL:      signedURL,
		Category: info.Category,
	}
	if signedURL == "" {
		media.Error = canonical.MediaErrorEmptyResponse
	}
	return media
}

// uploadInboundMedia mirrors the provider-hosted file into object storage
// and returns the stored name and a signed retrieval URL. Any failure
// yields empty results.
func (t *Translator) uploadInboundMedia(ctx context.Context, messageID, mediaURL, mimeType string) (string, string) {
	if mediaURL == "" {
		return "", ""
	}

	maxSize := t.sizeLimits.MaxSizeForMedia(mimeType)

	name, err := t.mediaStore.Upload(ctx, mediaURL, mimeType, messageID, maxSize)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to upload inbound media", "error", err, "message_id", messageID, "mime_type", mimeType)
		return "", ""
	}
	if name == "" {
		return "", ""
	}

	signedURL, err := t.mediaStore.SignedURL(ctx, name)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to sign inbound media URL", "error", err, "message_id", messageID, "name", name)
		return name, ""
	}
	return name, signedURL
}
