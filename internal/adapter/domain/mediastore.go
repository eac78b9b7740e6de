package domain

import "context"

// MediaStore mirrors provider-hosted media into object storage and issues
// time-limited retrieval links. Implementations report failures through
// their error return; callers translate empty results into the
// EMPTY_RESPONSE marker on the media descriptor.
type MediaStore interface {
	// Upload fetches sourceURL (up to maxSize bytes) and stores it under a
	// generated name, returned on success.
	Upload(ctx context.Context, sourceURL, mimeType, messageID string, maxSize float64) (string, error)

	// SignedURL returns a signed retrieval link for a previously stored name.
	SignedURL(ctx context.Context, name string) (string, error)
}

// SizeLimitPolicy resolves the maximum allowed byte size for a MIME type.
type SizeLimitPolicy interface {
	MaxSizeForMedia(mimeType string) float64
}
