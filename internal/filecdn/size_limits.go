package filecdn

import "strings"

// SizeLimits is a config-backed size-limit policy: one byte limit per media
// family plus a default for anything else.
type SizeLimits struct {
	Image   float64
	Audio   float64
	Video   float64
	Default float64
}

// MaxSizeForMedia resolves the maximum allowed byte size for a MIME type.
func (s SizeLimits) MaxSizeForMedia(mimeType string) float64 {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return s.Image
	case strings.HasPrefix(mimeType, "audio/"):
		return s.Audio
	case strings.HasPrefix(mimeType, "video/"):
		return s.Video
	default:
		return s.Default
	}
}
