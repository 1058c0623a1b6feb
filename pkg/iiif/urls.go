package iiif

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultExtension is the on-disk file extension used until a served
	// content type says otherwise
	DefaultExtension = "jpeg"

	// DefaultSize requests the full-resolution rendering
	DefaultSize = "full"
)

// IsRemote reports whether source is an http(s) URL rather than a local
// file path
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// ImageURL builds an Image API request URL for the given service base.
// size is "full", "max", a pixel width, or a pre-formed size segment.
func ImageURL(serviceURL, size, ext string) string {
	base := strings.TrimSuffix(serviceURL, "/")
	base = strings.TrimSuffix(base, "/info.json")
	if ext == "" {
		ext = DefaultExtension
	}
	return fmt.Sprintf("%s/full/%s/0/default.%s", base, sizeSegment(size), imageAPIFormat(ext))
}

// InfoURL returns the info.json URL for an image service
func InfoURL(serviceURL string) string {
	base := strings.TrimSuffix(serviceURL, "/")
	if strings.HasSuffix(base, "/info.json") {
		return base
	}
	return base + "/info.json"
}

// RequestURL resolves the URL to fetch this canvas's image at the given
// size. Canvases without an image service fall back to the embedded
// image URL, which ignores the size request.
func (c Canvas) RequestURL(size string) string {
	if c.ServiceURL != "" {
		return ImageURL(c.ServiceURL, size, DefaultExtension)
	}
	return c.ImageURL
}

// sizeSegment maps the user-facing size value onto the Image API size
// path segment. A bare width N becomes "N," (width-constrained,
// aspect-preserving). Unrecognized values pass through untouched.
func sizeSegment(size string) string {
	switch size {
	case "", "full":
		return "full"
	case "max":
		return "max"
	}
	if w, err := strconv.Atoi(size); err == nil && w > 0 {
		return fmt.Sprintf("%d,", w)
	}
	return size
}

// imageAPIFormat maps an on-disk extension to the Image API format
// segment. The API spells tiff "tif"; jpeg passes through untouched
// because servers disagree on which jpeg spelling they accept and the
// capability probe settles it per run.
func imageAPIFormat(ext string) string {
	switch strings.ToLower(ext) {
	case "tiff":
		return "tif"
	default:
		return strings.ToLower(ext)
	}
}

// ExtensionForContentType maps a served Content-Type onto the on-disk
// file extension, DefaultExtension when the type is missing or unknown
func ExtensionForContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/tiff", "image/tif":
		return "tiff"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/jp2":
		return "jp2"
	case "application/pdf":
		return "pdf"
	}
	return DefaultExtension
}
