package tracker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultExtension is used when no content type has been negotiated yet
const DefaultExtension = "jpeg"

// Filename patterns. The plain scheme is current for unlabeled canvases
// and legacy for canvases that now carry a label; the hybrid scheme
// combines index and sanitized label.
var (
	plainPattern  = regexp.MustCompile(`^image_(\d{3,})\.([A-Za-z0-9]+)$`)
	hybridPattern = regexp.MustCompile(`^canvas-(\d{3,})_.+\.([A-Za-z0-9]+)$`)
)

// FilenameFor derives the on-disk name for a canvas. Labeled canvases
// get the hybrid index+label name; unlabeled canvases the plain
// indexed name.
func FilenameFor(index int, label, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	if label != "" {
		return fmt.Sprintf("canvas-%03d_%s.%s", index, Sanitize(label), ext)
	}
	return fmt.Sprintf("image_%03d.%s", index, ext)
}

// Sanitize replaces every character outside [A-Za-z0-9_.-] with an
// underscore, making a label safe for any filesystem
func Sanitize(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// IsPlainName reports whether name uses the plain indexed scheme
func IsPlainName(name string) bool {
	return plainPattern.MatchString(name)
}

// parseIndexed extracts the canvas index and extension from a name in
// either scheme
func parseIndexed(name string) (index int, ext string, ok bool) {
	m := hybridPattern.FindStringSubmatch(name)
	if m == nil {
		m = plainPattern.FindStringSubmatch(name)
	}
	if m == nil {
		return 0, "", false
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return index, m[2], true
}

// extensionOf returns the extension of a scheme-conforming filename,
// DefaultExtension if the name does not conform
func extensionOf(name string) string {
	if _, ext, ok := parseIndexed(name); ok {
		return ext
	}
	return DefaultExtension
}
