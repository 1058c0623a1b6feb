package transfer

import (
	"context"
	"net/http"

	"iiifdl/pkg/iiif"
)

// Capabilities caches what one probe discovered about the image server:
// whether it answers HEAD requests and which jpeg spelling it accepts in
// the format segment. Probed once per run against the first canvas that
// actually needs fetching. The engine drives transfers strictly
// sequentially, so the fields need no locking.
type Capabilities struct {
	probed        bool
	supportsHEAD  bool
	preferredExt  string
	formatSettled bool
}

// NewCapabilities returns an unprobed capability record assuming the
// jpeg spelling
func NewCapabilities() *Capabilities {
	return &Capabilities{preferredExt: iiif.DefaultExtension}
}

// Probed reports whether the one-time probe has run
func (c *Capabilities) Probed() bool {
	return c.probed
}

// SupportsHEAD reports whether the server answered a HEAD request with
// 200. When false, per-image HEAD size lookups are skipped entirely.
func (c *Capabilities) SupportsHEAD() bool {
	return c.supportsHEAD
}

// PreferredExt returns the format spelling to request, "jpeg" until a
// response proves otherwise
func (c *Capabilities) PreferredExt() string {
	return c.preferredExt
}

// FormatSettled reports whether a response has confirmed the preferred
// spelling. Until then the first rejected GET retries with "jpg".
func (c *Capabilities) FormatSettled() bool {
	return c.formatSettled
}

func (c *Capabilities) confirmFormat(ext string) {
	c.preferredExt = ext
	c.formatSettled = true
}

// probeCapabilities issues a HEAD request against the canvas to learn
// whether the server supports HEAD and which format spelling it serves.
// 400/404/415 on the jpeg spelling triggers one retry with jpg; a
// transport failure leaves everything to be sorted out by the first GET.
func (t *Transferrer) probeCapabilities(ctx context.Context, canvas iiif.Canvas) {
	t.caps.probed = true

	if canvas.ServiceURL == "" {
		// A direct image URL has no negotiable format segment; only
		// HEAD support is worth probing.
		if status, _, err := t.head(ctx, canvas.ImageURL); err == nil && status == http.StatusOK {
			t.caps.supportsHEAD = true
		}
		return
	}

	url := iiif.ImageURL(canvas.ServiceURL, t.cfg.Size, iiif.DefaultExtension)
	status, _, err := t.head(ctx, url)
	switch {
	case err != nil:
		return
	case status == http.StatusOK:
		t.caps.supportsHEAD = true
		t.caps.confirmFormat(iiif.DefaultExtension)
	case isFormatRejection(status):
		alt := iiif.ImageURL(canvas.ServiceURL, t.cfg.Size, "jpg")
		if altStatus, _, altErr := t.head(ctx, alt); altErr == nil && altStatus == http.StatusOK {
			t.caps.supportsHEAD = true
			t.caps.confirmFormat("jpg")
		}
	}

	t.logger.WithFields(map[string]interface{}{
		"supports_head": t.caps.supportsHEAD,
		"format":        t.caps.preferredExt,
	}).Debug("server capabilities probed")
}

// head performs a HEAD request and returns the status code and reported
// Content-Length
func (t *Transferrer) head(ctx context.Context, url string) (int, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, 0, err
	}
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, resp.ContentLength, nil
}

// isFormatRejection reports whether the status is how Image API servers
// turn down a format spelling they do not serve
func isFormatRejection(status int) bool {
	return status == http.StatusBadRequest ||
		status == http.StatusNotFound ||
		status == http.StatusUnsupportedMediaType
}
