package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	errs "iiifdl/pkg/errors"
	"iiifdl/pkg/iiif"
	"iiifdl/pkg/logger"
	"iiifdl/pkg/ratelimit"
	"iiifdl/pkg/retry"
)

// DefaultChunkSize is the read buffer size for streaming image bodies
const DefaultChunkSize = 8192

// SizeSource records which mechanism supplied the expected byte total
// for a transfer
type SizeSource int

const (
	// SizeUnknown means no total was available; progress is a raw
	// byte counter
	SizeUnknown SizeSource = iota
	// SizeContentLength came from the GET response header
	SizeContentLength
	// SizeHEAD came from a HEAD request issued before the GET
	SizeHEAD
	// SizeEstimate was computed from pixel dimensions
	SizeEstimate
)

func (s SizeSource) String() string {
	switch s {
	case SizeContentLength:
		return "content-length"
	case SizeHEAD:
		return "head"
	case SizeEstimate:
		return "estimate"
	default:
		return "unknown"
	}
}

// Config carries the transfer tuning knobs
type Config struct {
	// Size is the Image API size selector ("full", "max", or a width)
	Size string
	// ChunkSize is the streaming read buffer size
	ChunkSize int
	// MaxRetries is the number of additional attempts after the first
	MaxRetries int
	// Timeout bounds the wait for response headers; bodies stream for
	// as long as the context allows
	Timeout time.Duration
	// Headers are sent with every image request
	Headers map[string]string
}

// DefaultConfig returns the stock transfer configuration
func DefaultConfig() Config {
	return Config{
		Size:       iiif.DefaultSize,
		ChunkSize:  DefaultChunkSize,
		MaxRetries: 3,
		Timeout:    30 * time.Second,
		Headers: map[string]string{
			"User-Agent": "iiifdl/1.0",
			"Accept":     "image/*, */*;q=0.8",
		},
	}
}

// ProgressFunc receives streaming progress. total is 0 when the size is
// unknown; source says where the total came from.
type ProgressFunc func(received, total int64, source SizeSource)

// Result describes one completed transfer
type Result struct {
	// Path is where the image landed; its extension follows the served
	// content type and may differ from the requested target
	Path         string
	BytesWritten int64
	ContentType  string
	SizeSource   SizeSource
	Attempts     int
}

// Transferrer streams single images to disk. Every response outcome is
// fed back into the rate limiter, and the pauses between retry attempts
// come from the same limiter, so server pushback observed by one
// transfer slows down everything that follows.
type Transferrer struct {
	fs         afero.Fs
	client     *http.Client
	limiter    ratelimit.Limiter
	caps       *Capabilities
	estimator  Estimator
	cfg        Config
	logger     logger.Logger
	onProgress ProgressFunc
}

// New creates a Transferrer writing to the real filesystem
func New(cfg Config, limiter ratelimit.Limiter, log logger.Logger) *Transferrer {
	return NewWithFS(afero.NewOsFs(), cfg, limiter, log)
}

// NewWithFS creates a Transferrer writing through the given filesystem
func NewWithFS(fs afero.Fs, cfg Config, limiter ratelimit.Limiter, log logger.Logger) *Transferrer {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.NewFixedDelay(0)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &Transferrer{
		fs:        fs,
		client:    &http.Client{Transport: transport},
		limiter:   limiter,
		caps:      NewCapabilities(),
		estimator: DefaultEstimator(),
		cfg:       cfg,
		logger:    log,
	}
}

// OnProgress registers a callback invoked after every chunk
func (t *Transferrer) OnProgress(fn ProgressFunc) {
	t.onProgress = fn
}

// SetEstimator replaces the stock size-estimate multipliers
func (t *Transferrer) SetEstimator(e Estimator) {
	t.estimator = e
}

// Capabilities exposes the probed server capability record
func (t *Transferrer) Capabilities() *Capabilities {
	return t.caps
}

// Fetch downloads one canvas image to targetPath, streaming through a
// .part file that is renamed into place only on full success. Retryable
// failures are reattempted up to MaxRetries times with the rate
// limiter's current delay between attempts. No partial artifact remains
// after a failed or canceled fetch.
func (t *Transferrer) Fetch(ctx context.Context, canvas iiif.Canvas, targetPath string) (Result, error) {
	if !t.caps.Probed() {
		t.probeCapabilities(ctx, canvas)
	}

	var result Result
	attempts := 0
	op := func() error {
		attempts++
		res, err := t.attempt(ctx, canvas, targetPath)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	err := retry.Do(op, &retry.Config{
		MaxAttempts: t.cfg.MaxRetries + 1,
		Backoff: retry.DelayFunc(func(int) time.Duration {
			return t.limiter.NextDelay()
		}),
		RetryIf: retry.DefaultRetryIf,
		Context: ctx,
		Logger:  t.logger,
	})
	result.Attempts = attempts
	if err != nil {
		return Result{Attempts: attempts}, err
	}
	return result, nil
}

// attempt performs one request/stream cycle
func (t *Transferrer) attempt(ctx context.Context, canvas iiif.Canvas, targetPath string) (Result, error) {
	start := time.Now()
	ext := t.caps.PreferredExt()
	url := t.requestURL(canvas, ext)
	if url == "" {
		return Result{}, errs.NewSetup("canvas %d has no image URL", canvas.Index)
	}

	hint, source := t.sizeHint(ctx, canvas, url)

	resp, err := t.get(ctx, url)
	if err != nil {
		return Result{}, err
	}

	// A service that rejects the jpeg spelling outright gets one retry
	// with jpg before the status is classified.
	if canvas.ServiceURL != "" && !t.caps.FormatSettled() &&
		ext == iiif.DefaultExtension && isFormatRejection(resp.StatusCode) {
		resp.Body.Close()
		ext = "jpg"
		url = t.requestURL(canvas, ext)
		if resp, err = t.get(ctx, url); err != nil {
			return Result{}, err
		}
	}

	outcome := ratelimit.OutcomeForStatus(resp.StatusCode)
	t.limiter.OnResponse(outcome)
	if outcome == ratelimit.Throttled {
		logger.LogRateAdjust(outcome.String(), t.limiter.NextDelay())
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		event := t.logger.WithFields(map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
		})
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			event.Warn("image request throttled")
		} else {
			event.Warn("image request rejected")
		}
		return Result{}, errs.NewHTTPStatus(resp.StatusCode, url)
	}

	if canvas.ServiceURL != "" && !t.caps.FormatSettled() {
		t.caps.confirmFormat(ext)
	}

	contentType := resp.Header.Get("Content-Type")
	finalPath := pathForContentType(targetPath, contentType)

	total := int64(0)
	switch {
	case resp.ContentLength > 0:
		total = resp.ContentLength
		source = SizeContentLength
	case hint > 0:
		total = hint
	default:
		source = SizeUnknown
	}

	written, err := t.stream(ctx, resp.Body, url, finalPath, total, source)
	resp.Body.Close()
	if err != nil {
		return Result{}, err
	}

	t.logger.WithFields(map[string]interface{}{
		"url":         url,
		"path":        finalPath,
		"bytes":       written,
		"size_source": source.String(),
		"duration":    time.Since(start),
	}).Debug("image downloaded")

	return Result{
		Path:         finalPath,
		BytesWritten: written,
		ContentType:  contentType,
		SizeSource:   source,
	}, nil
}

// get issues the GET and classifies connection-level failures
func (t *Transferrer) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeSetup, fmt.Sprintf("cannot build request for %s", url))
	}
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(ctx.Err(), errs.ErrorTypeCanceled, fmt.Sprintf("request to %s canceled", url))
		}
		t.limiter.OnResponse(ratelimit.TransportFailure)
		t.logger.WithFields(map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		}).Warn("image request failed")
		return nil, errs.NewTransport(err, url)
	}
	return resp, nil
}

// stream copies the body to finalPath+".part" in chunks, checking the
// context between chunks, then syncs and renames into place. The .part
// file is removed on every failure path.
func (t *Transferrer) stream(ctx context.Context, body io.Reader, url, finalPath string, total int64, source SizeSource) (int64, error) {
	tmp := finalPath + ".part"

	// Create truncates a leftover .part from an interrupted run
	f, err := t.fs.Create(tmp)
	if err != nil {
		return 0, errs.NewPartialWrite(err, tmp)
	}

	cleanup := func() {
		f.Close()
		t.fs.Remove(tmp)
	}

	var received int64
	buf := make([]byte, t.cfg.ChunkSize)
	for {
		select {
		case <-ctx.Done():
			cleanup()
			return 0, errs.Wrap(ctx.Err(), errs.ErrorTypeCanceled, "transfer canceled")
		default:
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			wn, werr := f.Write(buf[:n])
			if werr == nil && wn < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				cleanup()
				return 0, errs.NewPartialWrite(werr, tmp)
			}
			received += int64(n)
			if source == SizeEstimate {
				total = t.estimator.Refine(total, received)
			}
			if t.onProgress != nil {
				t.onProgress(received, total, source)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			cleanup()
			if ctx.Err() != nil {
				return 0, errs.Wrap(ctx.Err(), errs.ErrorTypeCanceled, "transfer canceled")
			}
			return 0, errs.NewTransport(rerr, url)
		}
	}

	if err := f.Sync(); err != nil {
		cleanup()
		return 0, errs.NewPartialWrite(err, tmp)
	}
	if err := f.Close(); err != nil {
		t.fs.Remove(tmp)
		return 0, errs.NewPartialWrite(err, tmp)
	}
	if err := t.fs.Rename(tmp, finalPath); err != nil {
		t.fs.Remove(tmp)
		return 0, errs.NewPartialWrite(err, finalPath)
	}
	return received, nil
}

// sizeHint resolves the expected byte total before the GET: a HEAD
// Content-Length when the server supports HEAD, else a dimension-based
// estimate when the canvas has pixel dimensions
func (t *Transferrer) sizeHint(ctx context.Context, canvas iiif.Canvas, url string) (int64, SizeSource) {
	if t.caps.SupportsHEAD() {
		if status, length, err := t.head(ctx, url); err == nil && status == http.StatusOK && length > 0 {
			return length, SizeHEAD
		}
	}
	if canvas.Width > 0 && canvas.Height > 0 {
		width := requestWidth(t.cfg.Size, canvas.Width)
		if n := t.estimator.EstimateScaled(canvas.Width, canvas.Height, width, t.caps.PreferredExt()); n > 0 {
			return n, SizeEstimate
		}
	}
	return 0, SizeUnknown
}

// requestURL resolves the URL for the canvas using the given format
// spelling. Canvases without an image service only have their embedded
// URL, which honors neither size nor format.
func (t *Transferrer) requestURL(canvas iiif.Canvas, ext string) string {
	if canvas.ServiceURL != "" {
		return iiif.ImageURL(canvas.ServiceURL, t.cfg.Size, ext)
	}
	return canvas.ImageURL
}

// requestWidth resolves the pixel width a size selector will produce
// for an image of the given native width
func requestWidth(size string, native int) int {
	switch size {
	case "", "full", "max":
		return native
	}
	if w, err := strconv.Atoi(strings.TrimSuffix(size, ",")); err == nil && w > 0 {
		return w
	}
	return native
}

// pathForContentType swaps the target's extension when the served
// content type names a recognized format. Unrecognized or missing
// content types leave the target untouched.
func pathForContentType(targetPath, contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !strings.HasPrefix(ct, "image/") && ct != "application/pdf" {
		return targetPath
	}
	ext := iiif.ExtensionForContentType(ct)
	current := strings.TrimPrefix(filepath.Ext(targetPath), ".")
	if ext == current {
		return targetPath
	}
	return strings.TrimSuffix(targetPath, filepath.Ext(targetPath)) + "." + ext
}
