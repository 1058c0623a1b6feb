package iiif

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	errs "iiifdl/pkg/errors"
	"iiifdl/pkg/logger"
	"iiifdl/pkg/retry"
)

// infoCacheSize bounds the per-client info.json cache; manifests rarely
// reference more than a handful of distinct image services.
const infoCacheSize = 256

// Client wraps HTTP access to IIIF endpoints: manifest documents,
// image-service info.json, and the image resources themselves.
type Client struct {
	httpClient   *http.Client
	headers      map[string]string
	maxRetries   int
	retryBackoff retry.BackoffStrategy
	logger       logger.Logger
	infoCache    *lru.Cache[string, *Info]
}

// NewClient creates a client. The timeout bounds how long a server may
// take to start responding; body reads are bounded by the caller's
// context instead, so large image transfers are not cut off mid-stream.
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	cache, _ := lru.New[string, *Info](infoCacheSize)

	return &Client{
		httpClient: &http.Client{Transport: transport},
		headers: map[string]string{
			"User-Agent": "iiifdl/1.0",
			"Accept":     "application/ld+json, application/json;q=0.9, */*;q=0.5",
		},
		maxRetries:   3,
		retryBackoff: retry.DefaultExponentialBackoff(),
		logger:       log,
		infoCache:    cache,
	}
}

// SetUserAgent overrides the User-Agent header
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.headers["User-Agent"] = ua
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetMaxRetries sets how many times manifest and info.json requests are
// retried after a transient failure
func (c *Client) SetMaxRetries(n int) {
	if n >= 0 {
		c.maxRetries = n
	}
}

// Do performs one HTTP request with the client's headers and logs the
// exchange. The caller owns the response body. The response status is
// not interpreted here.
func (c *Client) Do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeSetup, fmt.Sprintf("cannot build %s request for %s", method, url))
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(ctx.Err(), errs.ErrorTypeCanceled, fmt.Sprintf("request to %s canceled", url))
		}
		c.logger.WithFields(map[string]interface{}{
			"method":   method,
			"url":      url,
			"duration": duration,
		}).WithError(err).Warn("HTTP request failed")
		return nil, errs.NewTransport(err, url)
	}

	c.logRequest(method, url, resp.StatusCode, duration)
	return resp, nil
}

func (c *Client) logRequest(method, url string, status int, duration time.Duration) {
	l := c.logger.WithFields(map[string]interface{}{
		"method":   method,
		"url":      url,
		"status":   status,
		"duration": duration,
	})

	switch {
	case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		l.Warn("HTTP request throttled")
	case status >= 500:
		l.Warn("HTTP server error")
	case status >= 400:
		l.Debug("HTTP client error")
	default:
		l.Debug("HTTP request completed")
	}
}

// GetJSON fetches url and decodes the JSON response into target,
// retrying transient failures with exponential backoff
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	op := func() error {
		resp, err := c.Do(ctx, http.MethodGet, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errs.NewHTTPStatus(resp.StatusCode, url)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.NewTransport(err, url)
		}

		if err := json.Unmarshal(body, target); err != nil {
			preview := string(body)
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			c.logger.WithFields(map[string]interface{}{
				"url":          url,
				"body_preview": preview,
			}).WithError(err).Error("failed to parse JSON response")
			return errs.Wrap(err, errs.ErrorTypeParsing, fmt.Sprintf("response from %s is not valid JSON", url))
		}
		return nil
	}

	return retry.Do(op, &retry.Config{
		MaxAttempts: c.maxRetries + 1,
		Backoff:     c.retryBackoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger,
	})
}

// LoadManifest loads and normalizes a manifest from a URL or a local
// file path. Any failure here is fatal for the run.
func (c *Client) LoadManifest(ctx context.Context, source string) (*Manifest, error) {
	data, err := c.readManifest(ctx, source)
	if err != nil {
		return nil, err
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeSetup, fmt.Sprintf("manifest %s is unusable", source))
	}
	m.Source = source

	c.logger.WithFields(map[string]interface{}{
		"source":   source,
		"version":  string(m.Version),
		"canvases": len(m.Canvases),
	}).Info("manifest loaded")

	return m, nil
}

func (c *Client) readManifest(ctx context.Context, source string) ([]byte, error) {
	if IsRemote(source) {
		var data json.RawMessage
		if err := c.GetJSON(ctx, source, &data); err != nil {
			return nil, errs.Wrap(err, errs.ErrorTypeSetup, fmt.Sprintf("cannot fetch manifest from %s", source))
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeSetup, fmt.Sprintf("cannot read manifest file %s", source))
	}
	return data, nil
}

// Info returns the image-service info.json document, cached per service
// URL for the lifetime of the client
func (c *Client) Info(ctx context.Context, serviceURL string) (*Info, error) {
	if info, ok := c.infoCache.Get(serviceURL); ok {
		return info, nil
	}

	var info Info
	if err := c.GetJSON(ctx, InfoURL(serviceURL), &info); err != nil {
		return nil, err
	}

	c.infoCache.Add(serviceURL, &info)
	return &info, nil
}
