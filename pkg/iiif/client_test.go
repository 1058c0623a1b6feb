package iiif

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	errs "iiifdl/pkg/errors"
	"iiifdl/pkg/logger"
	"iiifdl/pkg/retry"
)

// newTestClient returns a client whose transport is fully mocked and
// whose retry delays are negligible
func newTestClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	c := NewClient(5*time.Second, logger.NewNopLogger())
	transport := httpmock.NewMockTransport()
	c.httpClient.Transport = transport
	c.retryBackoff = &retry.ConstantBackoff{Delay: time.Millisecond}
	return c, transport
}

func TestLoadManifestFromURL(t *testing.T) {
	c, transport := newTestClient(t)
	url := "https://iiif.bodleian.ox.ac.uk/iiif/manifest/75a3e374.json"
	transport.RegisterResponder("GET", url, httpmock.NewStringResponder(200, manifestV2))

	m, err := c.LoadManifest(context.Background(), url)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if m.Source != url {
		t.Errorf("source = %q, want %q", m.Source, url)
	}
	if m.CanvasCount() != 3 {
		t.Errorf("canvases = %d, want 3", m.CanvasCount())
	}
	if got := transport.GetCallCountInfo()["GET "+url]; got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestLoadManifestFromFile(t *testing.T) {
	c, _ := newTestClient(t)

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(manifestV3), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := c.LoadManifest(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Version != Version3 {
		t.Errorf("version = %q, want %q", m.Version, Version3)
	}
	if m.CanvasCount() != 2 {
		t.Errorf("canvases = %d, want 2", m.CanvasCount())
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.LoadManifest(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errs.IsFatalSetup(err) {
		t.Errorf("error type = %v, want a fatal setup error", errs.TypeOf(err))
	}
}

func TestLoadManifestFatalOnNotFound(t *testing.T) {
	c, transport := newTestClient(t)
	url := "https://iiif.example.org/manifest.json"
	transport.RegisterResponder("GET", url, httpmock.NewStringResponder(404, "not found"))

	_, err := c.LoadManifest(context.Background(), url)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errs.IsFatalSetup(err) {
		t.Errorf("error type = %v, want a fatal setup error", errs.TypeOf(err))
	}
	// 404 is final; there must be no retries.
	if got := transport.GetCallCountInfo()["GET "+url]; got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestLoadManifestRetriesThrottling(t *testing.T) {
	c, transport := newTestClient(t)
	url := "https://iiif.example.org/manifest.json"

	transport.RegisterResponder("GET", url, httpmock.ResponderFromMultipleResponses(
		[]*http.Response{
			httpmock.NewStringResponse(503, "busy"),
			httpmock.NewStringResponse(503, "busy"),
			httpmock.NewStringResponse(200, manifestV2),
		},
	))

	m, err := c.LoadManifest(context.Background(), url)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.CanvasCount() != 3 {
		t.Errorf("canvases = %d, want 3", m.CanvasCount())
	}
	if got := transport.GetCallCountInfo()["GET "+url]; got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestLoadManifestRejectsNonJSON(t *testing.T) {
	c, transport := newTestClient(t)
	url := "https://iiif.example.org/manifest.json"
	transport.RegisterResponder("GET", url, httpmock.NewStringResponder(200, "<html>login</html>"))

	_, err := c.LoadManifest(context.Background(), url)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errs.IsFatalSetup(err) {
		t.Errorf("error type = %v, want a fatal setup error", errs.TypeOf(err))
	}
}

func TestInfoCachedPerService(t *testing.T) {
	c, transport := newTestClient(t)
	service := "https://iiif.example.org/image/abc"
	transport.RegisterResponder("GET", service+"/info.json",
		httpmock.NewStringResponder(200, `{"width": 5412, "height": 7092, "sizes": [{"width": 169, "height": 221}]}`))

	for i := 0; i < 3; i++ {
		info, err := c.Info(context.Background(), service)
		if err != nil {
			t.Fatalf("info: %v", err)
		}
		if info.Width != 5412 || info.Height != 7092 {
			t.Errorf("dims = %dx%d", info.Width, info.Height)
		}
		if len(info.Sizes) != 1 {
			t.Errorf("sizes = %d, want 1", len(info.Sizes))
		}
	}

	if got := transport.GetCallCountInfo()["GET "+service+"/info.json"]; got != 1 {
		t.Errorf("requests = %d, want 1 (cached afterwards)", got)
	}
}

func TestInfoSeparateServicesNotShared(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("GET", "https://iiif.example.org/image/a/info.json",
		httpmock.NewStringResponder(200, `{"width": 100, "height": 200}`))
	transport.RegisterResponder("GET", "https://iiif.example.org/image/b/info.json",
		httpmock.NewStringResponder(200, `{"width": 300, "height": 400}`))

	a, err := c.Info(context.Background(), "https://iiif.example.org/image/a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Info(context.Background(), "https://iiif.example.org/image/b")
	if err != nil {
		t.Fatal(err)
	}

	if a.Width != 100 || b.Width != 300 {
		t.Errorf("widths = %d/%d, want 100/300", a.Width, b.Width)
	}
}

func TestClientSendsConfiguredHeaders(t *testing.T) {
	c, transport := newTestClient(t)
	c.SetUserAgent("iiifdl-test/0.1")

	var gotUA, gotAccept string
	transport.RegisterResponder("GET", "https://iiif.example.org/manifest.json",
		func(req *http.Request) (*http.Response, error) {
			gotUA = req.Header.Get("User-Agent")
			gotAccept = req.Header.Get("Accept")
			return httpmock.NewStringResponse(200, manifestV2), nil
		})

	if _, err := c.LoadManifest(context.Background(), "https://iiif.example.org/manifest.json"); err != nil {
		t.Fatalf("load: %v", err)
	}

	if gotUA != "iiifdl-test/0.1" {
		t.Errorf("user agent = %q", gotUA)
	}
	if gotAccept == "" {
		t.Error("accept header not sent")
	}
}

func TestClientLogsThrottledRequests(t *testing.T) {
	tl := logger.NewTestLogger()
	c := NewClient(5*time.Second, tl)
	transport := httpmock.NewMockTransport()
	c.httpClient.Transport = transport
	c.retryBackoff = &retry.ConstantBackoff{Delay: time.Millisecond}
	c.SetMaxRetries(0)

	url := "https://iiif.example.org/manifest.json"
	transport.RegisterResponder("GET", url, httpmock.NewStringResponder(429, "slow down"))

	if _, err := c.LoadManifest(context.Background(), url); err == nil {
		t.Fatal("expected an error")
	}
	if !tl.HasMessage("HTTP request throttled") {
		t.Errorf("missing throttle warning; logged:\n%s", tl.String())
	}
}

func TestDoReturnsCanceledError(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("GET", "https://iiif.example.org/slow",
		httpmock.NewStringResponder(200, "ok").Delay(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Do(ctx, http.MethodGet, "https://iiif.example.org/slow")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errs.IsType(err, errs.ErrorTypeCanceled) {
		t.Errorf("error type = %v, want canceled", errs.TypeOf(err))
	}
}
