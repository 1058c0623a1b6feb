package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// PageSpec describes one canvas the mock server exposes: an image
// service under /iiif/{ID} and a manifest entry pointing at it.
type PageSpec struct {
	ID     string
	Label  string
	Width  int
	Height int
	Body   []byte

	// NoService embeds the image URL directly in the manifest with no
	// service block, exercising the direct-URL fallback
	NoService bool
}

// IIIFServer simulates the endpoint pair a real institution runs: a
// Presentation API manifest and the Image API services it references.
// Failures can be scripted per page and per request.
type IIIFServer struct {
	server  *httptest.Server
	version int
	pages   []PageSpec

	mu       sync.Mutex
	failures map[string][]int
	noHEAD   bool
	gets     map[string]int
	heads    map[string]int
	infoGets map[string]int
}

// NewIIIFServer starts a server presenting the pages through a
// Presentation API 2.1 manifest
func NewIIIFServer(pages []PageSpec) *IIIFServer {
	return newIIIFServer(pages, 2)
}

// NewIIIFServerV3 starts a server presenting the pages through a
// Presentation API 3.0 manifest
func NewIIIFServerV3(pages []PageSpec) *IIIFServer {
	return newIIIFServer(pages, 3)
}

func newIIIFServer(pages []PageSpec, version int) *IIIFServer {
	s := &IIIFServer{
		version:  version,
		pages:    pages,
		failures: make(map[string][]int),
		gets:     make(map[string]int),
		heads:    make(map[string]int),
		infoGets: make(map[string]int),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the server's base URL
func (s *IIIFServer) URL() string {
	return s.server.URL
}

// ManifestURL returns the manifest endpoint
func (s *IIIFServer) ManifestURL() string {
	return s.server.URL + "/manifest.json"
}

// Close shuts the server down
func (s *IIIFServer) Close() {
	s.server.Close()
}

// FailNext queues scripted statuses for the page's next image GETs.
// Each GET consumes one queued status; the queue drained, requests
// succeed again.
func (s *IIIFServer) FailNext(id string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < times; i++ {
		s.failures[id] = append(s.failures[id], status)
	}
}

// DisableHEAD makes every image HEAD request answer 405
func (s *IIIFServer) DisableHEAD() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noHEAD = true
}

// ImageGETs returns how many GETs reached the page's image endpoint
func (s *IIIFServer) ImageGETs(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[id]
}

// ImageHEADs returns how many HEADs reached the page's image endpoint
func (s *IIIFServer) ImageHEADs(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heads[id]
}

// InfoGETs returns how many GETs reached the page's info.json
func (s *IIIFServer) InfoGETs(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoGets[id]
}

func (s *IIIFServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/manifest.json":
		s.writeManifest(w)
	case strings.HasPrefix(r.URL.Path, "/iiif/"):
		s.handleImage(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *IIIFServer) handleImage(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/iiif/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	id, tail := parts[0], parts[1]

	page, ok := s.page(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if tail == "info.json" {
		s.mu.Lock()
		s.infoGets[id]++
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"@context": "http://iiif.io/api/image/2/context.json",
			"@id":      s.serviceURL(id),
			"protocol": "http://iiif.io/api/image",
			"width":    page.Width,
			"height":   page.Height,
		})
		return
	}

	// Image API path: {region}/{size}/{rotation}/default.{format}
	if !strings.HasPrefix(tail, "full/") || !strings.Contains(tail, "/default.") {
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodHead {
		s.mu.Lock()
		s.heads[id]++
		refused := s.noHEAD
		s.mu.Unlock()
		if refused {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(page.Body)))
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mu.Lock()
	s.gets[id]++
	scripted := 0
	if queue := s.failures[id]; len(queue) > 0 {
		scripted = queue[0]
		s.failures[id] = queue[1:]
	}
	s.mu.Unlock()

	if scripted != 0 {
		http.Error(w, http.StatusText(scripted), scripted)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(page.Body)
}

func (s *IIIFServer) page(id string) (PageSpec, bool) {
	for _, p := range s.pages {
		if p.ID == id {
			return p, true
		}
	}
	return PageSpec{}, false
}

func (s *IIIFServer) serviceURL(id string) string {
	return s.server.URL + "/iiif/" + id
}

func (s *IIIFServer) imageURL(id string) string {
	return s.serviceURL(id) + "/full/full/0/default.jpg"
}

func (s *IIIFServer) writeManifest(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if s.version == 3 {
		json.NewEncoder(w).Encode(s.manifestV3())
		return
	}
	json.NewEncoder(w).Encode(s.manifestV2())
}

func (s *IIIFServer) manifestV2() map[string]interface{} {
	canvases := make([]map[string]interface{}, 0, len(s.pages))
	for i, p := range s.pages {
		resource := map[string]interface{}{
			"@id":    s.imageURL(p.ID),
			"@type":  "dctypes:Image",
			"format": "image/jpeg",
			"width":  p.Width,
			"height": p.Height,
		}
		if !p.NoService {
			resource["service"] = map[string]interface{}{
				"@context": "http://iiif.io/api/image/2/context.json",
				"@id":      s.serviceURL(p.ID),
				"profile":  "http://iiif.io/api/image/2/level1.json",
			}
		}
		canvas := map[string]interface{}{
			"@id":    fmt.Sprintf("%s/canvas/%d", s.server.URL, i+1),
			"@type":  "sc:Canvas",
			"width":  p.Width,
			"height": p.Height,
			"images": []map[string]interface{}{{
				"@type":    "oa:Annotation",
				"resource": resource,
			}},
		}
		if p.Label != "" {
			canvas["label"] = p.Label
		}
		canvases = append(canvases, canvas)
	}

	return map[string]interface{}{
		"@context":    "http://iiif.io/api/presentation/2/context.json",
		"@id":         s.ManifestURL(),
		"@type":       "sc:Manifest",
		"label":       "Test Manuscript",
		"description": "An integration fixture",
		"attribution": "Test Library",
		"license":     "https://creativecommons.org/publicdomain/zero/1.0/",
		"metadata": []map[string]interface{}{
			{"label": "Shelfmark", "value": "MS 42"},
		},
		"sequences": []map[string]interface{}{{
			"@type":    "sc:Sequence",
			"canvases": canvases,
		}},
	}
}

func (s *IIIFServer) manifestV3() map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(s.pages))
	for i, p := range s.pages {
		canvasID := fmt.Sprintf("%s/canvas/%d", s.server.URL, i+1)
		body := map[string]interface{}{
			"id":     s.imageURL(p.ID),
			"type":   "Image",
			"format": "image/jpeg",
			"width":  p.Width,
			"height": p.Height,
		}
		if !p.NoService {
			body["service"] = []map[string]interface{}{{
				"id":      s.serviceURL(p.ID),
				"type":    "ImageService2",
				"profile": "level1",
			}}
		}
		canvas := map[string]interface{}{
			"id":     canvasID,
			"type":   "Canvas",
			"width":  p.Width,
			"height": p.Height,
			"items": []map[string]interface{}{{
				"id":   canvasID + "/page",
				"type": "AnnotationPage",
				"items": []map[string]interface{}{{
					"id":         canvasID + "/page/annotation",
					"type":       "Annotation",
					"motivation": "painting",
					"body":       body,
				}},
			}},
		}
		if p.Label != "" {
			canvas["label"] = map[string][]string{"en": {p.Label}}
		}
		items = append(items, canvas)
	}

	return map[string]interface{}{
		"@context": "http://iiif.io/api/presentation/3/context.json",
		"id":       s.ManifestURL(),
		"type":     "Manifest",
		"label":    map[string][]string{"en": {"Test Manuscript"}},
		"summary":  map[string][]string{"en": {"An integration fixture"}},
		"requiredStatement": map[string]interface{}{
			"label": map[string][]string{"en": {"Attribution"}},
			"value": map[string][]string{"en": {"Test Library"}},
		},
		"rights": "http://creativecommons.org/publicdomain/zero/1.0/",
		"items":  items,
	}
}
