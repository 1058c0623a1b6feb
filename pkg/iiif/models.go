package iiif

// Version identifies which IIIF Presentation API shape a manifest used
// on the wire. Parsing resolves it once; nothing downstream branches on it.
type Version string

const (
	// Version2 is Presentation API 2.1 (sequences/canvases)
	Version2 Version = "2.1"
	// Version3 is Presentation API 3.0 (items)
	Version3 Version = "3.0"
)

// Manifest is the normalized, version-independent form of an IIIF
// Presentation manifest
type Manifest struct {
	// Source is the URL or file path the manifest was loaded from
	Source      string
	ID          string
	Version     Version
	Label       string
	Description string
	Attribution string
	License     string
	Metadata    []MetadataEntry
	Canvases    []Canvas
}

// CanvasCount returns the number of canvases in the manifest
func (m *Manifest) CanvasCount() int {
	return len(m.Canvases)
}

// Canvas is one page/image unit from a manifest. Index is the 1-based
// manifest position, stable across runs. ServiceURL is the image-service
// base when the canvas references one; ImageURL is the directly embedded
// image URL, used as a fallback when no service is available. Width and
// Height are pixel dimensions, 0 when the manifest does not expose them.
type Canvas struct {
	Index      int
	ID         string
	Label      string
	ImageURL   string
	ServiceURL string
	Width      int
	Height     int
}

// MetadataEntry is one manifest-level label/value pair
type MetadataEntry struct {
	Label string
	Value string
}

// Info is the subset of an Image API info.json document used for size
// estimation
type Info struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Sizes  []Size `json:"sizes"`
}

// Size is one precomputed rendering advertised in info.json
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
