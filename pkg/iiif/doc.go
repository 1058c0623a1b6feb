// Package iiif loads IIIF Presentation manifests and resolves them into
// a normalized canvas sequence, independent of schema version.
//
// This package includes:
//   - A configurable HTTP client with retrying JSON fetches and request logging
//   - Manifest parsing for Presentation API 2.1 and 3.0, resolved once into []Canvas
//   - Image API URL construction (size and format segments)
//   - An LRU-cached info.json client for size discovery
//
// Example usage:
//
//	client := iiif.NewClient(30*time.Second, logger.GetLogger())
//
//	manifest, err := client.LoadManifest(ctx, "https://example.org/iiif/manifest.json")
//	if err != nil {
//	    // Any manifest failure is fatal for the run
//	}
//
//	for _, canvas := range manifest.Canvases {
//	    url := canvas.RequestURL("full")
//	    // Hand url to the transfer layer
//	}
package iiif
