package iiif

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	errs "iiifdl/pkg/errors"
)

// Wire shapes. Only the fields the downloader consumes are declared;
// everything else in a manifest is ignored.

type rawManifest struct {
	Context           json.RawMessage    `json:"@context"`
	IDv2              string             `json:"@id"`
	IDv3              string             `json:"id"`
	Label             json.RawMessage    `json:"label"`
	Description       json.RawMessage    `json:"description"`
	Summary           json.RawMessage    `json:"summary"`
	Attribution       json.RawMessage    `json:"attribution"`
	RequiredStatement *rawStatement      `json:"requiredStatement"`
	License           string             `json:"license"`
	Rights            string             `json:"rights"`
	Metadata          []rawMetadataEntry `json:"metadata"`
	Sequences         []rawSequence      `json:"sequences"`
	Items             []rawCanvasV3      `json:"items"`
}

type rawStatement struct {
	Label json.RawMessage `json:"label"`
	Value json.RawMessage `json:"value"`
}

type rawMetadataEntry struct {
	Label json.RawMessage `json:"label"`
	Value json.RawMessage `json:"value"`
}

type rawSequence struct {
	Canvases []rawCanvasV2 `json:"canvases"`
}

type rawCanvasV2 struct {
	ID     string             `json:"@id"`
	Label  json.RawMessage    `json:"label"`
	Width  int                `json:"width"`
	Height int                `json:"height"`
	Images []rawAnnotationV2  `json:"images"`
}

type rawAnnotationV2 struct {
	Resource rawImageResource `json:"resource"`
}

type rawCanvasV3 struct {
	ID     string              `json:"id"`
	Type   string              `json:"type"`
	Label  json.RawMessage     `json:"label"`
	Width  int                 `json:"width"`
	Height int                 `json:"height"`
	Items  []rawAnnotationPage `json:"items"`
}

type rawAnnotationPage struct {
	Items []rawAnnotationV3 `json:"items"`
}

type rawAnnotationV3 struct {
	Body rawImageResource `json:"body"`
}

// rawImageResource covers both the v2 images[].resource object and the
// v3 annotation body
type rawImageResource struct {
	IDv2    string      `json:"@id"`
	IDv3    string      `json:"id"`
	Format  string      `json:"format"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Service rawServices `json:"service"`
}

func (r rawImageResource) id() string {
	if r.IDv3 != "" {
		return r.IDv3
	}
	return r.IDv2
}

// rawServices tolerates the service field being a single object (common
// in v2) or an array (v3)
type rawServices []rawService

type rawService struct {
	IDv2 string `json:"@id"`
	IDv3 string `json:"id"`
}

func (s *rawServices) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '[' {
		var list []rawService
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var one rawService
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*s = rawServices{one}
	return nil
}

func (s rawServices) id() string {
	for _, svc := range s {
		if svc.IDv3 != "" {
			return svc.IDv3
		}
		if svc.IDv2 != "" {
			return svc.IDv2
		}
	}
	return ""
}

// ParseManifest normalizes a Presentation API 2.1 or 3.0 manifest into
// the version-independent Manifest shape
func ParseManifest(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeParsing, "manifest is not valid JSON")
	}

	version, err := detectVersion(&raw)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Version:     version,
		Label:       flattenText(raw.Label),
		Description: firstText(raw.Summary, raw.Description),
		Attribution: flattenText(raw.Attribution),
		License:     firstString(raw.Rights, raw.License),
	}

	if m.Attribution == "" && raw.RequiredStatement != nil {
		m.Attribution = flattenText(raw.RequiredStatement.Value)
	}

	for _, entry := range raw.Metadata {
		label := flattenText(entry.Label)
		value := flattenText(entry.Value)
		if label == "" && value == "" {
			continue
		}
		m.Metadata = append(m.Metadata, MetadataEntry{Label: label, Value: value})
	}

	switch version {
	case Version2:
		m.ID = firstString(raw.IDv2, raw.IDv3)
		if len(raw.Sequences) > 0 {
			for i, c := range raw.Sequences[0].Canvases {
				m.Canvases = append(m.Canvases, normalizeCanvasV2(i+1, c))
			}
		}
	case Version3:
		m.ID = firstString(raw.IDv3, raw.IDv2)
		index := 0
		for _, item := range raw.Items {
			if item.Type != "" && item.Type != "Canvas" {
				continue
			}
			index++
			m.Canvases = append(m.Canvases, normalizeCanvasV3(index, item))
		}
	}

	return m, nil
}

// detectVersion resolves the schema variant once, preferring the
// declared @context and falling back to the document shape
func detectVersion(raw *rawManifest) (Version, error) {
	ctx := strings.ToLower(string(raw.Context))
	switch {
	case strings.Contains(ctx, "presentation/3"):
		return Version3, nil
	case strings.Contains(ctx, "presentation/2"):
		return Version2, nil
	case len(raw.Items) > 0:
		return Version3, nil
	case len(raw.Sequences) > 0:
		return Version2, nil
	}
	return "", errs.New(errs.ErrorTypeParsing, "manifest matches neither Presentation API 2.1 nor 3.0")
}

func normalizeCanvasV2(index int, c rawCanvasV2) Canvas {
	canvas := Canvas{
		Index:  index,
		ID:     c.ID,
		Label:  flattenText(c.Label),
		Width:  c.Width,
		Height: c.Height,
	}
	if len(c.Images) > 0 {
		res := c.Images[0].Resource
		canvas.ImageURL = res.id()
		canvas.ServiceURL = res.Service.id()
		// The resource carries the actual image dimensions; the canvas
		// dimensions are only its coordinate space.
		if res.Width > 0 {
			canvas.Width = res.Width
		}
		if res.Height > 0 {
			canvas.Height = res.Height
		}
	}
	return canvas
}

func normalizeCanvasV3(index int, c rawCanvasV3) Canvas {
	canvas := Canvas{
		Index:  index,
		ID:     c.ID,
		Label:  flattenText(c.Label),
		Width:  c.Width,
		Height: c.Height,
	}
	if len(c.Items) > 0 && len(c.Items[0].Items) > 0 {
		body := c.Items[0].Items[0].Body
		canvas.ImageURL = body.id()
		canvas.ServiceURL = body.Service.id()
		if body.Width > 0 {
			canvas.Width = body.Width
		}
		if body.Height > 0 {
			canvas.Height = body.Height
		}
	}
	return canvas
}

// flattenText reduces the polymorphic IIIF text forms to a single
// string: plain strings, {"@value": ...} objects, arrays of either, and
// v3 language maps ("en" preferred, then "none", then the first
// remaining language)
func flattenText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	case '[':
		var list []json.RawMessage
		if json.Unmarshal(raw, &list) == nil {
			for _, el := range list {
				if s := flattenText(el); s != "" {
					return s
				}
			}
		}
	case '{':
		var obj map[string]json.RawMessage
		if json.Unmarshal(raw, &obj) != nil {
			return ""
		}
		if v, ok := obj["@value"]; ok {
			return flattenText(v)
		}
		for _, lang := range []string{"en", "none"} {
			if v, ok := obj[lang]; ok {
				if s := flattenText(v); s != "" {
					return s
				}
			}
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			if strings.HasPrefix(k, "@") {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := flattenText(obj[k]); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstText(candidates ...json.RawMessage) string {
	for _, c := range candidates {
		if s := flattenText(c); s != "" {
			return s
		}
	}
	return ""
}

func firstString(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
