package metadata

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"iiifdl/pkg/iiif"
)

// Filename is the fixed name of the metadata file in the output
// directory
const Filename = "metadata.txt"

// Metadata is the human-readable summary of a manifest, written next
// to the downloaded images
type Metadata struct {
	Label       string
	Description string
	ID          string
	Attribution string
	License     string
	Source      string
	Version     string
	Entries     []iiif.MetadataEntry
	Canvases    []CanvasInfo
}

// CanvasInfo is the per-canvas slice of the summary
type CanvasInfo struct {
	Index      int
	Label      string
	Width      int
	Height     int
	ServiceURL string
}

// FromManifest extracts the summary from a normalized manifest
func FromManifest(m *iiif.Manifest) *Metadata {
	md := &Metadata{
		Label:       m.Label,
		Description: m.Description,
		ID:          m.ID,
		Attribution: m.Attribution,
		License:     m.License,
		Source:      m.Source,
		Version:     string(m.Version),
		Entries:     append([]iiif.MetadataEntry(nil), m.Metadata...),
	}
	for _, c := range m.Canvases {
		md.Canvases = append(md.Canvases, CanvasInfo{
			Index:      c.Index,
			Label:      c.Label,
			Width:      c.Width,
			Height:     c.Height,
			ServiceURL: c.ServiceURL,
		})
	}
	return md
}

// Render produces the metadata.txt content. Empty fields are omitted
// rather than printed blank.
func (m *Metadata) Render() string {
	var b strings.Builder

	b.WriteString("IIIF Manifest Metadata\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	writeField(&b, "Title", m.Label)
	writeField(&b, "Description", m.Description)
	writeField(&b, "Manifest ID", m.ID)
	writeField(&b, "Attribution", m.Attribution)
	writeField(&b, "License", m.License)
	writeField(&b, "Source", m.Source)
	writeField(&b, "IIIF Version", m.Version)

	fmt.Fprintf(&b, "\nNumber of pages/canvases: %d\n", len(m.Canvases))

	if len(m.Entries) > 0 {
		b.WriteString("\nAdditional Metadata:\n")
		b.WriteString(strings.Repeat("-", 30) + "\n")
		for _, e := range m.Entries {
			fmt.Fprintf(&b, "%s: %s\n", e.Label, e.Value)
		}
	}

	if len(m.Canvases) > 0 {
		b.WriteString("\nCanvas Details:\n")
		b.WriteString(strings.Repeat("-", 30) + "\n")
		for _, c := range m.Canvases {
			fmt.Fprintf(&b, "\nCanvas %d:\n", c.Index)
			if c.Label != "" {
				fmt.Fprintf(&b, "  Label: %s\n", c.Label)
			}
			if c.Width > 0 && c.Height > 0 {
				fmt.Fprintf(&b, "  Dimensions: %d x %d\n", c.Width, c.Height)
			}
			if c.ServiceURL != "" {
				fmt.Fprintf(&b, "  Image service: %s\n", c.ServiceURL)
			}
		}
	}

	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", name, value)
}

// Save writes metadata.txt into dir, creating the directory if needed
func (m *Metadata) Save(dir string) error {
	return m.SaveFS(afero.NewOsFs(), dir)
}

// SaveFS is Save on the given filesystem
func (m *Metadata) SaveFS(fs afero.Fs, dir string) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, Filename)
	if err := afero.WriteFile(fs, path, []byte(m.Render()), 0o644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Exists checks whether dir already has a metadata file
func Exists(dir string) bool {
	return ExistsFS(afero.NewOsFs(), dir)
}

// ExistsFS is Exists on the given filesystem
func ExistsFS(fs afero.Fs, dir string) bool {
	ok, err := afero.Exists(fs, filepath.Join(dir, Filename))
	return err == nil && ok
}
