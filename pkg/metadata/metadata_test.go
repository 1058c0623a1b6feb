package metadata

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"iiifdl/pkg/iiif"
)

func sampleManifest() *iiif.Manifest {
	return &iiif.Manifest{
		Source:      "https://iiif.example.org/manifest.json",
		ID:          "https://iiif.example.org/manifest.json",
		Version:     iiif.Version2,
		Label:       "Medieval Psalter",
		Description: "A 13th century psalter",
		Attribution: "Example Library",
		License:     "https://creativecommons.org/publicdomain/mark/1.0/",
		Metadata: []iiif.MetadataEntry{
			{Label: "Date", Value: "ca. 1250"},
			{Label: "Shelfmark", Value: "MS 42"},
		},
		Canvases: []iiif.Canvas{
			{Index: 1, Label: "upper cover", ServiceURL: "https://iiif.example.org/image/1", Width: 2000, Height: 3000},
			{Index: 2, Label: "folio 1r", ServiceURL: "https://iiif.example.org/image/2", Width: 1900, Height: 2900},
		},
	}
}

func TestRenderContainsManifestFields(t *testing.T) {
	md := FromManifest(sampleManifest())
	out := md.Render()

	for _, want := range []string{
		"IIIF Manifest Metadata",
		"Title: Medieval Psalter",
		"Description: A 13th century psalter",
		"Attribution: Example Library",
		"IIIF Version: 2.1",
		"Number of pages/canvases: 2",
		"Date: ca. 1250",
		"Shelfmark: MS 42",
		"Canvas 2:",
		"  Label: folio 1r",
		"  Dimensions: 1900 x 2900",
		"  Image service: https://iiif.example.org/image/2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered metadata missing %q", want)
		}
	}
}

func TestRenderOmitsEmptyFields(t *testing.T) {
	md := FromManifest(&iiif.Manifest{
		Label:    "Untitled",
		Canvases: []iiif.Canvas{{Index: 1}},
	})
	out := md.Render()

	for _, absent := range []string{"Description:", "Attribution:", "License:", "Additional Metadata"} {
		if strings.Contains(out, absent) {
			t.Errorf("rendered metadata should omit %q when empty", absent)
		}
	}
	if strings.Contains(out, "Label:") {
		t.Error("unlabeled canvas should not print a label line")
	}
}

func TestSaveAndExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	md := FromManifest(sampleManifest())

	if ExistsFS(fs, "/out") {
		t.Fatal("Exists before save")
	}
	if err := md.SaveFS(fs, "/out"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !ExistsFS(fs, "/out") {
		t.Error("Exists after save")
	}

	data, err := afero.ReadFile(fs, "/out/"+Filename)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != md.Render() {
		t.Error("file content differs from rendered metadata")
	}
}
