package iiif

import "testing"

func TestImageURL(t *testing.T) {
	tests := []struct {
		name     string
		service  string
		size     string
		ext      string
		expected string
	}{
		{
			"full size jpeg",
			"https://iiif.example.org/image/abc", "full", "jpeg",
			"https://iiif.example.org/image/abc/full/full/0/default.jpeg",
		},
		{
			"max size",
			"https://iiif.example.org/image/abc", "max", "jpeg",
			"https://iiif.example.org/image/abc/full/max/0/default.jpeg",
		},
		{
			"width constraint",
			"https://iiif.example.org/image/abc", "2048", "jpeg",
			"https://iiif.example.org/image/abc/full/2048,/0/default.jpeg",
		},
		{
			"pre-formed segment",
			"https://iiif.example.org/image/abc", "512,", "jpeg",
			"https://iiif.example.org/image/abc/full/512,/0/default.jpeg",
		},
		{
			"empty size means full",
			"https://iiif.example.org/image/abc", "", "jpeg",
			"https://iiif.example.org/image/abc/full/full/0/default.jpeg",
		},
		{
			"trailing slash trimmed",
			"https://iiif.example.org/image/abc/", "full", "jpeg",
			"https://iiif.example.org/image/abc/full/full/0/default.jpeg",
		},
		{
			"info.json suffix trimmed",
			"https://iiif.example.org/image/abc/info.json", "full", "jpeg",
			"https://iiif.example.org/image/abc/full/full/0/default.jpeg",
		},
		{
			"jpg spelling kept",
			"https://iiif.example.org/image/abc", "full", "jpg",
			"https://iiif.example.org/image/abc/full/full/0/default.jpg",
		},
		{
			"tiff maps to tif",
			"https://iiif.example.org/image/abc", "full", "tiff",
			"https://iiif.example.org/image/abc/full/full/0/default.tif",
		},
		{
			"png unchanged",
			"https://iiif.example.org/image/abc", "full", "png",
			"https://iiif.example.org/image/abc/full/full/0/default.png",
		},
		{
			"empty extension defaults",
			"https://iiif.example.org/image/abc", "full", "",
			"https://iiif.example.org/image/abc/full/full/0/default.jpeg",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ImageURL(test.service, test.size, test.ext); got != test.expected {
				t.Errorf("ImageURL() = %q, want %q", got, test.expected)
			}
		})
	}
}

func TestInfoURL(t *testing.T) {
	tests := []struct {
		service  string
		expected string
	}{
		{"https://iiif.example.org/image/abc", "https://iiif.example.org/image/abc/info.json"},
		{"https://iiif.example.org/image/abc/", "https://iiif.example.org/image/abc/info.json"},
		{"https://iiif.example.org/image/abc/info.json", "https://iiif.example.org/image/abc/info.json"},
	}

	for _, test := range tests {
		if got := InfoURL(test.service); got != test.expected {
			t.Errorf("InfoURL(%q) = %q, want %q", test.service, got, test.expected)
		}
	}
}

func TestCanvasRequestURL(t *testing.T) {
	withService := Canvas{
		Index:      1,
		ServiceURL: "https://iiif.example.org/image/abc",
		ImageURL:   "https://iiif.example.org/image/abc/full/full/0/default.jpeg",
	}
	if got := withService.RequestURL("1024"); got != "https://iiif.example.org/image/abc/full/1024,/0/default.jpeg" {
		t.Errorf("RequestURL with service = %q", got)
	}

	// Without a service the embedded URL is all there is; the size
	// request cannot be honored.
	direct := Canvas{Index: 2, ImageURL: "https://media.example.org/static/page2.jpg"}
	if got := direct.RequestURL("1024"); got != "https://media.example.org/static/page2.jpg" {
		t.Errorf("RequestURL direct = %q", got)
	}

	empty := Canvas{Index: 3}
	if got := empty.RequestURL("full"); got != "" {
		t.Errorf("RequestURL empty canvas = %q, want empty", got)
	}
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		source   string
		expected bool
	}{
		{"https://iiif.example.org/manifest.json", true},
		{"http://iiif.example.org/manifest.json", true},
		{"/home/user/manifest.json", false},
		{"manifest.json", false},
		{"file.json", false},
	}

	for _, test := range tests {
		if got := IsRemote(test.source); got != test.expected {
			t.Errorf("IsRemote(%q) = %v, want %v", test.source, got, test.expected)
		}
	}
}

func TestExtensionForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		expected    string
	}{
		{"image/jpeg", "jpeg"},
		{"image/jpg", "jpeg"},
		{"image/jpeg; charset=utf-8", "jpeg"},
		{"IMAGE/PNG", "png"},
		{"image/tiff", "tiff"},
		{"image/tif", "tiff"},
		{"image/webp", "webp"},
		{"image/jp2", "jp2"},
		{"application/pdf", "pdf"},
		{"text/html", "jpeg"},
		{"", "jpeg"},
	}

	for _, test := range tests {
		if got := ExtensionForContentType(test.contentType); got != test.expected {
			t.Errorf("ExtensionForContentType(%q) = %q, want %q", test.contentType, got, test.expected)
		}
	}
}
