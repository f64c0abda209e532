package scraper

import (
	"testing"

	"github.com/use-agent/placescout/engine"
)

func TestFilterAllow(t *testing.T) {
	f := NewFilter(
		[]string{"Image", " font ", "media", "bogus"},
		[]string{"tile.openstreetmap.org", "cartocdn.com"},
	)

	tests := []struct {
		name string
		req  engine.Request
		want bool
	}{
		{"document", engine.Request{URL: "https://nominatim.openstreetmap.org/ui/search.html", Type: engine.ResourceDocument}, true},
		{"script", engine.Request{URL: "https://nominatim.openstreetmap.org/ui/assets/app.js", Type: engine.ResourceScript}, true},
		{"xhr", engine.Request{URL: "https://nominatim.openstreetmap.org/search?q=x", Type: engine.ResourceXHR}, true},
		{"stylesheet", engine.Request{URL: "https://nominatim.openstreetmap.org/ui/theme.css", Type: engine.ResourceStylesheet}, true},
		{"other", engine.Request{URL: "https://nominatim.openstreetmap.org/ping", Type: engine.ResourceOther}, true},
		{"image", engine.Request{URL: "https://nominatim.openstreetmap.org/logo.png", Type: engine.ResourceImage}, false},
		{"font", engine.Request{URL: "https://nominatim.openstreetmap.org/a.woff2", Type: engine.ResourceFont}, false},
		{"media", engine.Request{URL: "https://nominatim.openstreetmap.org/a.mp4", Type: engine.ResourceMedia}, false},
		{"blocked host script", engine.Request{URL: "https://tile.openstreetmap.org/leaflet.js", Type: engine.ResourceScript}, false},
		{"blocked subdomain", engine.Request{URL: "https://a.basemaps.cartocdn.com/light/1/2/3.png", Type: engine.ResourceFetch}, false},
		{"blocked host document", engine.Request{URL: "https://tile.openstreetmap.org/", Type: engine.ResourceDocument}, true},
		{"lookalike host", engine.Request{URL: "https://notcartocdn.com/x.js", Type: engine.ResourceScript}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Allow(tt.req); got != tt.want {
				t.Errorf("Allow(%s %s) = %v, want %v", tt.req.Type, tt.req.URL, got, tt.want)
			}
		})
	}
}

func TestFilterNoHosts(t *testing.T) {
	f := NewFilter(DefaultBlockedTypes, nil)
	if !f.Allow(engine.Request{URL: "https://tile.openstreetmap.org/1/2/3.png", Type: engine.ResourceFetch}) {
		t.Error("fetch should pass when no hosts are blocked")
	}
	if f.AllowType(engine.ResourceImage) {
		t.Error("image should be blocked by default")
	}
}
