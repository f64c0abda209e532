package scraper

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/engine"
	"github.com/use-agent/placescout/models"
)

func testExtractConfig() config.ExtractConfig {
	return config.ExtractConfig{
		ItemSelector:   `div[role="listitem"]`,
		NameSelector:   "span.name",
		TypeSelector:   "span.type",
		CoordsSelector: "p.coords",
	}
}

func staticPage(t *testing.T, doc string) engine.Page {
	t.Helper()
	page, err := engine.NewStaticPage(strings.NewReader(doc))
	require.NoError(t, err)
	return page
}

func fixturePage(t *testing.T) engine.Page {
	t.Helper()
	b, err := os.ReadFile("testdata/results.html")
	require.NoError(t, err)
	return staticPage(t, string(b))
}

func ptr(f float64) *float64 { return &f }

func TestExtractFixture(t *testing.T) {
	x := NewExtractor(testExtractConfig())

	got, err := x.Extract(context.Background(), fixturePage(t))
	require.NoError(t, err)

	want := []models.ResultRecord{
		{
			Name:      "Smith",
			Latitude:  ptr(49.2827291),
			Longitude: ptr(-123.1207375),
			Address:   "Workshop, 123 Main Street, Vancouver, British Columbia",
			Country:   "Canada",
			Type:      "Craft (Workshop)",
		},
		{
			Name:      "Atelier Boréal",
			Latitude:  ptr(46.8138783),
			Longitude: ptr(-71.2079809),
			Address:   "Québec",
			Country:   "Canada",
			Type:      "Shop (Craft)",
		},
		{
			Name:    `He said "hi" Workshop`,
			Country: "Canada",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractNoResults(t *testing.T) {
	x := NewExtractor(testExtractConfig())

	got, err := x.Extract(context.Background(), staticPage(t, `<html><body><div id="searchresults">No search results found</div></body></html>`))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestExtractSkipsNamelessItems(t *testing.T) {
	doc := `<div id="searchresults">
	<div role="listitem"><span class="type">Craft</span></div>
	<div role="listitem"><span class="name">   </span></div>
	<div role="listitem"><span class="name">Only Name</span></div>
	</div>`
	x := NewExtractor(testExtractConfig())

	got, err := x.Extract(context.Background(), staticPage(t, doc))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Only Name", got[0].Name)
	require.Empty(t, got[0].Country)
	require.False(t, got[0].HasCoordinates())
}

func TestExtractCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		item    string
		wantLat *float64
		wantLon *float64
	}{
		{
			name:    "attributes win over text",
			item:    `<div role="listitem" data-lat="1.5" data-lon="2.5"><span class="name">A</span><p class="coords">9,9</p></div>`,
			wantLat: ptr(1.5), wantLon: ptr(2.5),
		},
		{
			name:    "bad attributes fall back to text",
			item:    `<div role="listitem" data-lat="x" data-lon="2.5"><span class="name">A</span><p class="coords">3,4</p></div>`,
			wantLat: ptr(3), wantLon: ptr(4),
		},
		{
			name: "out of range",
			item: `<div role="listitem"><span class="name">A</span><p class="coords">91,10</p></div>`,
		},
		{
			name: "no separator",
			item: `<div role="listitem"><span class="name">A</span><p class="coords">45.0 -75.0</p></div>`,
		},
		{
			name: "missing",
			item: `<div role="listitem"><span class="name">A</span></div>`,
		},
	}
	x := NewExtractor(testExtractConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := x.Extract(context.Background(), staticPage(t, tt.item))
			require.NoError(t, err)
			require.Len(t, got, 1)
			if diff := cmp.Diff(tt.wantLat, got[0].Latitude); diff != "" {
				t.Errorf("latitude (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLon, got[0].Longitude); diff != "" {
				t.Errorf("longitude (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitDisplayName(t *testing.T) {
	tests := []struct {
		in                     string
		name, address, country string
	}{
		{"", "", "", ""},
		{"Solo", "Solo", "", ""},
		{"Shop, Canada", "Shop", "", "Canada"},
		{"Shop, 1 Road, Town, Canada", "Shop", "1 Road, Town", "Canada"},
		{" Shop ,, Town , Canada ", "Shop", "Town", "Canada"},
	}
	for _, tt := range tests {
		name, address, country := splitDisplayName(tt.in)
		require.Equal(t, tt.name, name, "name of %q", tt.in)
		require.Equal(t, tt.address, address, "address of %q", tt.in)
		require.Equal(t, tt.country, country, "country of %q", tt.in)
	}
}
