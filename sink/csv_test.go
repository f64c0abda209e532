package sink

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/placescout/models"
)

func ptr(f float64) *float64 { return &f }

var tricky = []models.ResultRecord{
	{Name: "Smith, Workshop", Latitude: ptr(43.6532), Longitude: ptr(-79.3832), Address: "1 Queen St, Toronto", Country: "Canada", Type: "craft"},
	{Name: `He said "hi"`, Address: "line one\nline two"},
	{Name: "Émile's Atelier", Latitude: ptr(0), Longitude: ptr(-0.5)},
}

func TestWriteCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tricky))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(tricky)+1)
	require.Equal(t, Header, rows[0])

	want := [][]string{
		{"Smith, Workshop", "43.6532", "-79.3832", "1 Queen St, Toronto", "Canada", "craft"},
		{`He said "hi"`, "", "", "line one\nline two", "", ""},
		{"Émile's Atelier", "0", "-0.5", "", "", ""},
	}
	if diff := cmp.Diff(want, rows[1:]); diff != "" {
		t.Errorf("csv rows (-want +got):\n%s", diff)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	require.Equal(t, "name,latitude,longitude,address,country,type\n", buf.String())
}

func TestWriteCSVFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "places.csv")

	require.NoError(t, WriteCSVFile(path, tricky))
	require.NoError(t, WriteCSVFile(path, tricky[:1]))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(b), "\n"), "second run must replace, not append")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteCSVFileUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteCSVFile(filepath.Join(blocker, "places.csv"), tricky)
	require.Error(t, err)
	require.Equal(t, models.ErrCodeIO, models.CodeOf(err))
}

func TestWriteFileFormat(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "x.xml"), "xml", nil)
	require.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}
