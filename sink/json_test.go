package sink

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/placescout/models"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, tricky))

	var got []models.ResultRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(tricky, got); diff != "" {
		t.Errorf("json records (-want +got):\n%s", diff)
	}
}

func TestWriteJSONEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	require.Equal(t, "[]\n", buf.String())
}

func TestWriteFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.json")
	require.NoError(t, WriteFile(path, "json", tricky[:1]))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"name": "Smith, Workshop"`)
}
