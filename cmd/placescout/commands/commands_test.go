package commands

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/models"
	"github.com/use-agent/placescout/sink"
)

type fakeSearcher struct {
	records []models.ResultRecord
	err     error
}

func (f fakeSearcher) Run(context.Context, models.SearchQuery) ([]models.ResultRecord, error) {
	return f.records, f.err
}

func testCommand(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(out)
	return cmd
}

var workshopQuery = models.SearchQuery{Term: "Workshop", Country: "Canada", Limit: 50}

func TestScrapeAndWrite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Load()
	cfg.Output.Path = filepath.Join(dir, "output", "places.csv")
	cfg.Output.DBPath = filepath.Join(dir, "runs.db")

	records := []models.ResultRecord{{Name: "Toronto Workshop"}, {Name: "Vancouver Workshop"}, {Name: "Calgary Workshop"}}
	var out bytes.Buffer
	require.NoError(t, scrapeAndWrite(testCommand(&out), fakeSearcher{records: records}, cfg, workshopQuery, true))

	f, err := os.Open(cfg.Output.Path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "Calgary Workshop", rows[3][0])

	require.Contains(t, out.String(), "Vancouver Workshop")

	db, err := sink.OpenSQLite(cfg.Output.DBPath)
	require.NoError(t, err)
	defer db.Close()
	stored, err := db.Records(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 3)
}

func TestScrapeAndWriteFailureWritesNothing(t *testing.T) {
	cfg := config.Load()
	cfg.Output.Path = filepath.Join(t.TempDir(), "places.csv")

	fail := models.NewScrapeError(models.ErrCodeExhausted, "gave up after 3 attempts", nil)
	var out bytes.Buffer
	err := scrapeAndWrite(testCommand(&out), fakeSearcher{err: fail}, cfg, workshopQuery, true)
	require.ErrorIs(t, err, fail)

	_, statErr := os.Stat(cfg.Output.Path)
	require.True(t, os.IsNotExist(statErr))
	require.Empty(t, out.String())
}

func TestParseCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"parse", "testdata/results.html"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, sink.Header, rows[0])
	require.Equal(t, []string{"Smith", "49.2827291", "-123.1207375", "Workshop, 123 Main Street, Vancouver, British Columbia", "Canada", "Craft (Workshop)"}, rows[1])
}
