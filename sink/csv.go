package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/use-agent/placescout/models"
)

// Header is the fixed CSV header row.
var Header = []string{"name", "latitude", "longitude", "address", "country", "type"}

// WriteCSV writes the header followed by one row per record, in order.
// The header is written even when there are no records.
func WriteCSV(w io.Writer, records []models.ResultRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		row := []string{
			r.Name,
			formatCoordinate(r.Latitude),
			formatCoordinate(r.Longitude),
			r.Address,
			r.Country,
			r.Type,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv record %d (%s): %w", i, r.Name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

// WriteCSVFile replaces the file at path with the CSV rendering of records.
func WriteCSVFile(path string, records []models.ResultRecord) error {
	return replaceFile(path, func(w io.Writer) error {
		return WriteCSV(w, records)
	})
}

// formatCoordinate renders a coordinate with the shortest exact
// representation, or "" when absent.
func formatCoordinate(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
