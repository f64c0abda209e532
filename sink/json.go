package sink

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/use-agent/placescout/models"
)

// WriteJSON writes records as an indented JSON array. An empty run is
// written as [] rather than null.
func WriteJSON(w io.Writer, records []models.ResultRecord) error {
	if records == nil {
		records = []models.ResultRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// WriteJSONFile replaces the file at path with the JSON rendering of records.
func WriteJSONFile(path string, records []models.ResultRecord) error {
	return replaceFile(path, func(w io.Writer) error {
		return WriteJSON(w, records)
	})
}

// WriteFile writes records in the given format ("csv" or "json").
func WriteFile(path, format string, records []models.ResultRecord) error {
	switch format {
	case "", "csv":
		return WriteCSVFile(path, records)
	case "json":
		return WriteJSONFile(path, records)
	default:
		return models.ConfigError("unknown output format %q", format)
	}
}
