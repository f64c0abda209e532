package sink

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/use-agent/placescout/models"
)

// RenderTable prints records as a terminal table.
func RenderTable(w io.Writer, records []models.ResultRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "Latitude", "Longitude", "Address", "Country", "Type"})
	for i, r := range records {
		t.AppendRow(table.Row{
			i + 1,
			r.Name,
			formatCoordinate(r.Latitude),
			formatCoordinate(r.Longitude),
			r.Address,
			r.Country,
			r.Type,
		})
	}
	t.AppendFooter(table.Row{"", "Total", len(records)})
	t.Render()
}
