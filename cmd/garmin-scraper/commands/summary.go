package commands

import (
	"garmin-scraper/lib/activitystore"
	"garmin-scraper/services/garmin/scraper"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderSummary(w io.Writer, cfg Config, result scraper.Result, exported int, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("garmin-scraper")
	t.AppendHeader(table.Row{"", "Activities"})

	if cfg.InputFile != "" {
		t.AppendRow(table.Row{"Loaded from " + cfg.InputFile, result.Loaded})
		t.AppendRow(table.Row{"Already known", result.Skipped})
	}
	t.AppendRow(table.Row{"Scraped", result.Scraped})
	if !cfg.SkipGPX {
		t.AppendRow(table.Row{"With gpx track", result.WithTrack})
	}
	t.AppendRow(table.Row{"Saved to " + cfg.OutputFile, result.Saved})
	if exported >= 0 {
		t.AppendRow(table.Row{"Exported to " + cfg.SQLite, exported})
	}

	status := "complete"
	if !result.Complete {
		status = "stopped early"
	}
	t.AppendFooter(table.Row{status, elapsed.Round(time.Millisecond).String()})

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderCollection(w io.Writer, collection *activitystore.Collection) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Id", "Name", "Track"})

	for _, id := range collection.IDs() {
		record, _ := collection.Get(id)
		t.AppendRow(table.Row{id, record.Name(), record.LocalGPXFile})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
