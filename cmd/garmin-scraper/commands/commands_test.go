package commands

import (
	"bytes"
	"garmin-scraper/lib/activitystore"
	"garmin-scraper/lib/scrapers/garmin/activities"
	"garmin-scraper/services/garmin/scraper"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func parseFlags(t *testing.T, args ...string) (*cobra.Command, Config) {
	var values Config
	cmd := &cobra.Command{Use: "test"}
	registerScrapeFlags(cmd, &values)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, values
}

func TestResolveConfig(t *testing.T) {
	file := Config{
		Username:      "file@example.com",
		Password:      "from-file",
		SkipGPX:       true,
		NumActivities: 25,
		OutputFile:    "saved.json",
	}

	cases := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "file only",
			expected: Config{
				Username:      "file@example.com",
				Password:      "from-file",
				SkipGPX:       true,
				NumActivities: 25,
				OutputFile:    "saved.json",
				TrackDir:      activities.DefaultTrackDir,
			},
		},
		{
			name: "flags win",
			args: []string{"-u", "flag@example.com", "--skip-gpx=false", "-n", "0", "--output-file", "other.json", "--skip-splits"},
			expected: Config{
				Username:   "flag@example.com",
				Password:   "from-file",
				SkipSplits: true,
				OutputFile: "other.json",
				TrackDir:   activities.DefaultTrackDir,
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			cmd, flagged := parseFlags(t, test.args...)
			diff := cmp.Diff(test.expected, resolveConfig(cmd, file, flagged))
			if diff != "" {
				t.Fatal("resolved config differs", diff)
			}
		})
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	cmd, flagged := parseFlags(t, "-u", "a", "-p", "b")
	cfg := resolveConfig(cmd, Config{}, flagged)
	require.Equal(t, scraper.DefaultOutputFile, cfg.OutputFile)
	require.Equal(t, activities.DefaultTrackDir, cfg.TrackDir)
	require.Equal(t, 0, cfg.NumActivities)
	require.False(t, cfg.SkipGPX)
}

func TestRenderSummary(t *testing.T) {
	var out bytes.Buffer
	renderSummary(&out, Config{
		InputFile:  "old.json",
		OutputFile: "activities.json",
		SQLite:     "activities.db",
	}, scraper.Result{
		Loaded:    4,
		Skipped:   4,
		Scraped:   2,
		WithTrack: 1,
		Saved:     6,
		Complete:  true,
	}, 6, 1500*time.Millisecond)

	rendered := out.String()
	require.Contains(t, rendered, "Loaded from old.json")
	require.Contains(t, rendered, "Saved to activities.json")
	require.Contains(t, rendered, "Exported to activities.db")
	require.Contains(t, rendered, "Already known")
}

func TestRenderCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.json")
	collection := activitystore.NewCollection()
	data, err := activities.DecodeDocument([]byte(`{"activityName": "Lunch Run"}`))
	require.NoError(t, err)
	collection.Merge(activities.Record{ID: "7", Data: data, LocalGPXFile: "gpx/activity_7.gpx"})
	_, err = collection.Save(path)
	require.NoError(t, err)

	loaded := activitystore.NewCollection()
	_, err = loaded.Load(path)
	require.NoError(t, err)

	var out bytes.Buffer
	renderCollection(&out, loaded)
	require.Contains(t, out.String(), "Lunch Run")
	require.Contains(t, out.String(), "gpx/activity_7.gpx")
}
