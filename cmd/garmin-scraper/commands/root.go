package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "garmin-scraper -u <username> -p <password> [flags]",
	Short: "garmin-scraper downloads your garmin connect activities into a json file and a directory of gpx tracks.",
	Long: `garmin-scraper logs into garmin connect, walks the activity list and saves
the metadata, splits, details and gpx track of every activity.

Passing the previous output as --input-file only fetches activities that are
not already in it. Every flag can also be set in the config file (default
garmin.json5, with garmin.local.json5 merged over it), flags given on the
command line win.`,
	Args: cobra.NoArgs,
	Run:  runScrape,
}

var (
	configPath *string
	debug      *bool
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "garmin.json5", "The json5 config file to read defaults from.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Log every request made.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
