package commands

import (
	"garmin-scraper/lib/activitystore"
	"garmin-scraper/lib/serviceutil"
	"garmin-scraper/lib/telemetry"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <activities.json> <sqlite path | libsql:// url>",
	Short: "Exports a saved activities file into a sqlite database without scraping.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
		n := exportSQLite(cmd.Context(), args[1], args[0])
		slog.Debug("export finished", "rows", n)
	},
}

var listCmd = &cobra.Command{
	Use:   "list <activities.json>",
	Short: "Prints the activities in a saved activities file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
		collection := activitystore.NewCollection()
		_, err := collection.Load(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read activities", err)
		}
		renderCollection(os.Stdout, collection)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(listCmd)
}
