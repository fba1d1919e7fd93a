package commands

import (
	"context"
	"errors"
	"garmin-scraper/lib/activitystore"
	"garmin-scraper/lib/configutil"
	"garmin-scraper/lib/restyutil"
	"garmin-scraper/lib/scrapers/garmin/activities"
	"garmin-scraper/lib/scrapers/garmin/core"
	"garmin-scraper/lib/serviceutil"
	"garmin-scraper/lib/telemetry"
	"garmin-scraper/services/garmin/scraper"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type Config struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	SkipGPX       bool   `json:"skip_gpx"`
	SkipDetails   bool   `json:"skip_details"`
	SkipSplits    bool   `json:"skip_splits"`
	NumActivities int    `json:"num_activities"`
	InputFile     string `json:"input_file"`
	OutputFile    string `json:"output_file"`
	TrackDir      string `json:"track_dir"`
	SQLite        string `json:"sqlite"`
	DumpHttp      string `json:"dump_http"`
	Debug         bool   `json:"debug"`
}

var flagValues Config

func registerScrapeFlags(cmd *cobra.Command, values *Config) {
	flags := cmd.Flags()
	flags.StringVarP(&values.Username, "user", "u", "", "Your garmin connect username (email).")
	flags.StringVarP(&values.Password, "password", "p", "", "Your garmin connect password.")
	flags.BoolVar(&values.SkipGPX, "skip-gpx", false, "Do not download gpx tracks.")
	flags.BoolVar(&values.SkipDetails, "skip-details", false, "Do not download activity details.")
	flags.BoolVar(&values.SkipSplits, "skip-splits", false, "Do not download activity splits.")
	flags.IntVarP(&values.NumActivities, "num-activities", "n", 0, "Stop after this many new activities, 0 scrapes everything.")
	flags.StringVar(&values.InputFile, "input-file", "", "A previous output file, activities in it are not fetched again.")
	flags.StringVar(&values.OutputFile, "output-file", scraper.DefaultOutputFile, "Where to write the activities.")
	flags.StringVar(&values.TrackDir, "track-dir", activities.DefaultTrackDir, "Where to write gpx tracks.")
	flags.StringVar(&values.SQLite, "sqlite", "", "Also export the activities into this sqlite path or libsql:// url.")
	flags.StringVar(&values.DumpHttp, "dump-http", "", "Write every http exchange into this directory (needs --debug).")
}

func init() {
	registerScrapeFlags(rootCmd, &flagValues)
}

// resolveConfig layers the flags the user actually passed over the config
// file, flags left at their default only fill in what the file leaves empty.
func resolveConfig(cmd *cobra.Command, file Config, flagged Config) Config {
	changed := func(name string) bool {
		return cmd.Flags().Changed(name)
	}
	str := func(name string, file, flagged string) string {
		if changed(name) || file == "" {
			return flagged
		}
		return file
	}
	boolean := func(name string, file, flagged bool) bool {
		if changed(name) {
			return flagged
		}
		return file
	}

	out := Config{
		Username:    str("user", file.Username, flagged.Username),
		Password:    str("password", file.Password, flagged.Password),
		SkipGPX:     boolean("skip-gpx", file.SkipGPX, flagged.SkipGPX),
		SkipDetails: boolean("skip-details", file.SkipDetails, flagged.SkipDetails),
		SkipSplits:  boolean("skip-splits", file.SkipSplits, flagged.SkipSplits),
		InputFile:   str("input-file", file.InputFile, flagged.InputFile),
		OutputFile:  str("output-file", file.OutputFile, flagged.OutputFile),
		TrackDir:    str("track-dir", file.TrackDir, flagged.TrackDir),
		SQLite:      str("sqlite", file.SQLite, flagged.SQLite),
		DumpHttp:    str("dump-http", file.DumpHttp, flagged.DumpHttp),
		Debug:       boolean("debug", file.Debug, flagged.Debug),
	}
	out.NumActivities = file.NumActivities
	if changed("num-activities") {
		out.NumActivities = flagged.NumActivities
	}
	return out
}

func loadConfig(cmd *cobra.Command) (Config, error) {
	file, err := configutil.ReadConfig[Config](*configPath)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		err = nil
	}
	if err != nil {
		return Config{}, err
	}

	flagged := flagValues
	flagged.Debug = *debug
	cfg := resolveConfig(cmd, file, flagged)

	if cfg.Username == "" || cfg.Password == "" {
		return cfg, errors.New("a username (-u) and password (-p) are required")
	}
	if cfg.NumActivities < 0 {
		return cfg, errors.New("--num-activities cannot be negative")
	}
	return cfg, nil
}

func createClient(cfg Config) *core.Client {
	opts := core.ClientOptions{
		BypassCloudflare: true,
	}
	if cfg.DumpHttp != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.DumpHttp)
		if err != nil {
			serviceutil.Fatal("failed to create http dump directory", err)
		}
		opts.InstrumentOutput = output
	}

	client, err := core.NewClient(opts)
	if err != nil {
		serviceutil.Fatal("failed to initialize garmin client", err)
	}
	return client
}

func exportSQLite(ctx context.Context, dsn, collectionPath string) int {
	collection := activitystore.NewCollection()
	_, err := collection.Load(collectionPath)
	if err != nil {
		serviceutil.Fatal("failed to reload saved activities", err)
	}

	db, err := activitystore.OpenExportDB(dsn)
	if err != nil {
		serviceutil.Fatal("failed to open export db", err)
	}
	defer db.Close()

	n, err := activitystore.ExportSQL(ctx, db, collection)
	if err != nil {
		serviceutil.Fatal("failed to export activities", err)
	}
	slog.InfoContext(ctx, "exported activities", "dsn", dsn, "count", n)
	return n
}

func runScrape(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		serviceutil.Fatal("invalid configuration", err)
	}

	telemetry.InitSlog(cfg.Debug)
	tel, err := telemetry.SetupFromEnv(context.Background(), "garmin-scraper")
	if err != nil {
		slog.Warn("failed to set up telemetry, continuing without it", "err", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()

	ctx := cmd.Context()
	if tel.Enabled() {
		telemetry.InstrumentPerfStats(ctx, time.Second*15)
	}

	slog.InfoContext(ctx, "scraping using user", "username", cfg.Username)
	client := createClient(cfg)

	t1 := time.Now()
	result, err := scraper.Scrape(ctx, client, scraper.Options{
		Credentials: core.Credentials{
			Username: cfg.Username,
			Password: cfg.Password,
		},
		SkipSplits:  cfg.SkipSplits,
		SkipDetails: cfg.SkipDetails,
		SkipGPX:     cfg.SkipGPX,
		TrackDir:    cfg.TrackDir,
		MaxNew:      cfg.NumActivities,
		InputFile:   cfg.InputFile,
		OutputFile:  cfg.OutputFile,
	})
	elapsed := time.Since(t1)

	exported := -1
	if cfg.SQLite != "" && result.Saved > 0 {
		exported = exportSQLite(context.WithoutCancel(ctx), cfg.SQLite, cfg.OutputFile)
	}

	renderSummary(os.Stdout, cfg, result, exported, elapsed)
	if err != nil {
		serviceutil.Fatal("scraping did not finish", err)
	}
}
