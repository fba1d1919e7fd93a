package scraper

import (
	"context"
	"errors"
	"fmt"
	"garmin-scraper/lib/activitystore"
	"garmin-scraper/lib/scrapers/garmin/activities"
	"garmin-scraper/lib/scrapers/garmin/core"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultOutputFile = "activities.json"

type Options struct {
	Credentials core.Credentials

	SkipSplits  bool
	SkipDetails bool
	SkipGPX     bool
	TrackDir    string

	// stop after this many activities were newly scraped, 0 means no limit
	MaxNew int
	// a collection from an earlier run, its activities are kept as-is and
	// not scraped again
	InputFile string
	// defaults to DefaultOutputFile
	OutputFile string
}

type Result struct {
	Loaded    int
	Scraped   int
	Skipped   int
	WithTrack int
	Pages     int
	Saved     int
	Complete  bool
}

type scraper struct {
	client     *core.Client
	collection *activitystore.Collection
	opts       Options
	result     *Result
}

func (s scraper) crawl(ctx context.Context) error {
	pager, err := activities.NewPager(s.client, s.client.Endpoints)
	if err != nil {
		return err
	}
	enricher := activities.NewEnricher(s.client, activities.EnricherOptions{
		Endpoints:   s.client.Endpoints,
		SkipSplits:  s.opts.SkipSplits,
		SkipDetails: s.opts.SkipDetails,
		SkipGPX:     s.opts.SkipGPX,
		TrackDir:    s.opts.TrackDir,
	})

	for pager.Next(ctx) {
		s.result.Pages = pager.Pages()

		for _, ref := range pager.Batch() {
			if s.collection.Has(ref.ID) {
				slog.InfoContext(ctx, "skipping activity", "id", ref.ID)
				s.result.Skipped++
				skippedCounter.Add(ctx, 1)
				continue
			}

			record, err := enricher.Enrich(ctx, ref)
			if err != nil {
				return err
			}
			s.collection.Merge(record)

			s.result.Scraped++
			if record.LocalGPXFile != "" {
				s.result.WithTrack++
			}
			scrapedCounter.Add(ctx, 1)
			slog.InfoContext(
				ctx, "scraped activity",
				"n", s.collection.Len(),
				"id", record.ID,
				"name", record.Name(),
			)

			if s.opts.MaxNew > 0 && s.result.Scraped >= s.opts.MaxNew {
				slog.InfoContext(ctx, "reached the maximum number of new activities", "max", s.opts.MaxNew)
				return nil
			}
		}
	}
	if pager.Err() != nil {
		return pager.Err()
	}

	slog.InfoContext(ctx, "done scraping activities")
	s.result.Complete = true
	return nil
}

// Scrape logs in, crawls every activity not already in the input
// collection and writes the merged collection to the output file. The
// collection is saved even when the crawl fails partway, the crawl error is
// returned alongside.
func Scrape(ctx context.Context, client *core.Client, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	if opts.OutputFile == "" {
		opts.OutputFile = DefaultOutputFile
	}

	var result Result

	err := client.Login(ctx, opts.Credentials)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return result, err
	}

	collection := activitystore.NewCollection()
	if opts.InputFile != "" {
		slog.InfoContext(ctx, "loading activities from file", "path", opts.InputFile)
		result.Loaded, err = collection.Load(opts.InputFile)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "load input failed")
			return result, err
		}
		slog.InfoContext(ctx, "loaded activities from file", "count", result.Loaded)
	}

	s := scraper{
		client:     client,
		collection: collection,
		opts:       opts,
		result:     &result,
	}
	crawlErr := s.crawl(ctx)
	if crawlErr != nil {
		span.RecordError(crawlErr)
		span.SetStatus(codes.Error, "crawl failed")
		slog.ErrorContext(ctx, "scraping stopped early, saving what was collected", "err", crawlErr)
		crawlErr = fmt.Errorf("scrape activities: %w", crawlErr)
	}

	slog.InfoContext(ctx, "saving activities to file", "path", opts.OutputFile)
	result.Saved, err = collection.Save(opts.OutputFile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return result, errors.Join(crawlErr, err)
	}
	slog.InfoContext(ctx, "saved activities", "count", result.Saved)

	span.SetAttributes(
		attribute.Int("activities.loaded", result.Loaded),
		attribute.Int("activities.scraped", result.Scraped),
		attribute.Int("activities.saved", result.Saved),
	)
	return result, crawlErr
}
