package scraper

import (
	"garmin-scraper/lib/telemetry"

	"go.opentelemetry.io/otel/metric"
)

var tracer = telemetry.Tracer("garmin-scraper.services.garmin.scraper")
var meter = telemetry.Meter("garmin-scraper.services.garmin.scraper")

var scrapedCounter, _ = meter.Int64Counter(
	"activities_scraped",
	metric.WithDescription("activities fetched and added to the collection"),
)
var skippedCounter, _ = meter.Int64Counter(
	"activities_skipped",
	metric.WithDescription("activities already present in the collection"),
)
