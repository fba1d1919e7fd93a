package core

import (
	"garmin-scraper/lib/telemetry"
)

var tracer = telemetry.Tracer("garmin-scraper.lib.scrapers.garmin.core")
