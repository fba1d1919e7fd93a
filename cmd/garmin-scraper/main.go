package main

import (
	"context"
	"garmin-scraper/cmd/garmin-scraper/commands"
	"garmin-scraper/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext(context.Background())
	commands.ExecuteContext(ctx)
}
