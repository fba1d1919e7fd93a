package activities

import (
	"context"
	"fmt"
	"garmin-scraper/lib/scrapers/garmin/core"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultTrackDir = "gpx_output_files"

type EnricherOptions struct {
	Endpoints   core.Endpoints
	SkipSplits  bool
	SkipDetails bool
	SkipGPX     bool
	// directory gpx files are written to, created on first use
	TrackDir string
}

// Enricher fetches the per-activity resources for activities found by a
// Pager.
type Enricher struct {
	client    Requester
	endpoints core.Endpoints
	opts      EnricherOptions

	trackDirReady bool
}

func NewEnricher(client Requester, opts EnricherOptions) *Enricher {
	if opts.TrackDir == "" {
		opts.TrackDir = DefaultTrackDir
	}
	return &Enricher{
		client:    client,
		endpoints: opts.Endpoints.WithDefaults(),
		opts:      opts,
	}
}

func (e *Enricher) fetchDocument(ctx context.Context, id, what, endpoint string) (Document, error) {
	body, err := e.client.Request(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: activity %s %s: %w", core.ErrFetch, id, what, err)
	}
	doc, err := DecodeDocument(body)
	if err != nil {
		return nil, fmt.Errorf("%w: activity %s %s: %w", core.ErrFetch, id, what, err)
	}
	return doc, nil
}

// fetchTrack is best effort, activities recorded without gps (treadmill,
// manual entries) answer with an error status.
func (e *Enricher) fetchTrack(ctx context.Context, endpoint string) ([]byte, bool) {
	payload, err := e.client.Request(ctx, endpoint, nil)
	if err != nil {
		slog.DebugContext(ctx, "no gpx for activity", "url", endpoint, "err", err)
		return nil, false
	}
	return payload, true
}

func (e *Enricher) writeTrack(id string, payload []byte) (string, error) {
	if !e.trackDirReady {
		err := os.MkdirAll(e.opts.TrackDir, 0755)
		if err != nil {
			return "", fmt.Errorf("%w: create gpx dir: %w", core.ErrIO, err)
		}
		e.trackDirReady = true
	}
	path := filepath.Join(e.opts.TrackDir, fmt.Sprintf("activity_%s.gpx", id))
	err := os.WriteFile(path, payload, 0644)
	if err != nil {
		return "", fmt.Errorf("%w: write gpx file: %w", core.ErrIO, err)
	}
	return path, nil
}

// Enrich fetches metadata, splits, details and the gpx track of one
// activity. Any failure other than a missing track aborts with an error,
// the partially filled record is discarded.
func (e *Enricher) Enrich(ctx context.Context, ref Ref) (Record, error) {
	ctx, span := tracer.Start(ctx, "enricher:Enrich")
	defer span.End()
	span.SetAttributes(attribute.String("activity.id", ref.ID))

	fail := func(err error) (Record, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Record{}, err
	}

	record := Record{
		ID:       ref.ID,
		Href:     ref.Href,
		DataHref: e.endpoints.ActivityData(ref.ID),
	}
	if record.Href == "" {
		record.Href = e.endpoints.Activity(ref.ID)
	}

	data, err := e.fetchDocument(ctx, ref.ID, "data", record.DataHref)
	if err != nil {
		return fail(err)
	}
	record.Data = data

	if !e.opts.SkipSplits {
		record.SplitsHref = e.endpoints.ActivitySplits(ref.ID)
		record.Splits, err = e.fetchDocument(ctx, ref.ID, "splits", record.SplitsHref)
		if err != nil {
			return fail(err)
		}
	}

	if !e.opts.SkipDetails {
		record.DetailsHref = e.endpoints.ActivityDetails(ref.ID)
		record.Details, err = e.fetchDocument(ctx, ref.ID, "details", record.DetailsHref)
		if err != nil {
			return fail(err)
		}
	}

	if !e.opts.SkipGPX {
		record.GPXHref = e.endpoints.ActivityGPX(ref.ID)
		payload, ok := e.fetchTrack(ctx, record.GPXHref)
		if ok {
			record.LocalGPXFile, err = e.writeTrack(ref.ID, payload)
			if err != nil {
				return fail(err)
			}
		}
		span.SetAttributes(attribute.Bool("activity.has_track", ok))
	}

	slog.DebugContext(ctx, "enriched activity", "id", ref.ID, "name", record.Name())
	return record, nil
}
