package activities

import (
	"context"
	"encoding/json"
	"garmin-scraper/lib/scrapers/garmin/core"
	"garmin-scraper/lib/telemetry"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// routeRequester answers by url, unknown urls get a 404 status error.
type routeRequester struct {
	routes map[string]string
	calls  []string
}

func (r *routeRequester) Request(_ context.Context, rawUrl string, form url.Values) ([]byte, error) {
	r.calls = append(r.calls, rawUrl)
	body, ok := r.routes[rawUrl]
	if !ok {
		return nil, &core.StatusError{Method: "GET", URL: rawUrl, StatusCode: 404}
	}
	return []byte(body), nil
}

func activityRoutes(e core.Endpoints, id string, withTrack bool) map[string]string {
	routes := map[string]string{
		e.ActivityData(id):    `{"activityId": 9007199254740993, "activityName": "Lunch Run", "distance": 5012.37, "tags": ["a", null, true]}`,
		e.ActivitySplits(id):  `{"lapDTOs": [{"lapIndex": 1}]}`,
		e.ActivityDetails(id): `{"metricsCount": 2}`,
	}
	if withTrack {
		routes[e.ActivityGPX(id)] = `<gpx></gpx>`
	}
	return routes
}

func TestEnrich(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/garmin/activities")
	defer cleanup()

	endpoints := testEndpoints()
	requester := &routeRequester{routes: activityRoutes(endpoints, "77", true)}
	trackDir := filepath.Join(t.TempDir(), "gpx")

	enricher := NewEnricher(requester, EnricherOptions{
		Endpoints: endpoints,
		TrackDir:  trackDir,
	})
	record, err := enricher.Enrich(context.Background(), Ref{ID: "77", Href: "https://connect.example/modern/activity/77"})
	require.NoError(t, err)

	require.Equal(t, "77", record.ID)
	require.Equal(t, "Lunch Run", record.Name())
	// large ids survive without float rounding
	require.Equal(t, json.Number("9007199254740993"), record.Data["activityId"])
	require.NotNil(t, record.Splits)
	require.NotNil(t, record.Details)
	require.Equal(t, filepath.Join(trackDir, "activity_77.gpx"), record.LocalGPXFile)

	contents, err := os.ReadFile(record.LocalGPXFile)
	require.NoError(t, err)
	require.Equal(t, "<gpx></gpx>", string(contents))
}

func TestEnrichMissingTrack(t *testing.T) {
	endpoints := testEndpoints()
	requester := &routeRequester{routes: activityRoutes(endpoints, "78", false)}
	trackDir := filepath.Join(t.TempDir(), "gpx")

	enricher := NewEnricher(requester, EnricherOptions{
		Endpoints: endpoints,
		TrackDir:  trackDir,
	})
	record, err := enricher.Enrich(context.Background(), Ref{ID: "78"})
	require.NoError(t, err)

	require.Empty(t, record.LocalGPXFile)
	require.NotNil(t, record.Data)
	require.NotNil(t, record.Splits)
	require.NotNil(t, record.Details)
	require.Equal(t, endpoints.Activity("78"), record.Href)

	// nothing was written so the directory was never needed
	_, err = os.Stat(trackDir)
	require.True(t, os.IsNotExist(err))
}

func TestEnrichSkipFlags(t *testing.T) {
	endpoints := testEndpoints()
	requester := &routeRequester{routes: activityRoutes(endpoints, "79", true)}

	enricher := NewEnricher(requester, EnricherOptions{
		Endpoints:   endpoints,
		SkipSplits:  true,
		SkipDetails: true,
		SkipGPX:     true,
		TrackDir:    t.TempDir(),
	})
	record, err := enricher.Enrich(context.Background(), Ref{ID: "79", Href: "/modern/activity/79"})
	require.NoError(t, err)

	require.Equal(t, []string{endpoints.ActivityData("79")}, requester.calls)
	require.Equal(t, Record{
		ID:       "79",
		Href:     "/modern/activity/79",
		DataHref: endpoints.ActivityData("79"),
		Data:     record.Data,
	}, record)
	require.NotEmpty(t, record.Data)
}

func TestEnrichMetadataFailure(t *testing.T) {
	endpoints := testEndpoints()

	requester := &routeRequester{routes: map[string]string{}}
	enricher := NewEnricher(requester, EnricherOptions{Endpoints: endpoints, TrackDir: t.TempDir()})
	_, err := enricher.Enrich(context.Background(), Ref{ID: "80"})
	require.ErrorIs(t, err, core.ErrFetch)
	require.ErrorIs(t, err, core.ErrTransport)
	require.Len(t, requester.calls, 1)

	requester = &routeRequester{routes: map[string]string{
		endpoints.ActivityData("81"): `[1, 2, 3]`,
	}}
	enricher = NewEnricher(requester, EnricherOptions{Endpoints: endpoints, TrackDir: t.TempDir()})
	_, err = enricher.Enrich(context.Background(), Ref{ID: "81"})
	require.ErrorIs(t, err, core.ErrFetch)
	require.ErrorIs(t, err, core.ErrParse)
}

func TestEnrichSplitsFailureAborts(t *testing.T) {
	endpoints := testEndpoints()
	routes := activityRoutes(endpoints, "82", true)
	routes[endpoints.ActivitySplits("82")] = `not json`

	requester := &routeRequester{routes: routes}
	enricher := NewEnricher(requester, EnricherOptions{Endpoints: endpoints, TrackDir: t.TempDir()})
	_, err := enricher.Enrich(context.Background(), Ref{ID: "82"})
	require.ErrorIs(t, err, core.ErrFetch)
	require.Len(t, requester.calls, 2)
}

func TestDecodeDocument(t *testing.T) {
	_, err := DecodeDocument([]byte(`null`))
	require.ErrorIs(t, err, core.ErrParse)

	doc, err := DecodeDocument([]byte(`{"activityName": 5}`))
	require.NoError(t, err)
	require.Equal(t, "", doc.String("activityName"))

	doc, err = DecodeDocument([]byte("{\"activityName\": \"x\"}\n  \n"))
	require.NoError(t, err)
	require.Equal(t, "x", doc.String("activityName"))

	for _, body := range []string{
		`{"activityName": "x"} <html>oops`,
		`{"activityName": "x"}{"activityName": "y"}`,
		`{"activityName": "x"} 1`,
		``,
	} {
		_, err = DecodeDocument([]byte(body))
		require.ErrorIs(t, err, core.ErrParse, body)
	}
}

func TestEnrichTrailingGarbage(t *testing.T) {
	endpoints := testEndpoints()
	routes := activityRoutes(endpoints, "83", false)
	routes[endpoints.ActivityData("83")] = `{"activityName": "x"} <html>oops</html>`

	requester := &routeRequester{routes: routes}
	enricher := NewEnricher(requester, EnricherOptions{Endpoints: endpoints, TrackDir: t.TempDir()})
	_, err := enricher.Enrich(context.Background(), Ref{ID: "83"})
	require.ErrorIs(t, err, core.ErrFetch)
	require.ErrorIs(t, err, core.ErrParse)
}
