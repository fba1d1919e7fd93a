package activities

import (
	"bytes"
	"context"
	"fmt"
	"garmin-scraper/lib/htmlutil"
	"garmin-scraper/lib/scrapers/garmin/core"
	"log/slog"
	"net/url"
	"regexp"
	"slices"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Requester is the session every listing and activity request goes
// through, see core.Client.
type Requester interface {
	Request(ctx context.Context, rawUrl string, form url.Values) ([]byte, error)
}

const activityLinkSelector = "a.activityNameLink[href]"

// the listing is a JSF page, this is what its "next page" button posts
func nextPageForm() url.Values {
	return url.Values{
		"AJAXREQUEST":                 {"_viewRoot"},
		"activitiesForm":              {"activitiesForm"},
		"javax.faces.ViewState":       {"j_id1"},
		"ajaxSingle":                  {"activitiesForm:pageScroller"},
		"activitiesForm:pageScroller": {"fastforward"},
		"AJAX:EVENTS_COUNT":           {"1"},
	}
}

var activityIdRegex = regexp.MustCompile(`\d+`)

// ParseID returns the first run of digits in an activity link.
func ParseID(href string) (string, error) {
	id := activityIdRegex.FindString(href)
	if id == "" {
		return "", fmt.Errorf("%w: could not retrieve activity id from url: %s", core.ErrParse, href)
	}
	return id, nil
}

// ParseListing extracts the activity links of one listing page in document
// order.
func ParseListing(base *url.URL, body []byte) ([]Ref, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse listing html: %w", core.ErrParse, err)
	}

	anchors := htmlutil.GetAnchors(base, doc.Find(activityLinkSelector))
	refs := make([]Ref, 0, len(anchors))
	for _, a := range anchors {
		id, err := ParseID(a.Href)
		if err != nil {
			return nil, err
		}
		href := a.Href
		if a.Url != nil {
			href = a.Url.String()
		}
		refs = append(refs, Ref{
			ID:   id,
			Href: href,
			Name: a.Name,
		})
	}
	return refs, nil
}

// Pager walks the activity listing one page at a time, it is used like a
// bufio.Scanner:
//
//	for pager.Next(ctx) {
//		batch := pager.Batch()
//	}
//	err := pager.Err()
//
// The listing never says it ran out of pages, asking past the end just
// serves the last page again, so a page identical to the one before it is
// the end of the list. A Pager cannot be restarted.
type Pager struct {
	client  Requester
	listUrl *url.URL

	pages    int
	previous []Ref
	batch    []Ref
	done     bool
	err      error
}

func NewPager(client Requester, endpoints core.Endpoints) (*Pager, error) {
	listUrl, err := url.Parse(endpoints.WithDefaults().ActivityList())
	if err != nil {
		return nil, err
	}
	return &Pager{
		client:  client,
		listUrl: listUrl,
	}, nil
}

func (p *Pager) Next(ctx context.Context) bool {
	if p.done {
		return false
	}

	ctx, span := tracer.Start(ctx, "pager:Next")
	defer span.End()
	span.SetAttributes(attribute.Int("page", p.pages+1))

	var form url.Values
	if p.pages > 0 {
		form = nextPageForm()
	}

	body, err := p.client.Request(ctx, p.listUrl.String(), form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch listing")
		return p.fail(fmt.Errorf("fetch activity list page %d: %w", p.pages+1, err))
	}
	current, err := ParseListing(p.listUrl, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse listing")
		return p.fail(fmt.Errorf("activity list page %d: %w", p.pages+1, err))
	}

	if slices.Equal(current, p.previous) {
		slog.InfoContext(ctx, "reached the end of activities", "pages", p.pages)
		p.done = true
		p.batch = nil
		return false
	}

	p.pages++
	p.previous = current
	p.batch = current
	slog.DebugContext(ctx, "fetched activity list page", "page", p.pages, "activities", len(current))
	return true
}

func (p *Pager) fail(err error) bool {
	p.err = err
	p.done = true
	p.batch = nil
	return false
}

// Batch returns the activities of the page the last successful Next
// fetched.
func (p *Pager) Batch() []Ref {
	return p.batch
}

// Pages returns how many pages were yielded so far.
func (p *Pager) Pages() int {
	return p.pages
}

func (p *Pager) Err() error {
	return p.err
}
