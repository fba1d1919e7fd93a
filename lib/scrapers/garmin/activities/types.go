package activities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"garmin-scraper/lib/scrapers/garmin/core"
	"io"
)

// Ref is an activity as discovered on the listing page.
type Ref struct {
	ID string
	// Href is the activity link resolved against the listing page.
	Href string
	Name string
}

// Document is a JSON object kept verbatim, garmin does not guarantee the
// shape of its activity payloads. Numbers decode as json.Number so they are
// written back exactly as received.
type Document map[string]any

// DecodeJSON decodes exactly one json value from body into out, numbers
// become json.Number. Anything but whitespace after the value is an error.
func DecodeJSON(body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	err := dec.Decode(out)
	if err != nil {
		return err
	}
	_, err = dec.Token()
	if err != io.EOF {
		return fmt.Errorf("unexpected data after json value at offset %d", dec.InputOffset())
	}
	return nil
}

func DecodeDocument(body []byte) (Document, error) {
	var doc Document
	err := DecodeJSON(body, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: decode json object: %w", core.ErrParse, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: expected a json object, got null", core.ErrParse)
	}
	return doc, nil
}

// String returns the string stored under key, or "" when absent or not a
// string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Record is everything scraped for one activity, the json keys match the
// files written by earlier versions of the scraper so they can be resumed.
type Record struct {
	ID   string `json:"id"`
	Href string `json:"href"`

	DataHref string   `json:"href-data-json,omitempty"`
	Data     Document `json:"data"`

	SplitsHref string   `json:"href-splits-json,omitempty"`
	Splits     Document `json:"splits,omitempty"`

	DetailsHref string   `json:"href-details-json,omitempty"`
	Details     Document `json:"details,omitempty"`

	GPXHref      string `json:"href-gpx-file,omitempty"`
	LocalGPXFile string `json:"local-gpx-file,omitempty"`
}

func (r Record) Name() string {
	return r.Data.String("activityName")
}
