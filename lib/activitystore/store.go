package activitystore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"garmin-scraper/lib/scrapers/garmin/activities"
	"garmin-scraper/lib/scrapers/garmin/core"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// the indentation files written by earlier scraper versions use
const indent = "   "

// Collection is every scraped activity keyed by id. Entries are never
// replaced once present, resuming from a previous run only ever adds.
type Collection struct {
	records map[string]activities.Record
	// entries read by Load, written back byte for byte (modulo indentation)
	// so keys this version does not know about survive a resume
	loaded map[string]json.RawMessage
}

func NewCollection() *Collection {
	return &Collection{
		records: map[string]activities.Record{},
		loaded:  map[string]json.RawMessage{},
	}
}

// Load reads a collection written by Save and returns how many activities
// it held.
func (c *Collection) Load(path string) (int, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: read collection: %w", core.ErrIO, err)
	}

	var entries map[string]json.RawMessage
	err = activities.DecodeJSON(contents, &entries)
	if err != nil {
		return 0, fmt.Errorf("%w: decode collection %s: %w", core.ErrParse, path, err)
	}

	for id, raw := range entries {
		var record activities.Record
		err = activities.DecodeJSON(raw, &record)
		if err != nil {
			return 0, fmt.Errorf("%w: decode activity %s in %s: %w", core.ErrParse, id, path, err)
		}
		if record.ID == "" {
			record.ID = id
		}
		c.records[id] = record
		c.loaded[id] = raw
	}
	return len(entries), nil
}

func (c *Collection) Has(id string) bool {
	_, ok := c.records[id]
	return ok
}

func (c *Collection) Get(id string) (activities.Record, bool) {
	record, ok := c.records[id]
	return record, ok
}

func (c *Collection) Len() int {
	return len(c.records)
}

// IDs returns every activity id in ascending order.
func (c *Collection) IDs() []string {
	ids := make([]string, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge adds record unless its id is already known, it reports whether the
// record was added.
func (c *Collection) Merge(record activities.Record) bool {
	if c.Has(record.ID) {
		slog.Info("skipping activity, already in collection", "id", record.ID)
		return false
	}
	c.records[record.ID] = record
	return true
}

// encodeRecord returns the json stored for id, the text it was loaded
// from if it came from a file.
func (c *Collection) encodeRecord(id string) (json.RawMessage, error) {
	if raw, ok := c.loaded[id]; ok {
		return raw, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(c.records[id])
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Save writes the whole collection to path, replacing whatever was there,
// and returns how many activities were written.
func (c *Collection) Save(path string) (int, error) {
	out := make(map[string]json.RawMessage, len(c.records))
	for id := range c.records {
		raw, err := c.encodeRecord(id)
		if err != nil {
			return 0, fmt.Errorf("%w: encode activity %s: %w", core.ErrParse, id, err)
		}
		out[id] = raw
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	err := enc.Encode(out)
	if err != nil {
		return 0, fmt.Errorf("%w: encode collection: %w", core.ErrParse, err)
	}

	err = writeFileAtomic(path, buf.Bytes())
	if err != nil {
		return 0, fmt.Errorf("%w: write collection: %w", core.ErrIO, err)
	}
	return len(c.records), nil
}

// writeFileAtomic writes into a sibling temp file and renames it over path
// so an interrupted save never leaves a truncated collection behind.
func writeFileAtomic(path string, contents []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	err = os.Chmod(tmp.Name(), 0644)
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
