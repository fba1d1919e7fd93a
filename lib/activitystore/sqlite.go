package activitystore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const Schema = `
create table if not exists activity (
	id text primary key,
	name text not null,
	href text not null,
	gpx_file text,
	record text not null
);
`

// OpenExportDB opens a database to export into, libsql:// urls go to a
// remote libsql server, anything else is treated as a local sqlite path.
func OpenExportDB(dsn string) (*sql.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(dsn, "libsql://") {
		driver = "libsql"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// ExportSQL upserts one row per activity into the activity table, creating
// it if needed. Returns the number of rows written.
func ExportSQL(ctx context.Context, db *sql.DB, c *Collection) (int, error) {
	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return 0, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		insert into activity (id, name, href, gpx_file, record)
		values (?, ?, ?, ?, ?)
		on conflict (id) do update set
			name = excluded.name,
			href = excluded.href,
			gpx_file = excluded.gpx_file,
			record = excluded.record
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	written := 0
	for _, id := range c.IDs() {
		record := c.records[id]
		serialized, err := c.encodeRecord(id)
		if err != nil {
			return written, fmt.Errorf("encode activity %s: %w", id, err)
		}
		var gpxFile sql.NullString
		if record.LocalGPXFile != "" {
			gpxFile = sql.NullString{String: record.LocalGPXFile, Valid: true}
		}
		_, err = stmt.ExecContext(ctx, id, record.Name(), record.Href, gpxFile, string(serialized))
		if err != nil {
			return written, fmt.Errorf("insert activity %s: %w", id, err)
		}
		written++
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	return written, nil
}
