package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/RyanBlaney/sonido-embed/logging"
)

const trackQuery = `SELECT li.id, li.title, li.artist, li.album, li.genres, te.embedding
FROM library_index li
LEFT JOIN track_embeddings te ON te.track_id = li.id
ORDER BY li.id`

// SQLiteCatalog reads library_index joined with track_embeddings
type SQLiteCatalog struct {
	db     *sql.DB
	path   string
	logger logging.Logger
}

// OpenSQLite opens the catalog database read-only
func OpenSQLite(path string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragma: %w", err)
	}

	return &SQLiteCatalog{
		db:   db,
		path: path,
		logger: logging.WithFields(logging.Fields{
			"component": "sqlite_catalog",
			"path":      path,
		}),
	}, nil
}

// Tracks returns every library track ordered by id, with its embedding
// when one exists
func (c *SQLiteCatalog) Tracks(ctx context.Context) ([]TrackRecord, error) {
	rows, err := c.db.QueryContext(ctx, trackQuery)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var records []TrackRecord
	for rows.Next() {
		var (
			rec                   TrackRecord
			title, artist, album  sql.NullString
			genres, embeddingText sql.NullString
		)
		if err := rows.Scan(&rec.ID, &title, &artist, &album, &genres, &embeddingText); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		rec.Title = title.String
		rec.Artist = artist.String
		rec.Album = album.String
		rec.Genres = ParseGenres(genres.String)

		if embeddingText.Valid {
			rec.Embedding, err = ParseEmbedding(embeddingText.String)
			if err != nil {
				c.logger.Warn("Ignoring malformed embedding", logging.Fields{
					"track_id": rec.ID,
					"error":    err.Error(),
				})
				rec.Embedding = nil
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}

	c.logger.Debug("Loaded tracks", logging.Fields{"count": len(records)})
	return records, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCatalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
