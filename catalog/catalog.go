package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownGenre stands in for tracks without genre tags
const UnknownGenre = "Unknown"

// Embedding is an encoder output vector
type Embedding []float64

// TrackRecord is one catalog entry. Genres is ordered; the first entry is
// the primary genre. Embedding is nil when the track was never encoded.
type TrackRecord struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Artist    string    `json:"artist" yaml:"artist"`
	Album     string    `json:"album" yaml:"album"`
	Genres    []string  `json:"genres" yaml:"genres"`
	Embedding Embedding `json:"embedding,omitempty" yaml:"-"`
}

// PrimaryGenre returns the first genre or UnknownGenre
func (t TrackRecord) PrimaryGenre() string {
	if len(t.Genres) == 0 || strings.TrimSpace(t.Genres[0]) == "" {
		return UnknownGenre
	}
	return t.Genres[0]
}

// Catalog is a read-only source of track records
type Catalog interface {
	Tracks(ctx context.Context) ([]TrackRecord, error)
}

// MemoryCatalog serves records held in memory
type MemoryCatalog struct {
	records []TrackRecord
}

// NewMemoryCatalog copies records into a catalog
func NewMemoryCatalog(records []TrackRecord) *MemoryCatalog {
	c := &MemoryCatalog{records: make([]TrackRecord, len(records))}
	copy(c.records, records)
	return c
}

// Tracks returns the records in insertion order
func (c *MemoryCatalog) Tracks(ctx context.Context) ([]TrackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]TrackRecord, len(c.records))
	copy(out, c.records)
	return out, nil
}

// WithEmbeddings splits records into those carrying an embedding of length
// dim and a count of the rest
func WithEmbeddings(records []TrackRecord, dim int) ([]TrackRecord, int) {
	kept := make([]TrackRecord, 0, len(records))
	missing := 0
	for _, r := range records {
		if len(r.Embedding) == 0 || (dim > 0 && len(r.Embedding) != dim) {
			missing++
			continue
		}
		kept = append(kept, r)
	}
	return kept, missing
}

// ParseGenres accepts a JSON array of strings. Anything else that is not
// blank is treated as a single genre name.
func ParseGenres(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}

	var genres []string
	if err := json.Unmarshal([]byte(raw), &genres); err == nil {
		return genres
	}

	var single string
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		raw = single
	}
	if raw = strings.TrimSpace(raw); raw == "" {
		return nil
	}
	return []string{raw}
}

// ParseEmbedding parses the "[v1,v2,...]" text form used by vector columns
func ParseEmbedding(raw string) (Embedding, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	return vec, nil
}
