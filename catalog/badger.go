package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/RyanBlaney/sonido-embed/logging"
)

// TrackPrefix namespaces track records in the key space
const TrackPrefix = "track/"

// BadgerCatalog reads JSON track records stored under TrackPrefix
type BadgerCatalog struct {
	db     *badger.DB
	owned  bool
	logger logging.Logger
}

// OpenBadger opens a badger directory read-only
func OpenBadger(dir string) (*BadgerCatalog, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil).WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	c := NewBadgerCatalog(db)
	c.owned = true
	return c, nil
}

// NewBadgerCatalog wraps an already open database. Close leaves it open.
func NewBadgerCatalog(db *badger.DB) *BadgerCatalog {
	return &BadgerCatalog{
		db: db,
		logger: logging.WithFields(logging.Fields{
			"component": "badger_catalog",
		}),
	}
}

// Tracks returns all records in key order
func (c *BadgerCatalog) Tracks(ctx context.Context) ([]TrackRecord, error) {
	var records []TrackRecord

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(TrackPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var rec TrackRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("decode %s: %w", item.Key(), err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Loaded tracks", logging.Fields{"count": len(records)})
	return records, nil
}

// Close closes the database if OpenBadger opened it
func (c *BadgerCatalog) Close() error {
	if c == nil || !c.owned {
		return nil
	}
	return c.db.Close()
}

// Snapshot copies every record of src into db under TrackPrefix and
// returns the number written. The write batch splits itself into
// transactions as they fill.
func Snapshot(ctx context.Context, src Catalog, db *badger.DB) (int, error) {
	records, err := src.Tracks(ctx)
	if err != nil {
		return 0, err
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()

	for i, rec := range records {
		val, err := json.Marshal(rec)
		if err != nil {
			return i, fmt.Errorf("encode %s: %w", rec.ID, err)
		}
		if err := wb.Set([]byte(TrackPrefix+rec.ID), val); err != nil {
			return i, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush snapshot: %w", err)
	}
	return len(records), nil
}
