package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []TrackRecord {
	return []TrackRecord{
		{ID: "a", Title: "One", Artist: "X", Album: "L1", Genres: []string{"Rock", "Indie"}, Embedding: Embedding{1, 0, 0}},
		{ID: "b", Title: "Two", Artist: "X", Album: "L1", Genres: []string{"Rock"}, Embedding: Embedding{0.9, 0.1, 0}},
		{ID: "c", Title: "Three", Artist: "Y", Album: "L2", Genres: nil},
	}
}

func TestPrimaryGenre(t *testing.T) {
	assert.Equal(t, "Rock", TrackRecord{Genres: []string{"Rock", "Pop"}}.PrimaryGenre())
	assert.Equal(t, UnknownGenre, TrackRecord{}.PrimaryGenre())
	assert.Equal(t, UnknownGenre, TrackRecord{Genres: []string{" "}}.PrimaryGenre())
}

func TestParseGenres(t *testing.T) {
	assert.Equal(t, []string{"Jazz", "Soul"}, ParseGenres(`["Jazz","Soul"]`))
	assert.Equal(t, []string{"Hip-Hop"}, ParseGenres(`"Hip-Hop"`))
	assert.Equal(t, []string{"Synthpop"}, ParseGenres(`Synthpop`))
	assert.Empty(t, ParseGenres(""))
	assert.Empty(t, ParseGenres("null"))
	assert.Empty(t, ParseGenres("[]"))
}

func TestParseEmbedding(t *testing.T) {
	vec, err := ParseEmbedding("[0.5,-1,2e-3]")
	require.NoError(t, err)
	assert.Equal(t, Embedding{0.5, -1, 0.002}, vec)

	vec, err = ParseEmbedding("")
	require.NoError(t, err)
	assert.Nil(t, vec)

	_, err = ParseEmbedding("{0.5}")
	assert.Error(t, err)
}

func TestWithEmbeddings(t *testing.T) {
	kept, missing := WithEmbeddings(sampleRecords(), 3)
	assert.Len(t, kept, 2)
	assert.Equal(t, 1, missing)

	kept, missing = WithEmbeddings(sampleRecords(), 100)
	assert.Empty(t, kept)
	assert.Equal(t, 3, missing)
}

func TestMemoryCatalog(t *testing.T) {
	records := sampleRecords()
	c := NewMemoryCatalog(records)
	records[0].Title = "changed"

	got, err := c.Tracks(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "One", got[0].Title)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Tracks(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func createLibrary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE library_index (id TEXT PRIMARY KEY, title TEXT, artist TEXT, album TEXT, genres TEXT)`,
		`CREATE TABLE track_embeddings (track_id TEXT PRIMARY KEY, embedding TEXT)`,
		`INSERT INTO library_index VALUES ('t1', 'One', 'X', 'L1', '["Metal","Rock"]')`,
		`INSERT INTO library_index VALUES ('t2', 'Two', 'Y', NULL, NULL)`,
		`INSERT INTO library_index VALUES ('t3', 'Three', 'Z', 'L3', 'Jazz')`,
		`INSERT INTO track_embeddings VALUES ('t1', '[0.1,0.2,0.3]')`,
		`INSERT INTO track_embeddings VALUES ('t3', 'garbage')`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestSQLiteCatalog(t *testing.T) {
	c, err := OpenSQLite(createLibrary(t))
	require.NoError(t, err)
	defer c.Close()

	tracks, err := c.Tracks(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	assert.Equal(t, "t1", tracks[0].ID)
	assert.Equal(t, []string{"Metal", "Rock"}, tracks[0].Genres)
	assert.Equal(t, Embedding{0.1, 0.2, 0.3}, tracks[0].Embedding)

	assert.Equal(t, "", tracks[1].Album)
	assert.Nil(t, tracks[1].Genres)
	assert.Nil(t, tracks[1].Embedding)

	assert.Equal(t, []string{"Jazz"}, tracks[2].Genres)
	assert.Nil(t, tracks[2].Embedding, "malformed embeddings are dropped")
}

func TestSQLiteCatalogMissingSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE other (x INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := OpenSQLite(path)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Tracks(context.Background())
	assert.Error(t, err)
}

func TestBadgerSnapshotRoundTrip(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	defer db.Close()

	n, err := Snapshot(context.Background(), NewMemoryCatalog(sampleRecords()), db)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// unrelated keys are ignored
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("meta/version"), []byte("1"))
	}))

	got, err := NewBadgerCatalog(db).Tracks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestOpenBadgerReadOnly(t *testing.T) {
	dir := t.TempDir()

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	_, err = Snapshot(context.Background(), NewMemoryCatalog(sampleRecords()[:2]), db)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := OpenBadger(dir)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Tracks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
}
