package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-embed/analysis"
	"github.com/RyanBlaney/sonido-embed/catalog"
	"github.com/RyanBlaney/sonido-embed/config"
)

func TestCollectAudioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.wav", "a.MP3", "notes.txt", filepath.Join("sub", "c.flac")} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	single := filepath.Join(dir, "notes.txt")

	paths, err := collectAudioFiles([]string{dir, single, filepath.Join(dir, "b.wav")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.MP3"),
		filepath.Join(dir, "b.wav"),
		single,
		filepath.Join(dir, "sub", "c.flac"),
	}, paths)

	_, err = collectAudioFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestFlagValue(t *testing.T) {
	assert.Equal(t, "5,8,10", flagValue([]int{5, 8, 10}))
	assert.Equal(t, "0.85,0.9", flagValue([]float64{0.85, 0.9}))
	assert.Equal(t, "1,2", flagValue([]any{1, 2}))
	assert.Equal(t, "a,b", flagValue([]string{"a", "b"}))
	assert.Equal(t, "42", flagValue(int64(42)))
}

func TestWriteStructured(t *testing.T) {
	value := map[string]int{"tracks": 3}

	var buf bytes.Buffer
	ok, err := writeStructured(&buf, "json", value)
	require.True(t, ok)
	require.NoError(t, err)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, value, decoded)

	buf.Reset()
	ok, err = writeStructured(&buf, "yaml", value)
	require.True(t, ok)
	require.NoError(t, err)
	decoded = nil
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, value, decoded)

	ok, err = writeStructured(&buf, "table", value)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestOpenCatalogUnknownBackend(t *testing.T) {
	_, _, err := openCatalog(config.CatalogConfig{Backend: "mongo", Path: "x"})
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRenderReport(t *testing.T) {
	var tracks []catalog.TrackRecord
	genres := []string{"Jazz", "Metal", "House"}
	for g, genre := range genres {
		for i := range 6 {
			vec := make(catalog.Embedding, 4)
			vec[g] = 1
			vec[3] = 0.05 * float64(i)
			tracks = append(tracks, catalog.TrackRecord{
				ID:        genre + string(rune('a'+i)),
				Title:     "Song",
				Artist:    genre + " Band",
				Album:     "LP",
				Genres:    []string{genre},
				Embedding: vec,
			})
		}
	}

	cfg := config.DefaultAnalysisConfig()
	cfg.EmbeddingDim = 4
	cfg.ClusterCounts = []int{3}
	cfg.ClusterInits = 2
	an, err := analysis.NewAnalyzer(cfg, catalog.NewMemoryCatalog(tracks))
	require.NoError(t, err)
	report, err := an.Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	renderReport(&buf, report, 2)
	out := buf.String()
	assert.Contains(t, out, report.RunID)
	assert.Contains(t, out, "Facet separation")
	assert.Contains(t, out, "Least typical tracks per genre")
	assert.Contains(t, out, "mostly")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
}
