package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/respcache/persist"
)

func TestCheckWorkload(t *testing.T) {
	t.Parallel()

	require.NoError(t, checkWorkload(1, 1.1, 80))
	require.NoError(t, checkWorkload(100_000, 2, 0))

	bad := map[string]struct {
		keys    int
		zipfS   float64
		readPct int
	}{
		"no keys":       {0, 1.1, 80},
		"negative keys": {-5, 1.1, 80},
		"flat zipf":     {10, 1, 80},
		"low zipf":      {10, 0.5, 80},
		"reads over":    {10, 1.1, 101},
		"reads under":   {10, 1.1, -1},
	}
	for name, tc := range bad {
		assert.Error(t, checkWorkload(tc.keys, tc.zipfS, tc.readPct), name)
	}
}

const benchProfiles = `
caches:
  - name: api
    ttl_ms: 60000
    max_size_mb: 4
    strategy: fifo
`

func TestBuildManager_FromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(benchProfiles), 0o644))

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	m, err := buildManager(path, "api", persist.NewMemoryStore(0), log, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	assert.Equal(t, []string{"api"}, m.Names())
	assert.Contains(t, buf.String(), "strategy=fifo")

	_, err = buildManager(path, "user", persist.NewMemoryStore(0), log, nil)
	assert.ErrorContains(t, err, `profile "user" not found`)
}

func TestBuildManager_Defaults(t *testing.T) {
	t.Parallel()

	m, err := buildManager("", "api", persist.NewMemoryStore(0), slog.New(slog.DiscardHandler), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	assert.Contains(t, m.Names(), "api")
}
