package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.BigPrizeCapacity)
	assert.Equal(t, -1, cfg.SmallPrizeCapacity, "small tier defaults to unlimited")
	assert.Len(t, cfg.BigPrizeList, 5)
	assert.Len(t, cfg.SmallPrizeList, 5)
	assert.Equal(t, 0.05, cfg.BigBaseRate)
	assert.Equal(t, 1.0, cfg.SmallBaseRate)
	assert.Equal(t, DuplicateEcho, cfg.DuplicatePolicy())
	assert.False(t, cfg.HasWindow())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DAILY_BIG_PRIZES", "2")
	t.Setenv("BIG_PRIZE_LIST", "Bike,Phone")
	t.Setenv("WINDOW_START", "2026-01-10T10:00:00Z")
	t.Setenv("WINDOW_END", "2026-01-10T22:00:00Z")
	t.Setenv("DUPLICATE_PHONE_POLICY", "block")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.BigPrizeCapacity)
	assert.Equal(t, []string{"Bike", "Phone"}, cfg.BigPrizeList)
	assert.True(t, cfg.HasWindow())
	assert.Equal(t, DuplicateBlock, cfg.DuplicatePolicy())
}

func TestLoad_InvalidWindow(t *testing.T) {
	t.Setenv("WINDOW_START", "2026-01-10T10:00:00Z")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("DUPLICATE_PHONE_POLICY", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DUPLICATE_PHONE_POLICY")
}

func TestWindowProgress(t *testing.T) {
	cfg := &Config{}
	start := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 10, 22, 0, 0, 0, time.UTC)
	cfg.SetWindow(start, end)

	assert.Equal(t, 0.0, cfg.WindowProgress(start.Add(-time.Hour)))
	assert.Equal(t, 0.0, cfg.WindowProgress(start))
	assert.InDelta(t, 0.5, cfg.WindowProgress(start.Add(6*time.Hour)), 1e-9)
	assert.Equal(t, 1.0, cfg.WindowProgress(end))
	assert.Equal(t, 1.0, cfg.WindowProgress(end.Add(time.Hour)))
}

func TestWindowProgress_NoWindow(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 1.0, cfg.WindowProgress(time.Now()))
}

func TestPrizeCatalogOverride(t *testing.T) {
	catalog := `
big:
  capacity: 3
  prizes: [Bike, Phone]
  base_rate: 0.1
small:
  capacity: 200
  prizes: [Sticker]
`
	path := filepath.Join(t.TempDir(), "prizes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))
	t.Setenv("PRIZE_CATALOG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.BigPrizeCapacity)
	assert.Equal(t, []string{"Bike", "Phone"}, cfg.BigPrizeList)
	assert.Equal(t, 0.1, cfg.BigBaseRate)
	assert.Equal(t, 200, cfg.SmallPrizeCapacity)
	assert.Equal(t, []string{"Sticker"}, cfg.SmallPrizeList)
	// Untouched fields keep their env defaults.
	assert.Equal(t, 1.0, cfg.SmallBaseRate)
	assert.Equal(t, 0.5, cfg.BigDeficitWeight)
}

func TestPrizeCatalog_PartialFile(t *testing.T) {
	cfg := &Config{BigPrizeCapacity: 5, BigBaseRate: 0.05, SmallPrizeCapacity: -1}
	require.NoError(t, cfg.applyCatalogBytes([]byte("big:\n  capacity: 1\n")))

	assert.Equal(t, 1, cfg.BigPrizeCapacity)
	assert.Equal(t, 0.05, cfg.BigBaseRate)
	assert.Equal(t, -1, cfg.SmallPrizeCapacity)
}

func TestPrizeCatalog_Malformed(t *testing.T) {
	cfg := &Config{}
	err := cfg.applyCatalogBytes([]byte("big: ["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse prize catalog")
}
