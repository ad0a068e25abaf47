package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "airtable", cfg.Store.Backend)
	assert.Equal(t, "Games", cfg.Store.Tables.Games)
	assert.Equal(t, "Game id", cfg.Store.Tables.GameIDField)
	assert.Equal(t, -6, cfg.Sync.UTCOffsetHours)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.True(t, cfg.Sync.StrictLookup)
	assert.Equal(t, []string{"Official 1", "Official 2", "Official 3"}, cfg.Sync.Columns.Officials)
	assert.Equal(t, time.Hour, cfg.Postgres.ConnMaxLifetime)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
store:
  backend: memory
  batch_size: 5
  airtable:
    api_key: from-yaml
sync:
  self_name: Jane Doe
  utc_offset_hours: -5
  strict_lookup: false
  placeholders: ["TBA"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("AIRTABLE_API_KEY", "from-env")
	t.Setenv("SELF_OFFICIAL_ID", "recSELF")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Store.BatchSize)
	assert.Equal(t, "from-env", cfg.Store.Airtable.APIKey)
	assert.Equal(t, "recSELF", cfg.Sync.SelfID)
	assert.Equal(t, "Jane Doe", cfg.Sync.SelfName)
	assert.False(t, cfg.Sync.StrictLookup)
	assert.Equal(t, []string{"TBA"}, cfg.Sync.Placeholders)
	// 未在文件中出现的项仍取默认值
	assert.Equal(t, "Teams", cfg.Store.Tables.Teams)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{Backend: "airtable"},
		Sync:  SyncConfig{Columns: ColumnConfig{GameID: "Game #"}},
	}
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "api_key")
	assert.Contains(t, err.Error(), "base_id")

	cfg.Store.Airtable.APIKey = "k"
	cfg.Store.Airtable.BaseID = "app"
	assert.NoError(t, cfg.Validate())

	cfg.Store.Backend = "postgres"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Store.Backend = "sqlite"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Store.Backend = "memory"
	cfg.Sync.UTCOffsetHours = 20
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Sync.UTCOffsetHours = -6
	cfg.Sync.SelfID = "recX"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestLocation(t *testing.T) {
	s := SyncConfig{UTCOffsetHours: -6}
	_, offset := time.Date(2023, 7, 4, 0, 0, 0, 0, s.Location()).Zone()
	assert.Equal(t, -6*3600, offset)
}
