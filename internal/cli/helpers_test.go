package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/wordbook/internal/config"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 MB", formatBytes(1536*1024))
	assert.Equal(t, "2.0 GB", formatBytes(2*1<<30))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := newLogger(false, "shouting")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewLoggerVerboseIgnoresLevel(t *testing.T) {
	log, err := newLogger(true, "shouting")
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestOpenStoreCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "nested", "wordbook")
	cfg.Storage.SQLiteFile = "test.db"

	store, db, err := openStore(cfg)
	require.NoError(t, err)
	defer db.Close()
	defer store.Close()

	dbPath, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestLoadConfigExplicitPathMustExist(t *testing.T) {
	globals := &GlobalFlags{Config: filepath.Join(t.TempDir(), "absent.yaml")}
	_, err := loadConfig(globals)
	require.Error(t, err)
}
