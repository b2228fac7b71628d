package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/seomerge/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SEOMERGE_CONFIG", "")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
	assert.Equal(t, 10, cfg.Pipeline.MaxFiles)
	assert.Equal(t, 11, cfg.Pipeline.DefaultMaxPosition)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Server.AllowedExtensions)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seomerge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  max_files: 4
  merge_order: completion
server:
  addr: ":9090"
  read_timeout: 5s
logging:
  level: debug
`), 0o600))

	t.Setenv("SEOMERGE_CONFIG", path)
	t.Setenv("SEOMERGE_SERVER_ADDR", ":7070")
	t.Setenv("SEOMERGE_SERVER_ALLOWED_EXTENSIONS", "csv")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Pipeline.MaxFiles, "file overrides default")
	assert.Equal(t, "completion", cfg.Pipeline.MergeOrder)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Addr, "env overrides file")
	assert.Equal(t, []string{"csv"}, cfg.Server.AllowedExtensions)
	assert.Equal(t, 11, cfg.Pipeline.DefaultMaxPosition, "untouched fields keep defaults")
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("SEOMERGE_CONFIG", "")
	t.Setenv("SEOMERGE_PIPELINE_DEFAULT_MAX_POSITION", "150")
	t.Setenv("SEOMERGE_LOGGING_FORMAT", "xml")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DefaultMaxPosition")
	assert.Contains(t, err.Error(), "Format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
