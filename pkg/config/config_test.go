package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "none", cfg.Source.Kind)
	assert.Equal(t, "RecipeName", cfg.Source.CSVColumn)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
source:
  kind: csv
  csvPath: /data/IndianFoodDatasetCSV.csv
redis:
  enabled: true
  cacheTTL: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("RR_SERVER_PORT", "9100")
	t.Setenv("RR_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "csv", cfg.Source.Kind)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "RecipeName", cfg.Source.CSVColumn)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Source.Kind = "csv"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Source.Kind = "parquet"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Search.MaxResults = 1
	assert.Error(t, cfg.Validate())

	assert.NoError(t, defaultConfig().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
