package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/catalogsync/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
input:
  path: /data/items.tsv
  partitions: 4
output: /data/products.json
schedule: "0 30 1 * * *"
pipeline:
  workers: 8
  request_timeout: 45s
  run_timeout: 2h
  rate_limit: 5
  chunk_size: 0
mapping:
  provider: openai
  model: gpt-4o-mini
  host: http://localhost:11434
storage:
  backend: postgres
  dsn: postgres://catalog@localhost/catalog
  table: catalog.products
  create_table: true
`

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "images40.txt", cfg.Input.Path)
	assert.Equal(t, 10, cfg.Input.Partitions)
	assert.Equal(t, "products.json", cfg.Output)
	assert.Equal(t, "@midnight", cfg.Schedule)
	assert.Equal(t, mapping.ProviderRules, cfg.Mapping.Provider)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	require.NotNil(t, cfg.Mapping.Rules)

	// The rule mapper needs vendor and manufacturer IDs before it can run
	assert.ErrorContains(t, cfg.Validate(), "VendorID")

	cfg.Mapping.Rules.Defaults.VendorID = "v1"
	cfg.Mapping.Rules.Defaults.ManufacturerID = "m1"
	assert.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "/data/items.tsv", cfg.Input.Path)
	assert.Equal(t, 4, cfg.Input.Partitions)
	assert.Equal(t, "0 30 1 * * *", cfg.Schedule)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.RequestTimeout)
	assert.Equal(t, 2*time.Hour, cfg.Pipeline.RunTimeout)
	assert.Equal(t, 5.0, cfg.Pipeline.RateLimit)
	assert.Zero(t, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries, "unset keys keep defaults")
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.CreateTable)
	require.NoError(t, cfg.Validate())

	mc := cfg.MappingServiceConfig()
	require.NoError(t, mc.Validate())
	assert.Equal(t, "http://localhost:11434/v1", mc.Host)
	assert.Equal(t, "gpt-4o-mini", mc.Model)
}

func TestParse_RulesSection(t *testing.T) {
	cfg, err := Parse([]byte(`
mapping:
  rules:
    columns:
      sku: ItemNo
    defaults:
      vendor_id: vendor-7
      manufacturer_id: mfr-9
`))
	require.NoError(t, err)
	assert.Equal(t, "ItemNo", cfg.Mapping.Rules.Columns.SKU)
	assert.Equal(t, "vendor-7", cfg.Mapping.Rules.Defaults.VendorID)
	assert.NoError(t, cfg.Validate())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Input, cfg.Input)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("inputs:\n  path: x\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/products.json", cfg.Output)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-test")
	t.Setenv(EnvGeminiKey, "gm-test")
	t.Setenv(EnvPostgresDSN, "postgres://env")

	cfg := Default()
	cfg.Mapping.Provider = mapping.ProviderOpenAI
	cfg.ApplyEnv()
	assert.Equal(t, "sk-test", cfg.Mapping.APIKey)
	assert.Equal(t, "postgres://env", cfg.Storage.DSN)

	cfg = Default()
	cfg.Mapping.Provider = mapping.ProviderGemini
	cfg.Storage.DSN = "postgres://file"
	cfg.ApplyEnv()
	assert.Equal(t, "gm-test", cfg.Mapping.APIKey)
	assert.Equal(t, "postgres://file", cfg.Storage.DSN, "file values win over env")
}

func TestValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.Mapping.Provider = mapping.ProviderOpenAI
	cfg.Input.Partitions = 0
	cfg.Pipeline.Workers = 0
	cfg.Pipeline.ChunkSize = -1
	cfg.Storage.Backend = "s3"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "input.partitions")
	assert.ErrorContains(t, err, "pipeline.workers")
	assert.ErrorContains(t, err, "chunk_size")
	assert.ErrorContains(t, err, `unknown storage.backend "s3"`)

	cfg = Default()
	cfg.Mapping.Provider = mapping.ProviderOpenAI
	cfg.Storage.Backend = BackendPostgres
	assert.ErrorContains(t, cfg.Validate(), "storage.dsn")
}
