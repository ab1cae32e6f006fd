package catalogsync

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/mapping"
	"github.com/poiesic/catalogsync/mapping/mock"
	"github.com/poiesic/catalogsync/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "catalog.tsv")
	content := "sku\tname\tprice\nS1\tAlpha\t1.00\nS2\tBravo\t2.00\nS3\tCharlie\t3.00\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	cfg := config.Default()
	cfg.Input.Path = input
	cfg.Input.WorkDir = filepath.Join(dir, "work")
	cfg.Input.Partitions = 2
	cfg.Output = filepath.Join(dir, "products.json")
	cfg.Storage.Path = filepath.Join(dir, "db")
	cfg.Pipeline.Workers = 2
	cfg.Mapping.Rules.Defaults.VendorID = "vendor-1"
	cfg.Mapping.Rules.Defaults.ManufacturerID = "mfr-1"
	return cfg
}

func TestOpen(t *testing.T) {
	t.Run("builds every component", func(t *testing.T) {
		svc, err := Open(context.Background(), testConfig(t))
		require.NoError(t, err)
		require.NotNil(t, svc)
		defer svc.Close()

		assert.NotNil(t, svc.Orchestrator())
		assert.NotNil(t, svc.RunRepository())
		assert.NotNil(t, svc.Sink())
		assert.NotNil(t, svc.backend)
		assert.Equal(t, core.StateIdle, svc.Orchestrator().State())
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Input.Partitions = 0
		svc, err := Open(context.Background(), cfg)
		assert.ErrorContains(t, err, "input.partitions")
		assert.Nil(t, svc)
	})

	t.Run("error with storage path that is a file", func(t *testing.T) {
		cfg := testConfig(t)
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))
		cfg.Storage.Path = tmpFile

		svc, err := Open(context.Background(), cfg)
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestService_Run(t *testing.T) {
	cfg := testConfig(t)
	svc, err := Open(context.Background(), cfg,
		WithMappingService(mock.NewMockService()),
		WithInMemoryStorage(),
	)
	require.NoError(t, err)
	defer svc.Close()

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeSuccess, report.Outcome)
	assert.Equal(t, 3, report.TotalRows)
	assert.Equal(t, 3, report.Inserted)
	assert.FileExists(t, cfg.Output)

	count, err := svc.ProductCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	latest, err := svc.RunRepository().LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.RunID, latest.RunID)
}

func TestService_Progress(t *testing.T) {
	var buf bytes.Buffer
	svc, err := Open(context.Background(), testConfig(t),
		WithMappingService(mock.NewMockService()),
		WithInMemoryStorage(),
		WithProgress(&buf),
	)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Rows: 3/3")
}

func TestService_CloseReleasesMapper(t *testing.T) {
	svc := mock.NewMockService()
	s, err := Open(context.Background(), testConfig(t), WithMappingService(svc), WithInMemoryStorage())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.True(t, svc.Closed())
}

func TestService_NewScheduler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule = "0 0 3 * * *"
	svc, err := Open(context.Background(), cfg, WithMappingService(mock.NewMockService()), WithInMemoryStorage())
	require.NoError(t, err)
	defer svc.Close()

	sched, err := svc.NewScheduler()
	require.NoError(t, err)

	entries := sched.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, JobName, entries[0].Name)
	assert.Equal(t, "0 0 3 * * *", entries[0].Spec)

	report, err := sched.Trigger(context.Background(), JobName)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
}

func TestService_NewSchedulerInvalidSpec(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule = "every tuesday"
	svc, err := Open(context.Background(), cfg, WithMappingService(mock.NewMockService()), WithInMemoryStorage())
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.NewScheduler()
	assert.Error(t, err)
}

func TestNewMappingService(t *testing.T) {
	cfg := testConfig(t)

	svc, err := NewMappingService(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, svc)
	require.NoError(t, svc.Close())

	cfg.Mapping.Provider = mapping.ProviderOpenAI
	cfg.Mapping.APIKey = "sk-test"
	svc, err = NewMappingService(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, svc)
	require.NoError(t, svc.Close())

	cfg.Mapping.Provider = "carrier-pigeon"
	_, err = NewMappingService(context.Background(), cfg)
	assert.Error(t, err)
}

func TestProductCount_NonBadgerSink(t *testing.T) {
	s := &Service{}
	_, err := s.ProductCount(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
