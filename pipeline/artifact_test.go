package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/catalogsync/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArtifact_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new one"), 0o644))

	require.NoError(t, writeArtifact(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be gone")
}

func TestWriteArtifact_PreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "products.json")
	products := []core.CanonicalProduct{
		{Name: "b", Variants: []core.Variant{{SKU: "2"}}},
		{Name: "a", Variants: []core.Variant{{SKU: "1"}}},
	}

	require.NoError(t, writeArtifact(path, products))
	assert.Equal(t, []string{"2", "1"}, skus(readArtifact(t, path)))
}

func TestWriteArtifact_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	err := writeArtifact(filepath.Join(file, "products.json"), nil)
	var ioErr *core.IOError
	assert.ErrorAs(t, err, &ioErr)
}
