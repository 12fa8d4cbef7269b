package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleStoreLoad(t *testing.T) {
	t.Run("missing file yields empty pool", func(t *testing.T) {
		store := NewSampleStore(t.TempDir(), testLogger())

		pool, err := store.Load()
		require.NoError(t, err)
		assert.Zero(t, pool.Count)
		assert.Empty(t, pool.Texts)
	})

	t.Run("corrupt file errors", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "samples.json"), []byte("garbage"), 0o644))

		store := NewSampleStore(dir, testLogger())
		_, err := store.Load()
		assert.Error(t, err)
	})
}

func TestSampleStoreAppend(t *testing.T) {
	dir := t.TempDir()
	store := NewSampleStore(dir, testLogger())

	require.NoError(t, store.Append("不动产权证书", "property_cert"))
	require.NoError(t, store.Append("买卖合同", "purchase_contract"))

	pool, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, pool.Count)
	assert.Equal(t, []string{"不动产权证书", "买卖合同"}, pool.Texts)
	assert.Equal(t, []string{"property_cert", "purchase_contract"}, pool.Labels)
	assert.False(t, pool.LastUpdated.IsZero())

	t.Run("no temp files left behind", func(t *testing.T) {
		leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})
}

func TestSampleStoreReplace(t *testing.T) {
	store := NewSampleStore(t.TempDir(), testLogger())
	require.NoError(t, store.Append("旧样本", "old"))

	require.NoError(t, store.Replace(&SamplePool{
		Texts:  []string{"新样本一", "新样本二"},
		Labels: []string{"a", "b"},
	}))

	pool, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Count)
	assert.Equal(t, []string{"新样本一", "新样本二"}, pool.Texts)
}

func TestSamplePoolDistinctLabels(t *testing.T) {
	pool := &SamplePool{Labels: []string{"a", "b", "a", "c", "b"}}
	assert.Equal(t, 3, pool.DistinctLabels())

	assert.Zero(t, (&SamplePool{}).DistinctLabels())
}
