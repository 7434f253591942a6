package envtree

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapEnv(t *testing.T) {
	seed := map[string]string{"A": "1"}
	m := NewMapEnv(seed)
	seed["A"] = "changed"

	v, ok := m.Lookup("A")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = m.Lookup("B")
	assert.False(t, ok)

	require.NoError(t, m.Set("B", "2"))
	require.NoError(t, m.Set("EMPTY", ""))
	assert.Equal(t, []string{"A=1", "B=2", "EMPTY="}, m.Environ())

	_, ok = m.Lookup("EMPTY")
	assert.True(t, ok)
}

func TestMapEnvZeroValue(t *testing.T) {
	var m MapEnv
	require.NoError(t, m.Set("A", "1"))
	assert.Equal(t, map[string]string{"A": "1"}, m.Map())
}

func TestMapEnvConcurrent(t *testing.T) {
	m := NewMapEnv(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Set("K", "v")
			m.Lookup("K")
			m.Environ()
		}()
	}
	wg.Wait()
	assert.Equal(t, map[string]string{"K": "v"}, m.Map())
}

func TestOSEnv(t *testing.T) {
	t.Setenv("ENVTREE_STORE_TEST", "x")
	var s Store = OSEnv{}

	v, ok := s.Lookup("ENVTREE_STORE_TEST")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	require.NoError(t, s.Set("ENVTREE_STORE_TEST", "y"))
	assert.Equal(t, "y", os.Getenv("ENVTREE_STORE_TEST"))
	assert.Contains(t, s.Environ(), "ENVTREE_STORE_TEST=y")
}

func TestExport(t *testing.T) {
	m := NewMapEnv(map[string]string{"KEEP": "ambient"})
	skipped, err := export(m, map[string]string{"KEEP": "file", "NEW": "file"})
	require.NoError(t, err)
	assert.Equal(t, []string{"KEEP"}, skipped)
	assert.Equal(t, map[string]string{"KEEP": "ambient", "NEW": "file"}, m.Map())
}

func TestMergeAndFilter(t *testing.T) {
	merged := merge([]map[string]string{
		{"A": "1", "APP_X": "1"},
		nil,
		{"A": "2", "APP_Y": "2"},
	})
	assert.Equal(t, map[string]string{"A": "2", "APP_X": "1", "APP_Y": "2"}, merged)
	assert.Equal(t, map[string]string{"APP_X": "1", "APP_Y": "2"}, filterPrefix(merged, "APP_"))
	assert.Empty(t, merge(nil))
}
