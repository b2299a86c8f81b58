package jsonstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	in := []doc{{Name: "a", Count: 1}, {Name: "b", Count: 2}}
	require.NoError(t, store.Save("docs", in))

	var out []doc
	require.NoError(t, store.Load("docs", &out))
	assert.Equal(t, in, out)
}

func TestLoadMissingFileKeepsZeroValue(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	out := []doc{{Name: "preexisting"}}
	require.NoError(t, store.Load("nothing", &out))
	assert.Equal(t, []doc{{Name: "preexisting"}}, out)
}

func TestSaveOverwritesWholesale(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("docs", []doc{{Name: "a"}, {Name: "b"}}))
	require.NoError(t, store.Save("docs", []doc{{Name: "c"}}))

	var out []doc
	require.NoError(t, store.Load("docs", &out))
	assert.Equal(t, []doc{{Name: "c"}}, out)
}

func TestCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := New(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}
