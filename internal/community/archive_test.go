package community

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveStoryDeterministic(t *testing.T) {
	a := New([]string{"one", "two", "three"})

	s1, err := a.Story(7)
	require.NoError(t, err)
	s2, err := a.Story(7)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}

func TestArchiveStoryNegativeSeed(t *testing.T) {
	a := New([]string{"one", "two", "three"})
	s, err := a.Story(-1)
	require.NoError(t, err)
	assert.Contains(t, []string{"one", "two", "three"}, s)
}

func TestArchiveEmpty(t *testing.T) {
	a := New(nil)
	_, err := a.Story(0)
	assert.Error(t, err)
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "batch1.yaml"), []byte("stories:\n  - \"a story\"\n  - \"another story\"\n"), 0o644)
	require.NoError(t, err)

	a, err := Load(dir)
	require.NoError(t, err)
	s, err := a.Story(0)
	require.NoError(t, err)
	assert.Equal(t, "a story", s)
}
