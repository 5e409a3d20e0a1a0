package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system", "userMemory.json")

	s := NewStore(path)
	require.NoError(t, s.Load())

	assert.Empty(t, s.LongTerm())
	assert.Empty(t, s.ShortTerm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"long_term_memory":""}`, string(data))
}

func TestLoadReadsExistingLongTerm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userMemory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"long_term_memory":"likes cats"}`), 0644))

	s := NewStore(path)
	require.NoError(t, s.Load())
	assert.Equal(t, "likes cats", s.LongTerm())
}

func TestLoadResetsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userMemory.json")
	require.NoError(t, os.WriteFile(path, []byte("###"), 0644))

	s := NewStore(path)
	require.NoError(t, s.Load())
	assert.Empty(t, s.LongTerm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var mf map[string]any
	assert.NoError(t, json.Unmarshal(data, &mf))
}

func TestSetLongTermOverwritesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userMemory.json")
	s := NewStore(path)
	require.NoError(t, s.Load())

	s.SetLongTerm("first fact")
	s.SetLongTerm("User prefers dark themes")
	assert.Equal(t, "User prefers dark themes", s.LongTerm())

	// Replacement, not merge: the file holds only the latest value.
	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, "User prefers dark themes", reloaded.LongTerm())
}

func TestShortTermIsVolatile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userMemory.json")
	s := NewStore(path)
	require.NoError(t, s.Load())

	s.SetShortTerm("provisional note")
	assert.Equal(t, "provisional note", s.ShortTerm())

	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	assert.Empty(t, reloaded.ShortTerm())
}
