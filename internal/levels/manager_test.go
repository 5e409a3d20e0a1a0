package levels

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAttributes = []string{"Intelligence", "Creativity", "Focus"}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "system", "userLevels.json")
	m := NewManager(testAttributes, path)
	require.NoError(t, m.Load())
	return m
}

func TestLoadCreatesDefaults(t *testing.T) {
	m := newTestManager(t)

	levels := m.AttributeLevels()
	want := map[string]int{"Intelligence": 0, "Creativity": 0, "Focus": 0}
	if diff := cmp.Diff(want, levels); diff != "" {
		t.Errorf("default attribute levels mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, m.Skills())

	// The file is written on load so a UI can read it immediately.
	_, err := os.Stat(m.path)
	assert.NoError(t, err)
}

func TestLoadRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userLevels.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	m := NewManager(testAttributes, path)
	require.NoError(t, m.Load())

	assert.Empty(t, m.Skills())
	assert.Equal(t, 0, m.AttributeLevel("Intelligence"))

	// The corrupt file is replaced with a valid default structure.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var state map[string]any
	assert.NoError(t, json.Unmarshal(data, &state))
}

func TestAddSkill(t *testing.T) {
	t.Run("creates with given attribute", func(t *testing.T) {
		m := newTestManager(t)
		m.AddSkill("typing", "Focus")
		assert.Equal(t, SkillInfo{Attribute: "Focus"}, m.Skills()["typing"])
	})

	t.Run("fallback attribute is the first configured", func(t *testing.T) {
		m := newTestManager(t)
		m.AddSkill("doodling", "")
		assert.Equal(t, "Intelligence", m.Skills()["doodling"].Attribute)
	})

	t.Run("does not modify an existing skill", func(t *testing.T) {
		m := newTestManager(t)
		m.AddSkill("typing", "Focus")
		m.AddExpOnSkill("typing", 10)
		m.AddSkill("typing", "Creativity")

		info := m.Skills()["typing"]
		assert.Equal(t, "Focus", info.Attribute)
		assert.Equal(t, 10, info.Experience)
	})

	t.Run("empty name is a no-op", func(t *testing.T) {
		m := newTestManager(t)
		m.AddSkill("  ", "Focus")
		assert.Empty(t, m.Skills())
	})
}

func TestAddExpOnSkill(t *testing.T) {
	t.Run("creates missing skill with fallback attribute", func(t *testing.T) {
		m := newTestManager(t)
		m.AddExpOnSkill("reading", 3)

		info := m.Skills()["reading"]
		assert.Equal(t, "Intelligence", info.Attribute)
		assert.Equal(t, 3, info.Experience)
	})

	t.Run("zero and negative amounts count as one", func(t *testing.T) {
		m := newTestManager(t)
		m.AddExpOnSkill("reading", 0)
		m.AddExpOnSkill("reading", -7)
		assert.Equal(t, 2, m.Skills()["reading"].Experience)
	})

	t.Run("levels derive from summed skill xp", func(t *testing.T) {
		m := newTestManager(t)
		m.AddSkill("typing", "Focus")
		m.AddSkill("gaming", "Focus")
		m.AddExpOnSkill("typing", Threshold(5))
		m.AddExpOnSkill("gaming", Threshold(7)-Threshold(5))

		assert.Equal(t, Threshold(7), m.TotalXP("Focus"))
		assert.Equal(t, 7, m.AttributeLevel("Focus"))
		assert.Equal(t, 0, m.AttributeLevel("Intelligence"))
	})

	t.Run("attribute matching is case-insensitive", func(t *testing.T) {
		m := newTestManager(t)
		m.AddSkill("typing", "focus")
		m.AddExpOnSkill("typing", 50)
		assert.Equal(t, 50, m.TotalXP("Focus"))
	})
}

func TestRecomputeIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	m.AddExpOnSkill("typing", 12345)
	m.AddSkill("painting", "Creativity")
	m.AddExpOnSkill("painting", 777)

	first := m.AttributeLevels()
	m.mu.Lock()
	m.recomputeLocked()
	m.mu.Unlock()
	second := m.AttributeLevels()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("recompute changed derived levels (-first +second):\n%s", diff)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userLevels.json")

	m := NewManager(testAttributes, path)
	require.NoError(t, m.Load())
	m.AddSkill("typing", "Focus")
	m.AddExpOnSkill("typing", 250)

	reloaded := NewManager(testAttributes, path)
	require.NoError(t, reloaded.Load())

	if diff := cmp.Diff(m.Skills(), reloaded.Skills()); diff != "" {
		t.Errorf("skills did not survive reload (-saved +loaded):\n%s", diff)
	}
	assert.Equal(t, m.AttributeLevels(), reloaded.AttributeLevels())
}

func TestSnapshot(t *testing.T) {
	m := newTestManager(t)
	m.AddSkill("typing", "Focus")
	m.AddExpOnSkill("typing", Threshold(3)+1)

	snap := m.Snapshot()
	require.Len(t, snap.Attributes, len(testAttributes))

	byName := map[string]AttributeProgress{}
	for _, a := range snap.Attributes {
		byName[a.Name] = a
	}

	focus := byName["Focus"]
	assert.Equal(t, 3, focus.Level)
	assert.Equal(t, Threshold(3)+1, focus.TotalXP)
	assert.Equal(t, Threshold(4)-focus.TotalXP, focus.XPToNextLevel)
	assert.GreaterOrEqual(t, focus.ProgressRatio, 0.0)
	assert.LessOrEqual(t, focus.ProgressRatio, 1.0)

	idle := byName["Creativity"]
	assert.Equal(t, 0, idle.Level)
	assert.Equal(t, 0.0, idle.ProgressRatio)
}
