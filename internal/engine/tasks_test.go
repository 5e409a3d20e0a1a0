package engine

import (
	"path/filepath"
	"testing"

	"deskmate/internal/action"
	"deskmate/internal/bracket"
	"deskmate/internal/config"
	"deskmate/internal/levels"
	"deskmate/internal/memory"
	"deskmate/internal/persona"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLevels(t *testing.T) *levels.Manager {
	t.Helper()
	lm := levels.NewManager([]string{"Intelligence", "Focus"}, filepath.Join(t.TempDir(), "userLevels.json"))
	require.NoError(t, lm.Load())
	return lm
}

func newTestMemory(t *testing.T) *memory.Store {
	t.Helper()
	ms := memory.NewStore(filepath.Join(t.TempDir(), "userMemory.json"))
	require.NoError(t, ms.Load())
	return ms
}

func scanOne(t *testing.T, raw string) action.BracketToken {
	t.Helper()
	tokens := bracket.Scan(raw)
	require.Len(t, tokens, 1)
	return tokens[0]
}

func TestLevelsTaskExecute(t *testing.T) {
	lm := newTestLevels(t)
	lm.AddSkill("typing", "Focus")
	task := NewLevelsTaskAction(lm, config.DefaultPrompts())

	ctx := action.NewContext()
	res := task.Execute(ctx)
	require.True(t, res.IsSuccess())

	content := ctx.TaskContent().String()
	assert.Contains(t, content, "LEVELS TASK")
	assert.Contains(t, content, "typing")
	assert.Contains(t, content, "available_attributes")
	assert.Equal(t, []string{"levels:"}, task.BracketPrefixes())
}

func TestLevelsTaskHandleBracket(t *testing.T) {
	t.Run("add_skill with attribute", func(t *testing.T) {
		lm := newTestLevels(t)
		task := NewLevelsTaskAction(lm, config.DefaultPrompts())

		task.HandleBracket(scanOne(t, "[levels:add_skill(reading, Focus)]"), action.NewContext())
		assert.Equal(t, "Focus", lm.Skills()["reading"].Attribute)
	})

	t.Run("add_exp_on_skill with amount", func(t *testing.T) {
		lm := newTestLevels(t)
		task := NewLevelsTaskAction(lm, config.DefaultPrompts())

		task.HandleBracket(scanOne(t, "[levels:add_exp_on_skill(typing, 3)]"), action.NewContext())
		assert.Equal(t, 3, lm.Skills()["typing"].Experience)
	})

	t.Run("default amount is one", func(t *testing.T) {
		lm := newTestLevels(t)
		task := NewLevelsTaskAction(lm, config.DefaultPrompts())

		task.HandleBracket(scanOne(t, "[levels:add_exp_on_skill(typing)]"), action.NewContext())
		assert.Equal(t, 1, lm.Skills()["typing"].Experience)
	})

	t.Run("unparsable amount falls back to one", func(t *testing.T) {
		lm := newTestLevels(t)
		task := NewLevelsTaskAction(lm, config.DefaultPrompts())

		task.HandleBracket(scanOne(t, "[levels:add_exp_on_skill(typing, lots)]"), action.NewContext())
		assert.Equal(t, 1, lm.Skills()["typing"].Experience)
	})

	t.Run("malformed and unknown commands are no-ops", func(t *testing.T) {
		lm := newTestLevels(t)
		task := NewLevelsTaskAction(lm, config.DefaultPrompts())

		task.HandleBracket(scanOne(t, "[levels:add_exp_on_skill(typing]"), action.NewContext())
		task.HandleBracket(scanOne(t, "[levels:delete_skill(typing)]"), action.NewContext())
		assert.Empty(t, lm.Skills())
	})
}

func TestMemoryTaskExecute(t *testing.T) {
	ms := newTestMemory(t)
	ms.SetShortTerm("writing tests")
	pm := persona.NewManager(t.TempDir())
	pm.RecordUtterance("Nice editor theme!")
	task := NewMemoryTaskAction(ms, pm, config.DefaultPrompts())

	ctx := action.NewContext()
	res := task.Execute(ctx)
	require.True(t, res.IsSuccess())

	content := ctx.TaskContent().String()
	assert.Contains(t, content, "MEMORY TASK")
	assert.Contains(t, content, "writing tests")
	assert.Contains(t, content, "Nice editor theme!")
	assert.Equal(t, []string{"memory:"}, task.BracketPrefixes())
}

func TestMemoryTaskHandleBracket(t *testing.T) {
	t.Run("short term", func(t *testing.T) {
		ms := newTestMemory(t)
		task := NewMemoryTaskAction(ms, persona.NewManager(t.TempDir()), config.DefaultPrompts())

		task.HandleBracket(scanOne(t, "[memory:write_short_term(user is debugging)]"), action.NewContext())
		assert.Equal(t, "user is debugging", ms.ShortTerm())
	})

	t.Run("long term strips quote wrappers", func(t *testing.T) {
		ms := newTestMemory(t)
		task := NewMemoryTaskAction(ms, persona.NewManager(t.TempDir()), config.DefaultPrompts())

		task.HandleBracket(scanOne(t, `[memory:write_long_term("User prefers dark themes")]`), action.NewContext())
		assert.Equal(t, "User prefers dark themes", ms.LongTerm())
	})

	t.Run("unknown command is a no-op", func(t *testing.T) {
		ms := newTestMemory(t)
		task := NewMemoryTaskAction(ms, persona.NewManager(t.TempDir()), config.DefaultPrompts())

		task.HandleBracket(scanOne(t, "[memory:erase_everything(now)]"), action.NewContext())
		assert.Empty(t, ms.ShortTerm())
		assert.Empty(t, ms.LongTerm())
	})
}
