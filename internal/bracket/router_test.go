package bracket

import (
	"testing"

	"deskmate/internal/action"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingOwner captures the tokens routed to it.
type recordingOwner struct {
	id       string
	prefixes []string
	handled  []action.BracketToken
	panics   bool
}

func (o *recordingOwner) ID() string                             { return o.id }
func (o *recordingOwner) Description() string                    { return "test owner" }
func (o *recordingOwner) CanRun(ctx *action.Context) bool        { return true }
func (o *recordingOwner) Execute(ctx *action.Context) action.Result {
	return action.Success("")
}
func (o *recordingOwner) BracketPrefixes() []string { return o.prefixes }
func (o *recordingOwner) HandleBracket(tok action.BracketToken, ctx *action.Context) {
	if o.panics {
		panic("bad payload")
	}
	o.handled = append(o.handled, tok)
}

func TestRoute(t *testing.T) {
	t.Run("dispatches to matching owner", func(t *testing.T) {
		owner := &recordingOwner{id: "levels_task", prefixes: []string{"levels:"}}
		global := action.NewContext()

		Route("[levels:add_exp_on_skill(typing)]", []action.BracketAware{owner}, global, nil)

		require.Len(t, owner.handled, 1)
		assert.Equal(t, "add_exp_on_skill", owner.handled[0].Command)
		assert.Equal(t, "typing", owner.handled[0].Args)
	})

	t.Run("first match wins in registration order", func(t *testing.T) {
		first := &recordingOwner{id: "first", prefixes: []string{"levels:"}}
		second := &recordingOwner{id: "second", prefixes: []string{"levels:"}}

		Route("[levels:add_skill(reading)]", []action.BracketAware{first, second}, action.NewContext(), nil)

		assert.Len(t, first.handled, 1)
		assert.Empty(t, second.handled)
	})

	t.Run("scanning continues across all tokens", func(t *testing.T) {
		lvls := &recordingOwner{id: "levels_task", prefixes: []string{"levels:"}}
		mem := &recordingOwner{id: "memory_task", prefixes: []string{"memory:"}}

		raw := "[levels:add_exp_on_skill(typing)][memory:write_short_term(busy day)][levels:add_skill(gaming)]"
		Route(raw, []action.BracketAware{lvls, mem}, action.NewContext(), nil)

		assert.Len(t, lvls.handled, 2)
		assert.Len(t, mem.handled, 1)
	})

	t.Run("prefix match is case sensitive", func(t *testing.T) {
		owner := &recordingOwner{id: "levels_task", prefixes: []string{"levels:"}}
		Route("[Levels:add_skill(reading)]", []action.BracketAware{owner}, action.NewContext(), nil)
		assert.Empty(t, owner.handled)
	})

	t.Run("handler panic does not propagate", func(t *testing.T) {
		bad := &recordingOwner{id: "bad", prefixes: []string{"levels:"}, panics: true}
		assert.NotPanics(t, func() {
			Route("[levels:add_skill(x)]", []action.BracketAware{bad}, action.NewContext(), nil)
		})
	})

	t.Run("missing expected prefixes are tolerated", func(t *testing.T) {
		owner := &recordingOwner{id: "levels_task", prefixes: []string{"levels:"}}
		assert.NotPanics(t, func() {
			Route("[speak:(nothing else)]", []action.BracketAware{owner},
				action.NewContext(), []string{"levels:", "memory:"})
		})
		assert.Empty(t, owner.handled)
	})
}

func TestExtractSpeech(t *testing.T) {
	t.Run("single token", func(t *testing.T) {
		assert.Equal(t, "Hello there", ExtractSpeech("[speak:(Hello there)]"))
	})

	t.Run("round trip with side effects", func(t *testing.T) {
		raw := "[speak:(Hello there)][levels:add_exp_on_skill(typing)]"
		owner := &recordingOwner{id: "levels_task", prefixes: []string{"levels:"}}
		Route(raw, []action.BracketAware{owner}, action.NewContext(), nil)

		assert.Equal(t, "Hello there", ExtractSpeech(raw))
		require.Len(t, owner.handled, 1)
		assert.Equal(t, "typing", owner.handled[0].Args)
	})

	t.Run("multiple tokens join with single spaces", func(t *testing.T) {
		raw := "[speak:(First part.)] noise [speak:(Second part.)]"
		assert.Equal(t, "First part. Second part.", ExtractSpeech(raw))
	})

	t.Run("no speak token means nothing spoken", func(t *testing.T) {
		assert.Empty(t, ExtractSpeech("[levels:add_skill(reading)]"))
		assert.Empty(t, ExtractSpeech("plain prose"))
	})

	t.Run("bare payload without parentheses", func(t *testing.T) {
		assert.Equal(t, "quick note", ExtractSpeech("[speak:quick note]"))
	})

	t.Run("no bracket syntax leaks into speech", func(t *testing.T) {
		speech := ExtractSpeech("[speak:(Watch this)][memory:write_short_term(x)]")
		assert.NotContains(t, speech, "[")
		assert.NotContains(t, speech, "memory:")
	})
}
