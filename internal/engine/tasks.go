package engine

import (
	"encoding/json"
	"strconv"
	"strings"

	"deskmate/internal/action"
	"deskmate/internal/bracket"
	"deskmate/internal/config"
	"deskmate/internal/levels"
	"deskmate/internal/logging"
	"deskmate/internal/memory"
	"deskmate/internal/persona"
)

// LevelsTaskAction contributes the progression task to the composite prompt
// and owns the levels: bracket commands. It never calls the model itself.
type LevelsTaskAction struct {
	levels  *levels.Manager
	prompts *config.Prompts
}

// NewLevelsTaskAction creates the levels task contributor.
func NewLevelsTaskAction(lm *levels.Manager, prompts *config.Prompts) *LevelsTaskAction {
	return &LevelsTaskAction{levels: lm, prompts: prompts}
}

func (a *LevelsTaskAction) ID() string { return "levels_task" }

func (a *LevelsTaskAction) Description() string {
	return "Adds the skill progression task to the prompt and applies levels: commands"
}

func (a *LevelsTaskAction) CanRun(ctx *action.Context) bool { return true }

// Execute appends the levels instructions plus a JSON snapshot of the
// current skills and attributes to the shared task buffer.
func (a *LevelsTaskAction) Execute(ctx *action.Context) action.Result {
	snapshot := struct {
		AvailableAttributes []string                    `json:"available_attributes"`
		AttributeLevels     map[string]int              `json:"attribute_levels"`
		Skills              map[string]levels.SkillInfo `json:"skills"`
	}{
		AvailableAttributes: a.levels.Attributes(),
		AttributeLevels:     a.levels.AttributeLevels(),
		Skills:              a.levels.Skills(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return action.Failure("failed to snapshot levels state: " + err.Error())
	}

	buf := ctx.TaskContent()
	buf.WriteString(a.prompts.LevelsPrompt)
	buf.WriteString("\nDATA: ")
	buf.Write(data)
	buf.WriteString("\n\n")

	logging.Levels("levels task contributed (%d skills)", len(snapshot.Skills))
	return action.Success("levels task content added")
}

// BracketPrefixes declares ownership of levels: tokens.
func (a *LevelsTaskAction) BracketPrefixes() []string {
	return []string{"levels:"}
}

// HandleBracket applies one levels command. Malformed payloads are ignored;
// a bad command must never fail the tick.
func (a *LevelsTaskAction) HandleBracket(tok action.BracketToken, ctx *action.Context) {
	args := bracket.SplitArgs(tok.Args)
	switch tok.Command {
	case "add_skill":
		if len(args) == 0 || args[0] == "" {
			logging.LevelsWarn("add_skill with no skill name, ignoring")
			return
		}
		attribute := ""
		if len(args) > 1 {
			attribute = args[1]
		}
		a.levels.AddSkill(args[0], attribute)

	case "add_exp_on_skill":
		if len(args) == 0 || args[0] == "" {
			logging.LevelsWarn("add_exp_on_skill with no skill name, ignoring")
			return
		}
		amount := 1
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil {
				amount = n
			}
		}
		a.levels.AddExpOnSkill(args[0], amount)

	default:
		logging.LevelsWarn("unknown levels command %q, ignoring", tok.Command)
	}
}

// MemoryTaskAction contributes the memory maintenance task to the composite
// prompt and owns the memory: bracket commands.
type MemoryTaskAction struct {
	memory   *memory.Store
	personas *persona.Manager
	prompts  *config.Prompts
}

// NewMemoryTaskAction creates the memory task contributor.
func NewMemoryTaskAction(ms *memory.Store, pm *persona.Manager, prompts *config.Prompts) *MemoryTaskAction {
	return &MemoryTaskAction{memory: ms, personas: pm, prompts: prompts}
}

func (a *MemoryTaskAction) ID() string { return "memory_task" }

func (a *MemoryTaskAction) Description() string {
	return "Adds the memory maintenance task to the prompt and applies memory: commands"
}

func (a *MemoryTaskAction) CanRun(ctx *action.Context) bool { return true }

// Execute appends the memory instructions plus the recent utterances and
// both memory slots to the shared task buffer. The content is identical
// whether or not the chat action will run this tick, so a tasks-only call
// still has something to send.
func (a *MemoryTaskAction) Execute(ctx *action.Context) action.Result {
	snapshot := struct {
		RecentUtterances []string `json:"recent_utterances"`
		ShortTermMemory  string   `json:"short_term_memory"`
		LongTermMemory   string   `json:"long_term_memory"`
	}{
		RecentUtterances: a.personas.RecentUtterances(),
		ShortTermMemory:  a.memory.ShortTerm(),
		LongTermMemory:   a.memory.LongTerm(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return action.Failure("failed to snapshot memory state: " + err.Error())
	}

	buf := ctx.TaskContent()
	buf.WriteString(a.prompts.MemoryPrompt)
	buf.WriteString("\nDATA: ")
	buf.Write(data)
	buf.WriteString("\n\n")

	logging.Memory("memory task contributed")
	return action.Success("memory task content added")
}

// BracketPrefixes declares ownership of memory: tokens.
func (a *MemoryTaskAction) BracketPrefixes() []string {
	return []string{"memory:"}
}

// HandleBracket applies one memory command. Quote wrappers around the
// payload are stripped before storage.
func (a *MemoryTaskAction) HandleBracket(tok action.BracketToken, ctx *action.Context) {
	text := strings.TrimSpace(bracket.StripQuotes(tok.Args))
	switch tok.Command {
	case "write_short_term":
		a.memory.SetShortTerm(text)
	case "write_long_term":
		a.memory.SetLongTerm(text)
	default:
		logging.MemoryWarn("unknown memory command %q, ignoring", tok.Command)
	}
}
