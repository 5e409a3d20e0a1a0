// Package action defines the unit-of-work abstraction for the companion core:
// named actions with a guard and an execute step, an optional bracket-command
// capability, and the registry that holds them.
package action

// Action represents a single capability of the companion. Implementations are
// registered once at startup and executed by the thinking engine each tick.
type Action interface {
	// ID returns the unique, stable identifier for this action.
	ID() string

	// Description returns a human-readable description of what this action does.
	Description() string

	// CanRun reports whether the action can execute given the current context.
	CanRun(ctx *Context) bool

	// Execute runs the action. Implementations return a Result and must not
	// panic; the registry converts panics to Failure results regardless.
	Execute(ctx *Context) Result
}

// BracketAware is the optional capability for actions that handle bracketed
// model commands such as [levels:...] or [memory:...]. The capability is
// declared explicitly rather than discovered by runtime type probing: the
// registry records it at registration time.
type BracketAware interface {
	Action

	// BracketPrefixes returns the prefixes this action owns, e.g. "levels:".
	// Matching is case-sensitive.
	BracketPrefixes() []string

	// HandleBracket consumes one bracket token whose prefix matched. Content
	// that does not parse must be ignored, never escalated to an error.
	HandleBracket(tok BracketToken, ctx *Context)
}

// BracketToken is a parsed bracket command: [prefix:command(args)].
// It is produced once by the scanner and passed to handlers so they never
// re-parse substrings.
type BracketToken struct {
	// Prefix includes the trailing colon, e.g. "levels:".
	Prefix string
	// Command is the identifier before the parenthesis, e.g. "add_skill".
	// Empty when the payload carries no command(args) form.
	Command string
	// Args is the raw text between the outermost parentheses. Nested
	// parentheses are preserved.
	Args string
	// Raw is the full inside text of the bracket, prefix included.
	Raw string
}
