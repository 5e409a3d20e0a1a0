package bracket

import (
	"strings"

	"deskmate/internal/action"
	"deskmate/internal/logging"
)

// SpeakPrefix is the token prefix reserved for spoken output. It is never
// routed to an action handler; the screen-analysis flow extracts it directly.
const SpeakPrefix = "speak:"

// Route scans raw model output and dispatches each token to the first
// bracket-aware action (in registration order) whose declared prefix matches.
// A token is claimed by at most one owner; scanning continues for all tokens.
//
// When expectedPrefixes is non-empty, prefixes that never appeared are logged
// as informational notices. A missing expected side effect never fails the
// tick.
func Route(raw string, owners []action.BracketAware, global *action.Context, expectedPrefixes []string) {
	if strings.TrimSpace(raw) == "" || len(owners) == 0 {
		return
	}

	tokens := Scan(raw)
	if len(tokens) == 0 {
		logging.BracketDebug("no bracketed sections found in model output")
		return
	}

	found := make(map[string]bool)
	for _, tok := range tokens {
		if tok.Prefix != SpeakPrefix {
			logging.Bracket("bracketed section found: [%s]", tok.Raw)
		}
		for _, p := range expectedPrefixes {
			if strings.HasPrefix(tok.Raw, p) {
				found[p] = true
			}
		}
		dispatch(tok, owners, global)
	}

	for _, p := range expectedPrefixes {
		if !found[p] {
			logging.Bracket("no [%s...] command found; no effect for this prefix this cycle", p)
		}
	}
}

// dispatch hands a token to the first owner whose prefix matches. Handler
// panics are contained: a bad payload must never take down the tick.
func dispatch(tok action.BracketToken, owners []action.BracketAware, global *action.Context) {
	for _, owner := range owners {
		for _, p := range owner.BracketPrefixes() {
			if strings.HasPrefix(tok.Raw, p) {
				safeHandle(owner, tok, global)
				return
			}
		}
	}
}

func safeHandle(owner action.BracketAware, tok action.BracketToken, global *action.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Bracket("handler %s panicked on [%s]: %v", owner.ID(), tok.Raw, rec)
		}
	}()
	owner.HandleBracket(tok, global)
}

// ExtractSpeech collects the payloads of all speak: tokens, joined by single
// spaces. Returns "" when the reply carries no spoken content, which is a
// valid side-effect-only outcome.
func ExtractSpeech(raw string) string {
	var parts []string
	for _, tok := range Scan(raw) {
		if tok.Prefix != SpeakPrefix {
			continue
		}
		text := strings.TrimSpace(tok.Args)
		if text == "" {
			// Tolerate a bare speak:text payload without parentheses.
			text = tok.Command
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
