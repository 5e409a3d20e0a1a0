// Package bracket implements the wire protocol between the companion and the
// model: free-text replies carrying embedded [prefix:command(args)] tokens.
// The scanner tokenizes once; the router dispatches tokens to the bracket-
// aware actions that own their prefixes.
package bracket

import (
	"strings"

	"deskmate/internal/action"
)

// Scan finds all bracket tokens in raw text, left to right. Each token spans
// a '[' to the first ']' after it; nested brackets are not interpreted.
// Payload parentheses may nest: args run to the last ')' in the token.
func Scan(raw string) []action.BracketToken {
	var tokens []action.BracketToken

	idx := 0
	for {
		open := strings.Index(raw[idx:], "[")
		if open == -1 {
			break
		}
		open += idx
		close := strings.Index(raw[open+1:], "]")
		if close == -1 {
			break
		}
		close += open + 1

		inside := strings.TrimSpace(raw[open+1 : close])
		if inside != "" {
			tokens = append(tokens, parseToken(inside))
		}
		idx = close + 1
	}
	return tokens
}

// parseToken splits the inside text into {prefix, command, args} exactly once.
// Malformed payloads (unclosed parenthesis) keep Raw but leave Command and
// Args empty so handlers skip them silently.
func parseToken(inside string) action.BracketToken {
	tok := action.BracketToken{Raw: inside}

	colon := strings.Index(inside, ":")
	if colon == -1 {
		return tok
	}
	tok.Prefix = inside[:colon+1]

	rest := inside[colon+1:]
	lp := strings.Index(rest, "(")
	if lp == -1 {
		tok.Command = strings.TrimSpace(rest)
		return tok
	}
	rp := strings.LastIndex(rest, ")")
	if rp <= lp {
		// Unclosed payload: no command, no args. Skipped by handlers.
		return tok
	}

	tok.Command = strings.TrimSpace(rest[:lp])
	tok.Args = rest[lp+1 : rp]
	return tok
}

// StripQuotes removes a single level of '...' or "..." wrapping from a
// payload, the convention models use when quoting free text arguments.
func StripQuotes(s string) string {
	if len(s) >= 2 {
		if (strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) ||
			(strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'")) {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// SplitArgs splits a payload on top-level commas, honoring nested
// parentheses, and trims whitespace and quote wrappers from each part.
func SplitArgs(args string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range args {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, args[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, args[start:])

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = StripQuotes(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
