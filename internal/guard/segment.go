package guard

import (
	"errors"
	"strings"
)

// ErrUnterminatedQuote reports a command string whose quoting never closes.
// There is no partial-parse fallback; the caller blocks.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// SplitSegments splits a compound command on the chaining operators `;`,
// `&&`, and `||`, respecting single and double quotes and backslash escapes.
// Pipes are not segment boundaries: the stages of a pipeline stay in one
// segment where the token walk inspects each stage individually.
func SplitSegments(command string) ([]string, error) {
	var segments []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			segments = append(segments, s)
		}
		current.Reset()
	}

	runes := []rune(command)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if ch == '\\' && !inSingleQuote && i+1 < len(runes) {
			current.WriteRune(ch)
			current.WriteRune(runes[i+1])
			i++
			continue
		}
		if ch == '\'' && !inDoubleQuote {
			inSingleQuote = !inSingleQuote
			current.WriteRune(ch)
			continue
		}
		if ch == '"' && !inSingleQuote {
			inDoubleQuote = !inDoubleQuote
			current.WriteRune(ch)
			continue
		}
		if inSingleQuote || inDoubleQuote {
			current.WriteRune(ch)
			continue
		}

		// && (skip second &; single & is handled by the token walk)
		if ch == '&' && i+1 < len(runes) && runes[i+1] == '&' {
			flush()
			i++
			continue
		}
		// || (skip second |)
		if ch == '|' && i+1 < len(runes) && runes[i+1] == '|' {
			flush()
			i++
			continue
		}
		if ch == ';' {
			flush()
			continue
		}

		current.WriteRune(ch)
	}

	if inSingleQuote || inDoubleQuote {
		return nil, ErrUnterminatedQuote
	}

	flush()
	return segments, nil
}
