package guard

import (
	"path/filepath"
	"strings"
)

// Keywords that precede commands and never count as commands themselves.
var shellKeywords = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"while": true, "until": true, "do": true, "done": true,
	"case": true, "esac": true, "in": true,
	"!": true, "{": true, "}": true,
}

var commandOperators = map[string]bool{
	"|": true, "||": true, "&&": true, "&": true, ";": true,
}

// namesInSegment returns the base command names that would execute in one
// segment, in order.
func namesInSegment(segment string) ([]string, error) {
	tokens, err := tokenize(segment)
	if err != nil {
		return nil, err
	}
	return namesFromTokens(tokens), nil
}

// commandNames extracts every command name from a (possibly compound)
// command string. Used for substitution bodies, which may chain internally.
func commandNames(command string) ([]string, error) {
	segments, err := SplitSegments(command)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, segment := range segments {
		segmentNames, err := namesInSegment(segment)
		if err != nil {
			return nil, err
		}
		names = append(names, segmentNames...)
	}
	return names, nil
}

// namesFromTokens walks tokens with an expect-command flag: true initially,
// reset by operators, keywords, and trailing semicolons glued to words.
// Flags and NAME=value assignments never count as commands and never flip
// the flag. After for/select the next token is a loop variable and is
// skipped. Each token seen while expecting yields one basename.
func namesFromTokens(tokens []string) []string {
	var names []string
	expectCommand := true
	skipNextAsVariable := false

	for _, token := range tokens {
		// The tokenizer keeps a quoted or glued semicolon attached to its word.
		hadTrailingSemicolon := strings.HasSuffix(token, ";")
		if hadTrailingSemicolon {
			token = strings.TrimSuffix(token, ";")
			if token == "" {
				expectCommand = true
				continue
			}
		}

		if skipNextAsVariable {
			// Loop variable after for/select. The word list that follows is
			// data, not commands, until the next operator.
			skipNextAsVariable = false
			expectCommand = hadTrailingSemicolon
			continue
		}

		if commandOperators[token] {
			expectCommand = true
			continue
		}

		if token == "for" || token == "select" {
			skipNextAsVariable = true
			continue
		}

		if shellKeywords[token] {
			if hadTrailingSemicolon {
				expectCommand = true
			}
			continue
		}

		if strings.HasPrefix(token, "-") {
			if hadTrailingSemicolon {
				expectCommand = true
			}
			continue
		}

		// NAME=value assignment
		if strings.Contains(token, "=") && !strings.HasPrefix(token, "=") {
			if hadTrailingSemicolon {
				expectCommand = true
			}
			continue
		}

		if expectCommand {
			// /usr/bin/python and python are the same command.
			names = append(names, filepath.Base(token))
			expectCommand = false
		}

		if hadTrailingSemicolon {
			expectCommand = true
		}
	}

	return names
}
