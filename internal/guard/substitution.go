package guard

// Substitution scanning uses explicit depth counters plus a quote-state
// tracker. Substitution syntax nests arbitrarily, which no single regex can
// match, but bounded matching-delimiter counting handles it exactly. A
// command three substitution levels deep is as visible to the allowlist as a
// top-level one.

// substitutionCommands returns every command name hidden inside $(...),
// backtick, and <(...)/>(...) forms, recursively.
func substitutionCommands(command string) ([]string, error) {
	var names []string

	collect := func(inner string) error {
		innerNames, err := commandNames(inner)
		if err != nil {
			return err
		}
		names = append(names, innerNames...)
		nested, err := substitutionCommands(inner)
		if err != nil {
			return err
		}
		names = append(names, nested...)
		return nil
	}

	runes := []rune(command)

	// $(...), depth counted with quote state tracked inside the body.
	for i := 0; i < len(runes); {
		if runes[i] != '$' || i+1 >= len(runes) || runes[i+1] != '(' {
			i++
			continue
		}
		depth := 1
		start := i + 2
		j := start
		inSingleQuote := false
		inDoubleQuote := false
		for j < len(runes) && depth > 0 {
			ch := runes[j]
			switch {
			case ch == '\'' && !inDoubleQuote:
				inSingleQuote = !inSingleQuote
			case ch == '"' && !inSingleQuote:
				inDoubleQuote = !inDoubleQuote
			case !inSingleQuote && !inDoubleQuote:
				if ch == '$' && j+1 < len(runes) && runes[j+1] == '(' {
					depth++
					j++ // don't double-count the '('
				} else if ch == '(' && (j == 0 || runes[j-1] != '$') {
					depth++
				} else if ch == ')' {
					depth--
				}
			}
			j++
		}
		if depth == 0 {
			if err := collect(string(runes[start : j-1])); err != nil {
				return nil, err
			}
		}
		i = j
	}

	// Backtick pairs. Backticks do not nest; an unmatched opener is left to
	// the shell, which would refuse the command anyway.
	for i := 0; i < len(runes); {
		if runes[i] != '`' {
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && runes[j] != '`' {
			j++
		}
		if j >= len(runes) {
			break
		}
		if err := collect(string(runes[i+1 : j])); err != nil {
			return nil, err
		}
		i = j + 1
	}

	// Process substitutions <(...) and >(...).
	for i := 0; i+1 < len(runes); i++ {
		if (runes[i] != '<' && runes[i] != '>') || runes[i+1] != '(' {
			continue
		}
		depth := 1
		start := i + 2
		j := start
		for j < len(runes) && depth > 0 {
			if runes[j] == '(' {
				depth++
			} else if runes[j] == ')' {
				depth--
			}
			j++
		}
		if depth == 0 {
			if err := collect(string(runes[start : j-1])); err != nil {
				return nil, err
			}
		}
		i = j - 1
	}

	return names, nil
}
