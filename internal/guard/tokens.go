package guard

import (
	"fmt"

	"github.com/google/shlex"
)

// tokenize splits a segment into quote-aware tokens. Quotes are stripped,
// matching shell word splitting; malformed quoting is an error and the
// caller blocks.
func tokenize(segment string) ([]string, error) {
	tokens, err := shlex.Split(segment)
	if err != nil {
		return nil, fmt.Errorf("unparseable segment %q: %w", segment, err)
	}
	return tokens, nil
}
