// Package guard decides whether a shell command issued by an autonomous
// coding agent may run. Evaluation is a pure function of the command string,
// the immutable policy, and the (read-only) project root: commands are
// segmented and tokenized, every command name (including names buried in
// nested substitutions) is checked against the allowlist, commands flagged
// for extra scrutiny run a structural validator, and referenced paths must
// canonicalize inside the project root or the temp root. Anything ambiguous
// or unparseable blocks.
package guard

import (
	"strings"

	"github.com/victorarias/cmdguard/internal/policy"
)

// Verdict is the binary outcome of an evaluation.
type Verdict int

const (
	Allow Verdict = iota
	Block
)

func (v Verdict) String() string {
	if v == Block {
		return "BLOCK"
	}
	return "ALLOW"
}

// BlockKind classifies why a command was blocked.
type BlockKind int

const (
	KindNone BlockKind = iota
	// KindParseError: the command could not be tokenized (e.g. unterminated
	// quoting). Unparseable input never passes through.
	KindParseError
	// KindUnknownCommand: a command name is not in the allowlist.
	KindUnknownCommand
	// KindPolicyViolation: a structural validator rejected the command.
	KindPolicyViolation
	// KindPathEscape: a referenced path resolves outside the permitted roots.
	KindPathEscape
	// KindResolutionError: the OS failed to resolve a path (symlink loop,
	// permission error). Unverifiable paths block.
	KindResolutionError
)

func (k BlockKind) String() string {
	switch k {
	case KindParseError:
		return "parse-error"
	case KindUnknownCommand:
		return "unknown-command"
	case KindPolicyViolation:
		return "policy-violation"
	case KindPathEscape:
		return "path-escape"
	case KindResolutionError:
		return "resolution-error"
	default:
		return "none"
	}
}

// Decision is the terminal outcome of one evaluation: allow, or block with a
// reason. Exactly one Decision is produced per call.
type Decision struct {
	Verdict Verdict
	Kind    BlockKind
	Reason  string
}

// Allowed returns an allow Decision.
func Allowed() Decision {
	return Decision{Verdict: Allow}
}

// Blocked returns a block Decision with the given classification and reason.
func Blocked(kind BlockKind, reason string) Decision {
	return Decision{Verdict: Block, Kind: kind, Reason: reason}
}

// Guard evaluates command strings against a policy. It holds no mutable
// state and is safe for unbounded concurrent use.
type Guard struct {
	policy     *policy.Policy
	validators map[string]Validator
	tempRoot   string
}

// New creates a Guard with /tmp as the secondary permitted root.
func New(p *policy.Policy) *Guard {
	return NewWithTempRoot(p, "/tmp")
}

// NewWithTempRoot creates a Guard with an explicit secondary permitted root.
func NewWithTempRoot(p *policy.Policy, tempRoot string) *Guard {
	return &Guard{
		policy:     p,
		validators: newValidators(p),
		tempRoot:   tempRoot,
	}
}

// Evaluate decides whether command may run. projectRoot activates path
// sandboxing; when it is empty the path stage is skipped entirely
// (reduced-guarantee mode) while command allowlisting still applies.
func (g *Guard) Evaluate(command, projectRoot string) Decision {
	if strings.TrimSpace(command) == "" {
		return Allowed()
	}

	segments, err := SplitSegments(command)
	if err != nil {
		return Blocked(KindParseError, "could not parse command for security validation: "+err.Error())
	}

	names, err := g.extractAll(command, segments)
	if err != nil {
		return Blocked(KindParseError, "could not parse command for security validation: "+err.Error())
	}
	if len(names) == 0 {
		return Blocked(KindParseError, "could not parse command for security validation: "+command)
	}

	for _, name := range names {
		if !g.policy.CommandAllowed(name) {
			return Blocked(KindUnknownCommand, "command '"+name+"' is not in the allowed commands list")
		}
	}

	for _, name := range names {
		if !g.policy.NeedsExtraValidation(name) {
			continue
		}
		v, ok := g.validators[name]
		if !ok {
			continue
		}
		segment := segmentFor(name, segments)
		if segment == "" {
			segment = command
		}
		if err := v.Validate(segment); err != nil {
			return Blocked(KindPolicyViolation, err.Error())
		}
	}

	if projectRoot != "" {
		if d := g.checkPaths(command, names, projectRoot); d.Verdict == Block {
			return d
		}
	}

	return Allowed()
}

// extractAll returns every command name that would execute: one per command
// position in each segment, plus everything hidden inside substitutions.
func (g *Guard) extractAll(command string, segments []string) ([]string, error) {
	var names []string
	for _, segment := range segments {
		segmentNames, err := namesInSegment(segment)
		if err != nil {
			return nil, err
		}
		names = append(names, segmentNames...)
	}

	subNames, err := substitutionCommands(command)
	if err != nil {
		return nil, err
	}
	return append(names, subNames...), nil
}

// segmentFor finds the first segment whose command names include name, so a
// validator inspects only the invocation it is responsible for.
func segmentFor(name string, segments []string) string {
	for _, segment := range segments {
		segmentNames, err := namesInSegment(segment)
		if err != nil {
			continue
		}
		for _, n := range segmentNames {
			if n == name {
				return segment
			}
		}
	}
	return ""
}
