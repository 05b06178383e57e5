package guard

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/victorarias/cmdguard/internal/policy"
)

// Validator is a structural check for a command that needs scrutiny beyond
// allowlist membership. Validate inspects the segment containing the command
// and returns a non-nil error to block. A validator that cannot parse its
// segment fails closed.
type Validator interface {
	Validate(segment string) error
}

// newValidators builds the validator registry for a policy. Adding a
// restricted command means adding a Validator type and a key here.
func newValidators(p *policy.Policy) map[string]Validator {
	v := map[string]Validator{
		"pkill":     &terminateValidator{policy: p},
		"chmod":     &chmodValidator{},
		"rm":        &rmValidator{},
		"rmdir":     &rmdirValidator{},
		"kill":      &killValidator{policy: p},
		"docker":    &dockerValidator{},
		"systemctl": &systemctlValidator{},
	}
	script := &scriptValidator{policy: p}
	for _, name := range []string{"start.sh", "restart.sh", "stop.sh"} {
		if p.LifecycleScript(name) {
			v[name] = script
		}
	}
	return v
}

// terminateValidator restricts pkill to a small set of dev processes. The
// guard's own runtime name is not in the set, so an agent cannot terminate
// the process supervising it.
type terminateValidator struct {
	policy *policy.Policy
}

func (v *terminateValidator) Validate(segment string) error {
	tokens, err := tokenize(segment)
	if err != nil {
		return errors.New("could not parse pkill command")
	}
	if len(tokens) == 0 {
		return errors.New("empty pkill command")
	}

	var args []string
	for _, token := range tokens[1:] {
		if !strings.HasPrefix(token, "-") {
			args = append(args, token)
		}
	}
	if len(args) == 0 {
		return errors.New("pkill requires a process name")
	}

	target := args[len(args)-1]
	// With -f the target is a full command line; the process name is its
	// first word.
	if strings.Contains(target, " ") {
		target = strings.Fields(target)[0]
	}

	if !v.policy.TerminateProcessAllowed(target) {
		return fmt.Errorf("pkill only allowed for dev processes, got: %s", target)
	}
	return nil
}

// chmodValidator allows exactly one thing: making files executable.
type chmodValidator struct{}

var execModeRe = regexp.MustCompile(`^[ugoa]*\+x$`)

func (v *chmodValidator) Validate(segment string) error {
	tokens, err := tokenize(segment)
	if err != nil {
		return errors.New("could not parse chmod command")
	}
	if len(tokens) == 0 || filepath.Base(tokens[0]) != "chmod" {
		return errors.New("not a chmod command")
	}

	var mode string
	var files []string
	for _, token := range tokens[1:] {
		if strings.HasPrefix(token, "-") {
			// No flags at all: -R in particular would make +x recursive.
			return errors.New("chmod flags are not allowed")
		}
		if mode == "" {
			mode = token
		} else {
			files = append(files, token)
		}
	}

	if mode == "" {
		return errors.New("chmod requires a mode")
	}
	if len(files) == 0 {
		return errors.New("chmod requires at least one file")
	}
	if !execModeRe.MatchString(mode) {
		return fmt.Errorf("chmod only allowed with +x mode, got: %s", mode)
	}
	return nil
}

// rmValidator restricts recursive deletes: no system roots, no bare
// wildcards, no hidden-file globs, no recursive+wildcard combinations.
type rmValidator struct{}

var dangerousRmPatterns = []string{
	"/*", "../*", "/..", "/.", ".*", "**/", "~/*",
	"/home", "/etc", "/usr", "/var", "/bin", "/sbin", "/lib",
	"/boot", "/dev", "/proc", "/sys", "/root",
}

func (v *rmValidator) Validate(segment string) error {
	tokens, err := tokenize(segment)
	if err != nil {
		return errors.New("could not parse rm command")
	}
	if len(tokens) == 0 || filepath.Base(tokens[0]) != "rm" {
		return errors.New("not an rm command")
	}

	recursive := false
	var targets []string
	for _, token := range tokens[1:] {
		if strings.HasPrefix(token, "-") {
			if strings.ContainsAny(token, "rR") || token == "--recursive" {
				recursive = true
			}
			continue
		}
		targets = append(targets, token)
	}

	if len(targets) == 0 {
		return errors.New("rm requires at least one target")
	}

	for _, target := range targets {
		for _, pattern := range dangerousRmPatterns {
			if target == pattern || strings.HasSuffix(target, pattern) || strings.HasPrefix(target, pattern) {
				return fmt.Errorf("rm blocked: dangerous pattern '%s'", target)
			}
		}
		if recursive && (strings.HasPrefix(target, ".*") || strings.Contains(target, "/..")) {
			return fmt.Errorf("rm blocked: recursive deletion of hidden files/directories not allowed: %s", target)
		}
	}

	if recursive {
		for _, target := range targets {
			if strings.Contains(target, "*") {
				return fmt.Errorf("rm blocked: recursive deletion with wildcard not allowed: %s", target)
			}
		}
	}

	return nil
}

// rmdirValidator blocks canonical dangerous targets and parent traversal.
type rmdirValidator struct{}

var dangerousRmdirTargets = map[string]bool{
	"/": true, "/*": true, "../*": true, "~": true, "~/*": true, ".": true,
}

func (v *rmdirValidator) Validate(segment string) error {
	tokens, err := tokenize(segment)
	if err != nil {
		return errors.New("could not parse rmdir command")
	}
	if len(tokens) == 0 || filepath.Base(tokens[0]) != "rmdir" {
		return errors.New("not an rmdir command")
	}

	var targets []string
	for _, token := range tokens[1:] {
		// rmdir flags (-p, --parents, --ignore-fail-on-non-empty) are harmless.
		if !strings.HasPrefix(token, "-") {
			targets = append(targets, token)
		}
	}
	if len(targets) == 0 {
		return errors.New("rmdir requires at least one target")
	}

	for _, target := range targets {
		if dangerousRmdirTargets[target] {
			return fmt.Errorf("rmdir blocked: dangerous pattern '%s'", target)
		}
		if strings.Contains(target, "..") && !strings.HasPrefix(target, "./") {
			return fmt.Errorf("rmdir blocked: path traversal not allowed: %s", target)
		}
	}
	return nil
}

// killValidator restricts signals to a safe set and refuses system PIDs.
type killValidator struct {
	policy *policy.Policy
}

func (v *killValidator) Validate(segment string) error {
	tokens, err := tokenize(segment)
	if err != nil {
		return errors.New("could not parse kill command")
	}
	if len(tokens) == 0 || filepath.Base(tokens[0]) != "kill" {
		return errors.New("not a kill command")
	}

	var signal string
	var pids []string

	for i := 1; i < len(tokens); i++ {
		token := tokens[i]
		if strings.HasPrefix(token, "-") {
			if token == "-l" || token == "--list" {
				// kill -l just lists signals
				return nil
			}
			if token == "-s" && i+1 < len(tokens) {
				signal = strings.ToUpper(tokens[i+1])
				i++
				continue
			}
			if sig := strings.ToUpper(token[1:]); sig != "" {
				signal = sig
			}
			continue
		}
		pids = append(pids, token)
	}

	if len(pids) == 0 {
		return errors.New("kill requires at least one PID")
	}
	if signal != "" && !v.policy.SignalAllowed(signal) {
		return fmt.Errorf("kill blocked: signal '%s' not in allowed signals", signal)
	}

	for _, pid := range pids {
		if strings.HasPrefix(pid, "%") {
			// job specs like %1 stay within the invoking shell
			continue
		}
		n, err := strconv.Atoi(pid)
		if err != nil {
			// Not a number, e.g. kill $PID. Unresolved variables are
			// tolerated: a deliberate, documented trust gap.
			continue
		}
		if n == 1 {
			return errors.New("kill blocked: cannot kill PID 1 (init)")
		}
		if n < 0 {
			return fmt.Errorf("kill blocked: negative PID (process group) not allowed: %s", pid)
		}
		if n < 100 {
			return fmt.Errorf("kill blocked: system process PID not allowed: %s", pid)
		}
	}
	return nil
}

// dockerValidator blocks volume mounts whose host side is a bare system root.
type dockerValidator struct{}

var dangerousMountRoots = map[string]bool{
	"/": true, "/home": true, "/etc": true, "/usr": true, "/var": true,
}

func (v *dockerValidator) Validate(segment string) error {
	tokens, err := tokenize(segment)
	if err != nil {
		return errors.New("could not parse docker command")
	}
	if len(tokens) == 0 || filepath.Base(tokens[0]) != "docker" {
		return errors.New("not a docker command")
	}

	for i, token := range tokens {
		if (token == "-v" || token == "--volume") && i+1 < len(tokens) {
			spec := tokens[i+1]
			if host, _, ok := strings.Cut(spec, ":"); ok && dangerousMountRoots[host] {
				return fmt.Errorf("docker volume mount of system directory not allowed: %s", host)
			}
		}
	}
	return nil
}

// systemctlValidator allows only read-only subcommands.
type systemctlValidator struct{}

var readOnlySystemctlOps = map[string]bool{
	"status": true, "show": true, "list-units": true, "list-unit-files": true,
	"is-active": true, "is-enabled": true,
}

func (v *systemctlValidator) Validate(segment string) error {
	tokens, err := tokenize(segment)
	if err != nil {
		return errors.New("could not parse systemctl command")
	}
	if len(tokens) == 0 || filepath.Base(tokens[0]) != "systemctl" {
		return errors.New("not a systemctl command")
	}

	var operation string
	for _, token := range tokens[1:] {
		if !strings.HasPrefix(token, "-") {
			operation = token
			break
		}
	}
	if !readOnlySystemctlOps[operation] {
		return fmt.Errorf("systemctl operation '%s' not allowed (read-only operations only)", operation)
	}
	return nil
}

// scriptValidator accepts only ./name.sh or */name.sh invocations of the
// managed lifecycle scripts.
type scriptValidator struct {
	policy *policy.Policy
}

func (v *scriptValidator) Validate(segment string) error {
	tokens, err := tokenize(segment)
	if err != nil {
		return errors.New("could not parse lifecycle script command")
	}
	if len(tokens) == 0 {
		return errors.New("empty command")
	}

	script := tokens[0]
	name := filepath.Base(script)
	if v.policy.LifecycleScript(name) &&
		(script == "./"+name || strings.HasSuffix(script, "/"+name)) {
		return nil
	}
	return fmt.Errorf("lifecycle scripts must be invoked as ./<script>.sh, got: %s", script)
}
