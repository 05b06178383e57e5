package guard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// pathCandidate is a token believed to denote a filesystem path, tagged with
// the argument role it was extracted from.
type pathCandidate struct {
	raw  string
	role string // used in block reasons: "file operation", "output path", ...
}

// Commands whose non-flag arguments are file paths.
var fileOpCommands = map[string]bool{
	"cat": true, "cp": true, "mv": true, "rm": true, "rmdir": true,
	"mkdir": true, "chmod": true, "touch": true, "ls": true, "find": true,
	"head": true, "tail": true, "tee": true, "stat": true,
	"grep": true, "awk": true, "wc": true, "ln": true,
}

// Commands where every non-flag argument is a path even without separators
// (rm file, mkdir dir).
var bareTargetCommands = map[string]bool{
	"rm": true, "rmdir": true, "mkdir": true, "chmod": true, "touch": true, "ln": true,
}

// Commands that write to a location named by an output flag.
var outputFlagCommands = map[string][]string{
	"curl":  {"-o", "--output", "-O"},
	"wget":  {"-O", "--output-document"},
	"unzip": {"-d"},
	"jar":   {"-C"},
}

// Interpreter-style commands: only the script argument is a path the gate
// cares about; arguments to the script are the script's business.
var scriptCommands = map[string]bool{
	"python": true, "python3": true, "node": true, "java": true,
	"bash": true, "sh": true,
}

var redirectionOps = map[string]bool{
	">": true, ">>": true, "<": true, "|": true, "2>": true, "&>": true, "2>&1": true,
}

// checkPaths enforces path containment for one command string. cp and mv get
// asymmetric treatment: the destination (last non-flag token) must always be
// inside the project or temp root; mv sources must too; cp sources are
// checked against the roots first and only on failure against the
// sensitive-path deny list (allow-primary, deny-fallback). Every other
// command must keep all extracted candidates inside the roots.
func (g *Guard) checkPaths(command string, names []string, projectRoot string) Decision {
	base := ""
	if len(names) > 0 {
		base = names[0]
	}

	if base == "cp" || base == "mv" {
		return g.checkCopyMovePaths(command, base, projectRoot)
	}

	candidates, err := extractPathCandidates(command)
	if err != nil {
		return Blocked(KindParseError, "could not extract paths: "+err.Error())
	}
	for _, c := range candidates {
		if d := g.requireWithinRoots(c.raw, projectRoot, c.role); d.Verdict == Block {
			return d
		}
	}
	return Allowed()
}

func (g *Guard) checkCopyMovePaths(command, base, projectRoot string) Decision {
	tokens, err := tokenize(command)
	if err != nil {
		return Blocked(KindParseError, "could not parse "+base+" command")
	}

	var paths []string
	for _, token := range tokens[1:] {
		if strings.HasPrefix(token, "-") {
			continue
		}
		if token == ">" || token == ">>" || token == "<" || token == "|" {
			continue
		}
		paths = append(paths, token)
	}
	if len(paths) < 2 {
		// Not a complete source/destination pair; the shell will reject it.
		return Allowed()
	}

	dest := paths[len(paths)-1]
	sources := paths[:len(paths)-1]

	if d := g.requireWithinRoots(dest, projectRoot, "destination path"); d.Verdict == Block {
		return d
	}

	for _, src := range sources {
		if base == "mv" {
			if d := g.requireWithinRoots(src, projectRoot, "source path (mv)"); d.Verdict == Block {
				return d
			}
			continue
		}
		// cp: sources inside project/temp are fine; outside, only the
		// sensitive deny list decides.
		if d := g.requireWithinRoots(src, projectRoot, "cp source path"); d.Verdict != Block {
			continue
		}
		if err := g.checkSensitiveSource(src); err != nil {
			return Blocked(KindPolicyViolation, "cp blocked: "+err.Error())
		}
	}
	return Allowed()
}

// extractPathCandidates applies the command-specific extraction policy.
func extractPathCandidates(command string) ([]pathCandidate, error) {
	tokens, err := tokenize(command)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	cmd := filepath.Base(tokens[0])
	var paths []pathCandidate

	switch {
	case outputFlagCommands[cmd] != nil:
		flags := outputFlagCommands[cmd]
		for i := 1; i < len(tokens); i++ {
			token := tokens[i]
			if containsString(flags, token) && i+1 < len(tokens) {
				paths = append(paths, pathCandidate{raw: tokens[i+1], role: "output path"})
				i++
				continue
			}
			// unzip/jar also take positional path arguments
			if !strings.HasPrefix(token, "-") && (cmd == "unzip" || cmd == "jar") &&
				(strings.Contains(token, "/") || strings.HasPrefix(token, ".")) {
				paths = append(paths, pathCandidate{raw: token, role: "file operation"})
			}
		}

	case cmd == "git":
		for j := 1; j < len(tokens); {
			token := tokens[j]
			switch {
			case token == "clone" && j+2 < len(tokens):
				// git clone <url> <dest>: the URL is skipped, the
				// destination is checked.
				if !strings.HasPrefix(tokens[j+2], "-") {
					paths = append(paths, pathCandidate{raw: tokens[j+2], role: "destination path"})
				}
				j += 3
			case (token == "--work-tree" || token == "--git-dir") && j+1 < len(tokens):
				paths = append(paths, pathCandidate{raw: tokens[j+1], role: "file operation"})
				j += 2
			default:
				j++
			}
		}

	case scriptCommands[cmd]:
		for j := 1; j < len(tokens); j++ {
			token := tokens[j]
			if strings.HasPrefix(token, "-") {
				continue
			}
			if strings.Contains(token, "/") || strings.HasPrefix(token, ".") || strings.HasPrefix(token, "~") {
				paths = append(paths, pathCandidate{raw: token, role: "script path"})
			}
			break
		}

	case fileOpCommands[cmd]:
		skipNext := false
		for i := 1; i < len(tokens); i++ {
			token := tokens[i]
			if skipNext {
				skipNext = false
				continue
			}
			if strings.HasPrefix(token, "-") {
				continue
			}
			if redirectionOps[token] {
				// redirect targets are picked up by the global scan below
				skipNext = true
				continue
			}
			isPath := strings.HasPrefix(token, "/") ||
				strings.HasPrefix(token, "~/") ||
				strings.HasPrefix(token, "./") ||
				strings.HasPrefix(token, "../") ||
				strings.Contains(token, "/") ||
				bareTargetCommands[cmd]
			if isPath {
				paths = append(paths, pathCandidate{raw: token, role: "file operation"})
			}
		}
	}

	// Output redirection writes a file regardless of the command in front.
	for j := 0; j+1 < len(tokens); j++ {
		if tokens[j] == ">" || tokens[j] == ">>" {
			paths = append(paths, pathCandidate{raw: tokens[j+1], role: "output path"})
		}
	}

	return paths, nil
}

// requireWithinRoots resolves raw and requires the canonical form to be a
// descendant of the project root or the temp root. Comparison happens only
// after symlink resolution, never on raw strings.
func (g *Guard) requireWithinRoots(raw, projectRoot, role string) Decision {
	if raw == "" {
		return Blocked(KindResolutionError, "empty path for "+role)
	}

	rootResolved, err := canonicalize(projectRoot)
	if err != nil {
		return Blocked(KindResolutionError, fmt.Sprintf("cannot resolve project root '%s': %v", projectRoot, err))
	}

	expanded := expandUser(raw)
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(projectRoot, expanded)
	}
	resolved, err := canonicalize(expanded)
	if err != nil {
		return Blocked(KindResolutionError, fmt.Sprintf("cannot validate path '%s': %v", raw, err))
	}

	if isWithinDir(resolved, rootResolved) {
		return Allowed()
	}
	if tempResolved, err := canonicalize(g.tempRoot); err == nil && isWithinDir(resolved, tempResolved) {
		return Allowed()
	}

	return Blocked(KindPathEscape, fmt.Sprintf(
		"%s escapes project directory: '%s' resolves to '%s' which is outside '%s'",
		role, raw, resolved, rootResolved))
}

// checkSensitiveSource is the deny-fallback for cp sources that are not
// inside the permitted roots: sensitive system directories, user credential
// directories, and credential-looking filename patterns are refused.
func (g *Guard) checkSensitiveSource(src string) error {
	if src == "" {
		return errors.New("empty source path")
	}

	expanded := expandUser(src)
	for _, sensitive := range g.policy.SensitivePaths() {
		expandedSensitive := expandUser(sensitive)

		if expanded == expandedSensitive {
			return fmt.Errorf("cannot copy from sensitive path '%s'", src)
		}
		if strings.HasPrefix(expanded, expandedSensitive+"/") {
			return fmt.Errorf("cannot copy from sensitive directory '%s'", sensitive)
		}

		// Filename patterns (credentials, secrets, .env) only block when the
		// path looks system-wide, not project-relative.
		if sensitive == "credentials" || sensitive == "secrets" || sensitive == ".env" {
			lower := strings.ToLower(src)
			if strings.Contains(lower, sensitive) && !strings.HasPrefix(lower, "./") {
				if strings.HasPrefix(src, "/") || strings.HasPrefix(src, "~") {
					return fmt.Errorf("cannot copy sensitive file pattern '%s'", src)
				}
			}
		}
	}
	return nil
}

// canonicalize resolves a path to its absolute symlink-free form. Paths that
// do not exist yet (new files, redirect targets) resolve through their
// nearest existing ancestor; real OS failures (loops, permissions) propagate
// and the caller blocks.
func canonicalize(path string) (string, error) {
	path = filepath.Clean(path)
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return "", err
	}
	resolvedParent, err := canonicalize(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

// expandUser expands ~ and ~/ to the current user's home directory.
func expandUser(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func isWithinDir(path, dir string) bool {
	if dir == "" {
		return false
	}
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
