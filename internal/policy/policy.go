// Package policy holds the static configuration of the command gate: the
// command allowlist, the set of commands that need structural validation on
// top of allowlist membership, and the path/process/signal enumerations the
// validators consult. A Policy is built once at startup and never mutated.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML shape of a policy. Empty fields fall back to the
// built-in defaults so a file can override just one list.
type File struct {
	AllowedCommands    []string `yaml:"allowed_commands"`
	ExtraValidation    []string `yaml:"extra_validation"`
	SensitivePaths     []string `yaml:"sensitive_paths"`
	TerminateProcesses []string `yaml:"terminate_processes"`
	LifecycleScripts   []string `yaml:"lifecycle_scripts"`
	AllowedSignals     []string `yaml:"allowed_signals"`
}

// Policy is the immutable configuration consulted during evaluation.
type Policy struct {
	allowed         map[string]bool
	extraValidation map[string]bool
	terminateProcs  map[string]bool
	scripts         map[string]bool
	signals         map[string]bool
	sensitivePaths  []string
}

// Default returns the built-in development policy.
func Default() *Policy {
	return build(File{})
}

// Load reads a YAML policy file, filling unset fields from the defaults.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	return build(f), nil
}

// FromFile builds a Policy from an already-decoded File, filling unset
// fields from the defaults. Intended for embedding applications that manage
// their own configuration loading.
func FromFile(f File) *Policy {
	return build(f)
}

func build(f File) *Policy {
	return &Policy{
		allowed:         toSet(orDefault(f.AllowedCommands, defaultAllowedCommands)),
		extraValidation: toSet(orDefault(f.ExtraValidation, defaultExtraValidation)),
		terminateProcs:  toSet(orDefault(f.TerminateProcesses, defaultTerminateProcesses)),
		scripts:         toSet(orDefault(f.LifecycleScripts, defaultLifecycleScripts)),
		signals:         toSet(orDefault(f.AllowedSignals, defaultAllowedSignals)),
		sensitivePaths:  orDefault(f.SensitivePaths, defaultSensitivePaths),
	}
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// CommandAllowed reports whether a command name is in the allowlist.
func (p *Policy) CommandAllowed(name string) bool {
	return p.allowed[name]
}

// NeedsExtraValidation reports whether a command has a structural validator.
func (p *Policy) NeedsExtraValidation(name string) bool {
	return p.extraValidation[name]
}

// TerminateProcessAllowed reports whether a process name may be targeted by
// the terminate-by-name validator.
func (p *Policy) TerminateProcessAllowed(name string) bool {
	return p.terminateProcs[name]
}

// LifecycleScript reports whether a script name is one of the managed
// lifecycle scripts.
func (p *Policy) LifecycleScript(name string) bool {
	return p.scripts[name]
}

// SignalAllowed reports whether a signal name or number is in the safe set.
func (p *Policy) SignalAllowed(sig string) bool {
	return p.signals[sig]
}

// SensitivePaths returns the sensitive-path deny list. Callers must not
// modify the returned slice.
func (p *Policy) SensitivePaths() []string {
	return p.sensitivePaths
}

// Commands permitted for autonomous development work. Everything not listed
// here is blocked outright.
var defaultAllowedCommands = []string{
	// File inspection
	"ls", "cat", "find", "head", "tail", "wc", "grep", "awk", "tee", "stat", "tree",
	// File operations
	"touch", "cp", "mkdir", "chmod", "rm", "rmdir", "mv",
	// Directory
	"pwd",
	// Node.js development
	"npm", "node", "pnpm", "sort", "npx", "vite", "next", "tsc", "eslint", "jest", "vitest",
	// Java development
	"gradle", "gradlew", "java", "mvn", "mvnw",
	// Python development
	"python", "pip", "uv", "uvx", "ruff", "mypy", "uvicorn", "pylint", "flake8", "pytest",
	// Containers and clusters
	"docker", "kubectl",
	// Rust development
	"cargo", "rustc",
	// Go development
	"go",
	// Swift development
	"swift", "xcodebuild",
	// Static analysis
	"sonar-scanner", "swiftlint", "clippy", "golangci-lint",
	// Databases
	"psql", "mysql",
	// Web calls
	"curl",
	// Version control
	"git",
	// Process management
	"ps", "lsof", "sleep", "nohup", "pkill", "kill", "systemctl", "source", "tr",
	"journalctl", "netstat",
	// JSON
	"jq",
	// Shell builtins used in constructs
	"read", "test", "true", "false", "printf",
	// Read-only utilities
	"date", "basename", "dirname", "cut", "sed", "diff", "realpath", "readlink",
	"mktemp", "id", "seq",
	// Others
	"echo", "which", "jar", "unzip",
	// Lifecycle scripts
	"start.sh", "stop.sh", "restart.sh", "shutdown.sh", "startup.sh", "build.sh",
	"kcadm.sh", "kc.sh",
}

// Commands that get a structural validator on top of allowlist membership.
var defaultExtraValidation = []string{
	"pkill", "chmod", "start.sh", "restart.sh", "stop.sh",
	"docker", "systemctl", "rm", "rmdir", "kill",
}

// Paths and filename patterns the copy-source fallback refuses to read.
var defaultSensitivePaths = []string{
	"/etc/passwd", "/etc/shadow", "/etc/sudoers", "/etc/ssh",
	"/etc/ssl", "/etc/pki", "/etc/security",
	"/root", "/home",
	"/var/log", "/var/run", "/var/spool",
	"/proc", "/sys", "/dev",
	"/boot", "/lib/firmware",
	"~/.ssh", "~/.gnupg", "~/.aws", "~/.config",
	".env", ".git/config", "credentials", "secrets",
}

// Process names pkill may target. The guard's own runtime is deliberately
// absent so a guarded agent cannot terminate itself.
var defaultTerminateProcesses = []string{
	"node", "npm", "npx", "vite", "next", "pnpm", "uvicorn", "java",
}

// Scripts that may be invoked as ./name.sh or */name.sh.
var defaultLifecycleScripts = []string{
	"start.sh", "restart.sh", "stop.sh",
}

// Signal names and numbers the signal-send validator accepts.
var defaultAllowedSignals = []string{
	"TERM", "KILL", "INT", "HUP", "USR1", "USR2", "QUIT", "STOP", "CONT",
	"15", "9", "2", "1", "10", "12", "3", "19", "18",
	"SIGTERM", "SIGKILL", "SIGINT", "SIGHUP", "SIGUSR1", "SIGUSR2",
}
