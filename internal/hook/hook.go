// Package hook implements the wire contract of the pre-tool-use hook:
// a JSON request on stdin, a JSON decision on stdout. Only shell-execution
// tool invocations are evaluated; everything else passes through as allow.
// The embedding runtime is responsible for actually refusing execution on a
// block; this package only decides.
package hook

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/victorarias/cmdguard/internal/audit"
	"github.com/victorarias/cmdguard/internal/guard"
)

// ShellTool is the tool name whose invocations are evaluated.
const ShellTool = "Bash"

// Input is the hook request. Fields the runtime sends beyond these
// (session ids, cwd) are ignored.
type Input struct {
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`
	Context   *Context  `json:"context,omitempty"`
}

// ToolInput carries the command for shell-execution tools.
type ToolInput struct {
	Command string `json:"command"`
}

// Context carries the project directory that activates path sandboxing.
type Context struct {
	ProjectDir string `json:"project_dir"`
}

// Output is the hook response: empty to allow, decision "block" with a
// reason to block.
type Output struct {
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Run reads one hook request, evaluates it, and writes exactly one decision.
// Malformed input blocks: unparseable requests never pass through.
func Run(in io.Reader, out io.Writer, g *guard.Guard) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return write(out, Output{Decision: "block", Reason: "could not read hook input: " + err.Error()})
	}

	var input Input
	if err := json.Unmarshal(data, &input); err != nil {
		return write(out, Output{Decision: "block", Reason: "could not parse hook input: " + err.Error()})
	}

	d := Decide(&input, g)
	audit.Record("hook", input.ToolInput.Command, input.ProjectDir(), d.Verdict.String(), d.Reason)
	if d.Verdict == guard.Block {
		return write(out, Output{Decision: "block", Reason: d.Reason})
	}
	return write(out, Output{})
}

// Decide maps a hook request onto a guard evaluation.
func Decide(input *Input, g *guard.Guard) guard.Decision {
	if input.ToolName != ShellTool {
		return guard.Allowed()
	}
	return g.Evaluate(input.ToolInput.Command, input.ProjectDir())
}

// ProjectDir returns the directory bounding path checks, if one was given.
func (in *Input) ProjectDir() string {
	if in.Context != nil && in.Context.ProjectDir != "" {
		return in.Context.ProjectDir
	}
	return ""
}

func write(out io.Writer, o Output) error {
	if err := json.NewEncoder(out).Encode(o); err != nil {
		return fmt.Errorf("write hook output: %w", err)
	}
	return nil
}
