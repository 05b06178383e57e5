package daemon

import (
	"context"

	"github.com/victorarias/cmdguard/internal/guard"
)

// Request is sent from client to daemon over the Unix socket.
type Request struct {
	Command    string `json:"command"`
	ProjectDir string `json:"project_dir,omitempty"`
}

// Response is sent from daemon to client.
type Response struct {
	Decision string `json:"decision"` // "ALLOW" or "BLOCK"
	Reason   string `json:"reason,omitempty"`
}

// Decider evaluates one request. The production decider is the pure Guard;
// tests substitute their own.
type Decider interface {
	Decide(ctx context.Context, req Request) Response
}

// GuardDecider adapts a Guard to the socket protocol.
type GuardDecider struct {
	Guard *guard.Guard
}

func (d GuardDecider) Decide(ctx context.Context, req Request) Response {
	decision := d.Guard.Evaluate(req.Command, req.ProjectDir)
	return Response{Decision: decision.Verdict.String(), Reason: decision.Reason}
}
