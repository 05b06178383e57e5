// Package daemon runs the gate as a resident Unix-socket service: the
// policy is loaded once, every connection is one request/response pair, and
// nothing is cached between requests: each command is independently
// re-validated by the same pure Guard the hook uses.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/victorarias/cmdguard/internal/audit"
)

// Config holds daemon configuration.
type Config struct {
	IdleTimeout time.Duration
	SocketPath  string // override for testing; empty = default
	PIDPath     string // override for testing; empty = default
}

func (c Config) socketPath() string {
	if c.SocketPath != "" {
		return c.SocketPath
	}
	return DefaultSocketPath()
}

func (c Config) pidPath() string {
	if c.PIDPath != "" {
		return c.PIDPath
	}
	return defaultPIDPath()
}

// Daemon is a persistent Unix socket server that evaluates commands.
type Daemon struct {
	decider      Decider
	config       Config
	listener     net.Listener
	shuttingDown atomic.Bool
	wg           sync.WaitGroup
}

// New creates a daemon with the given decider and config.
func New(decider Decider, config Config) *Daemon {
	return &Daemon{
		decider: decider,
		config:  config,
	}
}

// Run starts the daemon, listens for connections, and blocks until shutdown.
func (d *Daemon) Run() error {
	socketPath := d.config.socketPath()
	pidPath := d.config.pidPath()

	os.MkdirAll(filepath.Dir(socketPath), 0o755)

	// Refuse to start twice
	conn, err := net.DialTimeout("unix", socketPath, 1*time.Second)
	if err == nil {
		conn.Close()
		return fmt.Errorf("daemon already running at %s", socketPath)
	}

	// Remove stale socket file
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	d.listener = listener

	os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	idleTimeout := d.config.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 5 * time.Minute
	}
	idleTimer := time.NewTimer(idleTimeout)

	done := make(chan struct{})

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if d.shuttingDown.Load() {
					return
				}
				continue
			}
			idleTimer.Reset(idleTimeout)
			d.wg.Add(1)
			// One request at a time: hook callers are sequential
			d.handleConnection(conn)
			d.wg.Done()
		}
	}()

	go func() {
		select {
		case <-sigCh:
		case <-idleTimer.C:
		}
		close(done)
	}()

	<-done
	d.Shutdown()
	return nil
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(10 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		// Fail closed: an unreadable request blocks.
		json.NewEncoder(conn).Encode(Response{Decision: "BLOCK", Reason: "failed to decode request: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := d.decider.Decide(ctx, req)
	audit.Record("daemon", req.Command, req.ProjectDir, resp.Decision, resp.Reason)
	json.NewEncoder(conn).Encode(resp)
}

// Shutdown gracefully stops the daemon.
func (d *Daemon) Shutdown() {
	if !d.shuttingDown.CompareAndSwap(false, true) {
		return // already shutting down
	}

	if d.listener != nil {
		d.listener.Close()
	}

	d.wg.Wait()

	os.Remove(d.config.socketPath())
	os.Remove(d.config.pidPath())
}

// --- Path helpers ---

// DefaultSocketPath is where the daemon listens unless overridden.
func DefaultSocketPath() string {
	return filepath.Join(audit.Dir(), "daemon.sock")
}

func defaultPIDPath() string {
	return filepath.Join(audit.Dir(), "daemon.pid")
}

// --- Control commands ---

// Status reports whether a daemon is running, cleaning up stale state.
func Status() (string, error) {
	pidPath := defaultPIDPath()
	socketPath := DefaultSocketPath()

	pid, err := readPIDFile(pidPath)
	if err != nil {
		return "", fmt.Errorf("not running")
	}

	if !processAlive(pid) {
		os.Remove(pidPath)
		os.Remove(socketPath)
		return "", fmt.Errorf("not running (stale PID %d)", pid)
	}

	conn, err := net.DialTimeout("unix", socketPath, 1*time.Second)
	if err != nil {
		return "", fmt.Errorf("process %d alive but socket not responding", pid)
	}
	conn.Close()

	return fmt.Sprintf("running (PID %d)", pid), nil
}

// Stop signals a running daemon and waits for its socket to disappear.
func Stop() (string, error) {
	pidPath := defaultPIDPath()
	socketPath := DefaultSocketPath()

	pid, err := readPIDFile(pidPath)
	if err != nil {
		return "not running", nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(pidPath)
		os.Remove(socketPath)
		return fmt.Sprintf("process %d not found, cleaned up", pid), nil
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		os.Remove(pidPath)
		os.Remove(socketPath)
		return fmt.Sprintf("could not signal %d (%v), cleaned up", pid, err), nil
	}

	for i := 0; i < 20; i++ {
		time.Sleep(100 * time.Millisecond)
		if _, err := os.Stat(socketPath); os.IsNotExist(err) {
			return fmt.Sprintf("stopped (PID %d)", pid), nil
		}
	}

	return "", fmt.Errorf("sent SIGTERM to %d but socket still exists", pid)
}

// Restart stops any running daemon and starts a fresh one in the background.
func Restart() (string, error) {
	Stop()
	time.Sleep(200 * time.Millisecond)

	if err := StartProcess(); err != nil {
		return "", fmt.Errorf("failed to start: %w", err)
	}

	socketPath := DefaultSocketPath()
	for i := 0; i < 20; i++ {
		time.Sleep(100 * time.Millisecond)
		conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return "restarted", nil
		}
	}

	return "started but not yet accepting connections", nil
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
