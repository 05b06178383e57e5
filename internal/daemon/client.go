package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"
)

// Query sends a request to the daemon, auto-starting it if needed.
func Query(req Request) (*Response, error) {
	socketPath := DefaultSocketPath()

	resp, err := Send(socketPath, req)
	if err == nil {
		return resp, nil
	}

	if startErr := StartProcess(); startErr != nil {
		return nil, fmt.Errorf("failed to start daemon: %w", startErr)
	}

	// Give the daemon up to 2s to come up.
	for i := 0; i < 10; i++ {
		time.Sleep(200 * time.Millisecond)
		resp, err = Send(socketPath, req)
		if err == nil {
			return resp, nil
		}
	}

	return nil, fmt.Errorf("daemon not available after retries: %w", err)
}

// Send sends a single request to the daemon socket and reads the response.
func Send(socketPath string, req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(10 * time.Second))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &resp, nil
}

// StartProcess starts the daemon as a detached background process.
func StartProcess() error {
	exePath, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(exePath, "daemon")
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	return cmd.Start()
}
