// Package audit appends every decision to a log file under the user config
// directory. Logging is best-effort: a failure to record never affects the
// Decision itself.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const maxLoggedCommand = 200

// Dir returns the directory holding the decision log.
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "cmdguard")
}

// Record appends one decision entry. source identifies who decided
// (hook, daemon, check).
func Record(source, command, projectDir, decision, reason string) {
	logDir := Dir()
	os.MkdirAll(logDir, 0o755)

	f, err := os.OpenFile(filepath.Join(logDir, "decisions.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	if len(command) > maxLoggedCommand {
		command = command[:maxLoggedCommand] + "..."
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] %s id=%s | source=%s | dir=%s | command=%s | reason=%s\n",
		timestamp, decision, uuid.NewString(), source, projectDir, command, reason)
}
