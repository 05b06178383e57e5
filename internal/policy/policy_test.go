package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := Default()

	assert.True(t, p.CommandAllowed("ls"))
	assert.True(t, p.CommandAllowed("git"))
	assert.True(t, p.CommandAllowed("start.sh"))
	assert.False(t, p.CommandAllowed("sudo"))
	assert.False(t, p.CommandAllowed("ssh"))
	assert.False(t, p.CommandAllowed(""))

	assert.True(t, p.NeedsExtraValidation("rm"))
	assert.True(t, p.NeedsExtraValidation("kill"))
	assert.False(t, p.NeedsExtraValidation("ls"))

	assert.True(t, p.TerminateProcessAllowed("node"))
	assert.False(t, p.TerminateProcessAllowed("sshd"))

	assert.True(t, p.LifecycleScript("start.sh"))
	assert.False(t, p.LifecycleScript("evil.sh"))

	assert.True(t, p.SignalAllowed("TERM"))
	assert.True(t, p.SignalAllowed("9"))
	assert.True(t, p.SignalAllowed("SIGKILL"))
	assert.False(t, p.SignalAllowed("SEGV"))

	assert.Contains(t, p.SensitivePaths(), "/etc/passwd")
	assert.Contains(t, p.SensitivePaths(), "~/.ssh")
}

func TestLoadOverridesOneList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allowed_commands:\n  - ls\n  - deploytool\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)

	assert.True(t, p.CommandAllowed("deploytool"))
	assert.False(t, p.CommandAllowed("git"))
	// Unset lists keep their defaults.
	assert.True(t, p.NeedsExtraValidation("rm"))
	assert.True(t, p.SignalAllowed("TERM"))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allowed_commands: {not a list"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestFromFileEmptyIsDefault(t *testing.T) {
	p := FromFile(File{})
	assert.True(t, p.CommandAllowed("ls"))
	assert.True(t, p.NeedsExtraValidation("chmod"))
}
