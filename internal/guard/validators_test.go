package guard

import (
	"testing"

	"github.com/victorarias/cmdguard/internal/policy"
)

func TestTerminateValidator(t *testing.T) {
	v := &terminateValidator{policy: policy.Default()}

	tests := []struct {
		name    string
		segment string
		wantOK  bool
	}{
		{"dev process", "pkill node", true},
		{"dev process with signal", "pkill -9 npm", true},
		{"full match flag", "pkill -f vite", true},
		{"full command line target", "pkill -f 'node server.js'", true},
		{"arbitrary process", "pkill sshd", false},
		{"no target", "pkill", false},
		{"no target only flags", "pkill -9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.segment)
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate(%q) error = %v, wantOK %v", tt.segment, err, tt.wantOK)
			}
		})
	}
}

func TestChmodValidator(t *testing.T) {
	v := &chmodValidator{}

	tests := []struct {
		name    string
		segment string
		wantOK  bool
	}{
		{"plus x", "chmod +x build.sh", true},
		{"user plus x", "chmod u+x run.sh", true},
		{"all plus x", "chmod a+x deploy.sh", true},
		{"multiple files", "chmod +x a.sh b.sh", true},
		{"numeric mode", "chmod 777 file", false},
		{"numeric restrictive", "chmod 644 file", false},
		{"minus mode", "chmod -x file", false},
		{"recursive flag", "chmod -R +x .", false},
		{"no files", "chmod +x", false},
		{"no mode", "chmod", false},
		{"write mode", "chmod +w file", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.segment)
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate(%q) error = %v, wantOK %v", tt.segment, err, tt.wantOK)
			}
		})
	}
}

func TestRmValidator(t *testing.T) {
	v := &rmValidator{}

	tests := []struct {
		name    string
		segment string
		wantOK  bool
	}{
		{"plain file", "rm old.txt", true},
		{"multiple files", "rm a.txt b.txt", true},
		{"force file", "rm -f build.log", true},
		{"recursive dir", "rm -rf build", true},
		{"recursive nested dir", "rm -rf ./dist/assets", true},
		{"root wildcard", "rm -rf /*", false},
		{"root", "rm -rf /", false},
		{"home dir", "rm -rf /home", false},
		{"etc", "rm -rf /etc", false},
		{"parent wildcard", "rm -rf ../*", false},
		{"hidden glob", "rm -rf .*", false},
		{"home glob", "rm -rf ~/*", false},
		{"recursive wildcard", "rm -rf build/*", false},
		{"wildcard without recursive", "rm *.log", true},
		{"recursive parent traversal", "rm -r foo/..", false},
		{"no target", "rm -rf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.segment)
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate(%q) error = %v, wantOK %v", tt.segment, err, tt.wantOK)
			}
		})
	}
}

func TestRmdirValidator(t *testing.T) {
	v := &rmdirValidator{}

	tests := []struct {
		name    string
		segment string
		wantOK  bool
	}{
		{"plain dir", "rmdir empty", true},
		{"nested dir", "rmdir build/tmp", true},
		{"root", "rmdir /", false},
		{"dot", "rmdir .", false},
		{"home", "rmdir ~", false},
		{"parent traversal", "rmdir ../other", false},
		{"explicit relative ok", "rmdir ./sub/dir", true},
		{"no target", "rmdir", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.segment)
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate(%q) error = %v, wantOK %v", tt.segment, err, tt.wantOK)
			}
		})
	}
}

func TestKillValidator(t *testing.T) {
	v := &killValidator{policy: policy.Default()}

	tests := []struct {
		name    string
		segment string
		wantOK  bool
	}{
		{"term high pid", "kill -TERM 5000", true},
		{"sigkill high pid", "kill -9 5000", true},
		{"plain pid", "kill 12345", true},
		{"s flag signal", "kill -s TERM 4321", true},
		{"list signals", "kill -l", true},
		{"job spec", "kill %1", true},
		{"variable pid tolerated", "kill $SERVER_PID", true},
		{"init", "kill -9 1", false},
		{"system pid", "kill -9 50", false},
		{"negative pid", "kill -TERM -- -123", false},
		{"disallowed signal", "kill -SEGV 5000", false},
		{"no pid", "kill", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.segment)
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate(%q) error = %v, wantOK %v", tt.segment, err, tt.wantOK)
			}
		})
	}
}

func TestDockerValidator(t *testing.T) {
	v := &dockerValidator{}

	tests := []struct {
		name    string
		segment string
		wantOK  bool
	}{
		{"plain run", "docker run -p 8080:80 myapp", true},
		{"project volume", "docker run -v ./data:/data myapp", true},
		{"root mount", "docker run -v /:/host myapp", false},
		{"etc mount", "docker run --volume /etc:/etc myapp", false},
		{"home mount", "docker run -v /home:/home myapp", false},
		{"build", "docker build -t myapp .", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.segment)
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate(%q) error = %v, wantOK %v", tt.segment, err, tt.wantOK)
			}
		})
	}
}

func TestSystemctlValidator(t *testing.T) {
	v := &systemctlValidator{}

	tests := []struct {
		name    string
		segment string
		wantOK  bool
	}{
		{"status", "systemctl status nginx", true},
		{"is-active", "systemctl is-active postgresql", true},
		{"list units", "systemctl list-units --type service", true},
		{"user flag then status", "systemctl --user status myapp", true},
		{"restart", "systemctl restart nginx", false},
		{"stop", "systemctl stop nginx", false},
		{"enable", "systemctl enable nginx", false},
		{"bare", "systemctl", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.segment)
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate(%q) error = %v, wantOK %v", tt.segment, err, tt.wantOK)
			}
		})
	}
}

func TestScriptValidator(t *testing.T) {
	v := &scriptValidator{policy: policy.Default()}

	tests := []struct {
		name    string
		segment string
		wantOK  bool
	}{
		{"dot slash", "./start.sh", true},
		{"subdirectory", "./scripts/start.sh", true},
		{"with args", "./stop.sh --force", true},
		{"bare name", "start.sh", false},
		{"unmanaged script", "./evil.sh", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.segment)
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate(%q) error = %v, wantOK %v", tt.segment, err, tt.wantOK)
			}
		})
	}
}
