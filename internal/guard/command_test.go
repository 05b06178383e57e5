package guard

import (
	"reflect"
	"testing"
)

func TestNamesInSegment(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		want    []string
	}{
		{"simple command", "ls -la", []string{"ls"}},
		{"pipeline", "cat foo.txt | grep bar | wc -l", []string{"cat", "grep", "wc"}},
		{"full path normalized", "/usr/bin/python script.py", []string{"python"}},
		{"relative path normalized", "./scripts/start.sh", []string{"start.sh"}},
		{"env assignment prefix", "FOO=bar npm run build", []string{"npm"}},
		{"multiple assignments", "A=1 B=2 node server.js", []string{"node"}},
		{"if keyword skipped", "if test -f go.mod", []string{"test"}},
		{"while loop", "while read line", []string{"read"}},
		{"negation", "! grep -q error log.txt", []string{"grep"}},
		{"for loop variable skipped", "for f in a b c", nil},
		{"for loop with do", "for f in *.txt; do cat $f; done", []string{"cat"}},
		{"background operator", "sleep 5 & echo done", []string{"sleep", "echo"}},
		{"flags never commands", "-la", nil},
		{"glued semicolon resets", "do cat $f; done", []string{"cat"}},
		{"arguments not commands", "grep pattern file.txt other.txt", []string{"grep"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := namesInSegment(tt.segment)
			if err != nil {
				t.Fatalf("namesInSegment(%q) error: %v", tt.segment, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("namesInSegment(%q) = %v, want %v", tt.segment, got, tt.want)
			}
		})
	}
}

func TestCommandNames(t *testing.T) {
	got, err := commandNames("ls && cat a.txt | grep x; pwd")
	if err != nil {
		t.Fatalf("commandNames error: %v", err)
	}
	want := []string{"ls", "cat", "grep", "pwd"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("commandNames = %v, want %v", got, want)
	}
}
