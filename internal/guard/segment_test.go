package guard

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitSegments(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{"single command", "ls -la", []string{"ls -la"}},
		{"semicolon chain", "ls; pwd", []string{"ls", "pwd"}},
		{"and chain", "mkdir build && cd build", []string{"mkdir build", "cd build"}},
		{"or chain", "test -f a || touch a", []string{"test -f a", "touch a"}},
		{"mixed operators", "ls; pwd && echo ok || echo no", []string{"ls", "pwd", "echo ok", "echo no"}},
		{"pipe stays in segment", "cat foo.txt | grep bar", []string{"cat foo.txt | grep bar"}},
		{"semicolon in single quotes", "echo 'a;b'", []string{"echo 'a;b'"}},
		{"and in double quotes", `echo "a && b"`, []string{`echo "a && b"`}},
		{"escaped semicolon", `find . -name '*.go' -exec rm {} \;`, []string{`find . -name '*.go' -exec rm {} \;`}},
		{"empty segments dropped", "ls;; pwd", []string{"ls", "pwd"}},
		{"leading and trailing whitespace", "  ls  ;  pwd  ", []string{"ls", "pwd"}},
		{"background ampersand kept", "sleep 5 & echo done", []string{"sleep 5 & echo done"}},
		{"empty string", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitSegments(tt.command)
			if err != nil {
				t.Fatalf("SplitSegments(%q) error: %v", tt.command, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSegments(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}

func TestSplitSegmentsUnterminatedQuote(t *testing.T) {
	for _, command := range []string{"echo 'abc", `echo "abc`, "echo 'a && b"} {
		_, err := SplitSegments(command)
		if !errors.Is(err, ErrUnterminatedQuote) {
			t.Errorf("SplitSegments(%q) error = %v, want ErrUnterminatedQuote", command, err)
		}
	}
}
