package filesystem

import (
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: filepath.Join("/home/tester", AppDirName, "policy.yaml")},
		{in: "~", want: "/home/tester"},
		{in: "~/rules.yaml", want: "/home/tester/rules.yaml"},
		{in: "$HOME/x/y", want: "/home/tester/x/y"},
		{in: "/etc/aishell/policy.yaml", want: "/etc/aishell/policy.yaml"},
		{in: "relative.yaml", want: "/home/tester/relative.yaml"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in, "policy.yaml"); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
