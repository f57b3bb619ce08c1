package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(segs []segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.text
	}
	return out
}

func TestSplitCompound(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{name: "single", command: "ls -la", want: []string{"ls -la"}},
		{name: "and", command: "make && make install", want: []string{"make", "make install"}},
		{name: "or and seq", command: "a || b; c", want: []string{"a", "b", "c"}},
		{name: "pipe", command: "cat f | grep x | wc -l", want: []string{"cat f", "grep x", "wc -l"}},
		{name: "quoted operators", command: `echo "a && b; c | d" 'e || f'`, want: []string{`echo "a && b; c | d" 'e || f'`}},
		{name: "escaped semicolon", command: `find . -exec rm {} \;`, want: []string{`find . -exec rm {} \;`}},
		{name: "fd redirect is not background", command: "cmd > out 2>&1 && next", want: []string{"cmd > out 2>&1", "next"}},
		{name: "background", command: "sleep 10 & echo started", want: []string{"sleep 10", "echo started"}},
		{name: "substitution", command: "echo $(whoami)", want: []string{"whoami", "echo $(whoami)"}},
		{name: "backticks", command: "echo `id -u`", want: []string{"id -u", "echo `id -u`"}},
		{name: "newline", command: "ls\npwd", want: []string{"ls", "pwd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := splitCompound(tt.command)
			require.NoError(t, err)
			assert.Equal(t, tt.want, texts(segs))
		})
	}
}

func TestSplitCompound_PipelineGrouping(t *testing.T) {
	segs, err := splitCompound("curl x | sh; echo ok")
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, segs[0].pipeline, segs[1].pipeline)
	assert.Equal(t, opPipe, segs[1].op)
	assert.NotEqual(t, segs[1].pipeline, segs[2].pipeline)
}

func TestSplitCompound_Malformed(t *testing.T) {
	segs, err := splitCompound(`echo "open && rm x`)
	assert.ErrorIs(t, err, errUnterminatedQuote)
	assert.NotEmpty(t, segs)

	_, err = splitCompound("echo $(ls")
	assert.ErrorIs(t, err, errUnbalancedSubst)
}

func TestParseCommand(t *testing.T) {
	cmd := parseCommand("sudo -u root FOO=bar nice -n 5 rm -rf /tmp/x > log.txt 2>&1")
	assert.Equal(t, "rm", cmd.verb)
	assert.Equal(t, []string{"-rf", "/tmp/x"}, cmd.args)
	assert.Equal(t, []string{"sudo", "nice"}, cmd.wrappers)
	require.Len(t, cmd.redirects, 1)
	assert.Equal(t, redirect{op: ">", target: "log.txt"}, cmd.redirects[0])
}

func TestSplitSequence(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{command: "mkdir build && cd build; cmake ..", want: []string{"mkdir build", "cd build", "cmake .."}},
		{command: "cat f | grep x || echo none", want: []string{"cat f | grep x || echo none"}},
		{command: `echo "a; b" && echo $(date; uptime)`, want: []string{`echo "a; b"`, "echo $(date; uptime)"}},
		{command: `find . -exec rm {} \; && ls`, want: []string{`find . -exec rm {} \;`, "ls"}},
		{command: "ls\npwd\n", want: []string{"ls", "pwd"}},
		{command: `echo "open; rm x`, want: []string{`echo "open; rm x`}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitSequence(tt.command), tt.command)
	}
}
