package scripts

import (
	"bytes"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func runScript(t *testing.T, name string, args ...string) (string, string, error) {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	scriptPath := filepath.Join(filepath.Dir(thisFile), name)

	cmd := exec.Command("bash", append([]string{scriptPath}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func TestStackScriptDryRun(t *testing.T) {
	cases := []struct {
		command  string
		expected []string
	}{
		{
			command: "up",
			expected: []string{
				"[dry-run] docker compose",
				"[dry-run] cd",
				"[dry-run] nohup env",
				"stack is up",
			},
		},
		{
			command: "down",
			expected: []string{
				"[dry-run] pkill",
				"[dry-run] cd",
				"[dry-run] docker compose",
				"stack is down",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.command, func(t *testing.T) {
			stdout, stderr, err := runScript(t, "stack.sh", tc.command, "--dry-run")
			if err != nil {
				t.Fatalf("stack %s dry-run failed: %v\nstdout:\n%s\nstderr:\n%s", tc.command, err, stdout, stderr)
			}
			for _, token := range tc.expected {
				if !strings.Contains(stdout, token) {
					t.Fatalf("output missing %q\noutput:\n%s", token, stdout)
				}
			}
		})
	}
}

func TestStackScriptRejectsUnknownCommand(t *testing.T) {
	_, stderr, err := runScript(t, "stack.sh", "not-a-command")
	if err == nil {
		t.Fatal("expected non-zero exit for unknown command")
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Fatalf("stderr missing unknown command message:\n%s", stderr)
	}
}

func TestStackScriptRequiresCommand(t *testing.T) {
	_, stderr, err := runScript(t, "stack.sh")
	if err == nil {
		t.Fatal("expected non-zero exit when no command given")
	}
	if !strings.Contains(stderr, "usage:") {
		t.Fatalf("stderr missing usage:\n%s", stderr)
	}
}
