// pkg/suggest/cli.go
package suggest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIRunner invokes the inference service through its local command,
// feeding the prompt on standard input and reading the reply from
// standard output. Every invocation is bounded by a hard wall-clock
// timeout regardless of the caller's context.
type CLIRunner struct {
	// Path is the executable to run, "ollama" by default.
	Path string

	// Model is passed as the run argument.
	Model string

	Timeout time.Duration
}

func (r *CLIRunner) path() string {
	if r.Path == "" {
		return "ollama"
	}
	return r.Path
}

// Run executes the command once and returns its trimmed output.
func (r *CLIRunner) Run(ctx context.Context, prompt string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.path(), "run", r.Model)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("inference command timed out after %s", timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("inference command failed: %w", err)
		}
		return "", fmt.Errorf("inference command failed: %s", truncate(msg, 500))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("inference command produced no output")
	}
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
