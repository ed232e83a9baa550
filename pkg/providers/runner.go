package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/start-out/starter/pkg/platform"
)

// ShellRunner executes commands through the platform shell. Single-line and
// block commands both run in one shell invocation, so directory changes
// inside a block persist across its lines.
type ShellRunner struct {
	// Echo mirrors script output while it is captured. Nil keeps scripts
	// silent except in the final report.
	Echo io.Writer
}

// Run executes cmd in dir with the given environment.
func (r *ShellRunner) Run(ctx context.Context, cmd platform.Command, dir string, env []string) (*RunResult, error) {
	name, args := shellFor(cmd.Text)
	start := time.Now()

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	if len(env) > 0 {
		c.Env = env
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if r.Echo != nil {
		c.Stdout = io.MultiWriter(&stdout, r.Echo)
		c.Stderr = io.MultiWriter(&stderr, r.Echo)
	}

	err := c.Run()
	result := &RunResult{
		Command:  cmd.Text,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("run command %q: %w", cmd.Text, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// shellFor picks the shell invocation for the current platform. Windows
// prefers pwsh and falls back to Windows PowerShell; everything else uses
// the POSIX shell.
func shellFor(text string) (string, []string) {
	if runtime.GOOS == "windows" {
		shell := "pwsh"
		if _, err := exec.LookPath(shell); err != nil {
			shell = "powershell"
		}
		return shell, []string{"-NoProfile", "-Command", text}
	}
	return "sh", []string{"-c", text}
}

// DryRunRunner records every command without executing anything and
// reports success. Backs the --dry-run flag and the plan surfaces.
type DryRunRunner struct {
	mu       sync.Mutex
	commands []string
}

func (r *DryRunRunner) Run(_ context.Context, cmd platform.Command, dir string, _ []string) (*RunResult, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd.Text)
	r.mu.Unlock()
	return &RunResult{
		Command: cmd.Text,
		Stdout:  fmt.Sprintf("[dry-run] would run in %s: %s", dir, cmd.Text),
	}, nil
}

// Commands returns the commands recorded so far.
func (r *DryRunRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.commands))
	copy(out, r.commands)
	return out
}
