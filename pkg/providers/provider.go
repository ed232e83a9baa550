// Package providers defines the ScriptRunner, PromptCollector and
// Materializer interfaces the engine consumes, and their real, dry-run and
// static implementations.
package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/start-out/starter/pkg/platform"
	"github.com/start-out/starter/pkg/schema"
)

// RunResult holds the output of a single script execution.
type RunResult struct {
	Command  string        `json:"command"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}

// Output returns the combined captured output for diagnostics.
func (r *RunResult) Output() string {
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	}
	return out + "\n" + errOut
}

// ExitError reports a script that ran and exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited %d", e.Command, e.ExitCode)
}

// ScriptRunner executes one lifecycle command. The sole side-effecting
// primitive of a run: every check, install, init and destroy goes through
// it. Implementations: ShellRunner, DryRunRunner.
type ScriptRunner interface {
	Run(ctx context.Context, cmd platform.Command, dir string, env []string) (*RunResult, error)
}

// PromptCollector resolves init option answers. Implementations:
// InteractiveCollector, DryRunCollector, StaticCollector.
type PromptCollector interface {
	// Ask collects a value for the prompt, coerced to the option's kind
	// and stringified for the variable store.
	Ask(ctx context.Context, opt schema.InitOption, promptText string) (string, error)
	// Confirm asks a yes/no question, used before persisting sensitive
	// values to disk.
	Confirm(ctx context.Context, question string, def bool) (bool, error)
}

// Materializer brings a module's source into existence at dest.
// Implementations: CloneMaterializer.
type Materializer interface {
	Materialize(ctx context.Context, src schema.Source, dest, dir string, env []string) (*RunResult, error)
}
