package providers

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/start-out/starter/pkg/platform"
	"github.com/start-out/starter/pkg/schema"
)

// CloneMaterializer brings module sources into existence: git sources are
// cloned, script sources run their fetch command. Both paths go through the
// configured runner, so a DryRunRunner makes materialization a no-op too.
type CloneMaterializer struct {
	Runner ScriptRunner
}

// DestExists reports whether the destination is already materialized. The
// engine skips materialization for existing destinations so repeated runs
// never re-clone over a working tree.
func DestExists(dest string) bool {
	info, err := os.Stat(dest)
	return err == nil && info.IsDir()
}

// Materialize fetches src into dest, running in dir (the Starterfile's
// directory) so relative destinations land next to the Starterfile. On
// success dest exists.
func (m *CloneMaterializer) Materialize(ctx context.Context, src schema.Source, dest, dir string, env []string) (*RunResult, error) {
	var cmd platform.Command
	switch {
	case src.Git != "":
		cmd = platform.Command{Text: fmt.Sprintf("git clone --progress %q %q", src.Git, dest)}
	case src.Script != "":
		cmd = platform.Command{Text: src.Script}
	default:
		return nil, fmt.Errorf("module source has neither git nor script")
	}

	// The fetch command sees the destination so script sources can honor it.
	env = append(append([]string{}, env...), "STARTER_DEST="+dest)
	result, err := m.Runner.Run(ctx, cmd, dir, env)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return result, &ExitError{Command: cmd.Text, ExitCode: result.ExitCode, Output: result.Output()}
	}
	// A fetch command that exits 0 without producing the destination is a
	// failure; init would otherwise run in a directory that is not there.
	if !DestExists(dest) {
		return result, fmt.Errorf("materialize: %s does not exist after %q", dest, cmd.Text)
	}
	return result, nil
}

// DryRunMaterializer records destinations without fetching anything. Backs
// dry-run mode, where the verification a real fetch gets does not apply.
type DryRunMaterializer struct {
	mu    sync.Mutex
	dests []string
}

func (m *DryRunMaterializer) Materialize(_ context.Context, src schema.Source, dest, _ string, _ []string) (*RunResult, error) {
	m.mu.Lock()
	m.dests = append(m.dests, dest)
	m.mu.Unlock()
	what := src.Git
	if what == "" {
		what = src.Script
	}
	return &RunResult{Stdout: fmt.Sprintf("[dry-run] would materialize %s from %s", dest, what)}, nil
}

// Dests returns the destinations recorded so far.
func (m *DryRunMaterializer) Dests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.dests))
	copy(out, m.dests)
	return out
}
