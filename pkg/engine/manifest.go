package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/start-out/starter/pkg/report"
	"github.com/start-out/starter/pkg/vars"
)

// RunManifest records the metadata of one run. Written as run.yaml next to
// the trace after the run completes (or fails).
type RunManifest struct {
	RunID       string            `yaml:"run_id"`
	Starterfile string            `yaml:"starterfile"`
	Platform    string            `yaml:"platform"`
	Mode        string            `yaml:"mode"` // real, dry-run
	StartedAt   string            `yaml:"started_at"`
	EndedAt     string            `yaml:"ended_at"`
	Summary     RunSummary        `yaml:"summary"`
	Vars        map[string]string `yaml:"vars,omitempty"` // sensitive values redacted
}

// RunSummary counts entity outcomes by status.
type RunSummary struct {
	Total        int `yaml:"total"`
	Installed    int `yaml:"installed"`
	Skipped      int `yaml:"skipped"`
	Failed       int `yaml:"failed"`
	NotAttempted int `yaml:"not_attempted"`
}

func buildManifest(run *report.Run, store *vars.Store, mode string) *RunManifest {
	counts := run.Counts()
	m := &RunManifest{
		RunID:       run.ID,
		Starterfile: run.Starterfile,
		Platform:    run.Platform,
		Mode:        mode,
		StartedAt:   run.Started.Format(time.RFC3339),
		EndedAt:     run.Finished.Format(time.RFC3339),
		Summary: RunSummary{
			Total:        len(run.Entities),
			Installed:    counts[report.StatusInstalled] + counts[report.StatusLive],
			Skipped:      counts[report.StatusSkipped] + counts[report.StatusSkippedOptional] + counts[report.StatusAltNotChosen],
			Failed:       counts[report.StatusFailed],
			NotAttempted: counts[report.StatusNotAttempted],
		},
		Vars: map[string]string{},
	}
	for name, value := range store.Snapshot() {
		if vars.Sensitive(name, value) {
			m.Vars[name] = "<redacted>"
		} else {
			m.Vars[name] = value
		}
	}
	return m
}

// WriteManifest serializes the manifest as run.yaml in dir.
func WriteManifest(dir string, m *RunManifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal run manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "run.yaml"), data, 0o644)
}
