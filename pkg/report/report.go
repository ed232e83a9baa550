// Package report aggregates per-entity outcomes of a run and renders the
// final summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/start-out/starter/pkg/platform"
)

// Status is the final outcome of one tool or module.
type Status string

const (
	// StatusInstalled means install or materialize+init completed.
	StatusInstalled Status = "installed"
	// StatusSkipped means check succeeded, nothing to do.
	StatusSkipped Status = "skipped"
	// StatusSkippedOptional means an optional tool failed and was skipped.
	StatusSkippedOptional Status = "skipped_optional_failure"
	// StatusAltNotChosen means another member of the alt group went live.
	StatusAltNotChosen Status = "alt_not_chosen"
	// StatusLive means the entity is the live member of its alt group.
	StatusLive Status = "live"
	// StatusFailed means a required phase exited non-zero or errored.
	StatusFailed Status = "failed"
	// StatusNotAttempted means a dependency failed before this entity ran.
	StatusNotAttempted Status = "not_attempted"
)

// Blocking reports whether the status leaves dependents unsatisfied.
// Dependents of a non-live alt member are never evaluated, so
// StatusAltNotChosen blocks too.
func (s Status) Blocking() bool {
	switch s {
	case StatusFailed, StatusNotAttempted, StatusSkippedOptional, StatusAltNotChosen:
		return true
	}
	return false
}

// Entity is one tool or module's outcome.
type Entity struct {
	Name     string        `json:"name"`
	Kind     string        `json:"kind"` // tool, module
	Status   Status        `json:"status"`
	Detail   string        `json:"detail,omitempty"`  // live member, blocking dependency
	Command  string        `json:"command,omitempty"` // offending command on failure
	Output   string        `json:"output,omitempty"`  // captured output on failure
	Duration time.Duration `json:"duration,omitempty"`
}

// Run collects entity outcomes as the engine produces them. Safe for
// concurrent writes from parallel waves.
type Run struct {
	ID          string    `json:"id"`
	Starterfile string    `json:"starterfile"`
	Platform    string    `json:"platform"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`

	mu       sync.Mutex
	Entities []*Entity `json:"entities"`
}

// Record appends an outcome.
func (r *Run) Record(e *Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entities = append(r.Entities, e)
}

// Entity returns the recorded outcome for name, or nil.
func (r *Run) Entity(name string) *Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Entities {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Failed reports whether any entity ended in StatusFailed.
func (r *Run) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Entities {
		if e.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Counts tallies outcomes by status.
func (r *Run) Counts() map[Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[Status]int{}
	for _, e := range r.Entities {
		out[e.Status]++
	}
	return out
}

var (
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleSkip   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleFail   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleHeader = lipgloss.NewStyle().Bold(true)
	styleDetail = lipgloss.NewStyle().Faint(true)
)

func glyph(s Status) string {
	switch s {
	case StatusInstalled, StatusLive:
		return styleOK.Render("✓")
	case StatusSkipped, StatusAltNotChosen:
		return styleSkip.Render("⊘")
	case StatusSkippedOptional:
		return styleSkip.Render("~")
	case StatusFailed:
		return styleFail.Render("✗")
	}
	return styleSkip.Render("·")
}

// commandLabel keeps the summary table one line per command: block scripts
// show their first line with a continuation marker.
func commandLabel(cmd string) string {
	if !(platform.Command{Text: cmd}).Multiline() {
		return cmd
	}
	first, _, _ := strings.Cut(strings.TrimSpace(cmd), "\n")
	return first + " …"
}

// Render writes the human-readable run summary: one line per entity in
// recorded order, captured output for failures, and the status tally.
func Render(w io.Writer, r *Run) {
	fmt.Fprintln(w, styleHeader.Render(fmt.Sprintf("Run %s (%s)", r.ID, r.Platform)))

	r.mu.Lock()
	entities := append([]*Entity{}, r.Entities...)
	r.mu.Unlock()

	nameWidth := 0
	for _, e := range entities {
		if w := runewidth.StringWidth(e.Name); w > nameWidth {
			nameWidth = w
		}
	}

	for _, e := range entities {
		line := fmt.Sprintf("  %s %s  %s", glyph(e.Status), runewidth.FillRight(e.Name, nameWidth), e.Status)
		if e.Detail != "" {
			line += " " + styleDetail.Render("("+e.Detail+")")
		}
		fmt.Fprintln(w, line)
		if e.Status == StatusFailed && e.Command != "" {
			fmt.Fprintf(w, "      command: %s\n", commandLabel(e.Command))
			for _, out := range strings.Split(strings.TrimSpace(e.Output), "\n") {
				if out != "" {
					fmt.Fprintf(w, "      %s\n", out)
				}
			}
		}
	}

	counts := r.Counts()
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, fmt.Sprintf("%d %s", counts[Status(s)], s))
	}
	if !r.Finished.IsZero() {
		fmt.Fprintf(w, "  %s in %s\n", strings.Join(parts, ", "), r.Finished.Sub(r.Started).Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, ", "))
	}
}
