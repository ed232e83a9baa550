package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/start-out/starter/pkg/graph"
	"github.com/start-out/starter/pkg/platform"
	"github.com/start-out/starter/pkg/report"
)

// altState tracks one alt group's resolution. Groups resolve at most once
// per run, on the first member the scheduler reaches, so concurrent waves
// go through sync.Once.
type altState struct {
	once sync.Once

	mu        sync.Mutex
	live      string
	failed    bool
	outcomes  map[string]report.Status
	lastError map[string]string
}

func (s *altState) isLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live != ""
}

// Live returns the live member's name, or "".
func (s *altState) Live() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// resolveGroup runs the check → install → recheck sequence over the group's
// members in chain order until one goes live. Resolution is idempotent;
// every member's processNode call lands here but only the first does work.
func (e *Engine) resolveGroup(ctx context.Context, g *graph.AltGroup) {
	st := e.groups[g]
	st.once.Do(func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		st.outcomes = map[string]report.Status{}
		st.lastError = map[string]string{}

		for _, name := range g.Members {
			n := e.plan.Node(name)
			live, why := e.probeMember(ctx, n)
			if live {
				st.live = name
				st.outcomes[name] = report.StatusLive
				// Members after the live one are never attempted.
				for _, rest := range g.Members {
					if _, done := st.outcomes[rest]; !done {
						st.outcomes[rest] = report.StatusAltNotChosen
					}
				}
				return
			}
			st.outcomes[name] = report.StatusAltNotChosen
			st.lastError[name] = why
		}

		// Every member exhausted its attempts.
		st.failed = true
		for _, name := range g.Members {
			st.outcomes[name] = report.StatusFailed
		}
	})
}

// probeMember tries to make one member live: check, then install and one
// recheck. Returns why the member stayed dead when live is false.
func (e *Engine) probeMember(ctx context.Context, n *graph.Node) (live bool, why string) {
	if e.opts.DryRun {
		// No probing in dry-run: record the first member's install as the
		// work that would happen and call it live.
		if _, err := e.runPhase(ctx, n.Tool.Scripts, platform.PhaseInstall, e.sf.Dir, nil); err != nil {
			return false, err.Error()
		}
		return true, ""
	}

	res, err := e.runPhase(ctx, n.Tool.Scripts, platform.PhaseCheck, e.sf.Dir, nil)
	if err != nil {
		return false, err.Error()
	}
	if res.ExitCode == 0 {
		return true, ""
	}

	res, err = e.runPhase(ctx, n.Tool.Scripts, platform.PhaseInstall, e.sf.Dir, nil)
	if err != nil {
		return false, err.Error()
	}
	if res.ExitCode != 0 {
		return false, fmt.Sprintf("install exited %d", res.ExitCode)
	}

	res, err = e.runPhase(ctx, n.Tool.Scripts, platform.PhaseCheck, e.sf.Dir, nil)
	if err != nil {
		return false, err.Error()
	}
	if res.ExitCode != 0 {
		return false, "check still failing after install"
	}
	e.markInstalled(n)
	return true, ""
}

// foldGroupOutcome translates the resolved group state into the member's
// report entry.
func (e *Engine) foldGroupOutcome(g *graph.AltGroup, n *graph.Node, entity *report.Entity) {
	st := e.groups[g]
	st.mu.Lock()
	defer st.mu.Unlock()

	entity.Status = st.outcomes[n.Name]
	switch {
	case st.failed:
		entity.Detail = "alt group exhausted"
		if why := st.lastError[n.Name]; why != "" {
			entity.Detail = why
		}
	case entity.Status == report.StatusLive:
		entity.Detail = "live member of alt group"
	case entity.Status == report.StatusAltNotChosen:
		entity.Detail = st.live + " is live"
	}
}
