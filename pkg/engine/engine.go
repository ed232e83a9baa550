// Package engine drives the resolve-and-execute lifecycle: it turns a
// validated Starterfile into a plan, runs each entity's phases in
// dependency order, and aggregates outcomes into a run report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/expr-lang/expr"

	"github.com/start-out/starter/pkg/graph"
	"github.com/start-out/starter/pkg/platform"
	"github.com/start-out/starter/pkg/providers"
	"github.com/start-out/starter/pkg/report"
	"github.com/start-out/starter/pkg/schema"
	"github.com/start-out/starter/pkg/vars"
)

// Options configures an engine. Zero values get sensible defaults in New.
type Options struct {
	Runner       providers.ScriptRunner
	Collector    providers.PromptCollector
	Materializer providers.Materializer
	Store        *vars.Store
	Platform     platform.Platform

	// Concurrency bounds the workers per wave. 1 (the default) preserves
	// strict declaration order.
	Concurrency int
	// DryRun skips probes and records every mutating command instead of
	// executing it. Pair with DryRunRunner.
	DryRun bool
	// Timeout aborts entities not yet started when it elapses. Running
	// scripts are never killed.
	Timeout time.Duration
	// Rollback uninstalls/destroys newly installed entities, in reverse
	// completion order, when the run ends with a failure.
	Rollback bool
	// TraceDir receives <run-id>/trace.jsonl and run.yaml. Empty disables
	// tracing.
	TraceDir string

	Out      io.Writer
	Observer Observer
}

// Engine executes one Starterfile.
type Engine struct {
	sf    *schema.Starterfile
	plan  *graph.Plan
	opts  Options
	store *vars.Store

	mu        sync.Mutex
	statuses  map[string]report.Status
	installed []*graph.Node // newly installed this run, completion order
	groups    map[*graph.AltGroup]*altState

	run   *report.Run
	trace *TraceWriter
}

// New resolves the Starterfile's graph and prepares an engine. Graph errors
// surface here, before anything runs.
func New(sf *schema.Starterfile, opts Options) (*Engine, error) {
	plan, err := graph.Resolve(sf)
	if err != nil {
		return nil, err
	}
	if opts.Store == nil {
		opts.Store = vars.NewStore()
	}
	if opts.Platform == "" {
		opts.Platform = platform.Current()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Runner == nil {
		opts.Runner = &providers.ShellRunner{}
	}
	if opts.Collector == nil {
		opts.Collector = &providers.InteractiveCollector{}
	}
	if opts.Materializer == nil {
		if opts.DryRun {
			opts.Materializer = &providers.DryRunMaterializer{}
		} else {
			opts.Materializer = &providers.CloneMaterializer{Runner: opts.Runner}
		}
	}

	e := &Engine{
		sf:       sf,
		plan:     plan,
		opts:     opts,
		store:    opts.Store,
		statuses: map[string]report.Status{},
		groups:   map[*graph.AltGroup]*altState{},
	}
	for _, g := range plan.Groups {
		e.groups[g] = &altState{}
	}
	return e, nil
}

// Plan exposes the resolved plan for the plan and diagram commands.
func (e *Engine) Plan() *graph.Plan {
	return e.plan
}

// Up runs the full resolve-and-install sequence: seed env files, execute
// every wave, then write the env dump, rewrite replacement files and emit
// trace and manifest. The returned run is complete even when err is
// non-nil; err reports run-level problems, not per-entity failures.
func (e *Engine) Up(ctx context.Context) (*report.Run, error) {
	e.run = &report.Run{
		ID:          GenerateRunID(),
		Starterfile: e.sf.Path,
		Platform:    string(e.opts.Platform),
		Started:     time.Now(),
	}

	if err := e.seedEnvFiles(); err != nil {
		return e.run, err
	}
	if err := e.openTrace(); err != nil {
		return e.run, err
	}
	defer e.trace.Close()

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	for _, wave := range e.plan.Waves {
		e.runWave(ctx, wave)
	}

	if err := e.finalize(ctx); err != nil {
		fmt.Fprintf(e.opts.Out, "warning: %v\n", err)
	}
	if e.opts.Rollback && e.run.Failed() {
		e.rollback(ctx)
	}

	e.run.Finished = time.Now()
	if err := e.writeManifest(); err != nil {
		fmt.Fprintf(e.opts.Out, "warning: %v\n", err)
	}
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return e.run, fmt.Errorf("run timed out after %s", e.opts.Timeout)
	}
	return e.run, nil
}

// runWave executes one wave, sequentially or with a bounded worker pool.
// Entities in a wave have no edges among each other, so only the variable
// store needs cross-worker serialization and it locks internally.
func (e *Engine) runWave(ctx context.Context, wave []*graph.Node) {
	workers := e.opts.Concurrency
	if workers <= 1 || len(wave) == 1 {
		for _, n := range wave {
			e.processNode(ctx, n)
		}
		return
	}
	if workers > len(wave) {
		workers = len(wave)
	}

	jobs := make(chan *graph.Node)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				e.processNode(ctx, n)
			}
		}()
	}
	for _, n := range wave {
		jobs <- n
	}
	close(jobs)
	wg.Wait()
}

func (e *Engine) processNode(ctx context.Context, n *graph.Node) {
	kind := "module"
	if n.IsTool() {
		kind = "tool"
	}
	entity := &report.Entity{Name: n.Name, Kind: kind}
	started := time.Now()
	defer func() {
		entity.Duration = time.Since(started)
		e.record(n, entity)
	}()

	if ctx.Err() != nil {
		entity.Status = report.StatusNotAttempted
		entity.Detail = "run timed out"
		return
	}
	if blocker := e.blockedBy(n); blocker != "" {
		entity.Status = report.StatusNotAttempted
		entity.Detail = "blocked by " + blocker
		return
	}

	skip, err := e.evalSkipIf(n)
	if err != nil {
		e.fail(entity, err)
		return
	}
	if skip {
		entity.Status = report.StatusSkipped
		entity.Detail = "skip_if"
		return
	}

	e.emit(Event{Type: EventStarted, Entity: n.Name})
	fmt.Fprintf(e.opts.Out, "▶ %s\n", n.Name)

	if n.IsTool() {
		e.processTool(ctx, n, entity)
	} else {
		e.processModule(ctx, n, entity)
	}
}

// blockedBy returns the name of an unsatisfied dependency, or "". A
// dependency inside an alt group is satisfied when the group is live,
// regardless of which member went live.
func (e *Engine) blockedBy(n *graph.Node) string {
	for _, dep := range n.Deps() {
		if g := e.plan.GroupFor(dep); g != nil {
			st := e.groups[g]
			if !st.isLive() {
				return dep
			}
			continue
		}
		e.mu.Lock()
		status := e.statuses[dep]
		e.mu.Unlock()
		if status.Blocking() {
			return dep
		}
	}
	return ""
}

func (e *Engine) evalSkipIf(n *graph.Node) (bool, error) {
	cond := ""
	if n.IsTool() {
		cond = n.Tool.SkipIf
	} else {
		cond = n.Module.SkipIf
	}
	if cond == "" {
		return false, nil
	}

	env := map[string]any{}
	for k, v := range e.store.Snapshot() {
		env[k] = v
	}
	program, err := expr.Compile(cond, expr.Env(env), expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return false, fmt.Errorf("compile skip_if %q: %w", cond, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval skip_if %q: %w", cond, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("skip_if %q did not return bool (got %T)", cond, out)
	}
	return result, nil
}

func (e *Engine) processTool(ctx context.Context, n *graph.Node, entity *report.Entity) {
	if g := e.plan.GroupFor(n.Name); g != nil {
		e.resolveGroup(ctx, g)
		e.foldGroupOutcome(g, n, entity)
		return
	}

	needsInstall := true
	if !e.opts.DryRun {
		res, err := e.runPhase(ctx, n.Tool.Scripts, platform.PhaseCheck, e.sf.Dir, nil)
		if err != nil {
			e.toolFailure(entity, n, err)
			return
		}
		needsInstall = res.ExitCode != 0
	}
	if !needsInstall {
		entity.Status = report.StatusSkipped
		entity.Detail = "check passed"
		return
	}

	res, err := e.runPhase(ctx, n.Tool.Scripts, platform.PhaseInstall, e.sf.Dir, nil)
	if err != nil {
		e.toolFailure(entity, n, err)
		return
	}
	if res.ExitCode != 0 {
		e.toolFailure(entity, n, &providers.ExitError{
			Command: res.Command, ExitCode: res.ExitCode, Output: res.Output(),
		})
		return
	}
	entity.Status = report.StatusInstalled
	e.markInstalled(n)
}

// toolFailure applies the mode policy: optional tools convert any failure
// into a non-fatal skip.
func (e *Engine) toolFailure(entity *report.Entity, n *graph.Node, err error) {
	if n.Tool.Mode == schema.ModeOptional {
		entity.Status = report.StatusSkippedOptional
		entity.Detail = err.Error()
		return
	}
	e.fail(entity, err)
}

func (e *Engine) processModule(ctx context.Context, n *graph.Node, entity *report.Entity) {
	m := n.Module

	for _, opt := range m.InitOptions {
		if _, ok := e.store.Get(opt.EnvName); ok {
			continue
		}
		promptText, err := e.store.Expand(opt.Prompt)
		if err != nil {
			e.fail(entity, err)
			return
		}
		value, err := e.opts.Collector.Ask(ctx, opt, promptText)
		if err != nil {
			e.fail(entity, fmt.Errorf("collect %s: %w", opt.EnvName, err))
			return
		}
		e.store.Set(opt.EnvName, value, "prompt:"+n.Name)
	}

	dest, err := e.store.Expand(m.Dest)
	if err != nil {
		e.fail(entity, err)
		return
	}
	if !providers.DestExists(dest) {
		if _, err := e.opts.Materializer.Materialize(noCancel(ctx), m.Source, dest, e.sf.Dir, e.store.Environ()); err != nil {
			e.fail(entity, err)
			return
		}
	}

	res, err := e.runPhase(ctx, m.Scripts, platform.PhaseInit, dest, map[string]string{"STARTER_DEST": dest})
	if err != nil {
		e.fail(entity, err)
		return
	}
	if res.ExitCode != 0 {
		e.fail(entity, &providers.ExitError{
			Command: res.Command, ExitCode: res.ExitCode, Output: res.Output(),
		})
		return
	}
	entity.Status = report.StatusInstalled
	e.markInstalled(n)
}

// runPhase selects, interpolates and executes one lifecycle script.
// Interpolation happens here, immediately before use, because a prompt
// answered moments ago may feed this very command. extra carries
// entity-local names (STARTER_DEST for module phases); they shadow the
// store for this call only and are appended to the child environment.
func (e *Engine) runPhase(ctx context.Context, scripts platform.ScriptSet, phase platform.Phase, dir string, extra map[string]string) (*providers.RunResult, error) {
	cmd, err := scripts.Select(phase, e.opts.Platform)
	if err != nil {
		return nil, err
	}
	text, err := e.store.ExpandWith(cmd.Text, extra)
	if err != nil {
		return nil, err
	}
	env := e.store.Environ()
	for name, value := range extra {
		env = append(env, name+"="+value)
	}
	e.emit(Event{Type: EventPhase, Phase: phase})
	return e.opts.Runner.Run(noCancel(ctx), platform.Command{Text: text}, dir, env)
}

// noCancel detaches script execution from run-level cancellation. A
// whole-run timeout stops entities from starting; it never kills a script
// that is already running.
func noCancel(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (e *Engine) fail(entity *report.Entity, err error) {
	entity.Status = report.StatusFailed
	var exitErr *providers.ExitError
	if errors.As(err, &exitErr) {
		entity.Command = exitErr.Command
		entity.Output = exitErr.Output
	} else {
		entity.Detail = err.Error()
	}
}

func (e *Engine) markInstalled(n *graph.Node) {
	e.mu.Lock()
	e.installed = append(e.installed, n)
	e.mu.Unlock()
}

func (e *Engine) record(n *graph.Node, entity *report.Entity) {
	e.mu.Lock()
	e.statuses[n.Name] = entity.Status
	e.mu.Unlock()
	e.run.Record(entity)
	if e.trace != nil {
		if err := e.trace.Write(e.run.ID, entity, nil); err != nil {
			fmt.Fprintf(e.opts.Out, "warning: %v\n", err)
		}
	}
	e.emit(Event{Type: EventFinished, Entity: entity.Name, Status: entity.Status, Detail: entity.Detail})

	switch entity.Status {
	case report.StatusInstalled, report.StatusLive:
		fmt.Fprintf(e.opts.Out, "✓ %s %s\n", entity.Name, entity.Status)
	case report.StatusFailed:
		fmt.Fprintf(e.opts.Out, "✗ %s failed\n", entity.Name)
	default:
		fmt.Fprintf(e.opts.Out, "⊘ %s %s\n", entity.Name, entity.Status)
	}
}

func (e *Engine) seedEnvFiles() error {
	for _, path := range e.sf.EnvFiles {
		if !filepath.IsAbs(path) {
			path = filepath.Join(e.sf.Dir, path)
		}
		if err := vars.LoadEnvFile(e.store, path); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) openTrace() error {
	if e.opts.TraceDir == "" {
		return nil
	}
	dir := filepath.Join(e.opts.TraceDir, e.run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create trace dir: %w", err)
	}
	tw, err := NewTraceWriter(filepath.Join(dir, "trace.jsonl"))
	if err != nil {
		return err
	}
	e.trace = tw
	return nil
}

func (e *Engine) writeManifest() error {
	if e.opts.TraceDir == "" {
		return nil
	}
	mode := "real"
	if e.opts.DryRun {
		mode = "dry-run"
	}
	return WriteManifest(filepath.Join(e.opts.TraceDir, e.run.ID), buildManifest(e.run, e.store, mode))
}

// rollback undoes the entities this run newly installed, in reverse
// completion order: uninstall for tools, destroy for modules. Entities
// that were already present (check passed) are left alone.
func (e *Engine) rollback(ctx context.Context) {
	e.mu.Lock()
	installed := append([]*graph.Node{}, e.installed...)
	e.mu.Unlock()

	for i := len(installed) - 1; i >= 0; i-- {
		n := installed[i]
		fmt.Fprintf(e.opts.Out, "↩ rolling back %s\n", n.Name)
		var err error
		if n.IsTool() {
			_, err = e.runPhase(ctx, n.Tool.Scripts, platform.PhaseUninstall, e.sf.Dir, nil)
		} else {
			err = e.runModulePhase(ctx, n.Module, platform.PhaseDestroy)
		}
		if err != nil {
			fmt.Fprintf(e.opts.Out, "warning: rollback %s: %v\n", n.Name, err)
		}
	}
}

func (e *Engine) runModulePhase(ctx context.Context, m *schema.Module, phase platform.Phase) error {
	dest, err := e.store.Expand(m.Dest)
	if err != nil {
		return err
	}
	res, err := e.runPhase(ctx, m.Scripts, phase, dest, map[string]string{"STARTER_DEST": dest})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &providers.ExitError{Command: res.Command, ExitCode: res.ExitCode, Output: res.Output()}
	}
	return nil
}

// Destroy runs the named module's destroy phase, independent of dependency
// order.
func (e *Engine) Destroy(ctx context.Context, name string) error {
	return e.singleOp(ctx, name, platform.PhaseDestroy)
}

// Uninstall runs the named tool's uninstall phase.
func (e *Engine) Uninstall(ctx context.Context, name string) error {
	return e.singleOp(ctx, name, platform.PhaseUninstall)
}

// Start runs the named module's start phase.
func (e *Engine) Start(ctx context.Context, name string) error {
	return e.singleOp(ctx, name, platform.PhaseStart)
}

func (e *Engine) singleOp(ctx context.Context, name string, phase platform.Phase) error {
	if err := e.seedEnvFiles(); err != nil {
		return err
	}
	n := e.plan.Node(name)
	if n == nil {
		return fmt.Errorf("no tool or module named %q", name)
	}
	if n.IsTool() {
		if phase != platform.PhaseUninstall {
			return fmt.Errorf("%q is a tool; only uninstall applies", name)
		}
		res, err := e.runPhase(ctx, n.Tool.Scripts, phase, e.sf.Dir, nil)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return &providers.ExitError{Command: res.Command, ExitCode: res.ExitCode, Output: res.Output()}
		}
		return nil
	}
	if phase == platform.PhaseUninstall {
		return fmt.Errorf("%q is a module; use destroy", name)
	}
	return e.runModulePhase(ctx, n.Module, phase)
}
