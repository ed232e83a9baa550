package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/start-out/starter/pkg/graph"
	"github.com/start-out/starter/pkg/platform"
	"github.com/start-out/starter/pkg/providers"
	"github.com/start-out/starter/pkg/report"
	"github.com/start-out/starter/pkg/schema"
	"github.com/start-out/starter/pkg/vars"
)

// fakeRunner maps expanded command text to exit codes and records every
// invocation in order.
type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	exits map[string]int
}

func (r *fakeRunner) Run(_ context.Context, cmd platform.Command, _ string, _ []string) (*providers.RunResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd.Text)
	r.mu.Unlock()
	return &providers.RunResult{Command: cmd.Text, ExitCode: r.exits[cmd.Text]}, nil
}

func (r *fakeRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.calls...)
}

func (r *fakeRunner) Called(text string) bool {
	for _, c := range r.Calls() {
		if c == text {
			return true
		}
	}
	return false
}

type fakeMaterializer struct {
	mu    sync.Mutex
	dests []string
	fail  bool
}

func (m *fakeMaterializer) Materialize(_ context.Context, _ schema.Source, dest, _ string, _ []string) (*providers.RunResult, error) {
	m.mu.Lock()
	m.dests = append(m.dests, dest)
	m.mu.Unlock()
	if m.fail {
		return nil, &providers.ExitError{Command: "clone " + dest, ExitCode: 128}
	}
	return &providers.RunResult{ExitCode: 0}, nil
}

func newTestEngine(t *testing.T, doc string, opts Options) (*Engine, *fakeRunner) {
	t.Helper()
	sf, err := schema.Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sf.Dir = t.TempDir()

	runner, _ := opts.Runner.(*fakeRunner)
	if runner == nil {
		runner = &fakeRunner{exits: map[string]int{}}
		opts.Runner = runner
	}
	if opts.Collector == nil {
		opts.Collector = &providers.StaticCollector{}
	}
	if opts.Materializer == nil {
		opts.Materializer = &fakeMaterializer{}
	}
	if opts.Platform == "" {
		opts.Platform = platform.Linux
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	e, err := New(sf, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, runner
}

func status(t *testing.T, run *report.Run, name string) report.Status {
	t.Helper()
	e := run.Entity(name)
	if e == nil {
		t.Fatalf("entity %q not in report: %+v", name, run.Entities)
	}
	return e.Status
}

const basicDoc = `
tools:
  node:
    scripts: {check: check node, install: install node, uninstall: uninstall node}
  yarn:
    depends_on: node
    scripts: {check: check yarn, install: install yarn, uninstall: uninstall yarn}
`

func TestUpInstallsWhenCheckFails(t *testing.T) {
	runner := &fakeRunner{exits: map[string]int{"check node": 1, "check yarn": 1}}
	e, _ := newTestEngine(t, basicDoc, Options{Runner: runner})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "node"); got != report.StatusInstalled {
		t.Fatalf("node = %s", got)
	}
	if got := status(t, run, "yarn"); got != report.StatusInstalled {
		t.Fatalf("yarn = %s", got)
	}
	if !runner.Called("install node") || !runner.Called("install yarn") {
		t.Fatalf("installs missing from %v", runner.Calls())
	}
}

func TestUpIdempotentSecondRun(t *testing.T) {
	// Every check passes: the second-run shape of a converged machine.
	e, runner := newTestEngine(t, basicDoc, Options{})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"node", "yarn"} {
		if got := status(t, run, name); got != report.StatusSkipped {
			t.Fatalf("%s = %s; want skipped", name, got)
		}
	}
	if runner.Called("install node") || runner.Called("install yarn") {
		t.Fatalf("no installs expected: %v", runner.Calls())
	}
}

func TestOptionalFailureDoesNotBlockUnrelated(t *testing.T) {
	doc := `
tools:
  broken:
    mode: optional
    scripts: {check: check broken, install: install broken, uninstall: u}
  fine:
    scripts: {check: check fine, install: install fine, uninstall: u}
`
	runner := &fakeRunner{exits: map[string]int{
		"check broken": 1, "install broken": 1, "check fine": 1,
	}}
	e, _ := newTestEngine(t, doc, Options{Runner: runner})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "broken"); got != report.StatusSkippedOptional {
		t.Fatalf("broken = %s", got)
	}
	if got := status(t, run, "fine"); got != report.StatusInstalled {
		t.Fatalf("fine = %s", got)
	}
	if run.Failed() {
		t.Fatal("optional failure must not fail the run")
	}
}

func TestOptionalFailureBlocksItsDependents(t *testing.T) {
	doc := `
tools:
  broken:
    mode: optional
    scripts: {check: check broken, install: install broken, uninstall: u}
  child:
    depends_on: broken
    scripts: {check: check child, install: install child, uninstall: u}
`
	runner := &fakeRunner{exits: map[string]int{"check broken": 1, "install broken": 1}}
	e, _ := newTestEngine(t, doc, Options{Runner: runner})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "child"); got != report.StatusNotAttempted {
		t.Fatalf("child = %s; a dependent must not run against a skipped dependency", got)
	}
	if runner.Called("check child") {
		t.Fatal("child phases must never run")
	}
}

func TestFailurePropagatesToTransitiveDependents(t *testing.T) {
	doc := `
tools:
  a:
    scripts: {check: check a, install: install a, uninstall: u}
  b:
    depends_on: a
    scripts: {check: check b, install: install b, uninstall: u}
  c:
    depends_on: b
    scripts: {check: check c, install: install c, uninstall: u}
  solo:
    scripts: {check: check solo, install: install solo, uninstall: u}
`
	runner := &fakeRunner{exits: map[string]int{
		"check a": 1, "install a": 1, "check solo": 1,
	}}
	e, _ := newTestEngine(t, doc, Options{Runner: runner})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "a"); got != report.StatusFailed {
		t.Fatalf("a = %s", got)
	}
	for _, name := range []string{"b", "c"} {
		if got := status(t, run, name); got != report.StatusNotAttempted {
			t.Fatalf("%s = %s; want not_attempted", name, got)
		}
	}
	if got := status(t, run, "solo"); got != report.StatusInstalled {
		t.Fatalf("solo = %s; independent subtree must continue", got)
	}
	failed := run.Entity("a")
	if failed.Command != "install a" {
		t.Fatalf("failed entity must carry the offending command, got %q", failed.Command)
	}
}

func TestAltScenario(t *testing.T) {
	// A installs normally; B's chain falls through to C.
	doc := `
tools:
  a:
    scripts: {check: check a, install: install a, uninstall: u}
  b:
    alt: c
    scripts: {check: check b, install: install b, uninstall: u}
  c:
    mode: as_alt
    scripts: {check: check c, install: install c, uninstall: u}
modules:
  m:
    dest: /tmp/does-not-exist-starter-m
    depends_on: [a, b]
    source: {git: url}
    scripts: {init: init m, destroy: destroy m}
`
	runner := &fakeRunner{exits: map[string]int{
		"check a": 1, "check b": 1, "install b": 1,
	}}
	e, _ := newTestEngine(t, doc, Options{Runner: runner})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "a"); got != report.StatusInstalled {
		t.Fatalf("a = %s", got)
	}
	if got := status(t, run, "b"); got != report.StatusAltNotChosen {
		t.Fatalf("b = %s", got)
	}
	if got := status(t, run, "c"); got != report.StatusLive {
		t.Fatalf("c = %s", got)
	}
	if got := status(t, run, "m"); got != report.StatusInstalled {
		t.Fatalf("m = %s; dependents of a live group must proceed", got)
	}
	if !runner.Called("init m") {
		t.Fatalf("init m missing from %v", runner.Calls())
	}
}

func TestAltGroupExhausted(t *testing.T) {
	doc := `
tools:
  b:
    alt: c
    scripts: {check: check b, install: install b, uninstall: u}
  c:
    mode: as_alt
    scripts: {check: check c, install: install c, uninstall: u}
  child:
    depends_on: b
    scripts: {check: check child, install: install child, uninstall: u}
`
	runner := &fakeRunner{exits: map[string]int{
		"check b": 1, "install b": 1, "check c": 1, "install c": 1,
	}}
	e, _ := newTestEngine(t, doc, Options{Runner: runner})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "b"); got != report.StatusFailed {
		t.Fatalf("b = %s", got)
	}
	if got := status(t, run, "c"); got != report.StatusFailed {
		t.Fatalf("c = %s", got)
	}
	if got := status(t, run, "child"); got != report.StatusNotAttempted {
		t.Fatalf("child = %s", got)
	}
}

func TestAltRecheckAfterInstall(t *testing.T) {
	doc := `
tools:
  b:
    alt: c
    scripts: {check: check b, install: install b, uninstall: u}
  c:
    mode: as_alt
    scripts: {check: check c, install: install c, uninstall: u}
`
	// b: check fails, install succeeds, but recheck still fails → not live.
	// c: check passes immediately.
	runner := &fakeRunner{exits: map[string]int{"check b": 1}}
	e, _ := newTestEngine(t, doc, Options{Runner: runner})

	// install b exits 0 but check b keeps failing, so b must be passed over.
	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "b"); got != report.StatusAltNotChosen {
		t.Fatalf("b = %s", got)
	}
	if got := status(t, run, "c"); got != report.StatusLive {
		t.Fatalf("c = %s", got)
	}

	calls := runner.Calls()
	checkBs := 0
	for _, c := range calls {
		if c == "check b" {
			checkBs++
		}
	}
	if checkBs != 2 {
		t.Fatalf("check b ran %d times; want exactly one recheck after install: %v", checkBs, calls)
	}
}

func TestModulePromptOrderAndAvailability(t *testing.T) {
	doc := `
modules:
  web:
    dest: /tmp/does-not-exist-starter-web
    source: {git: url}
    init_options:
      - env_name: USE_TS
        prompt: "Use TypeScript?"
        default: true
      - env_name: APP_NAME
        prompt: "App name"
        default: app
    scripts:
      init: init ${APP_NAME} ${USE_TS}
      destroy: destroy web
`
	collector := &providers.StaticCollector{Answers: map[string]string{"APP_NAME": "site"}}
	e, runner := newTestEngine(t, doc, Options{Collector: collector})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "web"); got != report.StatusInstalled {
		t.Fatalf("web = %s: %+v", got, run.Entity("web"))
	}

	asked := collector.Asked()
	if len(asked) != 2 || asked[0] != "USE_TS" || asked[1] != "APP_NAME" {
		t.Fatalf("prompts = %v; want declared order", asked)
	}
	if !runner.Called("init site true") {
		t.Fatalf("init must see both prompt values interpolated: %v", runner.Calls())
	}
}

func TestModulePromptSkippedWhenVarPresent(t *testing.T) {
	doc := `
modules:
  web:
    dest: /tmp/does-not-exist-starter-web2
    source: {git: url}
    init_options:
      - env_name: APP_NAME
        prompt: "App name"
        default: app
    scripts: {init: init web, destroy: destroy web}
`
	store := vars.NewStore()
	store.Set("APP_NAME", "preset", "env:.env")
	collector := &providers.StaticCollector{}
	e, _ := newTestEngine(t, doc, Options{Collector: collector, Store: store})

	if _, err := e.Up(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(collector.Asked()) != 0 {
		t.Fatalf("a preset variable must suppress its prompt, asked %v", collector.Asked())
	}
}

func TestModuleUnresolvedDestFails(t *testing.T) {
	doc := `
modules:
  web:
    dest: ${STARTER_TEST_UNSET_DEST}/web
    source: {git: url}
    scripts: {init: init web, destroy: destroy web}
`
	e, runner := newTestEngine(t, doc, Options{})
	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	entity := run.Entity("web")
	if entity.Status != report.StatusFailed {
		t.Fatalf("web = %s", entity.Status)
	}
	if !strings.Contains(entity.Detail, "STARTER_TEST_UNSET_DEST") {
		t.Fatalf("detail = %q; must name the unresolved variable", entity.Detail)
	}
	if runner.Called("init web") {
		t.Fatal("init must not run with an unresolved dest")
	}
}

func TestModuleDestAvailableInPhases(t *testing.T) {
	doc := `
modules:
  web:
    dest: /tmp/does-not-exist-starter-web6
    source: {git: url}
    scripts:
      init: ls ${STARTER_DEST}
      destroy: rm -rf ${STARTER_DEST}
  api:
    dest: /tmp/does-not-exist-starter-api6
    source: {git: url}
    scripts:
      init: ls ${STARTER_DEST}
      destroy: rm -rf ${STARTER_DEST}
`
	e, runner := newTestEngine(t, doc, Options{Concurrency: 2})
	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "web"); got != report.StatusInstalled {
		t.Fatalf("web = %s", got)
	}
	if !runner.Called("ls /tmp/does-not-exist-starter-web6") {
		t.Fatalf("init must see its own dest: %v", runner.Calls())
	}
	if !runner.Called("ls /tmp/does-not-exist-starter-api6") {
		t.Fatalf("each module expands to its own dest: %v", runner.Calls())
	}
	// The dest is entity-local, not a store write.
	if _, ok := e.store.Get("STARTER_DEST"); ok {
		t.Fatal("STARTER_DEST leaked into the shared store")
	}
}

func TestDestroyExpandsDest(t *testing.T) {
	doc := `
modules:
  web:
    dest: /tmp/does-not-exist-starter-web7
    source: {git: url}
    scripts:
      init: init web
      destroy: rm -rf ${STARTER_DEST}
`
	e, runner := newTestEngine(t, doc, Options{})
	if err := e.Destroy(context.Background(), "web"); err != nil {
		t.Fatal(err)
	}
	if !runner.Called("rm -rf /tmp/does-not-exist-starter-web7") {
		t.Fatalf("destroy must interpolate the dest: %v", runner.Calls())
	}
}

func TestSkipIf(t *testing.T) {
	doc := `
tools:
  node:
    skip_if: CI == "true"
    scripts: {check: check node, install: install node, uninstall: u}
`
	store := vars.NewStore()
	store.Set("CI", "true", "env:.env")
	e, runner := newTestEngine(t, doc, Options{Store: store})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(t, run, "node"); got != report.StatusSkipped {
		t.Fatalf("node = %s", got)
	}
	if len(runner.Calls()) != 0 {
		t.Fatalf("skip_if must short-circuit all phases: %v", runner.Calls())
	}
}

func TestEnvFileSeeding(t *testing.T) {
	e, runner := newTestEngine(t, `
env_file: seed.env
tools:
  node:
    scripts:
      check: check ${NODE_VERSION}
      install: install node
      uninstall: u
`, Options{})
	if err := os.WriteFile(filepath.Join(e.sf.Dir, "seed.env"), []byte("NODE_VERSION=20\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Up(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !runner.Called("check 20") {
		t.Fatalf("env file values must interpolate into scripts: %v", runner.Calls())
	}
}

func TestEnvDumpWrittenAfterRun(t *testing.T) {
	e, _ := newTestEngine(t, `
env_dump_file: .env.out
modules:
  web:
    dest: /tmp/does-not-exist-starter-web3
    source: {git: url}
    init_options:
      - env_name: APP_NAME
        prompt: "App name"
        default: app
    scripts: {init: init web, destroy: destroy web}
`, Options{})

	if _, err := e.Up(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(e.sf.Dir, ".env.out"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "APP_NAME=app") {
		t.Fatalf("dump = %q", data)
	}
}

func TestEnvDumpSensitiveDeclined(t *testing.T) {
	e, _ := newTestEngine(t, `
env_dump_file: .env.out
modules:
  web:
    dest: /tmp/does-not-exist-starter-web4
    source: {git: url}
    init_options:
      - env_name: API_TOKEN
        prompt: "Token"
        default: tok
    scripts: {init: init web, destroy: destroy web}
`, Options{Collector: &providers.StaticCollector{Confirms: false}})

	if _, err := e.Up(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(e.sf.Dir, ".env.out")); !os.IsNotExist(err) {
		t.Fatal("declined sensitive dump must not write the file")
	}
}

func TestRollbackReverseOrder(t *testing.T) {
	doc := `
tools:
  a:
    scripts: {check: check a, install: install a, uninstall: uninstall a}
  b:
    depends_on: a
    scripts: {check: check b, install: install b, uninstall: uninstall b}
  c:
    depends_on: b
    scripts: {check: check c, install: install c, uninstall: uninstall c}
`
	runner := &fakeRunner{exits: map[string]int{
		"check a": 1, "check b": 1, "check c": 1, "install c": 1,
	}}
	e, _ := newTestEngine(t, doc, Options{Runner: runner, Rollback: true})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !run.Failed() {
		t.Fatal("c must fail")
	}

	calls := runner.Calls()
	var uninstalls []string
	for _, c := range calls {
		if strings.HasPrefix(c, "uninstall") {
			uninstalls = append(uninstalls, c)
		}
	}
	if len(uninstalls) != 2 || uninstalls[0] != "uninstall b" || uninstalls[1] != "uninstall a" {
		t.Fatalf("rollback = %v; want newly installed entities in reverse order", uninstalls)
	}
}

func TestConcurrentWave(t *testing.T) {
	doc := `
tools:
  a: {scripts: {check: check a, install: install a, uninstall: u}}
  b: {scripts: {check: check b, install: install b, uninstall: u}}
  c: {scripts: {check: check c, install: install c, uninstall: u}}
  d: {scripts: {check: check d, install: install d, uninstall: u}}
`
	runner := &fakeRunner{exits: map[string]int{
		"check a": 1, "check b": 1, "check c": 1, "check d": 1,
	}}
	traceDir := t.TempDir()
	e, _ := newTestEngine(t, doc, Options{Runner: runner, Concurrency: 4, TraceDir: traceDir})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b", "c", "d"} {
		if got := status(t, run, name); got != report.StatusInstalled {
			t.Fatalf("%s = %s", name, got)
		}
	}

	// Concurrent workers share one trace writer; every line must still be
	// a whole JSON document.
	data, err := os.ReadFile(filepath.Join(traceDir, run.ID, "trace.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("trace has %d lines, want 4", len(lines))
	}
	for _, line := range lines {
		var ev TraceEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("trace line %q: %v", line, err)
		}
	}
}

func TestDryRunRecordsWithoutProbing(t *testing.T) {
	dry := &providers.DryRunRunner{}
	sf, err := schema.Load([]byte(basicDoc))
	if err != nil {
		t.Fatal(err)
	}
	sf.Dir = t.TempDir()
	e, err := New(sf, Options{
		Runner:       dry,
		Collector:    &providers.StaticCollector{},
		Materializer: &fakeMaterializer{},
		Platform:     platform.Linux,
		DryRun:       true,
		Out:          io.Discard,
	})
	if err != nil {
		t.Fatal(err)
	}

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"node", "yarn"} {
		if got := status(t, run, name); got != report.StatusInstalled {
			t.Fatalf("%s = %s", name, got)
		}
	}
	cmds := dry.Commands()
	for _, c := range cmds {
		if strings.HasPrefix(c, "check") {
			t.Fatalf("dry run must not probe: %v", cmds)
		}
	}
	if len(cmds) != 2 {
		t.Fatalf("want the two installs recorded, got %v", cmds)
	}
}

func TestTraceAndManifestWritten(t *testing.T) {
	traceDir := t.TempDir()
	e, _ := newTestEngine(t, basicDoc, Options{TraceDir: traceDir})

	run, err := e.Up(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	runDir := filepath.Join(traceDir, run.ID)
	trace, err := os.ReadFile(filepath.Join(runDir, "trace.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(strings.TrimSpace(string(trace)), "\n") + 1; lines != 2 {
		t.Fatalf("trace lines = %d; want one per entity", lines)
	}
	manifest, err := os.ReadFile(filepath.Join(runDir, "run.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(manifest), "run_id: "+run.ID) {
		t.Fatalf("manifest = %s", manifest)
	}
}

func TestSingleEntityOps(t *testing.T) {
	doc := `
tools:
  node:
    scripts: {check: check node, install: install node, uninstall: uninstall node}
modules:
  web:
    dest: /tmp/does-not-exist-starter-web5
    source: {git: url}
    scripts: {init: init web, destroy: destroy web, start: start web}
`
	e, runner := newTestEngine(t, doc, Options{})
	ctx := context.Background()

	if err := e.Destroy(ctx, "web"); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(ctx, "web"); err != nil {
		t.Fatal(err)
	}
	if err := e.Uninstall(ctx, "node"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"destroy web", "start web", "uninstall node"} {
		if !runner.Called(want) {
			t.Fatalf("%q missing from %v", want, runner.Calls())
		}
	}

	if err := e.Destroy(ctx, "node"); err == nil {
		t.Fatal("destroy on a tool must error")
	}
	if err := e.Uninstall(ctx, "web"); err == nil {
		t.Fatal("uninstall on a module must error")
	}
	if err := e.Start(ctx, "ghost"); err == nil {
		t.Fatal("unknown entity must error")
	}
}

func TestUnknownReferenceFailsBeforeAnyRun(t *testing.T) {
	sf, err := schema.Load([]byte(`
tools:
  a:
    depends_on: ghost
    scripts: {check: check a, install: install a, uninstall: u}
`))
	if err != nil {
		t.Fatal(err)
	}
	runner := &fakeRunner{exits: map[string]int{}}
	_, err = New(sf, Options{Runner: runner})
	var uerr *graph.UnknownReferenceError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v; want UnknownReferenceError", err)
	}
	if len(runner.Calls()) != 0 {
		t.Fatal("runner must never be invoked for an invalid graph")
	}
}
