package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/start-out/starter/pkg/diagram"
	"github.com/start-out/starter/pkg/engine"
	"github.com/start-out/starter/pkg/graph"
	"github.com/start-out/starter/pkg/providers"
	"github.com/start-out/starter/pkg/report"
	"github.com/start-out/starter/pkg/schema"
	"github.com/start-out/starter/pkg/tui"
	"github.com/start-out/starter/pkg/vars"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var starterfilePath string

var rootCmd = &cobra.Command{
	Use:   "starter",
	Short: "Declarative environment bootstrapper",
	Long:  "starter — reads a Starterfile and brings a development environment to its declared state: tools checked and installed, modules materialized and initialized.",
}

// loadValidated parses and validates the Starterfile, printing warnings to
// stderr and returning an error when validation fails. Graph resolution runs
// too so cycles and orphan alt targets surface before any command acts.
func loadValidated(path string) (*schema.Starterfile, *graph.Plan, error) {
	sf, errs := schema.ValidateFile(path)
	var fatal []*schema.ValidationError
	for _, e := range errs {
		if e.Severity == "warning" {
			fmt.Fprintf(os.Stderr, "  ⚠ [%s] %s\n", e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "    at: %s\n", e.Path)
			}
			continue
		}
		fatal = append(fatal, e)
	}
	if len(fatal) > 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", len(fatal))
		for i, e := range fatal {
			fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
			}
		}
		return nil, nil, fmt.Errorf("validation failed with %d error(s)", len(fatal))
	}
	plan, err := graph.Resolve(sf)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve graph: %w", err)
	}
	return sf, plan, nil
}

// fileArg prefers a positional Starterfile path over the --file flag.
func fileArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return starterfilePath
}

// parseVarFlags seeds a store from repeated --var key=value flags.
func parseVarFlags(store *vars.Store, flags []string) error {
	for _, v := range flags {
		key, value, ok := strings.Cut(v, "=")
		if !ok {
			return fmt.Errorf("invalid --var %q: expected key=value", v)
		}
		store.Set(key, value, "flag")
	}
	return nil
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [Starterfile.yaml]",
	Short: "Validate a Starterfile against the schema and dependency rules",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fileArg(args)
		sf, _, err := loadValidated(path)
		if err != nil {
			return err
		}
		fmt.Printf("✓ %s is valid (%d tools, %d modules)\n", path, len(sf.Tools), len(sf.Modules))
		return nil
	},
}

// --- up ---

var (
	upDryRun   bool
	upParallel int
	upTimeout  string
	upRollback bool
	upTUI      bool
	upYes      bool
	upVars     []string
	upTraceDir string
)

var upCmd = &cobra.Command{
	Use:   "up [Starterfile.yaml]",
	Args:  cobra.MaximumNArgs(1),
	Short: "Bring the environment to the declared state",
	Long: `Resolve the Starterfile's dependency graph and walk it wave by wave:
check each tool and install it when the check fails, materialize and
initialize each module. Failures block dependents but never unrelated
entities. Alt groups fall through to the next member until one is live.`,
	RunE: runUp,
}

func runUp(cmd *cobra.Command, args []string) error {
	sf, _, err := loadValidated(fileArg(args))
	if err != nil {
		return err
	}

	store := vars.NewStore()
	if err := parseVarFlags(store, upVars); err != nil {
		return err
	}

	opts := engine.Options{
		Store:       store,
		Concurrency: upParallel,
		DryRun:      upDryRun,
		Rollback:    upRollback,
		Out:         os.Stdout,
		TraceDir:    upTraceDir,
	}
	if opts.TraceDir == "" && !upDryRun {
		opts.TraceDir = filepath.Join(sf.Dir, ".starter", "runs")
	}
	if upTimeout != "" {
		d, err := time.ParseDuration(upTimeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout %q: %w", upTimeout, err)
		}
		opts.Timeout = d
	}
	if upDryRun {
		opts.Runner = &providers.DryRunRunner{}
		opts.Collector = &providers.DryRunCollector{}
	} else {
		opts.Runner = &providers.ShellRunner{Echo: os.Stdout}
		if upYes {
			// Answer every prompt with its default and confirm everything.
			opts.Collector = &providers.StaticCollector{Confirms: true}
		}
	}

	var events chan engine.Event
	if upTUI {
		events = make(chan engine.Event, 16)
		opts.Observer = tui.Forward(events)
		// The TUI owns the screen; keep script echo, progress lines and
		// readline prompts off it.
		opts.Out = nil
		if !upDryRun {
			opts.Runner = &providers.ShellRunner{}
			opts.Collector = &providers.StaticCollector{Confirms: true}
		}
	}

	eng, err := engine.New(sf, opts)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	var run *report.Run
	var runErr error
	if upTUI {
		run, runErr = runWithTUI(eng, events)
	} else {
		run, runErr = eng.Up(context.Background())
	}

	if run != nil {
		fmt.Println()
		report.Render(os.Stdout, run)
		if opts.TraceDir != "" {
			fmt.Printf("  Manifest: %s/run.yaml\n", filepath.Join(opts.TraceDir, run.ID))
		}
	}
	if runErr != nil {
		return runErr
	}
	if run != nil && run.Failed() {
		os.Exit(1)
	}
	return nil
}

// runWithTUI drives the engine under a Bubble Tea monitor fed from the
// observer channel. The channel is drained after the program exits so the
// engine never blocks on a send if the user quit early.
func runWithTUI(eng *engine.Engine, events chan engine.Event) (*report.Run, error) {
	type result struct {
		run *report.Run
		err error
	}
	done := make(chan result, 1)
	go func() {
		run, err := eng.Up(context.Background())
		close(events)
		done <- result{run, err}
	}()

	p := tea.NewProgram(tui.NewModel(eng.Plan(), events))
	_, tuiErr := p.Run()
	for range events {
	}
	r := <-done
	if tuiErr != nil {
		return r.run, fmt.Errorf("tui: %w", tuiErr)
	}
	return r.run, r.err
}

// --- plan ---

var planJSON bool

var planCmd = &cobra.Command{
	Use:   "plan [Starterfile.yaml]",
	Args:  cobra.MaximumNArgs(1),
	Short: "Show the resolved execution order, waves and alt groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, plan, err := loadValidated(fileArg(args))
		if err != nil {
			return err
		}
		if planJSON {
			return printPlanJSON(plan)
		}
		for i, wave := range plan.Waves {
			fmt.Printf("wave %d:\n", i+1)
			for _, n := range wave {
				kind := "module"
				if n.IsTool() {
					kind = "tool"
				}
				line := fmt.Sprintf("  %s (%s)", n.Name, kind)
				if len(n.Deps()) > 0 {
					line += "  ← " + strings.Join(n.Deps(), ", ")
				}
				fmt.Println(line)
			}
		}
		for _, g := range plan.Groups {
			fmt.Printf("alt group: %s\n", strings.Join(g.Members, " → "))
		}
		return nil
	},
}

func printPlanJSON(plan *graph.Plan) error {
	type waveOut struct {
		Wave     int      `json:"wave"`
		Entities []string `json:"entities"`
	}
	out := struct {
		Order []string  `json:"order"`
		Waves []waveOut `json:"waves"`
	}{}
	for _, n := range plan.Order {
		out.Order = append(out.Order, n.Name)
	}
	for i, wave := range plan.Waves {
		w := waveOut{Wave: i + 1}
		for _, n := range wave {
			w.Entities = append(w.Entities, n.Name)
		}
		out.Waves = append(out.Waves, w)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// --- diagram ---

var diagramFormat string

var diagramCmd = &cobra.Command{
	Use:   "diagram [Starterfile.yaml]",
	Args:  cobra.MaximumNArgs(1),
	Short: "Render the dependency graph as mermaid or ascii",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, plan, err := loadValidated(fileArg(args))
		if err != nil {
			return err
		}
		out, err := diagram.Generate(plan, diagram.Format(diagramFormat))
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

// --- single-entity lifecycle: destroy, uninstall, start ---

func singleEntityCmd(use, short string, op func(*engine.Engine, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [name]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, _, err := loadValidated(starterfilePath)
			if err != nil {
				return err
			}
			eng, err := engine.New(sf, engine.Options{
				Runner: &providers.ShellRunner{Echo: os.Stdout},
				Out:    os.Stdout,
			})
			if err != nil {
				return fmt.Errorf("create engine: %w", err)
			}
			return op(eng, context.Background(), args[0])
		},
	}
}

var destroyCmd = singleEntityCmd("destroy", "Run a module's destroy script",
	func(e *engine.Engine, ctx context.Context, name string) error { return e.Destroy(ctx, name) })

var uninstallCmd = singleEntityCmd("uninstall", "Run a tool's uninstall script",
	func(e *engine.Engine, ctx context.Context, name string) error { return e.Uninstall(ctx, name) })

var startCmd = singleEntityCmd("start", "Run a module's start script",
	func(e *engine.Engine, ctx context.Context, name string) error { return e.Start(ctx, name) })

// --- schema export ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the Starterfile JSON Schema to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.GenerateJSONSchema()
		if err != nil {
			return fmt.Errorf("generate schema: %w", err)
		}
		var out json.RawMessage = data
		formatted, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Println(string(data))
			return nil
		}
		fmt.Println(string(formatted))
		return nil
	},
}

// --- readme ---

var readmeCmd = &cobra.Command{
	Use:   "readme [module]",
	Short: "Render a materialized module's README",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sf, _, err := loadValidated(starterfilePath)
		if err != nil {
			return err
		}
		mod, ok := sf.Module(args[0])
		if !ok {
			return fmt.Errorf("unknown module %q", args[0])
		}
		store := vars.NewStore()
		for _, f := range sf.EnvFiles {
			p := f
			if !filepath.IsAbs(p) {
				p = filepath.Join(sf.Dir, p)
			}
			if err := vars.LoadEnvFile(store, p); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
		}
		dest, err := store.Expand(mod.Dest)
		if err != nil {
			return fmt.Errorf("resolve dest for %s: %w", mod.Name, err)
		}
		path := filepath.Join(dest, "README.md")
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		fmt.Print(renderMarkdown(string(data)))
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("starter %s (build: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&starterfilePath, "file", "f", "Starterfile.yaml", "Path to the Starterfile")

	upCmd.Flags().BoolVar(&upDryRun, "dry-run", false, "Report what would run without executing anything")
	upCmd.Flags().IntVar(&upParallel, "parallel", 1, "Workers per wave (1 preserves declaration order)")
	upCmd.Flags().StringVar(&upTimeout, "timeout", "", "Whole-run timeout (e.g. 10m); running scripts are never killed")
	upCmd.Flags().BoolVar(&upRollback, "rollback", false, "Uninstall newly installed entities when the run fails")
	upCmd.Flags().BoolVar(&upTUI, "tui", false, "Show a live terminal UI instead of plain output")
	upCmd.Flags().BoolVar(&upYes, "yes", false, "Answer prompts with defaults and confirm everything")
	upCmd.Flags().StringArrayVar(&upVars, "var", nil, "Set a variable (key=value), repeatable")
	upCmd.Flags().StringVar(&upTraceDir, "trace-dir", "", "Directory for trace and manifest output (default <dir>/.starter/runs)")

	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output the plan as JSON")
	diagramCmd.Flags().StringVar(&diagramFormat, "format", "mermaid", "Diagram format: mermaid or ascii")

	schemaCmd.AddCommand(schemaExportCmd)

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(diagramCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(readmeCmd)
	rootCmd.AddCommand(versionCmd)
}
