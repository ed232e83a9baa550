package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/start-out/starter/pkg/vars"
)

// finalize runs the post-execution variable work: the env dump (with a
// confirmation gate when sensitive values would hit disk) and the in-place
// rewrite of declared replacement files.
func (e *Engine) finalize(ctx context.Context) error {
	if e.opts.DryRun {
		return nil
	}

	if e.sf.EnvDumpFile != "" {
		if err := e.dumpEnv(ctx); err != nil {
			return err
		}
	}
	for _, path := range e.sf.EnvReplacementFiles {
		if !filepath.IsAbs(path) {
			path = filepath.Join(e.sf.Dir, path)
		}
		if err := vars.RewriteFile(e.store, path); err != nil {
			return fmt.Errorf("rewrite %s: %w", path, err)
		}
	}
	return nil
}

func (e *Engine) dumpEnv(ctx context.Context) error {
	if sensitive := vars.SensitiveNames(e.store); len(sensitive) > 0 {
		question := fmt.Sprintf("write sensitive values (%s) to %s",
			strings.Join(sensitive, ", "), e.sf.EnvDumpFile)
		ok, err := e.opts.Collector.Confirm(ctx, question, false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(e.opts.Out, "⊘ env dump skipped (sensitive values declined)\n")
			return nil
		}
	}

	path := e.sf.EnvDumpFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.sf.Dir, path)
	}
	mode := vars.DumpWrite
	if e.sf.EnvDumpMode == "append" {
		mode = vars.DumpAppend
	}
	return vars.WriteDump(e.store, path, mode)
}
