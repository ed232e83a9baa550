package vars

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadEnvFile reads a dotenv-style file into the store. Lines are
// KEY=VALUE, blank lines and #-comments are skipped, and surrounding
// single or double quotes on the value are stripped. A missing file is an
// error: env_file entries are declared, not discovered.
func LoadEnvFile(s *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	origin := "env:" + filepath.Base(path)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		if key != "" {
			s.Set(key, value, origin)
		}
	}
	return nil
}

// DumpMode controls how WriteDump treats an existing dump file.
type DumpMode string

const (
	DumpWrite  DumpMode = "write"  // truncate and rewrite
	DumpAppend DumpMode = "append" // keep existing lines, add new keys only
)

// WriteDump writes the store's variables to a dotenv file at path. In
// append mode, keys already present in the file keep their existing lines
// and only new keys are added. Keys are sorted so successive dumps of the
// same store diff cleanly.
func WriteDump(s *Store, path string, mode DumpMode) error {
	existing := map[string]bool{}
	var buf strings.Builder
	if mode == DumpAppend {
		if data, err := os.ReadFile(path); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				trimmed := strings.TrimSpace(line)
				if key, _, ok := strings.Cut(trimmed, "="); ok && !strings.HasPrefix(trimmed, "#") {
					existing[strings.TrimSpace(key)] = true
				}
			}
			buf.WriteString(strings.TrimRight(string(data), "\n"))
			buf.WriteString("\n")
		}
	}

	snap := s.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		if !existing[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%s\n", k, snap[k])
	}
	return os.WriteFile(path, []byte(buf.String()), 0o600)
}

// RewriteFile loads the file at path and writes it back with every
// resolvable ${NAME} reference replaced. Unresolvable references are left
// as-is. Missing files are skipped silently so a Starterfile can list
// replacement targets that only exist after certain modules run.
func RewriteFile(s *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read replacement file: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s.ExpandLenient(string(data))), info.Mode().Perm())
}
