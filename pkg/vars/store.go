// Package vars implements the variable store and ${NAME} interpolation.
//
// The store is an ordered, append-only log of name/value entries with a
// name index over the latest values. Keeping the log (rather than a bare
// map) preserves which entity produced each value and in what order, which
// is what the env dump and the resolution-order guarantees rely on.
package vars

import (
	"fmt"
	"os"
	"regexp"
	"sync"
)

// Entry is a single write to the store.
type Entry struct {
	Name   string
	Value  string
	Origin string // e.g. "env:.env", "prompt:react", "flag"
}

// Store maps environment-variable names to string values. Writes append to
// the log; later writes for the same name shadow earlier ones. Safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int // name → position of the latest entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Set records a value for name. Existing entries are never removed.
func (s *Store) Set(name, value, origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Name: name, Value: value, Origin: origin})
	s.index[name] = len(s.entries) - 1
}

// Get returns the latest value for name.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.entries[i].Value, true
}

// Entries returns a copy of the full write log in order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Snapshot returns the latest value of every name as a plain map.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.index))
	for name, i := range s.index {
		out[name] = s.entries[i].Value
	}
	return out
}

// Environ returns the process environment extended with the store's values,
// store values last so they win. Passed to every script invocation so
// scripts observe exactly what interpolation observed.
func (s *Store) Environ() []string {
	env := os.Environ()
	for name, value := range s.Snapshot() {
		env = append(env, name+"="+value)
	}
	return env
}

// refPattern matches ${NAME} references. Names follow the usual
// environment-variable rules.
var refPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// UnresolvedVariableError reports a ${NAME} reference with no value. The
// engine aborts the referencing entity rather than substituting an empty
// string: an empty dest path fed to a destroy script is how directories'
// parents get deleted.
type UnresolvedVariableError struct {
	Name string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("variable ${%s} is not set", e.Name)
}

// Expand replaces every ${NAME} in text with the store's value for NAME,
// falling back to the process environment for names the Starterfile never
// declared (HOME, USER and friends). Returns UnresolvedVariableError for
// the first reference that resolves nowhere.
func (s *Store) Expand(text string) (string, error) {
	return s.ExpandWith(text, nil)
}

// ExpandWith is Expand with an extra per-call scope layered on top of the
// store. Names in extra shadow store and environment values but are never
// written back, so entity-local values (a module's resolved dest) stay out
// of other entities running in the same wave.
func (s *Store) ExpandWith(text string, extra map[string]string) (string, error) {
	var unresolved *UnresolvedVariableError
	expanded := refPattern.ReplaceAllStringFunc(text, func(ref string) string {
		name := refPattern.FindStringSubmatch(ref)[1]
		if v, ok := extra[name]; ok {
			return v
		}
		if v, ok := s.Get(name); ok {
			return v
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if unresolved == nil {
			unresolved = &UnresolvedVariableError{Name: name}
		}
		return ref
	})
	if unresolved != nil {
		return "", unresolved
	}
	return expanded, nil
}

// ExpandLenient replaces the references it can resolve and leaves the rest
// untouched. Used only for the post-run replacement-file rewrite, which
// processes arbitrary project files where unknown ${...} text may be
// somebody else's syntax.
func (s *Store) ExpandLenient(text string) string {
	return refPattern.ReplaceAllStringFunc(text, func(ref string) string {
		name := refPattern.FindStringSubmatch(ref)[1]
		if v, ok := s.Get(name); ok {
			return v
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return ref
	})
}

// References returns the distinct ${NAME} names referenced by text, in
// first-appearance order.
func References(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
