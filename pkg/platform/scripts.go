package platform

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ScriptSet holds the lifecycle commands of one tool or module: a set of
// platform-agnostic defaults plus optional per-platform overrides.
type ScriptSet struct {
	defaults  map[Phase]string
	overrides map[Platform]map[Phase]string
	phases    []Phase // allowed phase names, set by the schema layer
}

// NewScriptSet builds a script set from explicit maps. Used by tests and by
// programmatic spec construction.
func NewScriptSet(defaults map[Phase]string, overrides map[Platform]map[Phase]string) ScriptSet {
	return ScriptSet{defaults: defaults, overrides: overrides}
}

// SetAllowedPhases restricts the phase keys accepted when decoding YAML.
// The schema layer sets tool or module phases before unmarshalling.
func (s *ScriptSet) SetAllowedPhases(phases []Phase) {
	s.phases = phases
}

// Select returns the command for phase on p: the platform override when one
// exists, otherwise the platform-agnostic default.
func (s ScriptSet) Select(phase Phase, p Platform) (Command, error) {
	if o, ok := s.overrides[p]; ok {
		if text, ok := o[phase]; ok {
			return Command{Text: text}, nil
		}
	}
	if text, ok := s.defaults[phase]; ok {
		return Command{Text: text}, nil
	}
	return Command{}, &MissingScriptError{Phase: phase, Platform: p}
}

// Has reports whether phase resolves to some command on p.
func (s ScriptSet) Has(phase Phase, p Platform) bool {
	_, err := s.Select(phase, p)
	return err == nil
}

// Phases lists every phase defined anywhere in the set, sorted for
// deterministic error messages.
func (s ScriptSet) Phases() []Phase {
	seen := map[Phase]bool{}
	for ph := range s.defaults {
		seen[ph] = true
	}
	for _, o := range s.overrides {
		for ph := range o {
			seen[ph] = true
		}
	}
	out := make([]Phase, 0, len(seen))
	for ph := range seen {
		out = append(out, ph)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UnmarshalYAML decodes the two-level scripts mapping. Top-level keys are
// either phase names or platform names; platform values nest phase → command.
// Unknown keys are rejected so typos fail at load time.
func (s *ScriptSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: scripts must be a mapping", node.Line)
	}
	allowed := s.phases
	if len(allowed) == 0 {
		allowed = append(append([]Phase{}, ToolPhases...), ModulePhases...)
	}
	s.defaults = map[Phase]string{}
	s.overrides = map[Platform]map[Phase]string{}

	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch {
		case phaseAllowed(allowed, Phase(key.Value)):
			var text string
			if err := val.Decode(&text); err != nil {
				return fmt.Errorf("line %d: script %q: %w", val.Line, key.Value, err)
			}
			s.defaults[Phase(key.Value)] = text
		case Known(key.Value):
			nested, err := decodePhaseMap(val, allowed)
			if err != nil {
				return fmt.Errorf("platform %q: %w", key.Value, err)
			}
			s.overrides[Platform(key.Value)] = nested
		default:
			return fmt.Errorf("line %d: unknown script key %q", key.Line, key.Value)
		}
	}
	return nil
}

func decodePhaseMap(node *yaml.Node, allowed []Phase) (map[Phase]string, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a phase mapping", node.Line)
	}
	out := map[Phase]string{}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if !phaseAllowed(allowed, Phase(key.Value)) {
			return nil, fmt.Errorf("line %d: unknown phase %q", key.Line, key.Value)
		}
		var text string
		if err := val.Decode(&text); err != nil {
			return nil, fmt.Errorf("line %d: script %q: %w", val.Line, key.Value, err)
		}
		out[Phase(key.Value)] = text
	}
	return out, nil
}

func phaseAllowed(allowed []Phase, p Phase) bool {
	for _, a := range allowed {
		if a == p {
			return true
		}
	}
	return false
}
