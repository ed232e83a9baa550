package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/start-out/starter/pkg/platform"
)

// ValidationError represents a single validation error with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // JSON-path-like location (e.g. "tools.node.alt")
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// ValidateFile performs the full 3-phase validation pipeline on a Starterfile.
// Phase 1: Structural (strict YAML decode)
// Phase 2: Semantic (JSON Schema validation)
// Phase 3: Domain (custom Go rules)
// Graph-level checks (cycles, orphan alts) live in pkg/graph; callers that
// want the complete picture run graph.Resolve on the returned Starterfile.
func ValidateFile(path string) (*Starterfile, []*ValidationError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase: "structural", Message: err.Error(), Severity: "error",
		}}
	}
	return validate(path, data)
}

func validate(path string, data []byte) (*Starterfile, []*ValidationError) {
	var allErrors []*ValidationError

	sf, err := Load(data)
	if err != nil {
		allErrors = append(allErrors, &ValidationError{
			Phase: "structural", Message: err.Error(), Severity: "error",
		})
		return nil, allErrors
	}
	sf.Path = path
	if path != "" {
		sf.Dir = dirOf(path)
	}

	allErrors = append(allErrors, validateSemantic(data)...)
	allErrors = append(allErrors, ValidateDomain(sf)...)

	if len(allErrors) > 0 {
		return sf, allErrors
	}
	return sf, nil
}

func dirOf(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[:i]
	}
	return "."
}

// validateSemantic checks the raw document against the generated JSON
// Schema. The generic YAML tree, not the typed model, is validated so the
// schema sees exactly what the author wrote.
func validateSemantic(data []byte) []*ValidationError {
	fail := func(msg string) []*ValidationError {
		return []*ValidationError{{Phase: "semantic", Message: msg, Severity: "error"}}
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fail(fmt.Sprintf("parse for schema validation: %v", err))
	}
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fail(fmt.Sprintf("marshal for schema validation: %v", err))
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return fail(fmt.Sprintf("generate schema: %v", err))
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return fail(fmt.Sprintf("unmarshal schema: %v", err))
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("starterfile-v0.json", schemaDoc); err != nil {
		return fail(fmt.Sprintf("add schema resource: %v", err))
	}
	sch, err := c.Compile("starterfile-v0.json")
	if err != nil {
		return fail(fmt.Sprintf("compile schema: %v", err))
	}

	var instance any
	if err := json.Unmarshal(jsonDoc, &instance); err != nil {
		return fail(fmt.Sprintf("unmarshal instance: %v", err))
	}
	if err := sch.Validate(instance); err != nil {
		var out []*ValidationError
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			for _, leaf := range flattenValidationErrors(ve) {
				out = append(out, &ValidationError{
					Phase:    "semantic",
					Path:     strings.Join(leaf.InstanceLocation, "/"),
					Message:  fmt.Sprintf("%v", leaf.ErrorKind),
					Severity: "error",
				})
			}
			return out
		}
		return fail(err.Error())
	}
	return nil
}

func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var out []*sjsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, flattenValidationErrors(c)...)
	}
	return out
}

// ValidateDomain applies the rules JSON Schema cannot express: name
// resolution, mode and alt coherence, source one-of, and script presence
// on the current platform.
func ValidateDomain(sf *Starterfile) []*ValidationError {
	return validateDomainOn(sf, platform.Current())
}

func validateDomainOn(sf *Starterfile, p platform.Platform) []*ValidationError {
	var errs []*ValidationError
	addErr := func(path, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Phase: "domain", Path: path,
			Message:  fmt.Sprintf(format, args...),
			Severity: "error",
		})
	}

	tools := map[string]*Tool{}
	declared := map[string]bool{}
	for _, t := range sf.Tools {
		if declared[t.Name] {
			addErr("tools."+t.Name, "duplicate name %q", t.Name)
		}
		declared[t.Name] = true
		tools[t.Name] = t
	}
	for _, m := range sf.Modules {
		if declared[m.Name] {
			addErr("modules."+m.Name, "duplicate name %q", m.Name)
		}
		declared[m.Name] = true
	}

	for _, t := range sf.Tools {
		path := "tools." + t.Name
		for _, dep := range t.DependsOn {
			if _, ok := tools[dep]; ok {
				continue
			}
			if declared[dep] {
				addErr(path+".depends_on", "tool %q may not depend on module %q", t.Name, dep)
			} else {
				addErr(path+".depends_on", "unknown reference %q", dep)
			}
		}
		if t.Alt != "" {
			switch target, ok := tools[t.Alt]; {
			case t.Alt == t.Name:
				addErr(path+".alt", "tool %q cannot be its own alternate", t.Name)
			case !ok:
				addErr(path+".alt", "unknown alt target %q", t.Alt)
			case target.Mode != ModeAsAlt:
				addErr(path+".alt", "alt target %q must have mode as_alt, has %q", t.Alt, target.Mode)
			}
		}
		for _, phase := range platform.ToolPhases {
			if !t.Scripts.Has(phase, p) {
				addErr(path+".scripts", "no %q script resolves on platform %q", phase, p)
			}
		}
	}

	for _, m := range sf.Modules {
		path := "modules." + m.Name
		if m.Dest == "" {
			addErr(path+".dest", "dest is required")
		}
		for _, dep := range m.DependsOn {
			if !declared[dep] {
				addErr(path+".depends_on", "unknown reference %q", dep)
			}
		}
		switch {
		case m.Source.Git == "" && m.Source.Script == "":
			addErr(path+".source", "one of git or script is required")
		case m.Source.Git != "" && m.Source.Script != "":
			addErr(path+".source", "git and script are mutually exclusive")
		}
		seenOpts := map[string]bool{}
		for i, opt := range m.InitOptions {
			optPath := fmt.Sprintf("%s.init_options[%d]", path, i)
			if opt.EnvName == "" {
				addErr(optPath, "env_name is required")
			} else if seenOpts[opt.EnvName] {
				addErr(optPath, "duplicate env_name %q", opt.EnvName)
			}
			seenOpts[opt.EnvName] = true
			if opt.Prompt == "" {
				addErr(optPath, "prompt is required")
			}
		}
		// start is only needed when the start operation is requested.
		for _, phase := range []platform.Phase{platform.PhaseInit, platform.PhaseDestroy} {
			if !m.Scripts.Has(phase, p) {
				addErr(path+".scripts", "no %q script resolves on platform %q", phase, p)
			}
		}
	}

	if sf.EnvDumpMode != "" && sf.EnvDumpMode != "write" && sf.EnvDumpMode != "append" {
		addErr("env_dump_mode", "must be write or append, got %q", sf.EnvDumpMode)
	}
	if sf.EnvDumpMode != "" && sf.EnvDumpFile == "" {
		addErr("env_dump_mode", "env_dump_mode without env_dump_file has no effect")
	}

	return errs
}
