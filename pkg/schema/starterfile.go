// Package schema defines the Go struct types for the Starterfile YAML
// document and provides strict parsing and validation.
package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/start-out/starter/pkg/platform"
)

// Mode is a tool's declared failure and selection policy.
type Mode string

const (
	// ModeInstall tools are always ensured present; failure is fatal.
	ModeInstall Mode = "install"
	// ModeOptional tools are skipped silently when check or install fails.
	ModeOptional Mode = "optional"
	// ModeAsAlt tools are only installed when selected as the live member
	// of an alt group.
	ModeAsAlt Mode = "as_alt"
)

// UnmarshalYAML validates the mode against the closed set.
func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch Mode(s) {
	case ModeInstall, ModeOptional, ModeAsAlt:
		*m = Mode(s)
		return nil
	}
	return fmt.Errorf("line %d: unknown mode %q (want install, optional or as_alt)", node.Line, s)
}

// StringList accepts either a single string or a sequence of strings.
// depends_on and env_file both use it.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*l = StringList(ss)
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

// OptionType names the coercion applied to an init option's answer.
type OptionType string

const (
	TypeString OptionType = "string"
	TypeBool   OptionType = "bool"
	TypeInt    OptionType = "int"
	TypeFloat  OptionType = "float"
)

// InitOption is one interactive prompt declared by a module. The answer is
// stored in the variable store under EnvName before the module's init runs.
type InitOption struct {
	EnvName string     `yaml:"env_name" json:"env_name" jsonschema:"required"`
	Prompt  string     `yaml:"prompt"   json:"prompt"   jsonschema:"required"`
	Default any        `yaml:"default,omitempty" json:"default,omitempty"`
	Type    OptionType `yaml:"type,omitempty"    json:"type,omitempty" jsonschema:"enum=string,enum=bool,enum=int,enum=float"`
}

// Kind returns the option's effective type: the explicit declaration when
// present, otherwise the type of the default's YAML literal, otherwise
// string.
func (o InitOption) Kind() OptionType {
	if o.Type != "" {
		return o.Type
	}
	switch o.Default.(type) {
	case bool:
		return TypeBool
	case int, int64:
		return TypeInt
	case float64:
		return TypeFloat
	default:
		return TypeString
	}
}

// Source describes where a module's content comes from. Exactly one field
// is set.
type Source struct {
	Git    string `yaml:"git,omitempty"    json:"git,omitempty"`
	Script string `yaml:"script,omitempty" json:"script,omitempty"`
}

// Tool is a machine-level dependency with check/install/uninstall phases.
type Tool struct {
	Name      string             `yaml:"-" json:"-"`
	Index     int                `yaml:"-" json:"-"` // declaration position
	DependsOn StringList         `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Mode      Mode               `yaml:"mode,omitempty"       json:"mode,omitempty" jsonschema:"enum=install,enum=optional,enum=as_alt"`
	Alt       string             `yaml:"alt,omitempty"        json:"alt,omitempty"`
	SkipIf    string             `yaml:"skip_if,omitempty"    json:"skip_if,omitempty"`
	Scripts   platform.ScriptSet `yaml:"scripts"              json:"scripts" jsonschema:"required"`
}

func (t *Tool) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: tool must be a mapping", node.Line)
	}
	t.Mode = ModeInstall
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var err error
		switch key.Value {
		case "depends_on":
			err = val.Decode(&t.DependsOn)
		case "mode":
			err = val.Decode(&t.Mode)
		case "alt":
			err = val.Decode(&t.Alt)
		case "skip_if":
			err = val.Decode(&t.SkipIf)
		case "scripts":
			t.Scripts.SetAllowedPhases(platform.ToolPhases)
			err = val.Decode(&t.Scripts)
		default:
			return fmt.Errorf("line %d: unknown tool field %q", key.Line, key.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Module is a project-scoped unit with a destination, a source and
// init/destroy/start phases.
type Module struct {
	Name        string             `yaml:"-" json:"-"`
	Index       int                `yaml:"-" json:"-"`
	Dest        string             `yaml:"dest" json:"dest" jsonschema:"required"`
	DependsOn   StringList         `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	SkipIf      string             `yaml:"skip_if,omitempty"    json:"skip_if,omitempty"`
	Source      Source             `yaml:"source" json:"source" jsonschema:"required"`
	InitOptions []InitOption       `yaml:"init_options,omitempty" json:"init_options,omitempty"`
	Scripts     platform.ScriptSet `yaml:"scripts" json:"scripts" jsonschema:"required"`
}

func (m *Module) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: module must be a mapping", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var err error
		switch key.Value {
		case "dest":
			err = val.Decode(&m.Dest)
		case "depends_on":
			err = val.Decode(&m.DependsOn)
		case "skip_if":
			err = val.Decode(&m.SkipIf)
		case "source":
			err = val.Decode(&m.Source)
		case "init_options":
			err = val.Decode(&m.InitOptions)
		case "scripts":
			m.Scripts.SetAllowedPhases(platform.ModulePhases)
			err = val.Decode(&m.Scripts)
		default:
			return fmt.Errorf("line %d: unknown module field %q", key.Line, key.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ToolList preserves the Starterfile's declaration order, which breaks ties
// in the topological sort.
type ToolList []*Tool

func (l *ToolList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: tools must be a mapping of name to tool", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		t := &Tool{Name: key.Value}
		if err := val.Decode(t); err != nil {
			return fmt.Errorf("tool %q: %w", key.Value, err)
		}
		*l = append(*l, t)
	}
	return nil
}

// ModuleList preserves declaration order, same as ToolList.
type ModuleList []*Module

func (l *ModuleList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: modules must be a mapping of name to module", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		m := &Module{Name: key.Value}
		if err := val.Decode(m); err != nil {
			return fmt.Errorf("module %q: %w", key.Value, err)
		}
		*l = append(*l, m)
	}
	return nil
}

// Starterfile is the top-level document.
type Starterfile struct {
	EnvFiles            StringList `yaml:"env_file,omitempty"  json:"env_file,omitempty"`
	EnvDumpFile         string     `yaml:"env_dump_file,omitempty" json:"env_dump_file,omitempty"`
	EnvDumpMode         string     `yaml:"env_dump_mode,omitempty" json:"env_dump_mode,omitempty" jsonschema:"enum=write,enum=append"`
	EnvReplacementFiles StringList `yaml:"env_replacement_files,omitempty" json:"env_replacement_files,omitempty"`
	Tools               ToolList   `yaml:"tools,omitempty"   json:"tools,omitempty"`
	Modules             ModuleList `yaml:"modules,omitempty" json:"modules,omitempty"`

	// Path and Dir locate the loaded file; env paths resolve against Dir.
	Path string `yaml:"-" json:"-"`
	Dir  string `yaml:"-" json:"-"`
}

// Tool returns the declared tool with the given name.
func (sf *Starterfile) Tool(name string) (*Tool, bool) {
	for _, t := range sf.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Module returns the declared module with the given name.
func (sf *Starterfile) Module(name string) (*Module, bool) {
	for _, m := range sf.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Load parses Starterfile YAML with strict field checking. Unknown
// top-level fields are rejected by the decoder; unknown fields inside
// tools and modules are rejected by their unmarshalers.
func Load(data []byte) (*Starterfile, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse starterfile: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty starterfile")
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: starterfile must be a mapping", doc.Line)
	}

	sf := &Starterfile{}
	for i := 0; i < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		var err error
		switch key.Value {
		case "env_file":
			err = val.Decode(&sf.EnvFiles)
		case "env_dump_file":
			err = val.Decode(&sf.EnvDumpFile)
		case "env_dump_mode":
			err = val.Decode(&sf.EnvDumpMode)
		case "env_replacement_files":
			err = val.Decode(&sf.EnvReplacementFiles)
		case "tools":
			err = val.Decode(&sf.Tools)
		case "modules":
			err = val.Decode(&sf.Modules)
		default:
			return nil, fmt.Errorf("line %d: unknown starterfile field %q", key.Line, key.Value)
		}
		if err != nil {
			return nil, err
		}
	}

	// Declaration indices span tools then modules so the graph resolver
	// can break ordering ties across both kinds.
	idx := 0
	for _, t := range sf.Tools {
		t.Index = idx
		idx++
	}
	for _, m := range sf.Modules {
		m.Index = idx
		idx++
	}
	return sf, nil
}

// LoadFile reads and parses a Starterfile from disk.
func LoadFile(path string) (*Starterfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read starterfile: %w", err)
	}
	sf, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sf.Path = path
	sf.Dir = filepath.Dir(path)
	return sf, nil
}
