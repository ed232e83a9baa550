package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Wire-shape mirror of the Starterfile document. The runtime types use
// custom unmarshalers and order-preserving lists, which reflection cannot
// see through, so the schema reflects these plain structs instead.
type starterfileDoc struct {
	EnvFile             any                  `json:"env_file,omitempty" jsonschema:"oneof_type=string;array"`
	EnvDumpFile         string               `json:"env_dump_file,omitempty"`
	EnvDumpMode         string               `json:"env_dump_mode,omitempty" jsonschema:"enum=write,enum=append"`
	EnvReplacementFiles any                  `json:"env_replacement_files,omitempty" jsonschema:"oneof_type=string;array"`
	Tools               map[string]toolDoc   `json:"tools,omitempty"`
	Modules             map[string]moduleDoc `json:"modules,omitempty"`
}

type toolDoc struct {
	DependsOn any            `json:"depends_on,omitempty" jsonschema:"oneof_type=string;array"`
	Mode      string         `json:"mode,omitempty" jsonschema:"enum=install,enum=optional,enum=as_alt"`
	Alt       string         `json:"alt,omitempty"`
	SkipIf    string         `json:"skip_if,omitempty"`
	Scripts   map[string]any `json:"scripts" jsonschema:"required"`
}

type moduleDoc struct {
	Dest        string          `json:"dest" jsonschema:"required"`
	DependsOn   any             `json:"depends_on,omitempty" jsonschema:"oneof_type=string;array"`
	SkipIf      string          `json:"skip_if,omitempty"`
	Source      sourceDoc       `json:"source" jsonschema:"required"`
	InitOptions []initOptionDoc `json:"init_options,omitempty"`
	Scripts     map[string]any  `json:"scripts" jsonschema:"required"`
}

type sourceDoc struct {
	Git    string `json:"git,omitempty"`
	Script string `json:"script,omitempty"`
}

type initOptionDoc struct {
	EnvName string `json:"env_name" jsonschema:"required"`
	Prompt  string `json:"prompt" jsonschema:"required"`
	Default any    `json:"default,omitempty"`
	Type    string `json:"type,omitempty" jsonschema:"enum=string,enum=bool,enum=int,enum=float"`
}

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document for the
// Starterfile format using invopop/jsonschema.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&starterfileDoc{})
	s.ID = "https://github.com/start-out/starter/schemas/starterfile-v0.json"
	s.Title = "Starterfile v0"
	s.Description = "Schema for Starterfile YAML documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
