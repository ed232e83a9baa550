package schema

import (
	"strings"
	"testing"

	"github.com/start-out/starter/pkg/platform"
)

func domainErrors(t *testing.T, doc string) []*ValidationError {
	t.Helper()
	sf, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return validateDomainOn(sf, platform.Linux)
}

func hasError(errs []*ValidationError, fragment string) bool {
	for _, e := range errs {
		if strings.Contains(e.Message, fragment) {
			return true
		}
	}
	return false
}

func TestDomainValidSample(t *testing.T) {
	if errs := domainErrors(t, sampleStarterfile); len(errs) != 0 {
		t.Fatalf("unexpected domain errors: %v", errs)
	}
}

func TestDomainUnknownReference(t *testing.T) {
	errs := domainErrors(t, `
tools:
  a:
    depends_on: ghost
    scripts: {check: c, install: i, uninstall: u}
`)
	if !hasError(errs, `unknown reference "ghost"`) {
		t.Fatalf("errors = %v", errs)
	}
}

func TestDomainToolDependsOnModule(t *testing.T) {
	errs := domainErrors(t, `
tools:
  a:
    depends_on: m
    scripts: {check: c, install: i, uninstall: u}
modules:
  m:
    dest: d
    source: {git: u}
    scripts: {init: i, destroy: d}
`)
	if !hasError(errs, "may not depend on module") {
		t.Fatalf("errors = %v", errs)
	}
}

func TestDomainAltCoherence(t *testing.T) {
	errs := domainErrors(t, `
tools:
  a:
    alt: b
    scripts: {check: c, install: i, uninstall: u}
  b:
    scripts: {check: c, install: i, uninstall: u}
`)
	if !hasError(errs, "must have mode as_alt") {
		t.Fatalf("alt target without as_alt mode not flagged: %v", errs)
	}

	errs = domainErrors(t, `
tools:
  a:
    alt: a
    scripts: {check: c, install: i, uninstall: u}
`)
	if !hasError(errs, "its own alternate") {
		t.Fatalf("self alt not flagged: %v", errs)
	}
}

func TestDomainSourceOneOf(t *testing.T) {
	errs := domainErrors(t, `
modules:
  m:
    dest: d
    source: {git: u, script: s}
    scripts: {init: i, destroy: d}
`)
	if !hasError(errs, "mutually exclusive") {
		t.Fatalf("errors = %v", errs)
	}

	errs = domainErrors(t, `
modules:
  m:
    dest: d
    source: {}
    scripts: {init: i, destroy: d}
`)
	if !hasError(errs, "one of git or script") {
		t.Fatalf("errors = %v", errs)
	}
}

func TestDomainMissingRequiredScript(t *testing.T) {
	errs := domainErrors(t, `
tools:
  a:
    scripts: {check: c, install: i}
`)
	if !hasError(errs, `no "uninstall" script`) {
		t.Fatalf("errors = %v", errs)
	}

	// start is optional; its absence is not an error.
	errs = domainErrors(t, `
modules:
  m:
    dest: d
    source: {git: u}
    scripts: {init: i, destroy: d}
`)
	if len(errs) != 0 {
		t.Fatalf("module without start flagged: %v", errs)
	}
}

func TestDomainEnvDump(t *testing.T) {
	errs := domainErrors(t, "env_dump_mode: sideways\nenv_dump_file: .env.out\n")
	if !hasError(errs, "must be write or append") {
		t.Fatalf("errors = %v", errs)
	}
}

func TestValidateSemanticCatchesWrongTypes(t *testing.T) {
	errs := validateSemantic([]byte(`
tools:
  a:
    mode: 42
    scripts: {check: c, install: i, uninstall: u}
`))
	if len(errs) == 0 {
		t.Fatal("numeric mode should fail schema validation")
	}
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"starterfile-v0.json", "tools", "modules", "init_options"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("schema missing %q", want)
		}
	}
}
