package vars

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := strings.Join([]string{
		"# comment",
		"",
		"PORT=3000",
		`NAME="my app"`,
		"TOKEN='abc'",
		"not a pair",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	if err := LoadEnvFile(s, path); err != nil {
		t.Fatal(err)
	}
	for k, want := range map[string]string{"PORT": "3000", "NAME": "my app", "TOKEN": "abc"} {
		if got, _ := s.Get(k); got != want {
			t.Errorf("%s = %q; want %q", k, got, want)
		}
	}
	if _, ok := s.Get("not a pair"); ok {
		t.Error("malformed line should be skipped")
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	s := NewStore()
	if err := LoadEnvFile(s, filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatal("want error for missing env file")
	}
}

func TestWriteDumpAppendKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.out")
	if err := os.WriteFile(path, []byte("PORT=8080\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	s.Set("PORT", "3000", "test")
	s.Set("NAME", "app", "test")
	if err := WriteDump(s, path, DumpAppend); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "PORT=8080") {
		t.Errorf("append mode must keep the existing PORT line:\n%s", got)
	}
	if strings.Contains(got, "PORT=3000") {
		t.Errorf("append mode must not duplicate PORT:\n%s", got)
	}
	if !strings.Contains(got, "NAME=app") {
		t.Errorf("new key NAME missing:\n%s", got)
	}
}

func TestWriteDumpWriteTruncates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.out")
	if err := os.WriteFile(path, []byte("STALE=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	s.Set("FRESH", "1", "test")
	if err := WriteDump(s, path, DumpWrite); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "STALE") {
		t.Errorf("write mode must truncate:\n%s", data)
	}
	if !strings.Contains(string(data), "FRESH=1") {
		t.Errorf("FRESH missing:\n%s", data)
	}
}

func TestRewriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"port": "${PORT}", "other": "${UNSET_X}"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	s.Set("PORT", "3000", "test")
	if err := RewriteFile(s, path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	got := string(data)
	if !strings.Contains(got, `"port": "3000"`) {
		t.Errorf("known reference not replaced:\n%s", got)
	}
	if !strings.Contains(got, "${UNSET_X}") {
		t.Errorf("unknown reference must survive:\n%s", got)
	}
}

func TestRewriteFileMissingIsNoop(t *testing.T) {
	s := NewStore()
	if err := RewriteFile(s, filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Fatal(err)
	}
}
