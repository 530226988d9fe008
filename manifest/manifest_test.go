package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/ember/vm"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, `
[project]
name = "test-app"

[vm]
max-call-depth = 200
max-shaped-ivars = 4

[format]
max-size = 4096

[store]
path = "data/snap.db"

[log]
verbosity = 2
file = "/var/log/ember.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.VM.MaxCallDepth != 200 {
		t.Errorf("max-call-depth = %d, want 200", m.VM.MaxCallDepth)
	}
	if m.VM.MaxShapedIVars != 4 {
		t.Errorf("max-shaped-ivars = %d, want 4", m.VM.MaxShapedIVars)
	}
	if m.Format.MaxSize != 4096 {
		t.Errorf("format max-size = %d, want 4096", m.Format.MaxSize)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
	if got, want := m.StorePath(), filepath.Join(m.Dir, "data", "snap.db"); got != want {
		t.Errorf("StorePath = %q, want %q", got, want)
	}
	if got := m.LogFile(); got != "/var/log/ember.log" {
		t.Errorf("LogFile = %q, want absolute path unchanged", got)
	}
	if filepath.Base(m.Path) != TOMLFile {
		t.Errorf("Path = %q, want %s", m.Path, TOMLFile)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.StorePath() != "" {
		t.Errorf("StorePath = %q, want empty", m.StorePath())
	}
	if m.LogFile() != "" {
		t.Errorf("LogFile = %q, want empty", m.LogFile())
	}

	s := vm.NewStateWithConfig(m.VMConfig())
	if got := s.Config().MaxCallDepth; got != vm.DefaultMaxCallDepth {
		t.Errorf("MaxCallDepth = %d, want default %d", got, vm.DefaultMaxCallDepth)
	}
	if got := s.Config().MaxShapedIVars; got != vm.DefaultMaxShapedIVars {
		t.Errorf("MaxShapedIVars = %d, want default %d", got, vm.DefaultMaxShapedIVars)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, YAMLFile, `
project:
  name: yaml-app
vm:
  max-shaped-ivars: 2
store:
  path: snaps.db
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Project.Name != "yaml-app" {
		t.Errorf("project name = %q, want yaml-app", m.Project.Name)
	}
	if got := m.VMConfig().MaxShapedIVars; got != 2 {
		t.Errorf("MaxShapedIVars = %d, want 2", got)
	}
	if got, want := m.StorePath(), filepath.Join(m.Dir, "snaps.db"); got != want {
		t.Errorf("StorePath = %q, want %q", got, want)
	}
}

func TestTOMLPreferredOverYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, "[project]\nname = \"from-toml\"\n")
	writeFile(t, dir, YAMLFile, "project:\n  name: from-yaml\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Project.Name != "from-toml" {
		t.Errorf("project name = %q, want from-toml", m.Project.Name)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Error("Load of empty dir should fail")
	}

	writeFile(t, dir, TOMLFile, "[project\nname=")
	if _, err := Load(dir); err == nil {
		t.Error("Load of invalid TOML should fail")
	}

	writeFile(t, dir, TOMLFile, "[vm]\nmax-call-depth = -1\n")
	if _, err := Load(dir); err == nil {
		t.Error("negative max-call-depth should be rejected")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, TOMLFile, "[project]\nname = \"walker\"\n")
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if m.Project.Name != "walker" {
		t.Errorf("project name = %q, want walker", m.Project.Name)
	}
	abs, _ := filepath.Abs(root)
	if m.Dir != abs {
		t.Errorf("Dir = %q, want %q", m.Dir, abs)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	if _, err := FindAndLoad(t.TempDir()); !errors.Is(err, ErrNotFound) {
		// a manifest somewhere above the temp dir is possible but unlikely
		t.Skipf("FindAndLoad err = %v; a parent directory may hold a manifest", err)
	}
}
