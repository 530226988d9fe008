// Package manifest handles ember.toml (or ember.yaml) project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/ember/vm"
	"gopkg.in/yaml.v3"
)

// File names searched for, in order.
const (
	TOMLFile = "ember.toml"
	YAMLFile = "ember.yaml"
)

// ErrNotFound is returned by FindAndLoad when no manifest exists in the
// directory or any parent.
var ErrNotFound = errors.New("manifest: no ember.toml or ember.yaml found")

// Manifest represents an ember project configuration.
type Manifest struct {
	Project Project      `toml:"project" yaml:"project"`
	VM      VMSection    `toml:"vm" yaml:"vm"`
	Format  FormatConfig `toml:"format" yaml:"format"`
	Store   StoreConfig  `toml:"store" yaml:"store"`
	Log     LogConfig    `toml:"log" yaml:"log"`

	// Dir is the directory containing the manifest file (set at load time).
	Dir string `toml:"-" yaml:"-"`
	// Path is the manifest file itself.
	Path string `toml:"-" yaml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name" yaml:"name"`
}

// VMSection configures runtime limits. Zero means the vm default.
type VMSection struct {
	MaxCallDepth   int `toml:"max-call-depth" yaml:"max-call-depth"`
	MaxShapedIVars int `toml:"max-shaped-ivars" yaml:"max-shaped-ivars"`
}

// FormatConfig configures Kernel#format.
type FormatConfig struct {
	MaxSize int `toml:"max-size" yaml:"max-size"`
}

// StoreConfig locates the snapshot database.
type StoreConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	File      string `toml:"file" yaml:"file"`
}

// Load parses the manifest in dir, preferring ember.toml over ember.yaml.
func Load(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	var m Manifest
	path := filepath.Join(abs, TOMLFile)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		path = filepath.Join(abs, YAMLFile)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m.Dir = abs
	m.Path = path
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	switch {
	case m.VM.MaxCallDepth < 0:
		return fmt.Errorf("vm.max-call-depth must not be negative")
	case m.VM.MaxShapedIVars < 0:
		return fmt.Errorf("vm.max-shaped-ivars must not be negative")
	case m.Format.MaxSize < 0:
		return fmt.Errorf("format.max-size must not be negative")
	}
	return nil
}

// FindAndLoad walks up from startDir to find a manifest, then loads and
// returns it. Returns ErrNotFound if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range []string{TOMLFile, YAMLFile} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return Load(dir)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, ErrNotFound
		}
		dir = parent
	}
}

// VMConfig returns the runtime configuration. Unset limits are left zero
// and take the vm defaults.
func (m *Manifest) VMConfig() vm.Config {
	return vm.Config{
		MaxCallDepth:   m.VM.MaxCallDepth,
		MaxShapedIVars: m.VM.MaxShapedIVars,
	}
}

// StorePath returns the configured snapshot database path, resolved
// against the manifest directory, or "" when none is configured.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Store.Path)
}

// LogFile returns the configured log file path, or "" for stderr.
func (m *Manifest) LogFile() string {
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
