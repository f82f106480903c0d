// Package config loads this core's static configuration: daemon-connection
// settings and the debounce/timeout knobs internal/diagnostics and
// internal/watch accept as constructor arguments. It plays the same
// "config layer" role gopls's internal/settings package does, but gopls
// has no analogue of the optional compile_command schema check below,
// since its build settings come from go/packages rather than a project
// file this core must validate itself.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/jsonschema-go"
	"gopkg.in/yaml.v3"

	"github.com/swiftlang/sourcekit-lsp-core/internal/corerr"
)

// Daemon holds the settings needed to reach the analysis daemon.
type Daemon struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Timing holds the debounce and cancellation windows accepted by
// internal/diagnostics.New (DiagnosticDelay) and
// internal/watch.NewSettingsCoordinator (RequestTimeout).
type Timing struct {
	DiagnosticDelay time.Duration `yaml:"diagnosticDelay"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
}

// Config is the root of a project's YAML configuration file.
type Config struct {
	Daemon Daemon `yaml:"daemon"`
	Timing Timing `yaml:"timing"`

	// CompileCommandSchemaPath, if set, names a JSON Schema document (draft
	// 2020-12) describing the shape of compile_command records. When
	// present, CompileCommandValidator.Validate rejects any record that doesn't
	// match it before the record reaches the daemon.
	CompileCommandSchemaPath string `yaml:"compileCommandSchemaPath"`
}

// yamlConfig mirrors Config's shape but with string durations, since
// time.Duration has no YAML-native representation; it is only used during
// Load/unmarshal.
type yamlConfig struct {
	Daemon Daemon `yaml:"daemon"`
	Timing struct {
		DiagnosticDelay string `yaml:"diagnosticDelay"`
		RequestTimeout  string `yaml:"requestTimeout"`
	} `yaml:"timing"`
	CompileCommandSchemaPath string `yaml:"compileCommandSchemaPath"`
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, err, "reading config file %s", path)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, corerr.Wrap(corerr.Internal, err, "parsing config file %s", path)
	}

	cfg := &Config{
		Daemon:                   y.Daemon,
		CompileCommandSchemaPath: y.CompileCommandSchemaPath,
	}
	if cfg.Timing.DiagnosticDelay, err = parseDuration(y.Timing.DiagnosticDelay); err != nil {
		return nil, corerr.Wrap(corerr.Internal, err, "config %s: timing.diagnosticDelay", path)
	}
	if cfg.Timing.RequestTimeout, err = parseDuration(y.Timing.RequestTimeout); err != nil {
		return nil, corerr.Wrap(corerr.Internal, err, "config %s: timing.requestTimeout", path)
	}
	return cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// CompileCommandValidator checks compile_command records against a project's
// optional JSON Schema document before they are handed to the daemon.
type CompileCommandValidator struct {
	resolved *jsonschema.Resolved
}

// NewCompileCommandValidator loads and resolves the schema at
// cfg.CompileCommandSchemaPath. It returns a nil *CompileCommandValidator,
// nil error when no schema path was configured: callers should treat a nil
// validator as "everything passes".
func NewCompileCommandValidator(cfg *Config) (*CompileCommandValidator, error) {
	if cfg.CompileCommandSchemaPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(cfg.CompileCommandSchemaPath)
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, err, "reading compile_command schema %s", cfg.CompileCommandSchemaPath)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, corerr.Wrap(corerr.Internal, err, "parsing compile_command schema %s", cfg.CompileCommandSchemaPath)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, err, "resolving compile_command schema %s", cfg.CompileCommandSchemaPath)
	}
	return &CompileCommandValidator{resolved: resolved}, nil
}

// Validate checks one decoded compile_command record against the schema.
// A nil receiver always succeeds, so call sites can skip the "is there a
// schema" check.
func (v *CompileCommandValidator) Validate(record any) error {
	if v == nil {
		return nil
	}
	if err := v.resolved.Validate(record); err != nil {
		return corerr.Wrap(corerr.Internal, err, "compile_command record failed schema validation")
	}
	return nil
}

// String implements fmt.Stringer for Timing, useful in telemetry labels.
func (t Timing) String() string {
	return fmt.Sprintf("diagnosticDelay=%s requestTimeout=%s", t.DiagnosticDelay, t.RequestTimeout)
}
