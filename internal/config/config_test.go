package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swiftlang/sourcekit-lsp-core/internal/config"
	"github.com/swiftlang/sourcekit-lsp-core/internal/corerr"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesDaemonAndTiming(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
daemon:
  command: sourcekit-lsp
  args: ["--enable-foo"]
timing:
  diagnosticDelay: 300ms
  requestTimeout: 5s
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Daemon.Command != "sourcekit-lsp" || len(cfg.Daemon.Args) != 1 {
		t.Fatalf("got daemon %+v", cfg.Daemon)
	}
	if cfg.Timing.DiagnosticDelay != 300*time.Millisecond {
		t.Fatalf("got diagnosticDelay %v", cfg.Timing.DiagnosticDelay)
	}
	if cfg.Timing.RequestTimeout != 5*time.Second {
		t.Fatalf("got requestTimeout %v", cfg.Timing.RequestTimeout)
	}
}

func TestLoadMissingFileReturnsInternalError(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !corerr.Is(err, corerr.Internal) {
		t.Fatalf("got %v, want corerr.Internal", err)
	}
}

func TestLoadDefaultsZeroTimingWhenOmitted(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "daemon:\n  command: sourcekit-lsp\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timing.DiagnosticDelay != 0 || cfg.Timing.RequestTimeout != 0 {
		t.Fatalf("got timing %+v, want zero values", cfg.Timing)
	}
}

func TestNewCompileCommandValidatorNilWhenNoSchemaPathConfigured(t *testing.T) {
	v, err := config.NewCompileCommandValidator(&config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("got non-nil validator, want nil")
	}
	if err := v.Validate(map[string]any{"anything": true}); err != nil {
		t.Fatalf("nil validator should accept everything, got %v", err)
	}
}

func TestCompileCommandValidatorRejectsRecordMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", `{
		"type": "object",
		"required": ["directory", "file", "arguments"],
		"properties": {
			"directory": {"type": "string"},
			"file": {"type": "string"},
			"arguments": {"type": "array", "items": {"type": "string"}}
		}
	}`)

	v, err := config.NewCompileCommandValidator(&config.Config{CompileCommandSchemaPath: schemaPath})
	if err != nil {
		t.Fatal(err)
	}
	if v == nil {
		t.Fatal("expected a non-nil validator")
	}

	good := map[string]any{
		"directory": "/tmp",
		"file":      "main.swift",
		"arguments": []any{"swiftc", "main.swift"},
	}
	if err := v.Validate(good); err != nil {
		t.Fatalf("expected valid record to pass, got %v", err)
	}

	bad := map[string]any{"directory": "/tmp"}
	if err := v.Validate(bad); !corerr.Is(err, corerr.Internal) {
		t.Fatalf("got %v, want corerr.Internal for a record missing required fields", err)
	}
}
