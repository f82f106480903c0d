// Command sourcekit-lsp-core is a thin smoke-testing harness: it opens one
// file through internal/document, computes its diagnostic report or hover
// info through the same engines an editor-facing shell would drive, and
// prints the result as JSON. It does not speak LSP over stdio itself
// (out of scope per spec.md §1) -- for that, a real shell wires these
// packages into jsonrpc2 the way gopls/internal/cmd wires its operations
// into golang.org/x/tools/internal/jsonrpc2.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/config"
	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
	"github.com/swiftlang/sourcekit-lsp-core/internal/diagnostics"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/hover"
	"github.com/swiftlang/sourcekit-lsp-core/internal/parsecache"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML configuration file (internal/config)")
		file       = flag.String("file", "", "Swift source file to open")
		op         = flag.String("op", "diagnostics", "operation to run: diagnostics or hover")
		pos        = flag.String("pos", "0:0", "line:character for -op hover")
		args       = flag.String("compiler-args", "", "comma-separated compiler arguments; if empty, fallback settings are used")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: sourcekit-lsp-core -file <path> [-op diagnostics|hover] [-pos line:character] [-config <path>]")
		os.Exit(2)
	}

	if err := run(*configPath, *file, *op, *pos, *args); err != nil {
		slog.Error("sourcekit-lsp-core", "err", err)
		os.Exit(1)
	}
}

func run(configPath, file, op, posFlag, argsFlag string) error {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	conn, closeConn, err := dialDaemon(cfg.Daemon)
	if err != nil {
		return err
	}
	defer closeConn()

	settings := buildsettings.Settings{Fallback: true}
	if argsFlag != "" {
		if cfg.Daemon.Command == "" {
			return fmt.Errorf("-compiler-args requires a daemon; set daemon.command in -config")
		}
		settings = buildsettings.Settings{CompilerArgs: strings.Split(argsFlag, ","), Fallback: false}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	m := document.NewManager(nil)
	uri := protocol.URIFromPath(file)
	snap, err := m.Open(uri, "swift", 1, data)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch op {
	case "hover":
		if cfg.Daemon.Command == "" {
			return fmt.Errorf("-op hover requires a daemon; set daemon.command in -config")
		}
		position, err := parsePosition(posFlag)
		if err != nil {
			return err
		}
		p := hover.New(conn)
		info, err := p.HoverAt(ctx, snap, position, settings)
		if err != nil {
			return err
		}
		return printJSON(info)

	case "diagnostics":
		trees := parsecache.New()
		trees.ListenTo(m)
		latest := func(uri protocol.DocumentURI) (int32, bool) {
			s, err := m.LatestSnapshot(uri)
			if err != nil {
				return 0, false
			}
			return s.Version(), true
		}
		delay := cfg.Timing.DiagnosticDelay
		engine := diagnostics.New(conn, trees, latest, delay)
		report, err := engine.ReportFor(ctx, snap, settings)
		if err != nil {
			return err
		}
		return printJSON(report)

	default:
		return fmt.Errorf("unknown -op %q (want diagnostics or hover)", op)
	}
}

// dialDaemon spawns cfg.Command (if set) and wraps its stdio in a
// daemon.Conn; with no command configured, it returns a Conn with no
// transport, usable only with fallback build settings.
func dialDaemon(cfg config.Daemon) (*daemon.Conn, func(), error) {
	if cfg.Command == "" {
		return daemon.New(nil, nil), func() {}, nil
	}

	sp, err := dialSubprocess(cfg.Command, cfg.Args)
	if err != nil {
		return nil, nil, fmt.Errorf("starting daemon %s: %w", cfg.Command, err)
	}
	transport := daemon.NewHeaderTransport(sp, nil)
	conn := daemon.New(transport, nil)
	return conn, func() { _ = sp.Close() }, nil
}

func parsePosition(s string) (protocol.Position, error) {
	line, char, ok := strings.Cut(s, ":")
	if !ok {
		return protocol.Position{}, fmt.Errorf("invalid -pos %q, want line:character", s)
	}
	l, err := strconv.ParseUint(line, 10, 32)
	if err != nil {
		return protocol.Position{}, fmt.Errorf("invalid -pos %q: %w", s, err)
	}
	c, err := strconv.ParseUint(char, 10, 32)
	if err != nil {
		return protocol.Position{}, fmt.Errorf("invalid -pos %q: %w", s, err)
	}
	return protocol.Position{Line: uint32(l), Character: uint32(c)}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
