// Package diagnostics implements DiagnosticEngine (spec.md §4.3): debounced,
// cancellable per-document diagnostic production merging parse-stage
// results (from internal/syntax, via internal/parsecache) with
// semantic-stage results (from the analysis daemon).
//
// Grounded on gopls/internal/server/diagnostics.go's diagnoseSnapshot,
// whose shape is "cancel any in-flight task for this uri, wait on
// time.After or ctx.Done, then recompute and publish" -- generalized here
// into a per-uri debouncer -- and on gopls/internal/filewatcher/
// filewatcher.go's timer-driven batch flush for the same cancel-then-
// reschedule idiom.
package diagnostics

import (
	"context"
	"sync"
	"time"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/corerr"
	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/lru"
	"github.com/swiftlang/sourcekit-lsp-core/internal/parsecache"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
	"github.com/swiftlang/sourcekit-lsp-core/internal/syntax"
	"github.com/swiftlang/sourcekit-lsp-core/internal/telemetry"
)

// Capacity is the report cache's fixed size (spec.md §4.3: "bounded LRU
// size 5").
const Capacity = 5

// DefaultDelay is the debounce window before a scheduled publish actually
// runs (spec.md §4.3: "a configurable delay (hundreds of milliseconds)").
const DefaultDelay = 250 * time.Millisecond

// Stage distinguishes a diagnostic's origin.
type Stage int

const (
	StageParse Stage = iota + 1
	StageSemantic
)

func (s Stage) String() string {
	if s == StageSemantic {
		return "semantic"
	}
	return "parse"
}

// Diagnostic is one reported problem, positioned in editor coordinates.
type Diagnostic struct {
	Range    protocol.Range
	Severity string
	Message  string
	Stage    Stage
}

// Report is the full diagnostic set published for one document.
type Report struct {
	URI         protocol.DocumentURI
	Diagnostics []Diagnostic
}

func (r *Report) diagnosticsOfStage(stage Stage) []Diagnostic {
	if r == nil {
		return nil
	}
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Stage == stage {
			out = append(out, d)
		}
	}
	return out
}

type cacheKey struct {
	id  document.ID
	key string
}

// LatestVersionFunc reports the currently-open version of uri, so a
// report_for call that raced a newer edit can detect it lost.
type LatestVersionFunc func(uri protocol.DocumentURI) (version int32, ok bool)

// Engine is the per-process diagnostic production and publish scheduler.
type Engine struct {
	conn   *daemon.Conn
	trees  *parsecache.Cache
	delay  time.Duration
	latest LatestVersionFunc

	cache *lru.Cache[cacheKey, *Report]

	mu         sync.Mutex
	inflight   map[protocol.DocumentURI]context.CancelFunc
	lastReport map[protocol.DocumentURI]*Report
}

// New creates an Engine. conn may be nil only in tests that never exercise
// real build settings.
func New(conn *daemon.Conn, trees *parsecache.Cache, latest LatestVersionFunc, delay time.Duration) *Engine {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Engine{
		conn:       conn,
		trees:      trees,
		delay:      delay,
		latest:     latest,
		cache:      lru.New[cacheKey, *Report](Capacity),
		inflight:   make(map[protocol.DocumentURI]context.CancelFunc),
		lastReport: make(map[protocol.DocumentURI]*Report),
	}
}

// ReportFor returns the diagnostic set for snap under settings (spec.md
// §4.3). Results are cached keyed by (snapshot_id, build_settings); a
// repeated call for the same key returns the cached report without a new
// daemon call (spec.md §8, Idempotence).
func (e *Engine) ReportFor(ctx context.Context, snap *document.Snapshot, settings buildsettings.Settings) (*Report, error) {
	key := cacheKey{id: snap.ID(), key: settings.Key()}
	if r, ok := e.cache.Get(key); ok {
		return r, nil
	}

	var diags []Diagnostic
	if settings.IsReal() {
		var result daemon.DiagnosticsResult
		err := e.conn.Call(ctx, daemon.MethodDiagnostics, daemon.DiagnosticsParams{
			SourceFile:   string(snap.URI()),
			CompilerArgs: settings.CompilerArgs,
		}, &result)
		if err != nil {
			return nil, err
		}
		diags = semanticDiagnostics(snap, result.Diagnostics)
	} else {
		tree := e.trees.TreeFor(ctx, snap)
		diags = parseDiagnostics(snap, tree.Diagnostics)
	}

	if e.latest != nil {
		if v, ok := e.latest(snap.URI()); !ok || v != snap.Version() {
			return nil, corerr.New(corerr.DocumentModified, "report_for(%s) raced a newer edit", snap.URI())
		}
	}

	report := &Report{URI: snap.URI(), Diagnostics: diags}
	e.cache.Set(key, report, 1)
	return report, nil
}

// InvalidateSettings drops every cached report produced under settings,
// forcing the next ReportFor call for any affected snapshot to recompute.
// Driven by internal/watch when a fallback build-settings file changes on
// disk underneath an already-open document.
func (e *Engine) InvalidateSettings(settings buildsettings.Settings) {
	want := settings.Key()
	e.cache.DeleteFunc(func(k cacheKey, _ *Report) bool {
		return k.key != want
	})
}

func parseDiagnostics(snap *document.Snapshot, ds []syntax.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(ds))
	for _, d := range ds {
		startPos, err := snap.LineTable().PositionOf(d.Start)
		if err != nil {
			continue
		}
		endPos, err := snap.LineTable().PositionOf(d.End)
		if err != nil {
			endPos = startPos
		}
		out = append(out, Diagnostic{
			Range:    protocol.Range{Start: startPos, End: endPos},
			Severity: "error",
			Message:  d.Message,
			Stage:    StageParse,
		})
	}
	return out
}

func semanticDiagnostics(snap *document.Snapshot, ds []daemon.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(ds))
	for _, d := range ds {
		startPos, err := snap.LineTable().PositionOf(d.Offset)
		if err != nil {
			continue
		}
		endPos, err := snap.LineTable().PositionOf(d.Offset + d.Length)
		if err != nil {
			endPos = startPos
		}
		out = append(out, Diagnostic{
			Range:    protocol.Range{Start: startPos, End: endPos},
			Severity: d.Severity,
			Message:  d.Message,
			Stage:    StageSemantic,
		})
	}
	return out
}

// merge applies spec.md §4.3's stage-merging rule and records the result
// as the new last-published report for uri.
func (e *Engine) merge(uri protocol.DocumentURI, incoming *Report, incomingStage Stage, settingsReal bool) *Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.lastReport[uri]
	var merged *Report
	switch {
	case incomingStage == StageParse:
		// New parse results: keep semantic diagnostics from the previous
		// report until a fresh semantic result arrives.
		merged = &Report{URI: uri, Diagnostics: append(incoming.diagnosticsOfStage(StageParse), prev.diagnosticsOfStage(StageSemantic)...)}
	case incomingStage == StageSemantic && !settingsReal:
		// Fallback semantic result: keep previous semantic, refresh parse only.
		merged = &Report{URI: uri, Diagnostics: append(incoming.diagnosticsOfStage(StageParse), prev.diagnosticsOfStage(StageSemantic)...)}
	default:
		// Real settings: the daemon's result is authoritative for both stages.
		merged = incoming
	}
	e.lastReport[uri] = merged
	return merged
}

// Schedule cancels any in-flight publish task for snap's uri and schedules
// a fresh one after the debounce delay (spec.md §4.3). publish is invoked
// with the stage-merged report once the task completes without being
// cancelled or losing its race.
func (e *Engine) Schedule(ctx context.Context, snap *document.Snapshot, settings buildsettings.Settings, publish func(*Report)) {
	e.mu.Lock()
	if cancel, ok := e.inflight[snap.URI()]; ok {
		cancel()
	}
	taskCtx, cancel := context.WithCancel(ctx)
	e.inflight[snap.URI()] = cancel
	e.mu.Unlock()

	stage := StageParse
	if settings.IsReal() {
		stage = StageSemantic
	}

	go func() {
		select {
		case <-time.After(e.delay):
		case <-taskCtx.Done():
			return
		}

		report, err := e.ReportFor(taskCtx, snap, settings)
		if err != nil {
			if corerr.Is(err, corerr.DocumentModified) {
				return
			}
			telemetry.Error(taskCtx, "diagnostic publish failed", err, telemetry.Of("uri", string(snap.URI())))
			return
		}
		if taskCtx.Err() != nil {
			return
		}
		publish(e.merge(snap.URI(), report, stage, settings.IsReal()))
	}()
}
