package diagnostics_test

import (
	"context"
	"testing"
	"time"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/diagnostics"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/parsecache"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

func newFixture(t *testing.T) (*document.Manager, *diagnostics.Engine, protocol.DocumentURI) {
	t.Helper()
	m := document.NewManager(nil)
	trees := parsecache.New()
	trees.ListenTo(m)

	latest := func(uri protocol.DocumentURI) (int32, bool) {
		snap, err := m.LatestSnapshot(uri)
		if err != nil {
			return 0, false
		}
		return snap.Version(), true
	}
	e := diagnostics.New(nil, trees, latest, time.Millisecond)
	return m, e, protocol.URIFromPath("/tmp/foo.swift")
}

func TestReportForFallbackProducesParseStage(t *testing.T) {
	m, e, uri := newFixture(t)
	snap, err := m.Open(uri, "swift", 1, []byte("let x = "))
	if err != nil {
		t.Fatal(err)
	}

	report, err := e.ReportFor(context.Background(), snap, buildsettings.Settings{Fallback: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(report.Diagnostics))
	}
	if report.Diagnostics[0].Stage != diagnostics.StageParse {
		t.Fatalf("got stage %v, want parse", report.Diagnostics[0].Stage)
	}
}

func TestReportForOpenThenChangeMatchesScenario1(t *testing.T) {
	m, e, uri := newFixture(t)
	snap1, err := m.Open(uri, "swift", 1, []byte("let x = 1"))
	if err != nil {
		t.Fatal(err)
	}
	report1, err := e.ReportFor(context.Background(), snap1, buildsettings.Settings{Fallback: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(report1.Diagnostics) != 0 {
		t.Fatalf("complete assignment should report no diagnostics, got %d", len(report1.Diagnostics))
	}

	_, snap2, err := m.Change(context.Background(), uri, 2, []document.Change{{Replacement: "let x = "}})
	if err != nil {
		t.Fatal(err)
	}
	report2, err := e.ReportFor(context.Background(), snap2, buildsettings.Settings{Fallback: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(report2.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(report2.Diagnostics))
	}
	if got := report2.Diagnostics[0].Range.Start.Character; got != 8 {
		t.Fatalf("got column %d, want 8", got)
	}
}

func TestReportForCachesByKey(t *testing.T) {
	m, e, uri := newFixture(t)
	snap, err := m.Open(uri, "swift", 1, []byte("let x = 1"))
	if err != nil {
		t.Fatal(err)
	}

	r1, err := e.ReportFor(context.Background(), snap, buildsettings.Settings{Fallback: true})
	if err != nil {
		t.Fatal(err)
	}
	r2, err := e.ReportFor(context.Background(), snap, buildsettings.Settings{Fallback: true})
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Fatal("expected identical cached *Report instance for the same (snapshot, settings) key")
	}
}

func TestInvalidateSettingsForcesRecompute(t *testing.T) {
	m, e, uri := newFixture(t)
	snap, err := m.Open(uri, "swift", 1, []byte("let x = 1"))
	if err != nil {
		t.Fatal(err)
	}
	settings := buildsettings.Settings{Fallback: true}

	r1, err := e.ReportFor(context.Background(), snap, settings)
	if err != nil {
		t.Fatal(err)
	}

	e.InvalidateSettings(buildsettings.Settings{Fallback: true, CompilerArgs: []string{"-DOTHER"}})
	if r2, err := e.ReportFor(context.Background(), snap, settings); err != nil {
		t.Fatal(err)
	} else if r1 != r2 {
		t.Fatal("invalidating an unrelated settings key should not evict this report")
	}

	e.InvalidateSettings(settings)
	r3, err := e.ReportFor(context.Background(), snap, settings)
	if err != nil {
		t.Fatal(err)
	}
	if r1 == r3 {
		t.Fatal("expected a freshly computed *Report after InvalidateSettings")
	}
}

func TestScheduleDebouncesRapidEdits(t *testing.T) {
	m, e, uri := newFixture(t)
	snap, err := m.Open(uri, "swift", 1, []byte("let x = 1"))
	if err != nil {
		t.Fatal(err)
	}

	published := make(chan *diagnostics.Report, 4)
	ctx := context.Background()
	settings := buildsettings.Settings{Fallback: true}

	e.Schedule(ctx, snap, settings, func(r *diagnostics.Report) { published <- r })
	e.Schedule(ctx, snap, settings, func(r *diagnostics.Report) { published <- r })
	e.Schedule(ctx, snap, settings, func(r *diagnostics.Report) { published <- r })

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("expected exactly one publish after debouncing 3 rapid schedules")
	}
	select {
	case r := <-published:
		t.Fatalf("unexpected second publish: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
	_ = m
}
