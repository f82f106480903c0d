package watch_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
	"github.com/swiftlang/sourcekit-lsp-core/internal/interfaces"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
	"github.com/swiftlang/sourcekit-lsp-core/internal/watch"
)

type fakeTransport struct {
	mu        sync.Mutex
	openCalls int
}

func (f *fakeTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if method == daemon.MethodEditorOpenInterface {
		f.openCalls++
		return json.Marshal(daemon.EditorOpenInterfaceResult{SourceText: "public class Foo {}\n"})
	}
	return json.Marshal(struct{}{})
}

func (f *fakeTransport) Notify(ctx context.Context, method string, params any) error { return nil }
func (f *fakeTransport) Close() error                                                { return nil }

func TestSettingsCoordinatorReopensInterfacesOnFileChange(t *testing.T) {
	ft := &fakeTransport{}
	conn := daemon.New(ft, nil)
	registry := interfaces.New(conn, "sourcekit-lsp")

	originFile := protocol.URIFromPath("/tmp/Foo.swift")
	d := interfaces.Descriptor{ModuleName: "Foo", OriginFile: originFile, Settings: buildsettings.Settings{Fallback: true}}
	if _, _, err := registry.Open(context.Background(), d); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "buildSettings.json")
	if err := os.WriteFile(settingsPath, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved := make(chan struct{}, 1)
	resolve := func(ctx context.Context) (protocol.DocumentURI, buildsettings.Settings, error) {
		resolved <- struct{}{}
		return originFile, buildsettings.Settings{CompilerArgs: []string{"-DNEW"}}, nil
	}

	coord, err := watch.NewSettingsCoordinator(20*time.Millisecond, time.Second, nil, registry, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer coord.Close()

	if err := coord.WatchFile(settingsPath, resolve); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(settingsPath, []byte(`{"args":["-DNEW"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-resolved:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the resolver to run")
	}

	deadline := time.After(2 * time.Second)
	for {
		ft.mu.Lock()
		calls := ft.openCalls
		ft.mu.Unlock()
		if calls >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("got %d editor-open-interface calls, want at least 2 (initial open + reopen)", calls)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSettingsCoordinatorIgnoresUnwatchedFile(t *testing.T) {
	coord, err := watch.NewSettingsCoordinator(20*time.Millisecond, time.Second, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer coord.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "other.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	called := false
	if err := coord.WatchFile(path, func(ctx context.Context) (protocol.DocumentURI, buildsettings.Settings, error) {
		called = true
		return "", buildsettings.Settings{}, nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := coord.UnwatchFile(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(`{"x":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if called {
		t.Fatal("resolver ran after UnwatchFile")
	}
}
