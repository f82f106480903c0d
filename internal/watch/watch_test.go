package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swiftlang/sourcekit-lsp-core/internal/watch"
)

func waitForChange(t *testing.T, changes chan string, want string) {
	t.Helper()
	select {
	case got := <-changes:
		if got != want {
			t.Fatalf("got change for %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a change notification for %q", want)
	}
}

func TestWatchNotifiesOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buildSettings.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan string, 8)
	w, err := watch.New(20*time.Millisecond, nil, func(p string) { changes <- p })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(`{"args":["-DFOO"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	waitForChange(t, changes, filepath.Clean(path))
}

func TestUnwatchStopsNotifications(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buildSettings.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan string, 8)
	w, err := watch.New(20*time.Millisecond, nil, func(p string) { changes <- p })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	if err := w.Unwatch(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(`{"args":["-DFOO"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		t.Fatalf("got unexpected change notification for %q after Unwatch", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchIgnoresUnrelatedFilesInSameDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buildSettings.json")
	other := filepath.Join(dir, "unrelated.txt")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan string, 8)
	w, err := watch.New(20*time.Millisecond, nil, func(p string) { changes <- p })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(other, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		t.Fatalf("got unexpected change notification for %q", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestCloseThenWatchReturnsErrClosed(t *testing.T) {
	w, err := watch.New(20*time.Millisecond, nil, func(string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(filepath.Join(t.TempDir(), "x")); err != watch.ErrClosed {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}
