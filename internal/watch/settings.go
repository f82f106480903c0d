package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/diagnostics"
	"github.com/swiftlang/sourcekit-lsp-core/internal/interfaces"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
	"github.com/swiftlang/sourcekit-lsp-core/internal/telemetry"
)

// Resolver re-derives a primary file's build settings after its fallback
// settings source changed on disk. Parsing the actual project/build-system
// file format (compile_commands.json, a package manifest, ...) is outside
// this core's scope, so the outer shell supplies one per watched path
// rather than this package owning any file format itself.
type Resolver func(ctx context.Context) (protocol.DocumentURI, buildsettings.Settings, error)

// SettingsCoordinator drives GeneratedInterfaceRegistry.ReopenWithSettings
// and diagnostics cache invalidation from fsnotify-sourced changes to
// fallback build-settings files (spec.md §4.6's reopen-with-settings
// cascade, here triggered automatically rather than only by direct call).
type SettingsCoordinator struct {
	w           *Watcher
	registry    *interfaces.Registry
	diagnostics *diagnostics.Engine
	logger      *slog.Logger

	requestTimeout time.Duration

	mu        sync.Mutex
	resolvers map[string]Resolver
}

// NewSettingsCoordinator creates a coordinator and starts its underlying
// Watcher. registry and diagnostics may each be nil in tests that only
// want to exercise the other.
func NewSettingsCoordinator(delay, requestTimeout time.Duration, logger *slog.Logger, registry *interfaces.Registry, diag *diagnostics.Engine) (*SettingsCoordinator, error) {
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	c := &SettingsCoordinator{
		registry:       registry,
		diagnostics:    diag,
		logger:         logger,
		requestTimeout: requestTimeout,
		resolvers:      make(map[string]Resolver),
	}
	w, err := New(delay, logger, c.onChange)
	if err != nil {
		return nil, err
	}
	c.w = w
	return c, nil
}

// WatchFile starts watching path, calling resolve whenever it changes.
func (c *SettingsCoordinator) WatchFile(path string, resolve Resolver) error {
	c.mu.Lock()
	c.resolvers[path] = resolve
	c.mu.Unlock()
	return c.w.Watch(path)
}

// UnwatchFile stops watching path.
func (c *SettingsCoordinator) UnwatchFile(path string) error {
	c.mu.Lock()
	delete(c.resolvers, path)
	c.mu.Unlock()
	return c.w.Unwatch(path)
}

// Close stops the coordinator's watcher.
func (c *SettingsCoordinator) Close() error {
	return c.w.Close()
}

func (c *SettingsCoordinator) onChange(path string) {
	c.mu.Lock()
	resolve, ok := c.resolvers[path]
	c.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()

	originFile, settings, err := resolve(ctx)
	if err != nil {
		telemetry.Error(ctx, "watch: resolving build settings", err, telemetry.Of("path", path))
		return
	}

	if c.diagnostics != nil {
		c.diagnostics.InvalidateSettings(settings)
	}
	if c.registry != nil {
		if err := c.registry.ReopenWithSettings(ctx, originFile, settings); err != nil {
			telemetry.Error(ctx, "watch: reopening generated interfaces", err, telemetry.Of("originFile", originFile))
		}
	}
}
