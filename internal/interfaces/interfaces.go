// Package interfaces implements GeneratedInterfaceRegistry (spec.md §4.6):
// a refcounted cache of synthesized module-interface documents, backed by
// the analysis daemon's editor-open-interface/editor-find-usr requests,
// with an LRU over refcount-zero entries and race-safe concurrent opens
// of the same descriptor.
//
// Grounded on spec.md §4.6 and on spec.md §9's refcount-guard design note;
// the reopen_with_settings fan-out follows gopls's
// cache.Session.DidModifyFiles errgroup-based invalidation cascade.
package interfaces

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/corerr"
	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
	"github.com/swiftlang/sourcekit-lsp-core/internal/refdoc"
)

// Capacity bounds the refcount-zero LRU (spec.md §4.6: "LRU of size 2").
const Capacity = 2

// Descriptor identifies one synthesized module interface.
type Descriptor struct {
	ModuleName           string
	GroupName            string
	SymbolName           string
	SynthesizedExtension bool
	OriginFile           protocol.DocumentURI
	Settings             buildsettings.Settings
}

type key struct {
	moduleName, groupName, symbolName string
	synthesizedExtension              bool
	settingsKey                       string
}

func keyOf(d Descriptor) key {
	return key{
		moduleName:           d.ModuleName,
		groupName:            d.GroupName,
		symbolName:           d.SymbolName,
		synthesizedExtension: d.SynthesizedExtension,
		settingsKey:          d.Settings.Key(),
	}
}

type entry struct {
	descriptor Descriptor
	uri        protocol.DocumentURI
	position   *protocol.Position
	refcount   int
}

// Registry is the per-process generated-interface cache.
type Registry struct {
	conn   *daemon.Conn
	docs   *document.Manager
	scheme string

	mu       sync.Mutex
	entries  map[key]*entry
	zeroRefs []key // oldest..newest among refcount-0 entries
	opening  map[key]chan struct{}
}

// New creates a Registry. scheme is the reference-document uri scheme
// used for synthesized interfaces (spec.md §6).
func New(conn *daemon.Conn, scheme string) *Registry {
	return &Registry{
		conn:    conn,
		docs:    document.NewManager(nil),
		scheme:  scheme,
		entries: make(map[key]*entry),
		opening: make(map[key]chan struct{}),
	}
}

// Open returns the synthesized interface's uri and, if desc named a
// symbol, the position of that symbol within it (spec.md §4.6's open).
// The caller becomes a holder: refcount += 1.
func (r *Registry) Open(ctx context.Context, desc Descriptor) (protocol.DocumentURI, *protocol.Position, error) {
	k := keyOf(desc)

	for {
		r.mu.Lock()
		if e, ok := r.entries[k]; ok {
			e.refcount++
			r.removeFromZeroRefsLocked(k)
			r.mu.Unlock()
			return e.uri, e.position, nil
		}
		if ch, ok := r.opening[k]; ok {
			r.mu.Unlock()
			select {
			case <-ch:
				continue // the winning opener has populated entries[k] (or failed); retry.
			case <-ctx.Done():
				return "", nil, corerr.Daemon(corerr.DaemonCancelled, ctx.Err())
			}
		}
		ch := make(chan struct{})
		r.opening[k] = ch
		r.mu.Unlock()

		uri, position, openErr := r.openFromDaemon(ctx, desc, k)

		r.mu.Lock()
		delete(r.opening, k)
		r.mu.Unlock()
		close(ch)

		return uri, position, openErr
	}
}

func (r *Registry) openFromDaemon(ctx context.Context, desc Descriptor, k key) (protocol.DocumentURI, *protocol.Position, error) {
	var result daemon.EditorOpenInterfaceResult
	err := r.conn.Call(ctx, daemon.MethodEditorOpenInterface, daemon.EditorOpenInterfaceParams{
		ModuleName:           desc.ModuleName,
		GroupName:            desc.GroupName,
		SymbolName:           desc.SymbolName,
		SynthesizedExtension: desc.SynthesizedExtension,
		CompilerArgs:         desc.Settings.CompilerArgs,
	}, &result)
	if err != nil {
		return "", nil, err
	}

	uri := refdoc.EncodeGeneratedInterface(r.scheme, refdoc.GeneratedInterfaceRef{
		DisplayName: displayName(desc),
		ModuleName:  desc.ModuleName,
		GroupName:   desc.GroupName,
		PrimaryFile: desc.OriginFile,
	})

	snap, err := r.docs.Open(uri, "swift", 1, []byte(result.SourceText))
	if err != nil {
		return "", nil, err
	}

	var position *protocol.Position
	if desc.SymbolName != "" {
		pos, err := snap.LineTable().PositionOf(result.Offset)
		if err == nil {
			position = &pos
		}
	}

	r.mu.Lock()
	r.entries[k] = &entry{descriptor: desc, uri: uri, position: position, refcount: 1}
	r.mu.Unlock()

	return uri, position, nil
}

func displayName(desc Descriptor) string {
	if desc.GroupName != "" {
		return desc.ModuleName + "." + desc.GroupName
	}
	return desc.ModuleName
}

// SnapshotOf peeks at desc's synthesized document without changing its
// refcount (spec.md §4.6's snapshot_of).
func (r *Registry) SnapshotOf(desc Descriptor) (*document.Snapshot, bool) {
	r.mu.Lock()
	e, ok := r.entries[keyOf(desc)]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	snap, err := r.docs.LatestSnapshot(e.uri)
	return snap, err == nil
}

// PositionOfUSR holds desc open for the duration of a find-USR request
// against its synthesized document (spec.md §4.6's position_of_usr).
func (r *Registry) PositionOfUSR(ctx context.Context, usr string, desc Descriptor) (protocol.Position, error) {
	uri, _, err := r.Open(ctx, desc)
	if err != nil {
		return protocol.Position{}, err
	}
	defer r.Close(desc)

	var result daemon.EditorFindUSROffsetResult
	if err := r.conn.Call(ctx, daemon.MethodEditorFindUSR, daemon.EditorFindUSRParams{
		SourceFile: string(uri),
		USR:        usr,
	}, &result); err != nil {
		return protocol.Position{}, err
	}

	snap, err := r.docs.LatestSnapshot(uri)
	if err != nil {
		return protocol.Position{}, err
	}
	return snap.LineTable().PositionOf(result.Offset)
}

// Close releases one hold on desc (spec.md §4.6's close). Entries whose
// refcount reaches 0 participate in a size-Capacity LRU; entries evicted
// from it are closed in the daemon.
func (r *Registry) Close(desc Descriptor) {
	k := keyOf(desc)

	r.mu.Lock()
	e, ok := r.entries[k]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.refcount--
	if e.refcount > 0 {
		r.mu.Unlock()
		return
	}

	r.zeroRefs = append(r.zeroRefs, k)
	var evicted []key
	for len(r.zeroRefs) > Capacity {
		evicted = append(evicted, r.zeroRefs[0])
		r.zeroRefs = r.zeroRefs[1:]
	}
	var evictedEntries []*entry
	for _, ek := range evicted {
		if ev, ok := r.entries[ek]; ok {
			evictedEntries = append(evictedEntries, ev)
		}
		delete(r.entries, ek)
	}
	r.mu.Unlock()

	for _, ev := range evictedEntries {
		r.closeInDaemon(ev)
	}
}

func (r *Registry) removeFromZeroRefsLocked(k key) {
	for i, zk := range r.zeroRefs {
		if zk == k {
			r.zeroRefs = append(r.zeroRefs[:i], r.zeroRefs[i+1:]...)
			return
		}
	}
}

// closeInDaemon sends editor-close for a synthesized interface, naming it
// by the same uri its editor-find-usr requests use as sourcefile, and drops
// the document manager's copy of it. A failed editor-close is ignored.
func (r *Registry) closeInDaemon(e *entry) {
	_ = r.conn.Call(context.Background(), daemon.MethodEditorClose, daemon.EditorCloseParams{Name: string(e.uri)}, nil)
	r.docs.Close(e.uri)
}

// ReopenWithSettings closes and reopens every interface whose origin file
// is originFile, fetching fresh content under settings (spec.md §4.6's
// reopen_with_settings, invoked when origin_file's build settings
// change). Reopens fan out concurrently, one per affected descriptor.
func (r *Registry) ReopenWithSettings(ctx context.Context, originFile protocol.DocumentURI, settings buildsettings.Settings) error {
	r.mu.Lock()
	var affected []Descriptor
	for _, e := range r.entries {
		if e.descriptor.OriginFile == originFile {
			d := e.descriptor
			d.Settings = settings
			affected = append(affected, d)
		}
	}
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, desc := range affected {
		desc := desc
		g.Go(func() error {
			r.mu.Lock()
			var staleKey key
			var staleEntry *entry
			for k, e := range r.entries {
				if e.descriptor.OriginFile == originFile &&
					e.descriptor.ModuleName == desc.ModuleName &&
					e.descriptor.GroupName == desc.GroupName &&
					e.descriptor.SymbolName == desc.SymbolName {
					staleKey, staleEntry = k, e
					break
				}
			}
			if staleEntry != nil {
				delete(r.entries, staleKey)
				r.removeFromZeroRefsLocked(staleKey)
			}
			r.mu.Unlock()

			if staleEntry != nil {
				r.closeInDaemon(staleEntry)
			}

			_, _, err := r.openFromDaemon(ctx, desc, keyOf(desc))
			if staleEntry != nil && staleEntry.refcount > 0 {
				r.mu.Lock()
				if ne, ok := r.entries[keyOf(desc)]; ok {
					ne.refcount = staleEntry.refcount
				}
				r.mu.Unlock()
			}
			return err
		})
	}
	return g.Wait()
}
