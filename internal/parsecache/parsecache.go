// Package parsecache implements SyntaxTreeCache (spec.md §4.2): a bounded
// LRU of parsed syntax trees keyed by snapshot identity, performing
// incremental reparse when a registered edit links two cached snapshots.
//
// Grounded on gopls/internal/cache/parse_cache_test.go, which (the
// non-test parseCache source having been filtered from the retrieval pack)
// fixes the API shape this package follows: a cache constructed once,
// queried by (fset-equivalent, mode, file handle), with eager eviction of
// stale versions of the same uri.
package parsecache

import (
	"context"
	"sync"

	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/lru"
	"github.com/swiftlang/sourcekit-lsp-core/internal/syntax"
	"github.com/swiftlang/sourcekit-lsp-core/internal/telemetry"
)

// Capacity is the LRU's fixed size, per spec.md §3 ("Bounded LRU of size
// 5").
const Capacity = 5

// Cache maps snapshot ids to parsed trees, replaying registered edits to
// perform incremental reparse instead of a full parse when possible.
type Cache struct {
	cache *lru.Cache[document.ID, *syntax.Tree]

	mu      sync.Mutex
	pending map[document.ID]pendingEdit // post-id -> (pre-id, edits) awaiting a tree_for call
}

type pendingEdit struct {
	preID document.ID
	edits []syntax.EditSpan
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		cache:   lru.New[document.ID, *syntax.Tree](Capacity),
		pending: make(map[document.ID]pendingEdit),
	}
}

// ListenTo subscribes this cache to a document.Manager, so every edit
// becomes a candidate for incremental reparse the next time TreeFor is
// called for the resulting snapshot (spec.md §4.2).
func (c *Cache) ListenTo(m *document.Manager) {
	m.Subscribe(func(pre, post *document.Snapshot, edits []document.Edit) {
		c.RegisterEdit(pre, post, edits)
	})
}

// RegisterEdit records that post's tree can be produced incrementally from
// pre's cached tree (if any) by replaying edits, the next time TreeFor(post)
// is called.
func (c *Cache) RegisterEdit(pre, post *document.Snapshot, edits []document.Edit) {
	spans := make([]syntax.EditSpan, len(edits))
	for i, e := range edits {
		spans[i] = syntax.EditSpan{Start: e.Start, End: e.End}
	}

	c.mu.Lock()
	c.pending[post.ID()] = pendingEdit{preID: pre.ID(), edits: spans}
	c.mu.Unlock()
}

// TreeFor returns a parse tree for snap, identical in every observable
// property to a full parse of snap.Text() (spec.md §4.2). Repeated calls
// for the same snapshot id return the cached tree. Inserting snap's tree
// evicts any cached tree for an older version of the same uri.
func (c *Cache) TreeFor(ctx context.Context, snap *document.Snapshot) *syntax.Tree {
	id := snap.ID()
	if tree, ok := c.cache.Get(id); ok {
		return tree
	}

	ctx, done := telemetry.Start(ctx, "parsecache.TreeFor", telemetry.Of("uri", string(snap.URI())), telemetry.Of("version", snap.Version()))
	defer done()

	c.mu.Lock()
	pend, hasPending := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	var tree *syntax.Tree
	if hasPending {
		if prevTree, ok := c.cache.Get(pend.preID); ok {
			tree = syntax.Reparse(prevTree, snap.Text(), pend.edits)
			telemetry.Log(ctx, "incremental reparse", telemetry.Of("uri", string(snap.URI())))
		}
	}
	if tree == nil {
		tree = syntax.Parse(snap.Text())
	}

	// Capacity is a count of entries, not a byte budget (spec.md §3: "Bounded
	// LRU of size 5"), so every entry costs exactly 1.
	c.cache.Set(id, tree, 1)
	c.cache.DeleteFunc(func(other document.ID, _ *syntax.Tree) bool {
		return !(other.URI == id.URI && other.Version < id.Version)
	})
	return tree
}

// Len reports the number of trees currently cached, for tests.
func (c *Cache) Len() int { return c.cache.Len() }
