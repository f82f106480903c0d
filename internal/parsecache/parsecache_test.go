package parsecache_test

import (
	"context"
	"testing"

	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/parsecache"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

func TestTreeForCachedAndIncremental(t *testing.T) {
	ctx := context.Background()
	m := document.NewManager(nil)
	c := parsecache.New()
	c.ListenTo(m)

	uri := protocol.URIFromPath("/tmp/foo.swift")
	snap1, err := m.Open(uri, "swift", 1, []byte("let foo = 1"))
	if err != nil {
		t.Fatal(err)
	}

	tree1 := c.TreeFor(ctx, snap1)
	tree1Again := c.TreeFor(ctx, snap1)
	if tree1 != tree1Again {
		t.Fatal("expected same cached tree instance on repeated TreeFor")
	}

	rng := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 4},
		End:   protocol.Position{Line: 0, Character: 7},
	}
	_, snap2, err := m.Change(ctx, uri, 2, []document.Change{{Range: &rng, Replacement: "bar"}})
	if err != nil {
		t.Fatal(err)
	}

	tree2 := c.TreeFor(ctx, snap2)
	if string(tree2.Source) != "let bar = 1" {
		t.Fatalf("tree2 source = %q", tree2.Source)
	}
	if len(tree2.Tokens) != len(tree1.Tokens) {
		t.Fatalf("token count changed across a same-length rename: %d vs %d", len(tree2.Tokens), len(tree1.Tokens))
	}

	// The cache evicted the older version of this uri on insert.
	if c.Len() != 1 {
		t.Fatalf("cache has %d entries, want 1 after eager eviction", c.Len())
	}
}

func TestTreeForEvictsOlderVersions(t *testing.T) {
	ctx := context.Background()
	m := document.NewManager(nil)
	c := parsecache.New()
	c.ListenTo(m)
	uri := protocol.URIFromPath("/tmp/foo.swift")

	snap, _ := m.Open(uri, "swift", 1, []byte("a"))
	c.TreeFor(ctx, snap)
	for v := int32(2); v <= 8; v++ {
		_, snap, _ = m.Change(ctx, uri, v, []document.Change{{Replacement: "a"}})
		c.TreeFor(ctx, snap)
	}
	if got := c.Len(); got > parsecache.Capacity {
		t.Fatalf("cache has %d entries, want <= %d", got, parsecache.Capacity)
	}
}
