// # internal/engine/parser/pool_test.go
package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

func javascriptPool() *ParserPool {
	return NewParserPool(GrammarJavaScript, sitter.NewLanguage(tree_sitter_javascript.Language()))
}

func TestParserPool_GetPut(t *testing.T) {
	pool := javascriptPool()

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Active() != 1 {
		t.Errorf("Active() = %d, want 1", pool.Active())
	}
	pool.Put(sp)
	if pool.Active() != 0 {
		t.Errorf("Active() = %d after Put, want 0", pool.Active())
	}
	if pool.Grammar() != GrammarJavaScript {
		t.Errorf("Grammar() = %q", pool.Grammar())
	}
}

func TestParserPool_PutNil(t *testing.T) {
	pool := javascriptPool()
	pool.Put(nil)
	if pool.Active() != 0 {
		t.Errorf("Put(nil) changed the lease count to %d", pool.Active())
	}
}

func TestParserPool_ParsesValidSource(t *testing.T) {
	pool := javascriptPool()
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte("export const answer = 42;\n"), nil)
	if tree == nil {
		t.Fatal("expected a parse tree")
	}
	defer tree.Close()

	if root := tree.RootNode(); root.HasError() {
		t.Fatalf("unexpected syntax error in %s", root.ToSexp())
	}
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	pool := javascriptPool()

	const goroutines = 16
	const iters = 25
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				sp := pool.Get()
				tree := sp.Parse([]byte("import a from './a';\n"), nil)
				if tree == nil || tree.RootNode().HasError() {
					t.Error("concurrent parse failed")
				}
				if tree != nil {
					tree.Close()
				}
				pool.Put(sp)
			}
		}()
	}
	wg.Wait()

	if pool.Active() != 0 {
		t.Errorf("Active() = %d after all leases returned", pool.Active())
	}
}
