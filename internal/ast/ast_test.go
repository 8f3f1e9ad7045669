package ast

import (
	"sync"
	"testing"

	"github.com/funvibe/irslots/internal/typesystem"
)

func TestIDGeneratorSkipsReserved(t *testing.T) {
	g := NewIDGenerator()
	if !g.Reserve(2) {
		t.Fatalf("Reserve(2) = false on a fresh generator")
	}
	if g.Reserve(2) {
		t.Errorf("Reserve(2) = true twice")
	}
	got := []int64{g.Next(), g.Next(), g.Next()}
	want := []int64{1, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Next() #%d = %d, want %d", i, got[i], want[i])
		}
	}
	if g.Reserve(3) {
		t.Errorf("Reserve(3) = true after Next() returned 3")
	}
}

func TestIDGeneratorConcurrent(t *testing.T) {
	g := NewIDGenerator()
	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := g.Next()
				mu.Lock()
				if seen[id] {
					t.Errorf("id %d handed out twice", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Errorf("got %d ids, want 800", len(seen))
	}
}

func TestNodes(t *testing.T) {
	u := typesystem.TCon{Name: "uint256"}
	d := &VariableDeclaration{NodeID: 12, Ident: "x", Type: u}
	if d.ID() != 12 || d.Name() != "x" || d.IsStateVariable() || d.DeclaredType() != typesystem.Type(u) {
		t.Errorf("unexpected declaration accessors: %v", d)
	}
	if d.String() != "uint256 x#12" {
		t.Errorf("String() = %s, want %s", d.String(), "uint256 x#12")
	}
	e := &TypedExpression{NodeID: 5, Source: "a + b", Type: u}
	if e.ID() != 5 || e.ResultType() != typesystem.Type(u) {
		t.Errorf("unexpected expression accessors: %v", e)
	}
	if e.String() != "a + b#5" {
		t.Errorf("String() = %s, want %s", e.String(), "a + b#5")
	}
	if (&TypedExpression{NodeID: 6}).String() != "expr#6" {
		t.Errorf("String() of anonymous expression = %s", (&TypedExpression{NodeID: 6}).String())
	}
}
