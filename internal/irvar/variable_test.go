package irvar

import (
	"reflect"
	"strings"
	"testing"

	"github.com/funvibe/irslots/internal/ast"
	"github.com/funvibe/irslots/internal/typesystem"
)

var (
	uint256 = typesystem.TCon{Name: "uint256"}
	boolT   = typesystem.TCon{Name: "bool"}
)

// layoutType is a hand-written layout used to exercise shapes the built-in types never produce.
type layoutType struct {
	name  string
	items []typesystem.StackItem
	size  int
}

func (t layoutType) String() string                     { return t.name }
func (t layoutType) StackItems() []typesystem.StackItem { return t.items }
func (t layoutType) SizeOnStack() int                   { return t.size }

func twoLeaves(a, b string) layoutType {
	return layoutType{name: "pair", items: []typesystem.StackItem{typesystem.LeafItem(a), typesystem.LeafItem(b)}, size: 2}
}

// expectInvariant runs fn and checks it fails with an InvariantError containing want.
func expectInvariant(t *testing.T, want string, fn func()) {
	t.Helper()
	err := Catch(fn)
	if err == nil {
		t.Fatalf("expected invariant failure containing %q, got none", want)
	}
	if !IsInvariant(err) {
		t.Fatalf("expected InvariantError, got %T", err)
	}
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want it to contain %q", err.Error(), want)
	}
}

func TestScalar(t *testing.T) {
	v := New(uint256, "x1")
	if got := v.Name(); got != "x1" {
		t.Errorf("Name() = %s, want x1", got)
	}
	if got := v.StackComponents(); !reflect.DeepEqual(got, []string{"x1"}) {
		t.Errorf("StackComponents() = %v, want [x1]", got)
	}
	if got := v.CommaSeparatedList(); got != "x1" {
		t.Errorf("CommaSeparatedList() = %s, want x1", got)
	}
}

func TestTwoLeaves(t *testing.T) {
	v := New(twoLeaves("lo", "hi"), "p")
	if got := v.StackComponents(); !reflect.DeepEqual(got, []string{"p_lo", "p_hi"}) {
		t.Errorf("StackComponents() = %v, want [p_lo p_hi]", got)
	}
	if got := v.CommaSeparatedList(); got != "p_lo and p_hi" {
		t.Errorf("CommaSeparatedList() = %s, want %q", got, "p_lo and p_hi")
	}
	expectInvariant(t, "name of 2-slot type", func() { v.Name() })
}

func TestThreeLeavesOxfordComma(t *testing.T) {
	typ := layoutType{name: "triple", size: 3, items: []typesystem.StackItem{
		typesystem.LeafItem("a"), typesystem.LeafItem("b"), typesystem.LeafItem("c"),
	}}
	v := New(typ, "v")
	if got := v.CommaSeparatedList(); got != "v_a, v_b, and v_c" {
		t.Errorf("CommaSeparatedList() = %q, want %q", got, "v_a, v_b, and v_c")
	}
}

func TestTupleComponent(t *testing.T) {
	v := New(typesystem.TTuple{Elements: []typesystem.Type{uint256, boolT}}, "t")
	if got := v.TupleComponent(0).Name(); got != "t_component_1" {
		t.Errorf("TupleComponent(0).Name() = %s, want t_component_1", got)
	}
	if got := v.TupleComponent(1).Name(); got != "t_component_2" {
		t.Errorf("TupleComponent(1).Name() = %s, want t_component_2", got)
	}
	expectInvariant(t, "invalid tuple component 2", func() { v.TupleComponent(2) })
	expectInvariant(t, "invalid tuple component -1", func() { v.TupleComponent(-1) })
}

func TestTupleComponentPlaceholder(t *testing.T) {
	v := New(typesystem.TTuple{Elements: []typesystem.Type{nil, uint256}}, "t")
	if got := v.StackComponents(); !reflect.DeepEqual(got, []string{"t_component_2"}) {
		t.Errorf("StackComponents() = %v, want [t_component_2]", got)
	}
	expectInvariant(t, "placeholder tuple component 0", func() { v.TupleComponent(0) })
}

func TestTupleComponentOfNonTuple(t *testing.T) {
	v := New(typesystem.TSlice{Elem: uint256}, "s")
	expectInvariant(t, `invalid slot name "component_1"`, func() { v.TupleComponent(0) })
}

func TestTupleComponentThroughAlias(t *testing.T) {
	pair := typesystem.TAlias{Name: "Pair", Underlying: typesystem.TTuple{Elements: []typesystem.Type{uint256, uint256}}}
	v := New(pair, "a")
	if got := v.TupleComponent(1).Name(); got != "a_component_2" {
		t.Errorf("TupleComponent(1).Name() = %s, want a_component_2", got)
	}
}

func TestPartInvalidSlot(t *testing.T) {
	types := []typesystem.Type{
		uint256,
		typesystem.TFunc{External: true},
		typesystem.TTuple{Elements: []typesystem.Type{uint256}},
	}
	for _, typ := range types {
		v := New(typ, "x")
		expectInvariant(t, `invalid slot name "nonexistent"`, func() { v.Part("nonexistent") })
	}
}

func TestPart(t *testing.T) {
	inner := typesystem.TTuple{Elements: []typesystem.Type{uint256, typesystem.TFunc{External: true}}}
	outer := typesystem.TRecord{Name: "S", Fields: []typesystem.Field{
		{Name: "head", Type: uint256},
		{Name: "rest", Type: inner},
	}}
	v := New(outer, "s")

	tests := []struct {
		name     string
		got      Variable
		wantBase string
		wantType string
	}{
		{"composite field", v.Part("rest"), "s_rest", "(uint256,function external)"},
		{"scalar field", v.Part("head"), "s_head", "uint256"},
		{"nested composite", v.Part("rest").Part("component_2"), "s_rest_component_2", "function external"},
		{"built-in scalar slot", v.Part("rest").Part("component_2").Part("address"), "s_rest_component_2_address", "address"},
		{"leaf keeps type", New(twoLeaves("lo", "hi"), "p").Part("lo"), "p_lo", "pair"},
		{"empty leaf", New(uint256, "k").Part(""), "k", "uint256"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.BaseName() != tt.wantBase {
				t.Errorf("BaseName() = %s, want %s", tt.got.BaseName(), tt.wantBase)
			}
			if tt.got.Type().String() != tt.wantType {
				t.Errorf("Type() = %s, want %s", tt.got.Type(), tt.wantType)
			}
		})
	}
}

func TestPartAs(t *testing.T) {
	v := New(typesystem.TFunc{External: true}, "f")
	p := v.PartAs("address", typesystem.TCon{Name: "address"})
	if p.Name() != "f_address" {
		t.Errorf("PartAs().Name() = %s, want f_address", p.Name())
	}
	if p.Type().String() != "address" {
		t.Errorf("PartAs().Type() = %s, want address", p.Type())
	}
}

func TestEmptyNamedComposite(t *testing.T) {
	wrapper := layoutType{name: "wrapper", size: 2, items: []typesystem.StackItem{
		typesystem.CompositeItem("", twoLeaves("lo", "hi")),
	}}
	v := New(wrapper, "w")
	if got := v.StackComponents(); !reflect.DeepEqual(got, []string{"w_lo", "w_hi"}) {
		t.Errorf("StackComponents() = %v, want [w_lo w_hi]", got)
	}
	if got := v.Part("").BaseName(); got != "w" {
		t.Errorf("Part(\"\").BaseName() = %s, want w", got)
	}
}

func TestNameWithNamedLeaf(t *testing.T) {
	ident := layoutType{name: "ident", size: 1, items: []typesystem.StackItem{typesystem.LeafItem("id")}}
	if got := New(ident, "cb").Name(); got != "cb_id" {
		t.Errorf("Name() = %s, want cb_id", got)
	}

	internal := New(typesystem.TFunc{}, "cb")
	expectInvariant(t, "is not a single leaf", func() { internal.Name() })
	if got := internal.Part("functionIdentifier").Name(); got != "cb_functionIdentifier" {
		t.Errorf("Part(functionIdentifier).Name() = %s, want cb_functionIdentifier", got)
	}
}

func TestNameOnSingleSlotComposite(t *testing.T) {
	v := New(typesystem.TTuple{Elements: []typesystem.Type{uint256}}, "one")
	expectInvariant(t, "is not a single leaf", func() { v.Name() })
	if got := v.TupleComponent(0).Name(); got != "one_component_1" {
		t.Errorf("TupleComponent(0).Name() = %s, want one_component_1", got)
	}
}

func TestSizeMismatchIsFatal(t *testing.T) {
	broken := layoutType{name: "broken", size: 3, items: []typesystem.StackItem{
		typesystem.LeafItem("a"), typesystem.LeafItem("b"),
	}}
	expectInvariant(t, "flattens to 2 slots but has size 3", func() { New(broken, "b").StackComponents() })
}

// endless lays itself out as one of its own items.
type endless struct{}

func (endless) String() string { return "endless" }
func (endless) StackItems() []typesystem.StackItem {
	return []typesystem.StackItem{typesystem.CompositeItem("next", endless{})}
}
func (endless) SizeOnStack() int { return 1 }

func TestStackComponentsDepthGuard(t *testing.T) {
	expectInvariant(t, "nested deeper than 64 levels", func() { New(endless{}, "e").StackComponents() })
}

func TestFromDeclaration(t *testing.T) {
	x12 := &ast.VariableDeclaration{NodeID: 12, Ident: "x", Type: typesystem.TFunc{External: true}}
	x34 := &ast.VariableDeclaration{NodeID: 34, Ident: "x", Type: typesystem.TFunc{External: true}}

	a, b := FromDeclaration(x12), FromDeclaration(x34)
	if a.BaseName() != "vloc_x_12" {
		t.Errorf("BaseName() = %s, want vloc_x_12", a.BaseName())
	}
	if b.BaseName() != "vloc_x_34" {
		t.Errorf("BaseName() = %s, want vloc_x_34", b.BaseName())
	}

	seen := make(map[string]bool)
	for _, n := range a.StackComponents() {
		seen[n] = true
	}
	for _, n := range b.StackComponents() {
		if seen[n] {
			t.Errorf("slot name %s shared by two declarations", n)
		}
	}
}

func TestFromStateVariable(t *testing.T) {
	decl := &ast.VariableDeclaration{NodeID: 3, Ident: "total", StateVariable: true, Type: uint256}
	expectInvariant(t, "state variable total", func() { FromDeclaration(decl) })
}

func TestFromExpression(t *testing.T) {
	expr := &ast.TypedExpression{NodeID: 77, Type: typesystem.TSlice{Elem: uint256}}
	v := FromExpression(expr)
	want := []string{"expr_77_offset", "expr_77_length"}
	if got := v.StackComponents(); !reflect.DeepEqual(got, want) {
		t.Errorf("StackComponents() = %v, want %v", got, want)
	}
}

func TestCatchPropagatesOtherPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	_ = Catch(func() { panic("boom") })
	t.Fatal("Catch swallowed a foreign panic")
}
