package typesystem

import (
	"fmt"
	"strings"

	"github.com/funvibe/irslots/internal/config"
)

// Type is the interface for all types that can be laid out on the stack.
//
// StackItems describes how a value of the type is split into backend slots.
// SizeOnStack is the total number of scalar slots the value occupies; flattening
// StackItems recursively must yield exactly that many leaves.
type Type interface {
	String() string
	StackItems() []StackItem
	SizeOnStack() int
}

// SlotKind tells whether a stack item is a single scalar slot or
// needs to be decomposed further.
type SlotKind interface {
	isSlotKind()
}

// Leaf is a stack item that occupies exactly one scalar slot.
type Leaf struct{}

// Composite is a stack item laid out as a value of Type.
type Composite struct {
	Type Type
}

func (Leaf) isSlotKind()      {}
func (Composite) isSlotKind() {}

// StackItem is one unit of a type's decomposition.
// An empty Name does not add a suffix to the owning variable's name.
type StackItem struct {
	Name string
	Slot SlotKind
}

// LeafItem returns a scalar stack item.
func LeafItem(name string) StackItem {
	return StackItem{Name: name, Slot: Leaf{}}
}

// CompositeItem returns a stack item decomposed as t.
func CompositeItem(name string, t Type) StackItem {
	return StackItem{Name: name, Slot: Composite{Type: t}}
}

// IsLeaf reports whether the item is a scalar slot.
func (it StackItem) IsLeaf() bool {
	_, ok := it.Slot.(Leaf)
	return ok
}

// SubType returns the item's sub-type for composite items.
func (it StackItem) SubType() (Type, bool) {
	if c, ok := it.Slot.(Composite); ok {
		return c.Type, true
	}
	return nil, false
}

func (it StackItem) String() string {
	switch s := it.Slot.(type) {
	case Composite:
		return fmt.Sprintf("%q: %s", it.Name, s.Type.String())
	default:
		return fmt.Sprintf("%q", it.Name)
	}
}

// TCon is a scalar type occupying a single unnamed slot (e.g. uint256, bool).
// It is the only type with a leaf item; every named item of the other
// built-in types is a composite over a TCon.
type TCon struct {
	Name string
}

func (t TCon) String() string { return t.Name }

func (t TCon) StackItems() []StackItem { return []StackItem{LeafItem("")} }

func (t TCon) SizeOnStack() int { return 1 }

// TTuple represents a tuple type (e.g. (uint256, bool)).
// A nil element is a placeholder component: it has no value and takes no slots.
type TTuple struct {
	Elements []Type
}

func (t TTuple) String() string {
	args := []string{}
	for _, el := range t.Elements {
		if el == nil {
			args = append(args, "")
			continue
		}
		args = append(args, el.String())
	}
	return fmt.Sprintf("(%s)", strings.Join(args, ","))
}

// StackItems labels components component_1, component_2, ... by their
// position; placeholders keep their number but produce no item.
func (t TTuple) StackItems() []StackItem {
	items := make([]StackItem, 0, len(t.Elements))
	for i, el := range t.Elements {
		if el == nil {
			continue
		}
		items = append(items, CompositeItem(ComponentName(i), el))
	}
	return items
}

func (t TTuple) SizeOnStack() int {
	size := 0
	for _, el := range t.Elements {
		if el != nil {
			size += el.SizeOnStack()
		}
	}
	return size
}

// ComponentName returns the stack item name of the i-th (0-based) tuple component.
func ComponentName(i int) string {
	return fmt.Sprintf("%s%d", config.TupleComponentPrefix, i+1)
}

// Field is a named member of a record.
type Field struct {
	Name string
	Type Type
}

// TRecord represents a record laid out inline on the stack, one composite
// item per field in declaration order.
type TRecord struct {
	Name   string
	Fields []Field
}

func (t TRecord) String() string {
	if t.Name != "" {
		return t.Name
	}
	fields := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		fields = append(fields, fmt.Sprintf("%s: %s", f.Name, f.Type.String()))
	}
	return fmt.Sprintf("{ %s }", strings.Join(fields, ", "))
}

func (t TRecord) StackItems() []StackItem {
	items := make([]StackItem, 0, len(t.Fields))
	for _, f := range t.Fields {
		items = append(items, CompositeItem(f.Name, f.Type))
	}
	return items
}

func (t TRecord) SizeOnStack() int {
	size := 0
	for _, f := range t.Fields {
		size += f.Type.SizeOnStack()
	}
	return size
}

// TSlice is a dynamically sized array referenced by offset and length.
type TSlice struct {
	Elem Type
}

func (t TSlice) String() string { return t.Elem.String() + "[]" }

func (t TSlice) StackItems() []StackItem {
	return []StackItem{
		CompositeItem(config.SliceOffsetItem, TCon{Name: config.SliceItemType}),
		CompositeItem(config.SliceLengthItem, TCon{Name: config.SliceItemType}),
	}
}

func (t TSlice) SizeOnStack() int { return 2 }

// TFunc is a function reference. External functions are an address and a
// selector; internal functions are a single identifier slot.
type TFunc struct {
	External bool
}

func (t TFunc) String() string {
	if t.External {
		return "function external"
	}
	return "function internal"
}

func (t TFunc) StackItems() []StackItem {
	if t.External {
		return []StackItem{
			CompositeItem(config.FuncAddressItem, TCon{Name: config.FuncAddressType}),
			CompositeItem(config.FuncSelectorItem, TCon{Name: config.FuncSelectorType}),
		}
	}
	return []StackItem{CompositeItem(config.FuncIdentifierItem, TCon{Name: config.FuncIdentifierType})}
}

func (t TFunc) SizeOnStack() int {
	if t.External {
		return 2
	}
	return 1
}

// TAlias is a named type with exactly the layout of its underlying type.
type TAlias struct {
	Name       string
	Underlying Type
}

func (t TAlias) String() string { return t.Name }

func (t TAlias) StackItems() []StackItem { return t.Underlying.StackItems() }

func (t TAlias) SizeOnStack() int { return t.Underlying.SizeOnStack() }

// Unit is the empty tuple.
var Unit = TTuple{}
