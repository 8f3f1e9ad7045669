// Package irvar names the stack slots that hold a value during IR generation.
//
// A value whose type occupies several scalar slots (a tuple, an external
// function reference, a record) is bound to a base name, and every slot gets
// a name derived from it by appending the stack item names of the type's
// layout, joined with "_". Names are a pure function of the type and the
// base name; uniqueness across a program comes from the node identifiers
// baked into base names by FromDeclaration and FromExpression.
package irvar

import (
	"strconv"

	"github.com/funvibe/irslots/internal/config"
	"github.com/funvibe/irslots/internal/typesystem"
	"github.com/funvibe/irslots/internal/utils"
)

// Declaration is a variable declaration with a compilation-unit-wide unique ID.
type Declaration interface {
	ID() int64
	Name() string
	IsStateVariable() bool
	DeclaredType() typesystem.Type
}

// Expression is an expression with a compilation-unit-wide unique ID.
type Expression interface {
	ID() int64
	ResultType() typesystem.Type
}

// Variable binds a type to a base name. The type is shared, never copied
// or modified.
type Variable struct {
	typ      typesystem.Type
	baseName string
}

// New binds typ to name verbatim. The caller is responsible for the name being unique.
func New(typ typesystem.Type, name string) Variable {
	return Variable{typ: typ, baseName: name}
}

// FromDeclaration names a local variable "vloc_<name>_<id>".
// State variables are not stack allocated and cannot be named this way.
func FromDeclaration(decl Declaration) Variable {
	base := config.LocalVarPrefix + decl.Name() + config.SlotSeparator + strconv.FormatInt(decl.ID(), 10)
	assert(!decl.IsStateVariable(), base, "state variable %s cannot be bound to stack slots", decl.Name())
	return Variable{typ: decl.DeclaredType(), baseName: base}
}

// FromExpression names the result of an expression "expr_<id>".
func FromExpression(expr Expression) Variable {
	return Variable{
		typ:      expr.ResultType(),
		baseName: config.ExpressionPrefix + strconv.FormatInt(expr.ID(), 10),
	}
}

func (v Variable) Type() typesystem.Type { return v.typ }

func (v Variable) BaseName() string { return v.baseName }

func (v Variable) String() string { return v.baseName + ": " + v.typ.String() }

// Part returns the variable for the stack item called slot.
// For a leaf item the type is unchanged, for a composite item it is the
// item's sub-type. Asking for an item the type does not have is fatal.
func (v Variable) Part(slot string) Variable {
	for _, item := range v.typ.StackItems() {
		if item.Name != slot {
			continue
		}
		switch s := item.Slot.(type) {
		case typesystem.Composite:
			return Variable{typ: s.Type, baseName: v.compose(slot)}
		default:
			return Variable{typ: v.typ, baseName: v.compose(slot)}
		}
	}
	fail(v.baseName, "invalid slot name %q for type %s", slot, v.typ)
	return Variable{}
}

// PartAs is Part with the result retyped to typ.
func (v Variable) PartAs(slot string, typ typesystem.Type) Variable {
	return New(typ, v.Part(slot).baseName)
}

// StackComponents returns the names of all scalar slots of the variable, in
// stack order. Composite items are expanded in place.
func (v Variable) StackComponents() []string {
	return v.stackComponents(0)
}

func (v Variable) stackComponents(depth int) []string {
	assert(depth <= config.MaxLayoutDepth, v.baseName, "layout of %s nested deeper than %d levels", v.typ, config.MaxLayoutDepth)

	result := make([]string, 0, v.typ.SizeOnStack())
	for _, item := range v.typ.StackItems() {
		if _, ok := item.Slot.(typesystem.Composite); ok {
			result = append(result, v.Part(item.Name).stackComponents(depth+1)...)
		} else {
			result = append(result, v.compose(item.Name))
		}
	}
	assert(len(result) == v.typ.SizeOnStack(), v.baseName,
		"type %s flattens to %d slots but has size %d on stack", v.typ, len(result), v.typ.SizeOnStack())
	return result
}

// Name returns the name of the single slot of a one-slot variable.
func (v Variable) Name() string {
	assert(v.typ.SizeOnStack() == 1, v.baseName, "name of %d-slot type %s requested", v.typ.SizeOnStack(), v.typ)
	items := v.typ.StackItems()
	assert(len(items) == 1 && items[0].IsLeaf(), v.baseName, "single-slot type %s is not a single leaf", v.typ)
	return v.compose(items[0].Name)
}

// TupleComponent returns the variable for the i-th (0-based) tuple component.
func (v Variable) TupleComponent(i int) Variable {
	typ := v.typ
	for {
		alias, ok := typ.(typesystem.TAlias)
		if !ok {
			break
		}
		typ = alias.Underlying
	}
	if tuple, ok := typ.(typesystem.TTuple); ok {
		assert(i >= 0 && i < len(tuple.Elements), v.baseName, "invalid tuple component %d of %s", i, v.typ)
		assert(tuple.Elements[i] != nil, v.baseName, "placeholder tuple component %d requested", i)
	}
	return v.Part(typesystem.ComponentName(i))
}

// CommaSeparatedList joins the stack components for use in prose:
// "a", "a and b", "a, b, and c".
func (v Variable) CommaSeparatedList() string {
	return utils.JoinHumanReadableProse(v.StackComponents())
}

func (v Variable) compose(slot string) string {
	if slot == "" {
		return v.baseName
	}
	return v.baseName + config.SlotSeparator + slot
}
