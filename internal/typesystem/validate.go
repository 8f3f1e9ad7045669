package typesystem

import (
	"github.com/funvibe/irslots/internal/config"
	"github.com/funvibe/irslots/internal/utils"
)

// Validate checks that t honours the layout contract the naming code relies on:
// item names are unique per level and usable inside identifiers, decomposition
// terminates within config.MaxLayoutDepth, expands to at most
// config.MaxStackItems items, and the number of leaves reached by flattening
// equals SizeOnStack at every level.
func Validate(t Type) error {
	return NewValidator().Validate(t)
}

// Validator checks layouts and remembers the named types (aliases and named
// records) it has already checked, so layouts sharing named sub-types are
// walked once per name rather than once per reference.
// Names must identify a single layout for the lifetime of the Validator.
type Validator struct {
	checked map[string]measure
}

// measure summarises a checked layout.
type measure struct {
	items int // stack items over all nesting levels
	slots int // leaves
	depth int // composite levels below the type
}

func NewValidator() *Validator {
	return &Validator{checked: make(map[string]measure)}
}

func (v *Validator) Validate(t Type) error {
	_, err := v.validate(t, 0)
	return err
}

func namedKey(t Type) string {
	switch t := t.(type) {
	case TAlias:
		return t.Name
	case TRecord:
		return t.Name
	}
	return ""
}

func (v *Validator) validate(t Type, depth int) (measure, error) {
	if t == nil {
		return measure{}, NewContractError(nil, "missing type")
	}
	if depth > config.MaxLayoutDepth {
		return measure{}, NewContractError(t, "nesting deeper than %d levels", config.MaxLayoutDepth)
	}
	key := namedKey(t)
	if key != "" {
		if m, ok := v.checked[key]; ok {
			if depth+m.depth > config.MaxLayoutDepth {
				return measure{}, NewContractError(t, "nesting deeper than %d levels", config.MaxLayoutDepth)
			}
			return m, nil
		}
	}

	seen := make(map[string]bool)
	var m measure
	for _, item := range t.StackItems() {
		if seen[item.Name] {
			return measure{}, NewContractError(t, "duplicate stack item %q", item.Name)
		}
		seen[item.Name] = true

		if item.Name != "" && !utils.IsIdentifierPart(item.Name) {
			return measure{}, NewContractError(t, "stack item %q is not a valid identifier part", item.Name)
		}

		m.items++
		switch slot := item.Slot.(type) {
		case Leaf:
			m.slots++
		case Composite:
			sub, err := v.validate(slot.Type, depth+1)
			if err != nil {
				return measure{}, err
			}
			m.items += sub.items
			m.slots += sub.slots
			if sub.depth+1 > m.depth {
				m.depth = sub.depth + 1
			}
		default:
			return measure{}, NewContractError(t, "stack item %q has no slot kind", item.Name)
		}
		if m.items > config.MaxStackItems {
			return measure{}, NewContractError(t, "expands to more than %d stack items", config.MaxStackItems)
		}
	}

	// SizeOnStack walks the expanded layout; it is only called once the
	// item count is known to be bounded.
	if size := t.SizeOnStack(); m.slots != size {
		return measure{}, NewContractError(t, "flattens to %d slots, size on stack is %d", m.slots, size)
	}
	if key != "" {
		v.checked[key] = m
	}
	return m, nil
}
