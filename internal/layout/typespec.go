package layout

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/irslots/internal/config"
)

// TypeSpec is a type as written in a layout document. It is either a
// reference to a scalar or named type (a plain string), or a mapping with
// exactly one of tuple, record, slice, function and alias.
type TypeSpec struct {
	Ref      string
	Tuple    []*TypeSpec
	Record   []FieldSpec
	Slice    *TypeSpec
	Function string
	Alias    *TypeSpec

	kind string
	line int
}

// FieldSpec is one record field.
type FieldSpec struct {
	Name string    `yaml:"name"`
	Type *TypeSpec `yaml:"type"`
}

type typeSpecFields struct {
	Tuple    []*TypeSpec `yaml:"tuple"`
	Record   []FieldSpec `yaml:"record"`
	Slice    *TypeSpec   `yaml:"slice"`
	Function string      `yaml:"function"`
	Alias    *TypeSpec   `yaml:"alias"`
}

// UnmarshalYAML accepts a scalar type reference or a single-key mapping.
func (t *TypeSpec) UnmarshalYAML(value *yaml.Node) error {
	t.line = value.Line
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value == "" {
			return fmt.Errorf("line %d: empty type", value.Line)
		}
		t.Ref = value.Value
		return nil
	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("line %d: type must have exactly one of tuple, record, slice, function, alias", value.Line)
		}
		var f typeSpecFields
		if err := value.Decode(&f); err != nil {
			return err
		}
		t.Tuple = f.Tuple
		t.Record = f.Record
		t.Slice = f.Slice
		t.Function = f.Function
		t.Alias = f.Alias
		t.kind = value.Content[0].Value
		return nil
	default:
		return fmt.Errorf("line %d: type must be a name or a mapping", value.Line)
	}
}

// MarshalYAML writes the spec back in the form UnmarshalYAML reads.
func (t *TypeSpec) MarshalYAML() (interface{}, error) {
	if t.Ref != "" {
		return t.Ref, nil
	}
	switch t.kind {
	case "tuple":
		return map[string]interface{}{"tuple": t.Tuple}, nil
	case "record":
		return map[string]interface{}{"record": t.Record}, nil
	case "slice":
		return map[string]interface{}{"slice": t.Slice}, nil
	case "function":
		return map[string]interface{}{"function": t.Function}, nil
	case "alias":
		return map[string]interface{}{"alias": t.Alias}, nil
	}
	return nil, fmt.Errorf("empty type spec")
}

// check validates the shape of the spec. Aliases are only allowed as the
// top level of a named type, placeholders only as tuple components.
func (t *TypeSpec) check(inTuple bool) error {
	if t == nil {
		return fmt.Errorf("missing type")
	}
	if t.Ref != "" {
		if t.Ref == config.PlaceholderComponent && !inTuple {
			return fmt.Errorf("line %d: placeholder %q outside a tuple", t.line, t.Ref)
		}
		return nil
	}
	switch t.kind {
	case "tuple":
		for _, el := range t.Tuple {
			if err := el.check(true); err != nil {
				return err
			}
		}
	case "record":
		seen := make(map[string]bool)
		for _, f := range t.Record {
			if f.Name == "" {
				return fmt.Errorf("line %d: record field without a name", t.line)
			}
			if seen[f.Name] {
				return fmt.Errorf("line %d: duplicate record field %s", t.line, f.Name)
			}
			seen[f.Name] = true
			if err := f.Type.check(false); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
	case "slice":
		return t.Slice.check(false)
	case "function":
		if t.Function != "external" && t.Function != "internal" {
			return fmt.Errorf("line %d: function must be external or internal, got %q", t.line, t.Function)
		}
	case "alias":
		return fmt.Errorf("line %d: alias is only allowed as a named type", t.line)
	default:
		return fmt.Errorf("line %d: unknown type form %q", t.line, t.kind)
	}
	return nil
}

// checkNamed validates the layout of a named type, where an alias is allowed.
func (t *TypeSpec) checkNamed() error {
	if t.kind == "alias" {
		return t.Alias.check(false)
	}
	return t.check(false)
}

// IsAlias reports whether the spec declares an alias.
func (t *TypeSpec) IsAlias() bool { return t.kind == "alias" }
