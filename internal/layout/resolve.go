package layout

import (
	"fmt"
	"sort"

	"github.com/funvibe/irslots/internal/ast"
	"github.com/funvibe/irslots/internal/config"
	"github.com/funvibe/irslots/internal/irvar"
	"github.com/funvibe/irslots/internal/pipeline"
	"github.com/funvibe/irslots/internal/typesystem"
)

// Unit is a resolved layout document: the declared types and the
// variables named by its bindings.
type Unit struct {
	Types     map[string]typesystem.Type
	Nodes     []ast.Node
	Variables []pipeline.NamedVariable
}

type resolver struct {
	doc       *Document
	scalars   map[string]bool
	resolved  map[string]typesystem.Type
	visiting  []string
	validator *typesystem.Validator
}

// Resolve turns the document into types and variables. Node IDs written in
// the document are reserved in ids first; the remaining nodes get fresh IDs
// in binding order. Named tuples, slices and functions resolve to aliases
// so they print by name. Two bindings may not share a base name.
func Resolve(doc *Document, ids *ast.IDGenerator) (*Unit, error) {
	r := &resolver{
		doc:       doc,
		scalars:   make(map[string]bool, len(doc.Scalars)),
		resolved:  make(map[string]typesystem.Type, len(doc.Types)),
		validator: typesystem.NewValidator(),
	}
	for _, s := range doc.Scalars {
		r.scalars[s] = true
	}

	unit := &Unit{Types: make(map[string]typesystem.Type, len(doc.Types))}

	// Resolve named types in a fixed order so errors are reproducible.
	names := make([]string, 0, len(doc.Types))
	for name := range doc.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t, err := r.named(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.path, err)
		}
		unit.Types[name] = t
	}

	if err := reserveIDs(doc, ids); err != nil {
		return nil, err
	}

	// Listings are recorded per base name, so two bindings sharing one
	// would overwrite each other.
	bases := make(map[string]string, len(doc.Bindings))
	for i, b := range doc.Bindings {
		nv, node, err := r.binding(b, ids)
		if err != nil {
			return nil, fmt.Errorf("%s: bindings[%d]: %w", doc.path, i, err)
		}
		base := nv.Variable.BaseName()
		if prev, dup := bases[base]; dup {
			return nil, fmt.Errorf("%s: bindings[%d]: duplicate base name %s: used by %s and %s", doc.path, i, base, prev, nv.Label)
		}
		bases[base] = nv.Label
		if node != nil {
			unit.Nodes = append(unit.Nodes, node)
		}
		unit.Variables = append(unit.Variables, nv)
	}
	return unit, nil
}

func reserveIDs(doc *Document, ids *ast.IDGenerator) error {
	for i, b := range doc.Bindings {
		var id int64
		switch {
		case b.Decl != nil:
			id = b.Decl.ID
		case b.Expr != nil:
			id = b.Expr.ID
		}
		if id != 0 && !ids.Reserve(id) {
			return fmt.Errorf("%s: bindings[%d]: node id %d is already in use", doc.path, i, id)
		}
	}
	return nil
}

func (r *resolver) binding(b BindingSpec, ids *ast.IDGenerator) (pipeline.NamedVariable, ast.Node, error) {
	var (
		node  ast.Node
		label string
		build func() irvar.Variable
	)
	switch {
	case b.Decl != nil:
		t, err := r.typeOf(b.Decl.Type)
		if err != nil {
			return pipeline.NamedVariable{}, nil, err
		}
		decl := &ast.VariableDeclaration{NodeID: b.Decl.ID, Ident: b.Decl.Name, StateVariable: b.Decl.State, Type: t}
		if decl.NodeID == 0 {
			decl.NodeID = ids.Next()
		}
		node, label = decl, decl.String()
		build = func() irvar.Variable { return irvar.FromDeclaration(decl) }
	case b.Expr != nil:
		t, err := r.typeOf(b.Expr.Type)
		if err != nil {
			return pipeline.NamedVariable{}, nil, err
		}
		expr := &ast.TypedExpression{NodeID: b.Expr.ID, Source: b.Expr.Source, Type: t}
		if expr.NodeID == 0 {
			expr.NodeID = ids.Next()
		}
		node, label = expr, expr.String()
		build = func() irvar.Variable { return irvar.FromExpression(expr) }
	default:
		t, err := r.typeOf(b.Var.Type)
		if err != nil {
			return pipeline.NamedVariable{}, nil, err
		}
		label = b.Var.Name
		build = func() irvar.Variable { return irvar.New(t, b.Var.Name) }
	}

	var v irvar.Variable
	err := irvar.Catch(func() {
		v = build()
		for _, slot := range b.Path {
			v = v.Part(slot)
		}
		if b.Component != nil {
			v = v.TupleComponent(*b.Component)
		}
	})
	if err != nil {
		return pipeline.NamedVariable{}, nil, err
	}
	for _, slot := range b.Path {
		label += "." + slot
	}
	if b.Component != nil {
		label += fmt.Sprintf("[%d]", *b.Component)
	}
	return pipeline.NamedVariable{Label: label, Variable: v}, node, nil
}

// typeOf builds the type for a spec and checks its layout contract.
func (r *resolver) typeOf(spec *TypeSpec) (typesystem.Type, error) {
	t, err := r.build(spec)
	if err != nil {
		return nil, err
	}
	if err := r.validator.Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *resolver) named(name string) (typesystem.Type, error) {
	if t, ok := r.resolved[name]; ok {
		return t, nil
	}
	for _, v := range r.visiting {
		if v == name {
			return nil, typesystem.NewLayoutCycleError(append(r.visiting, name))
		}
	}
	spec, ok := r.doc.Types[name]
	if !ok {
		return nil, typesystem.NewUnknownTypeError(name)
	}

	r.visiting = append(r.visiting, name)
	defer func() { r.visiting = r.visiting[:len(r.visiting)-1] }()

	var (
		t   typesystem.Type
		err error
	)
	switch {
	case spec.IsAlias():
		var under typesystem.Type
		under, err = r.build(spec.Alias)
		t = typesystem.TAlias{Name: name, Underlying: under}
	case spec.kind == "record":
		var fields []typesystem.Field
		fields, err = r.fields(spec.Record)
		t = typesystem.TRecord{Name: name, Fields: fields}
	default:
		var under typesystem.Type
		under, err = r.build(spec)
		t = typesystem.TAlias{Name: name, Underlying: under}
	}
	if err != nil {
		return nil, err
	}
	if err := r.validator.Validate(t); err != nil {
		return nil, err
	}
	r.resolved[name] = t
	return t, nil
}

func (r *resolver) build(spec *TypeSpec) (typesystem.Type, error) {
	if spec.Ref != "" {
		if r.scalars[spec.Ref] {
			return typesystem.TCon{Name: spec.Ref}, nil
		}
		return r.named(spec.Ref)
	}
	switch spec.kind {
	case "tuple":
		elems := make([]typesystem.Type, len(spec.Tuple))
		for i, el := range spec.Tuple {
			if el.Ref == config.PlaceholderComponent {
				continue
			}
			t, err := r.build(el)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return typesystem.TTuple{Elements: elems}, nil
	case "record":
		fields, err := r.fields(spec.Record)
		if err != nil {
			return nil, err
		}
		return typesystem.TRecord{Fields: fields}, nil
	case "slice":
		elem, err := r.build(spec.Slice)
		if err != nil {
			return nil, err
		}
		return typesystem.TSlice{Elem: elem}, nil
	case "function":
		return typesystem.TFunc{External: spec.Function == "external"}, nil
	}
	return nil, fmt.Errorf("line %d: cannot resolve type", spec.line)
}

func (r *resolver) fields(specs []FieldSpec) ([]typesystem.Field, error) {
	fields := make([]typesystem.Field, 0, len(specs))
	for _, f := range specs {
		t, err := r.build(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields = append(fields, typesystem.Field{Name: f.Name, Type: t})
	}
	return fields, nil
}
