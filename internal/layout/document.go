// Package layout reads slot layout documents.
//
// A layout document declares the scalar types and named composite types of a
// compilation unit, plus the bindings (declarations, expression results and
// explicit temporaries) whose stack slots should be named:
//
//	scalars: [uint256, bool]
//	types:
//	  Order:
//	    record:
//	      - {name: amount, type: uint256}
//	      - {name: callback, type: {function: external}}
//	  Price: {alias: uint256}
//	bindings:
//	  - decl: {name: x, id: 12, type: Order}
//	  - expr: {id: 7, type: {tuple: [uint256, _, Price]}}
//	  - var: {name: tmp, type: {slice: uint256}}
//	    path: [offset]
//
// Documents may include other documents to share type declarations.
package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/irslots/internal/config"
	"github.com/funvibe/irslots/internal/utils"
)

// Document represents one parsed layout document.
type Document struct {
	// Includes lists documents whose scalars and types are merged into this one.
	// Paths are relative to the including document.
	Includes []string `yaml:"includes,omitempty"`

	// Scalars are the single-slot type names. Defaults to config.DefaultScalars.
	Scalars []string `yaml:"scalars,omitempty"`

	// Types maps type names to their layouts.
	Types map[string]*TypeSpec `yaml:"types,omitempty"`

	// Bindings are the values to name, in output order.
	Bindings []BindingSpec `yaml:"bindings,omitempty"`

	path string
}

// BindingSpec describes one value to name. Exactly one of Decl, Expr and Var is set.
type BindingSpec struct {
	Decl *DeclSpec `yaml:"decl,omitempty"`
	Expr *ExprSpec `yaml:"expr,omitempty"`
	Var  *VarSpec  `yaml:"var,omitempty"`

	// Path addresses a part of the value: each element is a stack item name
	// applied with Part, in order.
	Path []string `yaml:"path,omitempty"`

	// Component, when set, addresses a 0-based tuple component after Path is applied.
	Component *int `yaml:"component,omitempty"`
}

// DeclSpec is a variable declaration. An ID of 0 is assigned automatically.
type DeclSpec struct {
	Name  string    `yaml:"name"`
	ID    int64     `yaml:"id,omitempty"`
	State bool      `yaml:"state,omitempty"`
	Type  *TypeSpec `yaml:"type"`
}

// ExprSpec is an expression result. An ID of 0 is assigned automatically.
type ExprSpec struct {
	ID     int64     `yaml:"id,omitempty"`
	Source string    `yaml:"source,omitempty"`
	Type   *TypeSpec `yaml:"type"`
}

// VarSpec is a synthetic variable with an explicit base name.
type VarSpec struct {
	Name string    `yaml:"name"`
	Type *TypeSpec `yaml:"type"`
}

// Path returns the file the document was read from.
func (d *Document) Path() string { return d.path }

// LoadDocument reads and parses a layout document together with its includes.
func LoadDocument(path string) (*Document, error) {
	return loadDocument(path, make(map[string]bool))
}

func loadDocument(path string, loading map[string]bool) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if loading[abs] {
		return nil, fmt.Errorf("%s: include cycle", path)
	}
	loading[abs] = true
	defer delete(loading, abs)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout %s: %w", path, err)
	}
	doc, err := ParseDocument(data, path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for _, inc := range doc.Includes {
		included, err := loadDocument(utils.ResolveIncludePath(dir, inc), loading)
		if err != nil {
			return nil, fmt.Errorf("%s: include %s: %w", path, inc, err)
		}
		if err := doc.merge(included); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ParseDocument parses layout document content from bytes.
// The path argument is used for error messages and to resolve includes.
// Includes are not followed; use LoadDocument for that.
func ParseDocument(data []byte, path string) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	doc.path = path
	if err := doc.validate(); err != nil {
		return nil, err
	}
	doc.setDefaults()
	return &doc, nil
}

// FindDocument searches for slots.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the document and nil error if found,
// or empty string and nil error if not found.
func FindDocument(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range config.LayoutFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// validate checks the document for structural errors.
func (d *Document) validate() error {
	path := d.path
	if len(d.Bindings) == 0 && len(d.Types) == 0 && len(d.Includes) == 0 {
		return fmt.Errorf("%s: no types or bindings defined", path)
	}

	for name, spec := range d.Types {
		if !utils.IsIdentifier(name) {
			return fmt.Errorf("%s: types: %q is not a valid type name", path, name)
		}
		if spec == nil {
			return fmt.Errorf("%s: types: %s has no layout", path, name)
		}
		if err := spec.checkNamed(); err != nil {
			return fmt.Errorf("%s: types: %s: %w", path, name, err)
		}
	}

	for _, s := range d.Scalars {
		if !utils.IsIdentifier(s) {
			return fmt.Errorf("%s: scalars: %q is not a valid type name", path, s)
		}
		if _, clash := d.Types[s]; clash {
			return fmt.Errorf("%s: %s declared both as scalar and as type", path, s)
		}
	}

	for i, b := range d.Bindings {
		if err := b.validate(); err != nil {
			return fmt.Errorf("%s: bindings[%d]: %w", path, i, err)
		}
	}
	return nil
}

func (b *BindingSpec) validate() error {
	set := 0
	var typ *TypeSpec
	if b.Decl != nil {
		set++
		if b.Decl.Name == "" {
			return fmt.Errorf("decl: name is required")
		}
		if !utils.IsIdentifier(b.Decl.Name) {
			return fmt.Errorf("decl: %q is not a valid identifier", b.Decl.Name)
		}
		if b.Decl.ID < 0 {
			return fmt.Errorf("decl: id must not be negative")
		}
		typ = b.Decl.Type
	}
	if b.Expr != nil {
		set++
		if b.Expr.ID < 0 {
			return fmt.Errorf("expr: id must not be negative")
		}
		typ = b.Expr.Type
	}
	if b.Var != nil {
		set++
		if !utils.IsIdentifier(b.Var.Name) {
			return fmt.Errorf("var: %q is not a valid identifier", b.Var.Name)
		}
		typ = b.Var.Type
	}
	if set != 1 {
		return fmt.Errorf("exactly one of decl, expr and var must be set")
	}
	if typ == nil {
		return fmt.Errorf("type is required")
	}
	if err := typ.check(false); err != nil {
		return err
	}
	if b.Component != nil && *b.Component < 0 {
		return fmt.Errorf("component must not be negative")
	}
	return nil
}

func (d *Document) setDefaults() {
	if len(d.Scalars) == 0 {
		d.Scalars = append([]string(nil), config.DefaultScalars...)
	}
	if d.Types == nil {
		d.Types = make(map[string]*TypeSpec)
	}
}

// merge adds the scalars and types of an included document.
func (d *Document) merge(inc *Document) error {
	have := make(map[string]bool, len(d.Scalars))
	for _, s := range d.Scalars {
		have[s] = true
	}
	for _, s := range inc.Scalars {
		if _, clash := d.Types[s]; clash {
			return fmt.Errorf("%s: %s declared as type here and as scalar in %s", d.path, s, inc.path)
		}
		if !have[s] {
			d.Scalars = append(d.Scalars, s)
			have[s] = true
		}
	}
	for name, spec := range inc.Types {
		if _, dup := d.Types[name]; dup {
			return fmt.Errorf("%s: type %s also declared in %s", d.path, name, inc.path)
		}
		if have[name] {
			return fmt.Errorf("%s: %s declared as scalar here and as type in %s", d.path, name, inc.path)
		}
		d.Types[name] = spec
	}
	return nil
}
