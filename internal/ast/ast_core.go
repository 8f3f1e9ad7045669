package ast

import (
	"fmt"
	"sync"

	"github.com/funvibe/irslots/internal/typesystem"
)

// Node is the base interface for all AST nodes that take part in IR naming.
// Every node carries an identifier that is unique for the compilation unit.
type Node interface {
	ID() int64
	String() string
}

// VariableDeclaration declares a named variable.
// State variables live in persistent storage rather than on the stack.
type VariableDeclaration struct {
	NodeID        int64
	Ident         string
	StateVariable bool
	Type          typesystem.Type
}

func (d *VariableDeclaration) ID() int64                     { return d.NodeID }
func (d *VariableDeclaration) Name() string                  { return d.Ident }
func (d *VariableDeclaration) IsStateVariable() bool         { return d.StateVariable }
func (d *VariableDeclaration) DeclaredType() typesystem.Type { return d.Type }
func (d *VariableDeclaration) String() string {
	return fmt.Sprintf("%s %s#%d", d.Type, d.Ident, d.NodeID)
}

// TypedExpression is an expression whose result type is already known.
// Source holds the expression text for diagnostics only.
type TypedExpression struct {
	NodeID int64
	Source string
	Type   typesystem.Type
}

func (e *TypedExpression) ID() int64                   { return e.NodeID }
func (e *TypedExpression) ResultType() typesystem.Type { return e.Type }
func (e *TypedExpression) String() string {
	if e.Source != "" {
		return fmt.Sprintf("%s#%d", e.Source, e.NodeID)
	}
	return fmt.Sprintf("expr#%d", e.NodeID)
}

// IDGenerator hands out node identifiers unique within one compilation unit.
// Identifiers fixed up front are registered with Reserve so Next never repeats them.
type IDGenerator struct {
	mu       sync.Mutex
	next     int64
	reserved map[int64]bool
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{next: 1, reserved: make(map[int64]bool)}
}

// Reserve marks id as taken. It returns false if id was already taken.
func (g *IDGenerator) Reserve(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reserved[id] {
		return false
	}
	g.reserved[id] = true
	return true
}

// Next returns the smallest positive identifier not handed out or reserved yet.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.reserved[g.next] {
		g.next++
	}
	id := g.next
	g.reserved[id] = true
	g.next++
	return id
}
