package typesystem

import (
	"fmt"
	"strings"
)

// UnknownTypeError indicates a type name that is neither a scalar nor a declared type
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type: %s", e.Name)
}

func NewUnknownTypeError(name string) *UnknownTypeError {
	return &UnknownTypeError{Name: name}
}

// LayoutCycleError indicates a named type whose layout refers back to itself
type LayoutCycleError struct {
	Path []string
}

func (e *LayoutCycleError) Error() string {
	return fmt.Sprintf("cyclic layout: %s", strings.Join(e.Path, " -> "))
}

func NewLayoutCycleError(path []string) *LayoutCycleError {
	return &LayoutCycleError{Path: append([]string(nil), path...)}
}

// ContractError indicates a type whose stack items break the layout contract
type ContractError struct {
	Type   string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("invalid layout for %s: %s", e.Type, e.Reason)
}

func NewContractError(t Type, format string, args ...interface{}) *ContractError {
	name := "<nil>"
	if t != nil {
		name = t.String()
	}
	return &ContractError{Type: name, Reason: fmt.Sprintf(format, args...)}
}
