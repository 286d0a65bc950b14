package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNodeRange is returned when an edge or reference names a node index that does not exist.
	ErrNodeRange = errors.New("node index out of range")
	// ErrPortRange is returned when a port index is outside the node's declared ports.
	ErrPortRange = errors.New("port index out of range")
	// ErrFanIn is returned when two edges terminate at the same input port.
	ErrFanIn = errors.New("input port has more than one producer")
	// ErrUnknownNode is returned when a reference names an undeclared node.
	ErrUnknownNode = errors.New("unknown node")
	// ErrUnknownPort is returned when a reference names an undeclared port.
	ErrUnknownPort = errors.New("unknown port")
)

// StructuralError identifies the node, port or edge that makes a graph invalid.
// Edge is -1 when the failure is not tied to a declared edge.
type StructuralError struct {
	Edge   int
	End    End
	Dir    Direction
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	var sb strings.Builder
	sb.WriteString("structural error")
	if e.Edge >= 0 {
		fmt.Fprintf(&sb, " in edge %d", e.Edge)
	}
	fmt.Fprintf(&sb, " at %s port %s", e.Dir, e.End)
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *StructuralError) Unwrap() error { return e.Err }
