// Package graph holds the read-mostly base graph and the community views
// layered over it.
package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned for node ids outside [0, n).
	ErrOutOfRange = errors.New("node id out of range")
	// ErrImmutable is returned when an edge is added to a community view.
	ErrImmutable = errors.New("cannot add edge to community view")
	// ErrDuplicateNode is returned when a community lists the same node twice.
	ErrDuplicateNode = errors.New("duplicate node in community")
	// ErrForeignGraph is returned when two communities over different base graphs are combined.
	ErrForeignGraph = errors.New("communities belong to different base graphs")
)

// Graph is the capability set shared by base graphs and community views.
// Node ids are always local to the receiver: 0..NodeCount()-1.
type Graph interface {
	NodeCount() int
	EdgeCount() int
	Name() string
	// Neighbors returns the ids adjacent to node. Callers must not modify the result.
	Neighbors(node int) ([]int, error)
	HasEdge(u, v int) (bool, error)
	Degree(node int) (int, error)
	// AddEdge inserts u→v. It reports false if the edge was already present.
	AddEdge(u, v int) (bool, error)
}

// Representation selects the storage backing a base graph.
type Representation string

const (
	RepresentationList   Representation = "list"
	RepresentationMatrix Representation = "matrix"
)

// New allocates an empty base graph with n nodes.
func New(rep Representation, n int) (Graph, error) {
	if n < 0 {
		return nil, fmt.Errorf("graph: negative node count %d", n)
	}
	switch rep {
	case RepresentationList, "":
		return NewAdjacencyList(n), nil
	case RepresentationMatrix:
		return NewAdjacencyMatrix(n), nil
	default:
		return nil, fmt.Errorf("graph: unknown representation %q", rep)
	}
}

// header carries the fields common to both base representations.
type header struct {
	n    int
	e    int
	name string
}

func (h *header) NodeCount() int { return h.n }
func (h *header) EdgeCount() int { return h.e }
func (h *header) Name() string { return h.name }
func (h *header) SetName(name string) { h.name = name }
func (h *header) hasNode(node int) bool { return node >= 0 && node < h.n }

func (h *header) checkNode(node int) error {
	if !h.hasNode(node) {
		return fmt.Errorf("%w: %d-node graph %s has no node %d", ErrOutOfRange, h.n, h.name, node)
	}
	return nil
}
