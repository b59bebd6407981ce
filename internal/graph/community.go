package graph

import (
	"fmt"
	"sync"
)

// Community is an induced-subgraph view over a base graph. Lookups are
// translated through a bijective local↔original id mapping and passed on to
// the base graph, so a Community is cheap to create and never copies edges.
//
// A Community is immutable once built. Its base graph must outlive it and
// must not be mutated while views over it are in use.
type Community struct {
	base  Graph
	ids   []int       // local → original
	local map[int]int // original → local

	edgesOnce sync.Once
	edges     int
	edgesErr  error

	score Score
}

// NewCommunity builds a view over base containing the given original ids.
// Local ids follow the order of ids.
func NewCommunity(base Graph, ids []int) (*Community, error) {
	c := &Community{
		base:  base,
		ids:   make([]int, len(ids)),
		local: make(map[int]int, len(ids)),
	}
	n := base.NodeCount()
	for i, id := range ids {
		if id < 0 || id >= n {
			return nil, fmt.Errorf("cannot create community: %w: graph %s does not have node %d", ErrOutOfRange, base.Name(), id)
		}
		if _, dup := c.local[id]; dup {
			return nil, fmt.Errorf("cannot create community: %w: %d", ErrDuplicateNode, id)
		}
		c.ids[i] = id
		c.local[id] = i
	}
	return c, nil
}

// Base returns the graph this view is defined over.
func (c *Community) Base() Graph { return c.base }

// Score returns the memoized spectral score slot of this community.
func (c *Community) Score() *Score { return &c.score }

func (c *Community) NodeCount() int { return len(c.ids) }

func (c *Community) Name() string {
	return fmt.Sprintf("%s/community(%d)", c.base.Name(), len(c.ids))
}

// OriginalIDs returns a copy of the mapped original ids in local order.
func (c *Community) OriginalIDs() []int {
	out := make([]int, len(c.ids))
	copy(out, c.ids)
	return out
}

// Contains reports whether the original id is a member.
func (c *Community) Contains(original int) bool {
	_, ok := c.local[original]
	return ok
}

// ToOriginal maps a local id to its base-graph id.
func (c *Community) ToOriginal(node int) (int, error) {
	if err := c.checkNode(node); err != nil {
		return 0, err
	}
	return c.ids[node], nil
}

// ToLocal maps a base-graph id to its local id.
func (c *Community) ToLocal(original int) (int, bool) {
	i, ok := c.local[original]
	return i, ok
}

// Neighbors returns the local ids of node's base-graph neighbors that are
// members of this community.
func (c *Community) Neighbors(node int) ([]int, error) {
	if err := c.checkNode(node); err != nil {
		return nil, err
	}
	nbrs, err := c.base.Neighbors(c.ids[node])
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(nbrs))
	for _, o := range nbrs {
		if i, ok := c.local[o]; ok {
			out = append(out, i)
		}
	}
	return out, nil
}

func (c *Community) HasEdge(u, v int) (bool, error) {
	if err := c.checkNode(u); err != nil {
		return false, err
	}
	if err := c.checkNode(v); err != nil {
		return false, err
	}
	return c.base.HasEdge(c.ids[u], c.ids[v])
}

func (c *Community) Degree(node int) (int, error) {
	nbrs, err := c.Neighbors(node)
	if err != nil {
		return 0, err
	}
	return len(nbrs), nil
}

// AddEdge always fails: views are read-only.
func (c *Community) AddEdge(u, v int) (bool, error) {
	return false, ErrImmutable
}

// EdgeCount counts the directed base-graph edges with both ends in the view.
// It returns 0 when the base lookup fails; CountEdges reports that error.
func (c *Community) EdgeCount() int {
	n, err := c.CountEdges()
	if err != nil {
		return 0
	}
	return n
}

// CountEdges is EdgeCount with the base lookup error. The count is memoized.
func (c *Community) CountEdges() (int, error) {
	c.edgesOnce.Do(func() {
		for i := range c.ids {
			d, err := c.Degree(i)
			if err != nil {
				c.edgesErr = err
				return
			}
			c.edges += d
		}
	})
	if c.edgesErr != nil {
		return 0, c.edgesErr
	}
	return c.edges, nil
}

// Merge returns a new community over the union of both member sets.
// Members of c keep their order; members only in other follow.
func (c *Community) Merge(other *Community) (*Community, error) {
	if c.base != other.base {
		return nil, ErrForeignGraph
	}
	m := &Community{
		base:  c.base,
		ids:   make([]int, 0, len(c.ids)+len(other.ids)),
		local: make(map[int]int, len(c.ids)+len(other.ids)),
	}
	for _, src := range [][]int{c.ids, other.ids} {
		for _, id := range src {
			if _, ok := m.local[id]; ok {
				continue
			}
			m.local[id] = len(m.ids)
			m.ids = append(m.ids, id)
		}
	}
	return m, nil
}

// RemoveHighDegreeNodes returns a view keeping the members whose degree
// inside this community is at most NodeCount()*cutoff. Star-like hubs are
// the typical casualties.
func (c *Community) RemoveHighDegreeNodes(cutoff float64) (*Community, error) {
	limit := float64(len(c.ids)) * cutoff
	kept := make([]int, 0, len(c.ids))
	for i, id := range c.ids {
		d, err := c.Degree(i)
		if err != nil {
			return nil, err
		}
		if float64(d) <= limit {
			kept = append(kept, id)
		}
	}
	return NewCommunity(c.base, kept)
}

func (c *Community) checkNode(node int) error {
	if node < 0 || node >= len(c.ids) {
		return fmt.Errorf("%w: community of %d nodes has no node %d", ErrOutOfRange, len(c.ids), node)
	}
	return nil
}
