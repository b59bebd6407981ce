package graph

// OverlappingNodes returns the original ids present in both c and other,
// in c's local order.
func (c *Community) OverlappingNodes(other *Community) []int {
	var out []int
	for _, id := range c.ids {
		if other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// NonOverlappingNodes returns the original ids of c that are not in other.
func (c *Community) NonOverlappingNodes(other *Community) []int {
	var out []int
	for _, id := range c.ids {
		if !other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// NodeOverlapFraction is |c ∩ other| / |c|. An empty c overlaps nothing.
func (c *Community) NodeOverlapFraction(other *Community) float64 {
	if len(c.ids) == 0 {
		return 0
	}
	return float64(len(c.OverlappingNodes(other))) / float64(len(c.ids))
}

// EdgeOverlapFraction measures how strongly the parts of a and b outside
// their intersection are wired to each other: base-graph edges running
// between a\b and b\a, divided by the edges inside the smaller of the two
// remainders. An empty or edgeless remainder means one community is
// effectively nested in the other and yields 1.
func EdgeOverlapFraction(a, b *Community) (float64, error) {
	if a.base != b.base {
		return 0, ErrForeignGraph
	}
	onlyA := a.NonOverlappingNodes(b)
	onlyB := b.NonOverlappingNodes(a)
	if len(onlyA) == 0 || len(onlyB) == 0 {
		return 1, nil
	}
	setA, setB := toSet(onlyA), toSet(onlyB)
	smaller, smallerSet := onlyA, setA
	if len(onlyB) < len(onlyA) {
		smaller, smallerSet = onlyB, setB
	}

	inner, err := countEdges(a.base, smaller, smallerSet)
	if err != nil {
		return 0, err
	}
	if inner == 0 {
		return 1, nil
	}
	ab, err := countEdges(a.base, onlyA, setB)
	if err != nil {
		return 0, err
	}
	ba, err := countEdges(a.base, onlyB, setA)
	if err != nil {
		return 0, err
	}
	return float64(ab+ba) / float64(inner), nil
}

// countEdges counts base edges u→v with u in from and v in to.
func countEdges(g Graph, from []int, to map[int]struct{}) (int, error) {
	n := 0
	for _, u := range from {
		nbrs, err := g.Neighbors(u)
		if err != nil {
			return 0, err
		}
		for _, v := range nbrs {
			if _, ok := to[v]; ok {
				n++
			}
		}
	}
	return n, nil
}

func toSet(ids []int) map[int]struct{} {
	m := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
