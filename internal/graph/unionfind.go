package graph

// UnionFind implements union-find with path compression and union by rank
// over the dense positions 0..n-1.
type UnionFind struct {
	parent []int
	rank   []int
	size   []int
}

// NewUnionFind creates a new UnionFind where each element is its own component
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
		size:   make([]int, n),
	}
	for i := range n {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

// Find returns the root of the component containing i.
func (uf *UnionFind) Find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// Union merges the components containing a and b. Returns true if they were separate.
func (uf *UnionFind) Union(a, b int) bool {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return false
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	return true
}

// Size returns the number of elements in i's component.
func (uf *UnionFind) Size(i int) int { return uf.size[uf.Find(i)] }

// Components returns the size of every component.
func (uf *UnionFind) Components() []int {
	var sizes []int
	for i := range uf.parent {
		if uf.parent[i] == i {
			sizes = append(sizes, uf.size[i])
		}
	}
	return sizes
}
