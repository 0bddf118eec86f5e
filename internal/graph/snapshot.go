package graph

import "sort"

// Snapshot is a read-only view of the visible graph with precomputed
// adjacency. A bidirectional link contributes to both directed lists.
type Snapshot struct {
	Nodes  map[int]*Node
	Links  []*Link
	Adj    map[int][]int // undirected
	OutAdj map[int][]int // source -> targets
	InAdj  map[int][]int // target -> sources
}

// Snapshot captures the visible collections of the store.
func (s *Store) Snapshot() *Snapshot {
	return NewSnapshot(s.nodes, s.links)
}

// NewSnapshot builds a Snapshot from nodes and links. Links with an endpoint
// outside nodes are ignored.
func NewSnapshot(nodes []*Node, links []*Link) *Snapshot {
	snap := &Snapshot{
		Nodes:  make(map[int]*Node, len(nodes)),
		Adj:    make(map[int][]int, len(nodes)),
		OutAdj: make(map[int][]int, len(nodes)),
		InAdj:  make(map[int][]int, len(nodes)),
	}
	for _, n := range nodes {
		snap.Nodes[n.ID] = n
	}
	for _, l := range links {
		src, tgt := l.Source.ID, l.Target.ID
		if snap.Nodes[src] == nil || snap.Nodes[tgt] == nil {
			continue
		}
		snap.Links = append(snap.Links, l)
		snap.Adj[src] = append(snap.Adj[src], tgt)
		snap.Adj[tgt] = append(snap.Adj[tgt], src)
		snap.OutAdj[src] = append(snap.OutAdj[src], tgt)
		snap.InAdj[tgt] = append(snap.InAdj[tgt], src)
		if l.Bidirectional {
			snap.OutAdj[tgt] = append(snap.OutAdj[tgt], src)
			snap.InAdj[src] = append(snap.InAdj[src], tgt)
		}
	}
	return snap
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *Snapshot) NodeIDs() []int {
	ids := make([]int, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
