package graph

import (
	"slices"
	"sort"
)

// HubNode is a node with high connectivity
type HubNode struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Elaborated bool   `json:"elaborated"`
	Degree     int    `json:"degree"`
	InDegree   int    `json:"in_degree"`
	OutDegree  int    `json:"out_degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary describes the shape of the visible graph.
type Summary struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalLinks        int            `json:"total_links"`
	HiddenNodes       int            `json:"hidden_nodes"`
	HiddenLinks       int            `json:"hidden_links"`
	WikiPages         int            `json:"wiki_pages"`
	ExternalPages     int            `json:"external_pages"`
	Bidirectional     int            `json:"bidirectional"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	OrphanCount       int            `json:"orphan_count"`
	LeafCount         int            `json:"leaf_count"`
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	Hubs              []HubNode      `json:"hubs"`
	HiddenCategories  []string       `json:"hidden_categories,omitempty"`
	Cuts              *CutReport     `json:"cuts"`
}

// Summarize computes the topology of the visible graph plus the size of the
// hidden collections.
func (s *Store) Summarize(hubThreshold, topN int) *Summary {
	snap := s.Snapshot()
	sum := ComputeTopology(snap, hubThreshold, topN)
	sum.Cuts = ComputeCuts(snap)
	sum.HiddenNodes = len(s.hiddenNodes)
	sum.HiddenLinks = len(s.hiddenLinks)
	sum.HiddenCategories = slices.Clone(s.hiddenCategories)
	return sum
}

// ComputeTopology analyzes graph topology: components, orphans, leaves,
// degree distribution, hubs
func ComputeTopology(snap *Snapshot, hubThreshold, topN int) *Summary {
	totalNodes := len(snap.Nodes)
	if totalNodes == 0 {
		return &Summary{DegreeHistogram: defaultHistogram()}
	}

	ids := snap.NodeIDs()
	pos := make(map[int]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	uf := NewUnionFind(len(ids))
	sum := &Summary{
		TotalNodes:        totalNodes,
		TotalLinks:        len(snap.Links),
		SmallestComponent: totalNodes,
	}
	for _, l := range snap.Links {
		uf.Union(pos[l.Source.ID], pos[l.Target.ID])
		if l.Bidirectional {
			sum.Bidirectional++
		}
	}

	components := uf.Components()
	sum.NumComponents = len(components)
	for _, size := range components {
		sum.LargestComponent = max(sum.LargestComponent, size)
		sum.SmallestComponent = min(sum.SmallestComponent, size)
	}

	buckets := [7]int{}
	var hubs []HubNode
	for _, id := range ids {
		n := snap.Nodes[id]
		if n.IsWiki() {
			sum.WikiPages++
		} else {
			sum.ExternalPages++
		}
		degree := len(snap.Adj[id])
		switch degree {
		case 0:
			sum.OrphanCount++
		case 1:
			sum.LeafCount++
		}
		buckets[degreeBucket(degree)]++
		if degree > hubThreshold {
			hubs = append(hubs, HubNode{
				ID:         id,
				Title:      n.FullDisplayName,
				Elaborated: n.Elaborated,
				Degree:     degree,
				InDegree:   len(snap.InAdj[id]),
				OutDegree:  len(snap.OutAdj[id]),
			})
		}
	}

	sum.DegreeHistogram = defaultHistogram()
	for i := range sum.DegreeHistogram {
		sum.DegreeHistogram[i].Count = buckets[i]
	}

	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].Degree > hubs[j].Degree })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}
	sum.Hubs = hubs
	return sum
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
