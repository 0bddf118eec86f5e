package graph

// CutPage is a page whose hiding would split its component.
type CutPage struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Neighbors int    `json:"neighbors"`
}

// CutLink is a link whose hiding would split its component.
type CutLink struct {
	SourceID    int    `json:"source_id"`
	TargetID    int    `json:"target_id"`
	SourceTitle string `json:"source_title"`
	TargetTitle string `json:"target_title"`
}

// CutReport lists the articulation points and bridges of the visible graph.
type CutReport struct {
	Pages []CutPage `json:"pages"`
	Links []CutLink `json:"links"`
}

// ComputeCuts finds articulation pages and bridge links with an iterative
// Tarjan walk over the undirected view of snap.
func ComputeCuts(snap *Snapshot) *CutReport {
	ids := snap.NodeIDs()
	n := len(ids)
	report := &CutReport{}
	if n == 0 {
		return report
	}

	pos := make(map[int]int, n)
	for i, id := range ids {
		pos[id] = i
	}
	adj := make([][]int, n)
	for _, l := range snap.Links {
		u, v := pos[l.Source.ID], pos[l.Target.ID]
		if u == v {
			continue
		}
		adj[u] = append(adj[u], v)
		adj[v] = append(adj[v], u)
	}

	disc := make([]int, n) // 0 means unvisited
	low := make([]int, n)
	cut := make([]bool, n)
	var bridges [][2]int
	clock := 0

	type frame struct{ at, parent, next int }
	for root := range n {
		if disc[root] != 0 {
			continue
		}
		clock++
		disc[root], low[root] = clock, clock
		stack := []frame{{root, -1, 0}}
		children := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(adj[top.at]) {
				child := adj[top.at][top.next]
				top.next++
				switch {
				case child == top.parent:
				case disc[child] != 0:
					low[top.at] = min(low[top.at], disc[child])
				default:
					clock++
					disc[child], low[child] = clock, clock
					if top.at == root {
						children++
					}
					stack = append(stack, frame{child, top.at, 0})
				}
				continue
			}

			done := top.at
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				continue
			}
			up := stack[len(stack)-1].at
			low[up] = min(low[up], low[done])
			if low[done] > disc[up] {
				bridges = append(bridges, [2]int{up, done})
			}
			if up != root && low[done] >= disc[up] {
				cut[up] = true
			}
		}
		if children >= 2 {
			cut[root] = true
		}
	}

	for i, isCut := range cut {
		if !isCut {
			continue
		}
		node := snap.Nodes[ids[i]]
		report.Pages = append(report.Pages, CutPage{
			ID:        node.ID,
			Title:     node.FullDisplayName,
			Neighbors: len(adj[i]),
		})
	}
	for _, b := range bridges {
		src, tgt := snap.Nodes[ids[b[0]]], snap.Nodes[ids[b[1]]]
		report.Links = append(report.Links, CutLink{
			SourceID:    src.ID,
			TargetID:    tgt.ID,
			SourceTitle: src.FullDisplayName,
			TargetTitle: tgt.FullDisplayName,
		})
	}
	return report
}
