package engine

import (
	"fmt"
	"slices"
	"strings"

	"viki/vikigraph/internal/graph"
)

// HideMode selects what Hide removes with a node.
type HideMode string

const (
	HideNodeOnly HideMode = "node"
	HideHub      HideMode = "hub"
	HideIncoming HideMode = "incoming"
	HideOutgoing HideMode = "outgoing"
)

// ParseHideMode parses a hide mode name. The empty string means node.
func ParseHideMode(s string) (HideMode, error) {
	switch m := HideMode(strings.ToLower(s)); m {
	case "":
		return HideNodeOnly, nil
	case HideNodeOnly, HideHub, HideIncoming, HideOutgoing:
		return m, nil
	default:
		return "", fmt.Errorf("unknown hide mode %q", s)
	}
}

// Hide hides the node with identifier id, or its cluster, and returns the
// identifiers of the nodes it hid.
func (s *Session) Hide(id int, mode HideMode) ([]int, error) {
	s.mu.Lock()
	defer s.release("nodes hidden")

	n, err := s.store.Lookup(id)
	if err != nil {
		return nil, err
	}
	var hidden []*graph.Node
	switch mode {
	case HideNodeOnly, "":
		if !n.Hidden {
			s.store.HideNode(n, true)
			hidden = []*graph.Node{n}
		}
	case HideHub:
		hidden = s.store.HideHubCluster(n)
	case HideIncoming:
		hidden = s.store.HideIncomingLinks(n)
	case HideOutgoing:
		hidden = s.store.HideOutgoingLinks(n)
	default:
		return nil, fmt.Errorf("unknown hide mode %q", mode)
	}
	s.markRedraw(true)
	return nodeIDs(hidden), nil
}

// Unhide moves the hidden node with identifier id back to the visible graph.
func (s *Session) Unhide(id int) error {
	s.mu.Lock()
	defer s.release("node shown")

	if _, err := s.store.Lookup(id); err != nil {
		return err
	}
	if s.store.UnhideNode(id) {
		s.markRedraw(true)
	}
	return nil
}

// ShowAll restores every hidden node and link and clears the hidden
// categories.
func (s *Session) ShowAll() {
	s.mu.Lock()
	s.store.ShowAll()
	s.markRedraw(true)
	s.release("all nodes shown")
}

// HideCategories hides every node in any of the categories and keeps them
// hidden from later discovery.
func (s *Session) HideCategories(categories []string) []int {
	s.mu.Lock()
	defer s.release("categories hidden")

	hidden := s.store.HideByCategories(categories)
	s.markRedraw(true)
	return nodeIDs(hidden)
}

// Select makes the node with identifier id the selected node.
func (s *Session) Select(id int) error {
	s.mu.Lock()
	defer s.release("node selected")

	if err := s.store.Select(id); err != nil {
		return err
	}
	s.markRedraw(false)
	return nil
}

// NodeInfo describes one node for display.
type NodeInfo struct {
	Node        graph.Node `json:"node"`
	Header      string     `json:"header"`
	Connections int        `json:"connections"`
	Selected    bool       `json:"selected"`
}

// Info returns a description of the node with identifier id.
func (s *Session) Info(id int) (NodeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Lookup(id)
	if err != nil {
		return NodeInfo{}, err
	}
	header := n.FullDisplayName
	if n.Nonexistent {
		header += " (Page Does Not Exist)"
	}
	if n.IsWiki() && !n.Searchable {
		header += " (Page Cannot Be Elaborated)"
	}
	cp := *n
	cp.Categories = slices.Clone(n.Categories)
	sel := s.store.Selected()
	return NodeInfo{
		Node:        cp,
		Header:      header,
		Connections: s.store.ConnectionCount(n),
		Selected:    sel != nil && sel.ID == n.ID,
	}, nil
}

// View is a point-in-time copy of the graph.
type View struct {
	Nodes            []graph.Node `json:"nodes"`
	Links            []graph.Link `json:"links"`
	HiddenNodes      []graph.Node `json:"hiddenNodes"`
	HiddenLinks      []graph.Link `json:"hiddenLinks"`
	HiddenCategories []string     `json:"hiddenCategories"`
	Selected         int          `json:"selected"`
}

// View copies the current visible and hidden collections.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Nodes:            copyNodes(s.store.Nodes()),
		HiddenNodes:      copyNodes(s.store.HiddenNodes()),
		HiddenCategories: slices.Clone(s.store.HiddenCategories()),
		Selected:         graph.NoSelection,
	}
	v.Links = copyLinks(s.store.Links(), v.Nodes, v.HiddenNodes)
	v.HiddenLinks = copyLinks(s.store.HiddenLinks(), v.Nodes, v.HiddenNodes)
	if sel := s.store.Selected(); sel != nil {
		v.Selected = sel.ID
	}
	return v
}

// Summary returns the topology summary of the current graph.
func (s *Session) Summary(hubThreshold, topN int) *graph.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Summarize(hubThreshold, topN)
}

func copyNodes(nodes []*graph.Node) []graph.Node {
	out := make([]graph.Node, len(nodes))
	for i, n := range nodes {
		out[i] = *n
		out[i].Categories = slices.Clone(n.Categories)
	}
	return out
}

// copyLinks rebinds the copied links to the copied nodes.
func copyLinks(links []*graph.Link, pools ...[]graph.Node) []graph.Link {
	byID := make(map[int]*graph.Node)
	for _, pool := range pools {
		for i := range pool {
			byID[pool[i].ID] = &pool[i]
		}
	}
	out := make([]graph.Link, len(links))
	for i, l := range links {
		out[i] = graph.Link{Source: byID[l.Source.ID], Target: byID[l.Target.ID], Bidirectional: l.Bidirectional}
	}
	return out
}

func nodeIDs(nodes []*graph.Node) []int {
	ids := make([]int, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
