package graph

import "slices"

// ClusterMode selects which neighbors HideCluster removes with a node.
type ClusterMode int

const (
	// HideHub removes the node and its leaf neighbors.
	HideHub ClusterMode = iota
	// HideIncoming removes the neighbors linking to the node.
	HideIncoming
	// HideOutgoing removes the neighbors the node links to.
	HideOutgoing
)

func (m ClusterMode) String() string {
	switch m {
	case HideIncoming:
		return "incoming"
	case HideOutgoing:
		return "outgoing"
	default:
		return "hub"
	}
}

// HideNode moves n and every visible link touching it to the hidden
// collections. With deselect the selection is cleared.
func (s *Store) HideNode(n *Node, deselect bool) {
	if deselect {
		s.selected = NoSelection
	}
	i := slices.Index(s.nodes, n)
	if i < 0 {
		return
	}
	s.nodes = slices.Delete(s.nodes, i, i+1)
	n.Hidden = true
	s.hiddenNodes = append(s.hiddenNodes, n)

	s.links = slices.DeleteFunc(s.links, func(l *Link) bool {
		if !l.Touches(n) {
			return false
		}
		s.unindexLink(l)
		s.hiddenLinks = append(s.hiddenLinks, l)
		return true
	})
}

// HideCluster hides n's cluster and returns the nodes it hid.
//
// HideHub takes n together with every neighbor whose only visible link is
// the one to n. HideIncoming and HideOutgoing take the neighbors on links in
// that direction; a bidirectional link counts only once n is already latched
// for the opposite direction. n stays visible and selected in those modes.
func (s *Store) HideCluster(n *Node, mode ClusterMode) []*Node {
	var remove []*Node
	if mode == HideHub {
		remove = append(remove, n)
	}
	for _, l := range s.links {
		if !l.Touches(n) {
			continue
		}
		switch {
		case l.Bidirectional && mode != HideHub:
			if (mode == HideIncoming && n.HidingOutgoing) || (mode == HideOutgoing && n.HidingIncoming) {
				remove = append(remove, l.Other(n))
			}
		case l.Source == n:
			if mode == HideOutgoing || (mode == HideHub && s.ConnectionCount(l.Target) == 1) {
				remove = append(remove, l.Target)
			}
		case l.Target == n:
			if mode == HideIncoming || (mode == HideHub && s.ConnectionCount(l.Source) == 1) {
				remove = append(remove, l.Source)
			}
		}
	}

	hidden := make([]*Node, 0, len(remove))
	for _, m := range remove {
		if m.Hidden || slices.Contains(hidden, m) {
			continue
		}
		s.HideNode(m, false)
		hidden = append(hidden, m)
	}

	if mode == HideHub {
		if s.selected != NoSelection && slices.ContainsFunc(hidden, func(m *Node) bool { return m.ID == s.selected }) {
			s.selected = NoSelection
		}
	} else {
		s.selected = n.ID
	}
	return hidden
}

// HideHubCluster hides an elaborated node and its leaves. It does nothing
// for a node that has not been elaborated.
func (s *Store) HideHubCluster(n *Node) []*Node {
	if !n.Elaborated {
		return nil
	}
	return s.HideCluster(n, HideHub)
}

// HideIncomingLinks hides the neighbors linking to n and latches n.
func (s *Store) HideIncomingLinks(n *Node) []*Node {
	hidden := s.HideCluster(n, HideIncoming)
	n.HidingIncoming = true
	return hidden
}

// HideOutgoingLinks hides the neighbors n links to and latches n.
func (s *Store) HideOutgoingLinks(n *Node) []*Node {
	hidden := s.HideCluster(n, HideOutgoing)
	n.HidingOutgoing = true
	return hidden
}

// HideByCategories hides every visible node in any of the categories and
// adds the categories to the hidden set.
func (s *Store) HideByCategories(categories []string) []*Node {
	var hidden []*Node
	for _, c := range categories {
		var members []*Node
		for _, n := range s.nodes {
			if slices.Contains(n.Categories, c) {
				members = append(members, n)
			}
		}
		for _, n := range members {
			s.HideNode(n, true)
		}
		hidden = append(hidden, members...)
		if !slices.Contains(s.hiddenCategories, c) {
			s.hiddenCategories = append(s.hiddenCategories, c)
		}
	}
	return hidden
}

// HasHiddenCategory reports whether any of n's categories is hidden.
func (s *Store) HasHiddenCategory(n *Node) bool {
	for _, c := range n.Categories {
		if slices.Contains(s.hiddenCategories, c) {
			return true
		}
	}
	return false
}

// UnhideNode moves the hidden node with identifier id back to the visible
// collection together with every hidden link whose endpoints are both
// visible again. It reports whether a node was moved.
func (s *Store) UnhideNode(id int) bool {
	i := slices.IndexFunc(s.hiddenNodes, func(n *Node) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	n := s.hiddenNodes[i]
	s.hiddenNodes = slices.Delete(s.hiddenNodes, i, i+1)
	n.Hidden = false
	s.nodes = append(s.nodes, n)

	s.hiddenLinks = slices.DeleteFunc(s.hiddenLinks, func(l *Link) bool {
		if !l.Touches(n) || l.Source.Hidden || l.Target.Hidden {
			return false
		}
		s.links = append(s.links, l)
		s.indexLink(l)
		return true
	})
	return true
}

// ShowAll moves every hidden node and link back to the visible collections,
// clears the incoming/outgoing latches and empties the hidden category set.
func (s *Store) ShowAll() {
	for _, n := range s.hiddenNodes {
		n.Hidden = false
		s.nodes = append(s.nodes, n)
	}
	s.hiddenNodes = nil

	for _, l := range s.hiddenLinks {
		s.links = append(s.links, l)
		s.indexLink(l)
	}
	s.hiddenLinks = nil

	for _, n := range s.nodes {
		n.HidingIncoming = false
		n.HidingOutgoing = false
	}
	s.hiddenCategories = nil
}
