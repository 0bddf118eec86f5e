// Package graph holds the working set of one interactive graph view: the
// visible and hidden node and link collections, the adjacency index over the
// visible links, and the operations that move pages between them.
//
// A Store is not safe for concurrent use. Callers serialize access.
package graph

import (
	"errors"
	"slices"

	"viki/vikigraph/internal/wiki"
)

// ErrNodeNotFound is returned when no node carries the requested identifier.
var ErrNodeNotFound = errors.New("node not found")

// NoSelection is the selected identifier when nothing is selected.
const NoSelection = -1

type pair struct{ from, to int }

// Store owns the canonical node and link collections.
type Store struct {
	nodes       []*Node
	links       []*Link
	index       map[pair]*Link // visible links, both orderings
	hiddenNodes []*Node
	hiddenLinks []*Link

	hiddenCategories []string
	nextID           int
	selected         int

	// OnAdd is called after a node is inserted.
	OnAdd func(*Node)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		index:    make(map[pair]*Link),
		selected: NoSelection,
	}
}

// Nodes returns the visible nodes. The slice must not be modified.
func (s *Store) Nodes() []*Node { return s.nodes }

// Links returns the visible links. The slice must not be modified.
func (s *Store) Links() []*Link { return s.links }

// HiddenNodes returns the hidden nodes. The slice must not be modified.
func (s *Store) HiddenNodes() []*Node { return s.hiddenNodes }

// HiddenLinks returns the hidden links. The slice must not be modified.
func (s *Store) HiddenLinks() []*Link { return s.hiddenLinks }

// HiddenCategories returns the categories currently suppressing membership.
func (s *Store) HiddenCategories() []string { return s.hiddenCategories }

// AddNode assigns the next identifier to n and appends it to the visible
// collection. The first node added becomes the selected node.
func (s *Store) AddNode(n *Node) int {
	n.ID = s.nextID
	s.nextID++
	n.Hidden = false
	s.nodes = append(s.nodes, n)
	if len(s.nodes) == 1 && s.selected == NoSelection {
		s.selected = n.ID
	}
	if s.OnAdd != nil {
		s.OnAdd(n)
	}
	return n.ID
}

// AddLink creates a link from a to b. A visible link is indexed under both
// orderings of the pair; a hidden link is only appended to the hidden
// collection.
func (s *Store) AddLink(a, b *Node, hidden bool) *Link {
	l := &Link{Source: a, Target: b}
	if hidden {
		s.hiddenLinks = append(s.hiddenLinks, l)
		return l
	}
	s.links = append(s.links, l)
	s.indexLink(l)
	return l
}

// FindNode returns the first node matching pred, scanning the visible
// collection before the hidden one.
func (s *Store) FindNode(pred func(*Node) bool) *Node {
	if i := slices.IndexFunc(s.nodes, pred); i >= 0 {
		return s.nodes[i]
	}
	if i := slices.IndexFunc(s.hiddenNodes, pred); i >= 0 {
		return s.hiddenNodes[i]
	}
	return nil
}

// FindByURL returns the node with the given canonical URL.
func (s *Store) FindByURL(url string) *Node {
	return s.FindNode(func(n *Node) bool { return n.URL == url })
}

// FindPage returns the wiki page with the given title in a source. The first
// character after the namespace separator is compared case-insensitively.
func (s *Store) FindPage(sourceIndex int, title string) *Node {
	key := wiki.TitleKey(title)
	return s.FindNode(func(n *Node) bool {
		return n.IsWiki() && n.SourceIndex == sourceIndex && n.PageTitle != "" &&
			wiki.TitleKey(n.PageTitle) == key
	})
}

// Lookup returns the node with identifier id from either collection.
func (s *Store) Lookup(id int) (*Node, error) {
	n := s.FindNode(func(n *Node) bool { return n.ID == id })
	if n == nil {
		return nil, ErrNodeNotFound
	}
	return n, nil
}

// FindLink returns the visible link between from and to in either
// direction, or nil.
func (s *Store) FindLink(from, to int) *Link {
	return s.index[pair{from, to}]
}

// FindHiddenLink returns the hidden link between from and to in either
// direction, or nil.
func (s *Store) FindHiddenLink(from, to int) *Link {
	for _, l := range s.hiddenLinks {
		a, b := l.Source.ID, l.Target.ID
		if (a == from && b == to) || (a == to && b == from) {
			return l
		}
	}
	return nil
}

// Reinforce applies a discovered reference from -> to to an existing link
// between the pair, visible or hidden. A link stored in the opposite
// direction becomes bidirectional; a repeat of the same direction changes
// nothing. It returns nil when the pair is not linked.
func (s *Store) Reinforce(from, to *Node) *Link {
	l := s.FindLink(from.ID, to.ID)
	if l == nil {
		l = s.FindHiddenLink(from.ID, to.ID)
	}
	if l != nil && !l.Bidirectional && l.Source == to {
		l.Bidirectional = true
	}
	return l
}

// Connect records a discovered reference from -> to. It never creates a
// second link for a pair. A new link is hidden when either endpoint is.
func (s *Store) Connect(from, to *Node) *Link {
	if from == to {
		return nil
	}
	if l := s.Reinforce(from, to); l != nil {
		return l
	}
	return s.AddLink(from, to, from.Hidden || to.Hidden)
}

// ConnectionCount returns the number of visible links touching n.
func (s *Store) ConnectionCount(n *Node) int {
	count := 0
	for _, l := range s.links {
		if l.Touches(n) {
			count++
		}
	}
	return count
}

// Selected returns the selected node, or nil.
func (s *Store) Selected() *Node {
	if s.selected == NoSelection {
		return nil
	}
	n, _ := s.Lookup(s.selected)
	return n
}

// Select makes the node with identifier id the selected node.
func (s *Store) Select(id int) error {
	if _, err := s.Lookup(id); err != nil {
		return err
	}
	s.selected = id
	return nil
}

// Deselect clears the selection.
func (s *Store) Deselect() { s.selected = NoSelection }

func (s *Store) indexLink(l *Link) {
	s.index[pair{l.Source.ID, l.Target.ID}] = l
	s.index[pair{l.Target.ID, l.Source.ID}] = l
}

func (s *Store) unindexLink(l *Link) {
	delete(s.index, pair{l.Source.ID, l.Target.ID})
	delete(s.index, pair{l.Target.ID, l.Source.ID})
}
