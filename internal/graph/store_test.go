package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viki/vikigraph/internal/wiki"
)

func requireConsistent(t *testing.T, s *Store) {
	t.Helper()
	seen := make(map[int]bool)
	for _, n := range s.Nodes() {
		require.False(t, n.Hidden, "visible node %d flagged hidden", n.ID)
		require.False(t, seen[n.ID], "node %d listed twice", n.ID)
		seen[n.ID] = true
	}
	for _, n := range s.HiddenNodes() {
		require.True(t, n.Hidden, "hidden node %d not flagged hidden", n.ID)
		require.False(t, seen[n.ID], "node %d in both collections", n.ID)
		seen[n.ID] = true
	}

	pairs := make(map[[2]int]bool)
	key := func(l *Link) [2]int {
		a, b := l.Source.ID, l.Target.ID
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}
	for _, l := range s.Links() {
		require.False(t, pairs[key(l)], "duplicate link %v", key(l))
		pairs[key(l)] = true
		require.Same(t, l, s.FindLink(l.Source.ID, l.Target.ID))
		require.Same(t, l, s.FindLink(l.Target.ID, l.Source.ID))
	}
	for _, l := range s.HiddenLinks() {
		require.False(t, pairs[key(l)], "duplicate link %v", key(l))
		pairs[key(l)] = true
		require.Nil(t, s.FindLink(l.Source.ID, l.Target.ID), "hidden link indexed")
	}
	require.Len(t, s.index, 2*len(s.Links()))
}

func TestAddNode_AssignsIdentifiers(t *testing.T) {
	s := NewStore()
	var added []*Node
	s.OnAdd = func(n *Node) { added = append(added, n) }

	a, b := &Node{}, &Node{}
	assert.Equal(t, 0, s.AddNode(a))
	assert.Equal(t, 1, s.AddNode(b))
	assert.Equal(t, []*Node{a, b}, added)
	assert.Same(t, a, s.Selected(), "first node is selected")

	s.HideNode(b, false)
	c := &Node{}
	assert.Equal(t, 2, s.AddNode(c), "identifiers are never reused")
	requireConsistent(t, s)
}

func TestConnect_NoDuplicateAndBidirectional(t *testing.T) {
	s, n := quickStore([]string{"A", "B"}, nil)
	a, b := n["A"], n["B"]

	l := s.Connect(a, b)
	require.NotNil(t, l)
	assert.Same(t, l, s.Connect(a, b))
	assert.False(t, l.Bidirectional, "same direction twice is not bidirectional")

	assert.Same(t, l, s.Connect(b, a))
	assert.True(t, l.Bidirectional)
	assert.Same(t, a, l.Source)
	assert.Len(t, s.Links(), 1)
	assert.Nil(t, s.Connect(a, a), "self references are ignored")
	requireConsistent(t, s)
}

func TestConnect_HiddenEndpointMakesHiddenLink(t *testing.T) {
	s, n := quickStore([]string{"A", "B"}, nil)
	s.HideNode(n["B"], false)

	l := s.Connect(n["A"], n["B"])
	assert.Contains(t, s.HiddenLinks(), l)
	assert.Empty(t, s.Links())
	assert.Same(t, l, s.Connect(n["B"], n["A"]), "hidden pair is found")
	assert.True(t, l.Bidirectional)
	requireConsistent(t, s)
}

func TestFindPage_FirstLetterAfterNamespace(t *testing.T) {
	s := NewStore()
	help := &Node{Kind: WikiPage, PageTitle: "Help:Contents", SourceIndex: 0}
	main := &Node{Kind: WikiPage, PageTitle: "Apple pie", SourceIndex: 0}
	other := &Node{Kind: WikiPage, PageTitle: "Apple pie", SourceIndex: 1}
	s.AddNode(help)
	s.AddNode(main)
	s.AddNode(other)

	assert.Same(t, help, s.FindPage(0, "Help:contents"))
	assert.Same(t, main, s.FindPage(0, "apple pie"))
	assert.Same(t, other, s.FindPage(1, "Apple pie"))
	assert.Nil(t, s.FindPage(0, "Apple Pie"), "only the first letter folds")

	s.HideNode(main, false)
	assert.Same(t, main, s.FindPage(0, "Apple pie"), "hidden nodes are searched")
}

func TestHideNode_ThenShowAllRestores(t *testing.T) {
	s, n := quickStore([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"C", "A"}, {"B", "C"}})
	a := n["A"]
	require.NoError(t, s.Select(a.ID))

	s.HideNode(a, true)
	assert.True(t, a.Hidden)
	assert.Nil(t, s.Selected())
	assert.Len(t, s.Links(), 1)
	assert.Len(t, s.HiddenLinks(), 2)
	assert.Nil(t, s.FindLink(a.ID, n["B"].ID))
	requireConsistent(t, s)

	s.ShowAll()
	assert.False(t, a.Hidden)
	assert.Len(t, s.Nodes(), 3)
	assert.Len(t, s.Links(), 3)
	assert.Empty(t, s.HiddenLinks())
	assert.NotNil(t, s.FindLink(n["B"].ID, a.ID))
	assert.NotNil(t, s.FindLink(a.ID, n["C"].ID))
	requireConsistent(t, s)
}

func TestHideHub_LeavesOnly(t *testing.T) {
	s, n := quickStore(
		[]string{"Hub", "Leaf", "Shared", "Other"},
		[][2]string{{"Hub", "Leaf"}, {"Shared", "Hub"}, {"Shared", "Other"}},
	)
	hub := n["Hub"]

	assert.Empty(t, s.HideHubCluster(hub), "unelaborated nodes are not hubs")

	hub.Elaborated = true
	hidden := s.HideHubCluster(hub)
	assert.ElementsMatch(t, []*Node{hub, n["Leaf"]}, hidden)
	assert.False(t, n["Shared"].Hidden)
	assert.False(t, n["Other"].Hidden)
	assert.Nil(t, s.Selected(), "hub was selected")
	requireConsistent(t, s)
}

func TestHideIncomingOutgoing_BidirectionalNeedsBothLatches(t *testing.T) {
	s, n := quickStore(
		[]string{"X", "In", "Out", "Both"},
		[][2]string{{"In", "X"}, {"X", "Out"}, {"X", "Both"}, {"Both", "X"}},
	)
	x := n["X"]

	assert.Equal(t, []*Node{n["In"]}, s.HideIncomingLinks(x))
	assert.True(t, x.HidingIncoming)
	assert.False(t, n["Both"].Hidden)
	assert.Same(t, x, s.Selected())

	assert.ElementsMatch(t, []*Node{n["Out"], n["Both"]}, s.HideOutgoingLinks(x))
	assert.True(t, x.HidingOutgoing)
	assert.Len(t, s.Nodes(), 1)
	requireConsistent(t, s)

	s.ShowAll()
	assert.False(t, x.HidingIncoming)
	assert.False(t, x.HidingOutgoing)
	requireConsistent(t, s)
}

func TestHideOutgoing_BeforeIncoming(t *testing.T) {
	s, n := quickStore([]string{"X", "Both"}, [][2]string{{"X", "Both"}, {"Both", "X"}})
	x := n["X"]

	assert.Empty(t, s.HideOutgoingLinks(x))
	assert.Equal(t, []*Node{n["Both"]}, s.HideIncomingLinks(x))
}

func TestHideByCategories(t *testing.T) {
	s, n := quickStore([]string{"Home", "Away"}, [][2]string{{"Home", "Away"}})
	n["Home"].Categories = []string{"Draft"}

	hidden := s.HideByCategories([]string{"Draft", "Draft"})
	assert.Equal(t, []*Node{n["Home"]}, hidden)
	assert.Equal(t, []string{"Draft"}, s.HiddenCategories())
	assert.True(t, s.HasHiddenCategory(n["Home"]))
	assert.False(t, s.HasHiddenCategory(n["Away"]))
	requireConsistent(t, s)

	s.ShowAll()
	assert.Empty(t, s.HiddenCategories())
	assert.False(t, n["Home"].Hidden)
}

func TestUnhideNode_RestoresLinksWithVisibleEnds(t *testing.T) {
	s, n := quickStore([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}})
	s.HideNode(n["B"], false)
	s.HideNode(n["C"], false)

	assert.False(t, s.UnhideNode(n["A"].ID), "A is not hidden")
	assert.True(t, s.UnhideNode(n["B"].ID))
	assert.False(t, n["B"].Hidden)
	assert.NotNil(t, s.FindLink(n["A"].ID, n["B"].ID))
	assert.Len(t, s.HiddenLinks(), 1, "B-C stays hidden while C is hidden")
	requireConsistent(t, s)
}

func TestLookup(t *testing.T) {
	s, n := quickStore([]string{"A"}, nil)
	got, err := s.Lookup(n["A"].ID)
	require.NoError(t, err)
	assert.Same(t, n["A"], got)

	_, err = s.Lookup(42)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.ErrorIs(t, s.Select(42), ErrNodeNotFound)
}

func TestFactory_DisplayNames(t *testing.T) {
	reg := wiki.NewRegistry("http://localhost", &wiki.Source{
		APIURL:     "http://localhost/w/api.php",
		ContentURL: "http://localhost/wiki/$1",
	})
	f := NewFactory(reg)

	ext := f.ExternalNode("https://www.example.com/a/very/long/path")
	assert.Equal(t, ExternalPage, ext.Kind)
	assert.Equal(t, "example.com/a/very/l...", ext.DisplayName)
	assert.Equal(t, "https://www.example.com/a/very/long/path", ext.FullDisplayName)

	short := f.ExternalNode("http://a.org")
	assert.Equal(t, "a.org", short.DisplayName)

	page := f.WikiNode(0, "Main Page")
	assert.Equal(t, "http://localhost/wiki/Main_Page", page.URL)
	assert.Equal(t, wiki.LocalTitle, page.SourceTitle)
	assert.True(t, page.Searchable)
	assert.True(t, page.SameServer)

	fromURL := f.WikiNodeFromURL(0, "http://localhost/wiki/Some_Other_Page")
	assert.Equal(t, "Some Other Page", fromURL.PageTitle)

	long := f.WikiNode(0, "A title that is certainly much longer than fifty characters")
	assert.Equal(t, "A title that is certainly much longer than fifty c...", long.DisplayName)
}
