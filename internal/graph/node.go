package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"viki/vikigraph/internal/wiki"
)

// Kind distinguishes pages of a known content source from everything else.
type Kind int

const (
	WikiPage Kind = iota
	ExternalPage
)

func (k Kind) String() string {
	if k == ExternalPage {
		return "external"
	}
	return "wiki"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "wiki":
		*k = WikiPage
	case "external":
		*k = ExternalPage
	default:
		return fmt.Errorf("unknown node kind %q", b)
	}
	return nil
}

// VisitState tracks the existence/category lookup of a node. A node leaves
// NotVisited before its lookup is dispatched, so concurrent visit requests see
// it in flight and do nothing.
type VisitState int

const (
	NotVisited VisitState = iota
	VisitInFlight
	Visited
)

func (v VisitState) String() string {
	switch v {
	case VisitInFlight:
		return "in_flight"
	case Visited:
		return "visited"
	default:
		return "not_visited"
	}
}

func (v VisitState) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *VisitState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "not_visited":
		*v = NotVisited
	case "in_flight":
		*v = VisitInFlight
	case "visited":
		*v = Visited
	default:
		return fmt.Errorf("unknown visit state %q", b)
	}
	return nil
}

// Node is a page on the graph.
type Node struct {
	ID              int    `json:"id"`
	Kind            Kind   `json:"kind"`
	DisplayName     string `json:"displayName"`
	FullDisplayName string `json:"fullDisplayName"`
	URL             string `json:"url"`

	// Wiki page fields.
	SourceIndex int      `json:"sourceIndex"`
	SourceTitle string   `json:"sourceTitle,omitempty"`
	PageTitle   string   `json:"pageTitle,omitempty"`
	APIURL      string   `json:"apiURL,omitempty"`
	ContentURL  string   `json:"contentURL,omitempty"`
	LogoURL     string   `json:"logoURL,omitempty"`
	Searchable  bool     `json:"searchable"`
	SameServer  bool     `json:"sameServer"`
	Categories  []string `json:"categories,omitempty"`
	Nonexistent bool     `json:"nonexistent"`

	Elaborated     bool       `json:"elaborated"`
	Visit          VisitState `json:"visit"`
	Hidden         bool       `json:"hidden"`
	Fixed          bool       `json:"fixed"`
	HidingIncoming bool       `json:"hidingIncoming"`
	HidingOutgoing bool       `json:"hidingOutgoing"`

	// Unadded is set by a creation hook to keep the node off the graph.
	Unadded bool `json:"-"`
}

// IsWiki reports whether n is a page of a known content source.
func (n *Node) IsWiki() bool { return n.Kind == WikiPage }

// Link is a directed edge. Bidirectional is set when the reverse reference
// has also been discovered.
type Link struct {
	Source        *Node
	Target        *Node
	Bidirectional bool
}

// Touches reports whether n is an endpoint of l.
func (l *Link) Touches(n *Node) bool { return l.Source == n || l.Target == n }

// Other returns the endpoint of l that is not n.
func (l *Link) Other(n *Node) *Node {
	if l.Source == n {
		return l.Target
	}
	return l.Source
}

func (l *Link) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source        int  `json:"source"`
		Target        int  `json:"target"`
		Bidirectional bool `json:"bidirectional"`
	}{l.Source.ID, l.Target.ID, l.Bidirectional})
}

// Factory builds nodes with their display fields and default state.
type Factory struct {
	Sources    *wiki.Registry
	TitleLimit int
	URLLimit   int
}

// NewFactory returns a factory with the default truncation limits.
func NewFactory(sources *wiki.Registry) Factory {
	return Factory{Sources: sources, TitleLimit: 50, URLLimit: 20}
}

// ExternalNode creates a node for a URL outside every known source.
func (f Factory) ExternalNode(url string) *Node {
	short := strings.Replace(url, "http://", "", 1)
	short = strings.Replace(short, "https://", "", 1)
	short = strings.Replace(short, "www.", "", 1)
	return &Node{
		Kind:            ExternalPage,
		DisplayName:     truncate(short, f.URLLimit),
		FullDisplayName: url,
		URL:             url,
		SourceIndex:     -1,
	}
}

// WikiNode creates a node for a page title in the source at sourceIndex.
func (f Factory) WikiNode(sourceIndex int, title string) *Node {
	src := f.Sources.At(sourceIndex)
	return f.wikiNode(sourceIndex, src, title, src.PageURL(title))
}

// WikiNodeFromURL creates a node for a page URL that classified as belonging
// to the source at sourceIndex.
func (f Factory) WikiNodeFromURL(sourceIndex int, url string) *Node {
	src := f.Sources.At(sourceIndex)
	return f.wikiNode(sourceIndex, src, src.TitleFromURL(url), url)
}

func (f Factory) wikiNode(idx int, src *wiki.Source, title, url string) *Node {
	return &Node{
		Kind:            WikiPage,
		DisplayName:     truncate(title, f.TitleLimit),
		FullDisplayName: title,
		URL:             url,
		SourceIndex:     idx,
		SourceTitle:     src.Title,
		PageTitle:       title,
		APIURL:          src.APIURL,
		ContentURL:      src.ContentURL,
		LogoURL:         src.LogoURL,
		Searchable:      src.Searchable,
		SameServer:      f.Sources.SameServer(src),
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) < limit {
		return s
	}
	return string(r[:limit]) + "..."
}
