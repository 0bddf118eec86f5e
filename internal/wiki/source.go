// Package wiki describes the content sources a graph session can query and the
// lookup contract every content service implementation satisfies.
package wiki

import (
	"slices"
	"strings"
)

// LocalTitle is the title of the wiki the session is embedded in. It is always
// registered first, at index 0.
const LocalTitle = "THIS WIKI"

// Source describes one searchable collection of pages reachable through a
// single query endpoint.
type Source struct {
	Title      string
	APIURL     string
	ContentURL string // page URL template, "$1" stands for the page title
	LogoURL    string
	Searchable bool

	// ContentNamespaces is filled by namespace discovery before population.
	ContentNamespaces []int
}

// Prefix returns the content URL up to the "$1" placeholder.
func (s *Source) Prefix() string {
	i := strings.Index(s.ContentURL, "$1")
	if i < 0 {
		return s.ContentURL
	}
	return s.ContentURL[:i]
}

// PageURL builds the canonical URL of a page in this source.
func (s *Source) PageURL(title string) string {
	return s.Prefix() + strings.ReplaceAll(title, " ", "_")
}

// TitleFromURL recovers a page title from one of this source's page URLs.
func (s *Source) TitleFromURL(url string) string {
	return strings.ReplaceAll(strings.Replace(url, s.Prefix(), "", 1), "_", " ")
}

// IsContentNamespace reports whether pages in ns belong on the graph.
func (s *Source) IsContentNamespace(ns int) bool {
	if len(s.ContentNamespaces) == 0 {
		return ns == 0
	}
	return slices.Contains(s.ContentNamespaces, ns)
}

// Registry is the ordered list of known sources. The index of a source is
// stable for the lifetime of the registry.
type Registry struct {
	serverURL string
	sources   []*Source
}

// NewRegistry creates a registry whose first entry is the local wiki.
// serverURL is used to decide whether a source lives on the same server.
func NewRegistry(serverURL string, local *Source) *Registry {
	if local.Title == "" {
		local.Title = LocalTitle
	}
	local.Searchable = true
	return &Registry{serverURL: serverURL, sources: []*Source{local}}
}

// Add appends a source and returns its index.
func (r *Registry) Add(src *Source) int {
	r.sources = append(r.sources, src)
	return len(r.sources) - 1
}

// Len returns the number of registered sources.
func (r *Registry) Len() int { return len(r.sources) }

// At returns the source at index i, or nil when out of range.
func (r *Registry) At(i int) *Source {
	if i < 0 || i >= len(r.sources) {
		return nil
	}
	return r.sources[i]
}

// Local returns the local wiki.
func (r *Registry) Local() *Source { return r.sources[0] }

// ServerURL returns the URL of the server hosting the local wiki.
func (r *Registry) ServerURL() string { return r.serverURL }

// SameServer reports whether a source's pages are served by the local server.
func (r *Registry) SameServer(src *Source) bool {
	return r.serverURL != "" && strings.Contains(src.ContentURL, r.serverURL)
}

// IndexByTitle returns the index of the source with the given title, or -1.
func (r *Registry) IndexByTitle(title string) int {
	for i, s := range r.sources {
		if s.Title == title {
			return i
		}
	}
	return -1
}

// Searchable returns the searchable sources in registration order.
func (r *Registry) Searchable() []*Source {
	var out []*Source
	for _, s := range r.sources {
		if s.Searchable {
			out = append(out, s)
		}
	}
	return out
}

// Classify resolves a URL to the source it belongs to. It returns the index of
// the source and the canonical form of the URL, or -1 and the URL unchanged
// when the URL is not a page of any known source. URLs of the form
// "index.php?title=X" are rewritten to "index.php/X" before matching.
func (r *Registry) Classify(url string) (int, string) {
	if i := r.indexForURL(url); i >= 0 {
		return i, url
	}
	alt := strings.Replace(url, "?title=", "/", 1)
	if alt != url {
		if i := r.indexForURL(alt); i >= 0 {
			return i, alt
		}
	}
	return -1, url
}

func (r *Registry) indexForURL(url string) int {
	for i, s := range r.sources {
		prefix := s.Prefix()
		if prefix != "" && strings.Contains(url, prefix) {
			return i
		}
	}
	return -1
}
