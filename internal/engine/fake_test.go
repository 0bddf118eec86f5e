package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"viki/vikigraph/internal/wiki"
)

var errBroken = errors.New("connection reset")

type fakePage struct {
	missing    bool
	categories []string
	external   []string
	out        []wiki.PageRef
	in         []wiki.PageRef
}

// fakeClient serves pages from memory and counts every call.
type fakeClient struct {
	mu         sync.Mutex
	pages      map[string]fakePage // "source|title"
	namespaces map[string][]int
	nsErr      map[string]error
	members    map[string][]string
	fail       map[string]error // "query|title"
	calls      map[string]int

	// When set, PageInfo signals visitStarted and blocks until visitGate closes.
	visitStarted chan string
	visitGate    chan struct{}
	// When set, ContentNamespaces blocks until its context is done.
	nsBlock bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		pages:      make(map[string]fakePage),
		namespaces: make(map[string][]int),
		nsErr:      make(map[string]error),
		members:    make(map[string][]string),
		fail:       make(map[string]error),
		calls:      make(map[string]int),
	}
}

func (f *fakeClient) page(src, title string, p fakePage) {
	f.pages[src+"|"+title] = p
}

func (f *fakeClient) count(query, title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[query+"|"+title]
}

func (f *fakeClient) get(query string, src *wiki.Source, title string) (fakePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[query+"|"+title]++
	if err := f.fail[query+"|"+title]; err != nil {
		return fakePage{}, err
	}
	p, ok := f.pages[src.Title+"|"+title]
	if !ok {
		p.missing = true
	}
	return p, nil
}

func (f *fakeClient) ExternalLinks(_ context.Context, src *wiki.Source, title string) ([]string, error) {
	p, err := f.get("external", src, title)
	return p.external, err
}

func (f *fakeClient) OutgoingLinks(_ context.Context, src *wiki.Source, title string) ([]wiki.PageRef, error) {
	p, err := f.get("out", src, title)
	return p.out, err
}

func (f *fakeClient) IncomingLinks(_ context.Context, src *wiki.Source, title string) ([]wiki.PageRef, error) {
	p, err := f.get("in", src, title)
	return p.in, err
}

func (f *fakeClient) PageInfo(_ context.Context, src *wiki.Source, title string) (wiki.PageInfo, error) {
	if f.visitStarted != nil {
		f.visitStarted <- title
		<-f.visitGate
	}
	p, err := f.get("visit", src, title)
	if err != nil {
		return wiki.PageInfo{}, err
	}
	return wiki.PageInfo{Missing: p.missing, Categories: p.categories}, nil
}

func (f *fakeClient) ContentNamespaces(ctx context.Context, src *wiki.Source) ([]int, error) {
	if f.nsBlock {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["namespaces|"+src.Title]++
	if err := f.nsErr[src.Title]; err != nil {
		return nil, err
	}
	return f.namespaces[src.Title], nil
}

func (f *fakeClient) CategoryMembers(_ context.Context, src *wiki.Source, category string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.members[category]
	if !ok {
		return nil, fmt.Errorf("no category %q", category)
	}
	return members, nil
}

func testSources() *wiki.Registry {
	r := wiki.NewRegistry("http://localhost", &wiki.Source{
		APIURL:     "http://localhost/w/api.php",
		ContentURL: "http://localhost/wiki/$1",
	})
	r.Add(&wiki.Source{
		Title:      "Remote",
		APIURL:     "http://remote.org/w/api.php",
		ContentURL: "http://remote.org/wiki/$1",
		Searchable: true,
	})
	return r
}

func refs(titles ...string) []wiki.PageRef {
	out := make([]wiki.PageRef, len(titles))
	for i, t := range titles {
		out[i] = wiki.PageRef{Title: t}
	}
	return out
}
