package wiki

import (
	"context"
	"errors"
)

// ErrUnknownAction is returned when a content service does not support the
// requested action. Callers degrade instead of surfacing it.
var ErrUnknownAction = errors.New("unknown action")

// PageRef is a reference to a page in the same source as the queried page.
type PageRef struct {
	Title string
	NS    int
}

// PageInfo is the result of an existence and category lookup.
type PageInfo struct {
	Missing    bool
	Categories []string // prefixed, e.g. "Category:Foo"
}

// Client is the query contract of a content service. Every call may fail or
// time out; implementations never retry.
type Client interface {
	// ExternalLinks returns the absolute URLs a page links out to.
	ExternalLinks(ctx context.Context, src *Source, title string) ([]string, error)
	// OutgoingLinks returns the same-source pages a page links to.
	OutgoingLinks(ctx context.Context, src *Source, title string) ([]PageRef, error)
	// IncomingLinks returns the same-source pages linking to a page.
	IncomingLinks(ctx context.Context, src *Source, title string) ([]PageRef, error)
	// PageInfo reports whether a page exists and which categories it is in.
	PageInfo(ctx context.Context, src *Source, title string) (PageInfo, error)
	// ContentNamespaces lists the namespaces considered content. It returns
	// ErrUnknownAction when the source cannot answer.
	ContentNamespaces(ctx context.Context, src *Source) ([]int, error)
	// CategoryMembers lists the page titles in a category.
	CategoryMembers(ctx context.Context, src *Source, category string) ([]string, error)
}
