package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDeclined is returned when the caller declines an elaboration that
	// exceeds the size threshold.
	ErrDeclined = errors.New("elaboration declined")
	// ErrNotWikiPage is returned when elaborating an external page.
	ErrNotWikiPage = errors.New("node is not a wiki page")
	// ErrNotSearchable is returned when elaborating a page of a source that
	// cannot be queried.
	ErrNotSearchable = errors.New("page cannot be elaborated")
	// ErrInFlight is returned when a full elaboration of the node is already
	// outstanding.
	ErrInFlight = errors.New("elaboration already in progress")
	// ErrNoSeeds is returned when population has no page titles to start from.
	ErrNoSeeds = errors.New("no page titles to populate")
)

// Query names a content service lookup.
type Query int

const (
	QueryContentNamespaces Query = iota
	QueryVisit
	QueryExternalLinks
	QueryIntraOut
	QueryIntraIn
	QueryCategoryMembers
)

func (q Query) String() string {
	switch q {
	case QueryContentNamespaces:
		return "content_namespaces"
	case QueryVisit:
		return "visit"
	case QueryExternalLinks:
		return "external_links"
	case QueryIntraOut:
		return "intra_out"
	case QueryIntraIn:
		return "intra_in"
	case QueryCategoryMembers:
		return "category_members"
	default:
		return "unknown"
	}
}

// LookupError reports a failed lookup. The lookup's slot is treated as empty.
type LookupError struct {
	Query  Query
	Title  string // page title, category, or "" for namespace discovery
	Source string
	Err    error
}

func (e *LookupError) Error() string {
	what := "lookup"
	if e.Timeout() {
		what = "lookup timed out"
	}
	if e.Title == "" {
		return fmt.Sprintf("%s %s on %s: %v", e.Query, what, e.Source, e.Err)
	}
	return fmt.Sprintf("%s %s for %q on %s: %v", e.Query, what, e.Title, e.Source, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Timeout reports whether the lookup ran out of time.
func (e *LookupError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
