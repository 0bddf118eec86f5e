// Package engine builds and maintains the graph of one interactive view. A
// Session validates pages, elaborates them into their neighbors, reconciles
// second-order links, and applies hide/show actions, while keeping every
// lookup against the content service concurrent.
//
// All graph mutations run under the session lock; lookups run without it.
// Hook handlers and the Read callback run under the lock and must not call
// back into the Session.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"viki/vikigraph/internal/graph"
	"viki/vikigraph/internal/hooks"
	"viki/vikigraph/internal/wiki"
)

// Session is one graph view bound to a content service.
type Session struct {
	ID string

	client  wiki.Client
	sources *wiki.Registry
	opts    Options
	log     *slog.Logger

	mu          sync.Mutex
	store       *graph.Store
	factory     graph.Factory
	elaborating map[int]bool
	redraw      redrawState

	// confirmMu keeps at most one threshold confirmation open.
	confirmMu sync.Mutex

	errMu  sync.Mutex
	errors []error
}

type redrawState struct {
	pending bool
	restart bool
}

// New creates a session over sources, querying client.
func New(client wiki.Client, sources *wiki.Registry, opts Options) *Session {
	opts.setDefaults()
	s := &Session{
		ID:          uuid.NewString(),
		client:      client,
		sources:     sources,
		opts:        opts,
		store:       graph.NewStore(),
		elaborating: make(map[int]bool),
	}
	s.log = opts.Logger.With("session", s.ID)
	s.factory = graph.Factory{Sources: sources, TitleLimit: opts.TitleLimit, URLLimit: opts.URLLimit}
	s.store.OnAdd = s.nodeAdded
	if len(opts.HiddenCategories) > 0 {
		s.store.HideByCategories(opts.HiddenCategories)
	}
	return s
}

// Sources returns the source registry.
func (s *Session) Sources() *wiki.Registry { return s.sources }

// Read runs fn with exclusive access to the store. fn must not retain the
// store's slices after returning.
func (s *Session) Read(fn func(g *graph.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

// Errors returns every lookup failure surfaced so far.
func (s *Session) Errors() []error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return slices.Clone(s.errors)
}

// Seeds are the starting points of a graph.
type Seeds struct {
	Titles     []string
	Categories []string // member pages are added after Titles
}

// Initialize runs the start-up sequence: the InitializationComplete and
// GetAllWikis hooks, content namespace discovery, category expansion, and
// initial population.
func (s *Session) Initialize(ctx context.Context, seeds Seeds) error {
	ctx, span := tracer.Start(ctx, "engine.Session.Initialize")
	defer span.End()

	s.mu.Lock()
	s.dispatch(hooks.InitializationComplete, hooks.Params{})
	s.dispatch(hooks.GetAllWikis, hooks.Params{Sources: s.sources})
	s.release("initialization")

	s.FetchContentNamespaces(ctx)

	titles := slices.Clone(seeds.Titles)
	for _, cat := range s.categoryMembers(ctx, seeds.Categories) {
		if !slices.ContainsFunc(titles, func(t string) bool { return wiki.SameTitle(t, cat) }) {
			titles = append(titles, cat)
		}
	}
	span.SetAttributes(attribute.Int("viki.seeds", len(titles)))
	return s.Populate(ctx, titles)
}

// FetchContentNamespaces discovers the content namespaces of every
// searchable source concurrently. A source that cannot answer defaults to
// namespace 0; a failure is also surfaced.
func (s *Session) FetchContentNamespaces(ctx context.Context) {
	var g errgroup.Group
	for _, src := range s.sources.Searchable() {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, s.opts.NamespaceTimeout)
			defer cancel()

			start := time.Now()
			ns, err := s.client.ContentNamespaces(ctx, src)
			lookupDuration.WithLabelValues(QueryContentNamespaces.String()).Observe(time.Since(start).Seconds())
			switch {
			case errors.Is(err, wiki.ErrUnknownAction):
				lookupsTotal.WithLabelValues(QueryContentNamespaces.String(), "unsupported").Inc()
				ns = []int{0}
			case err != nil:
				lookupsTotal.WithLabelValues(QueryContentNamespaces.String(), "error").Inc()
				s.fail(&LookupError{Query: QueryContentNamespaces, Source: src.Title, Err: err})
				ns = []int{0}
			default:
				lookupsTotal.WithLabelValues(QueryContentNamespaces.String(), "ok").Inc()
				if len(ns) == 0 {
					ns = []int{0}
				}
			}

			s.mu.Lock()
			src.ContentNamespaces = ns
			s.mu.Unlock()
			s.log.Debug("content namespaces", "source", src.Title, "namespaces", ns)
			return nil
		})
	}
	g.Wait()
}

// categoryMembers lists the pages of the local wiki in any of categories.
func (s *Session) categoryMembers(ctx context.Context, categories []string) []string {
	src := s.sources.Local()
	var titles []string
	for _, cat := range categories {
		var members []string
		err := s.lookup(ctx, QueryCategoryMembers, src, cat, func(ctx context.Context) (err error) {
			members, err = s.client.CategoryMembers(ctx, src, cat)
			return err
		})
		if err == nil {
			titles = append(titles, members...)
		}
	}
	return titles
}

// Populate adds one local wiki page per title, then visits and elaborates
// every seed as a single batch. A seed that turns out to be in a hidden
// category is elaborated and then hidden.
func (s *Session) Populate(ctx context.Context, titles []string) error {
	if len(titles) == 0 {
		return ErrNoSeeds
	}

	s.mu.Lock()
	var seeds []*graph.Node
	for _, title := range titles {
		if s.store.FindPage(0, title) != nil {
			continue
		}
		n := s.factory.WikiNode(0, title)
		s.store.AddNode(n)
		seeds = append(seeds, n)
	}
	s.markRedraw(true)
	s.release("seeds added")

	for i, err := range s.expand(ctx, seeds, true) {
		if err != nil {
			s.log.Info("seed not elaborated", "title", seeds[i].PageTitle, "error", err)
		}
	}

	s.mu.Lock()
	if len(s.store.Nodes()) > 0 {
		_ = s.store.Select(s.store.Nodes()[0].ID)
		s.markRedraw(false)
	}
	s.release("initial population complete")
	return nil
}

// lookup runs one content service call, recording metrics and surfacing a
// failure before returning it.
func (s *Session) lookup(ctx context.Context, q Query, src *wiki.Source, title string, call func(context.Context) error) error {
	start := time.Now()
	err := call(ctx)
	lookupDuration.WithLabelValues(q.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		lookupsTotal.WithLabelValues(q.String(), "error").Inc()
		s.fail(&LookupError{Query: q, Title: title, Source: src.Title, Err: err})
		return err
	}
	lookupsTotal.WithLabelValues(q.String(), "ok").Inc()
	return nil
}

// fail surfaces an error to the log, the error list and OnError.
func (s *Session) fail(err error) {
	s.log.Warn("lookup failed", "error", err)
	s.errMu.Lock()
	s.errors = append(s.errors, err)
	s.errMu.Unlock()
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}

// dispatch runs the handlers for e. Must hold s.mu.
func (s *Session) dispatch(e hooks.Event, p hooks.Params) bool {
	c, ok := s.opts.Hooks.Dispatch(s.store, e, p)
	if !ok {
		return false
	}
	if c.Redraw {
		s.markRedraw(true)
	}
	if c.RedrawNode != nil {
		s.markRedraw(false)
	}
	return true
}

func (s *Session) nodeAdded(n *graph.Node) {
	if n.IsWiki() {
		s.dispatch(hooks.NewWikiNodeAdded, hooks.Params{Node: n})
	} else {
		s.dispatch(hooks.NewExternalNodeAdded, hooks.Params{Node: n})
	}
}

// markRedraw queues a redraw for the next release. Must hold s.mu.
func (s *Session) markRedraw(restart bool) {
	s.redraw.pending = true
	s.redraw.restart = s.redraw.restart || restart
}

// release unlocks s.mu and then delivers any queued redraw, so renderers
// never run under the lock.
func (s *Session) release(reason string) {
	r := s.redraw
	s.redraw = redrawState{}
	graphNodes.WithLabelValues("visible").Set(float64(len(s.store.Nodes())))
	graphNodes.WithLabelValues("hidden").Set(float64(len(s.store.HiddenNodes())))
	graphLinks.WithLabelValues("visible").Set(float64(len(s.store.Links())))
	graphLinks.WithLabelValues("hidden").Set(float64(len(s.store.HiddenLinks())))
	s.mu.Unlock()

	if r.pending {
		s.log.Debug("redraw requested", "reason", reason, "restart", r.restart)
		s.opts.Renderer.RequestRedraw(r.restart)
	}
}
