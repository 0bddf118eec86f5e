package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"viki/vikigraph/internal/graph"
	"viki/vikigraph/internal/hooks"
	"viki/vikigraph/internal/wiki"
)

// batch collects what one population or user elaboration discovers. Its
// fields are guarded by Session.mu.
type batch struct {
	discovered []*graph.Node
	staged     []stagedLink
}

type stagedLink struct{ from, to *graph.Node }

// references holds the three lookup results of one elaboration. A failed
// lookup leaves its slot empty.
type references struct {
	external []string
	out      []wiki.PageRef
	in       []wiki.PageRef
}

func (r references) count() int { return len(r.external) + len(r.out) + len(r.in) }

// Elaborate runs a full elaboration of the node with identifier id and then
// resolves what it discovered: a second-order pass when enabled, and a visit
// of every discovered page.
func (s *Session) Elaborate(ctx context.Context, id int) error {
	s.mu.Lock()
	n, err := s.store.Lookup(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.expand(ctx, []*graph.Node{n}, false)[0]
}

// expand elaborates roots concurrently, optionally visiting each first, and
// returns the per-root elaboration errors. A root in a hidden category is
// hidden once its elaboration finishes.
func (s *Session) expand(ctx context.Context, roots []*graph.Node, visitRoots bool) []error {
	b := &batch{}
	errs := make([]error, len(roots))

	var g errgroup.Group
	for i, n := range roots {
		g.Go(func() error {
			hidden := false
			if visitRoots {
				hidden = s.visit(ctx, n)
			}
			found, err := s.elaborate(ctx, n, b, false)
			errs[i] = err
			if hidden {
				s.mu.Lock()
				s.store.HideNode(n, true)
				s.markRedraw(true)
				s.release("seed in hidden category")
			}
			if !s.opts.SecondOrderLinks {
				s.visitBatch(ctx, wikiPages(found))
			}
			return nil
		})
	}
	g.Wait()

	if s.opts.SecondOrderLinks {
		s.reconcile(ctx, b)
		s.mu.Lock()
		discovered := wikiPages(b.discovered)
		s.mu.Unlock()
		s.visitBatch(ctx, discovered)
	}
	return errs
}

// elaborate fetches the references of n and merges them into the graph. A
// full pass creates missing nodes and marks n elaborated; a second-order pass
// only links nodes already on the graph. It returns the nodes the full pass
// discovered.
func (s *Session) elaborate(ctx context.Context, n *graph.Node, b *batch, secondOrder bool) ([]*graph.Node, error) {
	pass := "full"
	if secondOrder {
		pass = "second_order"
	}

	s.mu.Lock()
	switch {
	case !n.IsWiki():
		s.release("elaboration rejected")
		return nil, ErrNotWikiPage
	case !n.Searchable:
		s.release("elaboration rejected")
		return nil, ErrNotSearchable
	}
	if !secondOrder {
		if s.elaborating[n.ID] {
			s.release("elaboration rejected")
			return nil, ErrInFlight
		}
		s.elaborating[n.ID] = true
		n.Elaborated = true
		s.markRedraw(false)
		defer func() {
			s.mu.Lock()
			delete(s.elaborating, n.ID)
			s.mu.Unlock()
		}()
	}
	src := s.sources.At(n.SourceIndex)
	title := n.PageTitle
	s.release("elaboration started")

	ctx, span := tracer.Start(ctx, "engine.Session.elaborate")
	span.SetAttributes(attribute.String("viki.title", title), attribute.String("viki.pass", pass))
	defer span.End()

	refs := s.fetchReferences(ctx, src, title)
	count := refs.count()
	span.SetAttributes(attribute.Int("viki.references", count))

	if !secondOrder && s.opts.Threshold >= 0 && count > s.opts.Threshold &&
		s.opts.Confirmer != nil && !s.confirm(ctx, n, count) {
		s.mu.Lock()
		n.Elaborated = false
		s.markRedraw(false)
		s.release("elaboration declined")
		elaborationsTotal.WithLabelValues(pass, "declined").Inc()
		span.SetStatus(codes.Error, "declined")
		s.log.Info("elaboration declined", "title", title, "count", count)
		return nil, fmt.Errorf("%w: %d references", ErrDeclined, count)
	}

	s.mu.Lock()
	var found []*graph.Node
	external := s.mergeExternal(n, refs.external, b, secondOrder)
	out := s.mergeIntra(n, src, refs.out, true, b, secondOrder)
	in := s.mergeIntra(n, src, refs.in, false, b, secondOrder)
	if !secondOrder {
		found = append(append(append(found, external...), out...), in...)
		b.discovered = append(b.discovered, found...)

		var externalOnly []*graph.Node
		for _, m := range external {
			if !m.IsWiki() {
				externalOnly = append(externalOnly, m)
			}
		}
		s.dispatch(hooks.ExternalNodes, hooks.Params{Node: n, Nodes: externalOnly})
		s.dispatch(hooks.IntraOutNodes, hooks.Params{Node: n, Nodes: out})
		s.dispatch(hooks.IntraInNodes, hooks.Params{Node: n, Nodes: in})
		s.dispatch(hooks.NodeElaborationComplete, hooks.Params{Node: n})
		s.markRedraw(true)
	}
	s.release("elaboration merged")

	elaborationsTotal.WithLabelValues(pass, "ok").Inc()
	s.log.Debug("elaboration complete", "title", title, "pass", pass, "count", count, "node_id", n.ID)
	return found, nil
}

// confirm asks the Confirmer, one question at a time.
func (s *Session) confirm(ctx context.Context, n *graph.Node, count int) bool {
	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()
	return s.opts.Confirmer.Confirm(ctx, n, count)
}

// fetchReferences issues the three reference lookups concurrently and waits
// for all of them.
func (s *Session) fetchReferences(ctx context.Context, src *wiki.Source, title string) references {
	var r references
	var g errgroup.Group
	g.Go(func() error {
		_ = s.lookup(ctx, QueryExternalLinks, src, title, func(ctx context.Context) (err error) {
			r.external, err = s.client.ExternalLinks(ctx, src, title)
			return err
		})
		return nil
	})
	g.Go(func() error {
		_ = s.lookup(ctx, QueryIntraOut, src, title, func(ctx context.Context) (err error) {
			r.out, err = s.client.OutgoingLinks(ctx, src, title)
			return err
		})
		return nil
	})
	g.Go(func() error {
		_ = s.lookup(ctx, QueryIntraIn, src, title, func(ctx context.Context) (err error) {
			r.in, err = s.client.IncomingLinks(ctx, src, title)
			return err
		})
		return nil
	})
	g.Wait()
	return r
}

// mergeExternal merges the external references of origin. URLs of a known
// source become wiki pages. Must hold s.mu.
func (s *Session) mergeExternal(origin *graph.Node, urls []string, b *batch, secondOrder bool) []*graph.Node {
	var nodes []*graph.Node
	for _, raw := range urls {
		idx, url := s.sources.Classify(raw)
		peer := s.store.FindByURL(url)
		if peer == nil && idx >= 0 {
			peer = s.store.FindPage(idx, s.sources.At(idx).TitleFromURL(url))
		}
		if peer == nil {
			if secondOrder {
				continue
			}
			if idx >= 0 {
				peer = s.factory.WikiNodeFromURL(idx, url)
			} else {
				peer = s.factory.ExternalNode(url)
			}
			if !s.create(peer, origin) {
				continue
			}
		}
		if !secondOrder {
			s.reveal(peer)
		}
		s.link(origin, peer, b, secondOrder)
		nodes = append(nodes, peer)
	}
	return nodes
}

// mergeIntra merges same-source references of origin. outbound selects the
// direction of the new links. Pages outside the source's content namespaces
// are only linked when already on the graph. Must hold s.mu.
func (s *Session) mergeIntra(origin *graph.Node, src *wiki.Source, refs []wiki.PageRef, outbound bool, b *batch, secondOrder bool) []*graph.Node {
	var nodes []*graph.Node
	for _, ref := range refs {
		peer := s.store.FindPage(origin.SourceIndex, ref.Title)
		if peer == nil {
			if secondOrder || !src.IsContentNamespace(ref.NS) {
				continue
			}
			peer = s.factory.WikiNode(origin.SourceIndex, ref.Title)
			if !s.create(peer, origin) {
				continue
			}
		}
		if !secondOrder {
			s.reveal(peer)
		}
		if outbound {
			s.link(origin, peer, b, secondOrder)
		} else {
			s.link(peer, origin, b, secondOrder)
		}
		nodes = append(nodes, peer)
	}
	return nodes
}

// create offers a new node to the creation hooks and adds it unless a
// handler vetoed it. Must hold s.mu.
func (s *Session) create(n, origin *graph.Node) bool {
	e := hooks.NewWikiNodeCreated
	if !n.IsWiki() {
		e = hooks.NewExternalNodeCreated
	}
	s.dispatch(e, hooks.Params{Node: n, Origin: origin})
	if n.Unadded {
		return false
	}
	s.store.AddNode(n)
	return true
}

// reveal re-shows a rediscovered hidden node unless its categories keep it
// hidden. Must hold s.mu.
func (s *Session) reveal(n *graph.Node) {
	if n.Hidden && !s.store.HasHiddenCategory(n) {
		s.store.UnhideNode(n.ID)
	}
}

// link records the reference from -> to. A second-order pass stages links it
// cannot apply to an existing pair. Must hold s.mu.
func (s *Session) link(from, to *graph.Node, b *batch, secondOrder bool) {
	if from == to {
		return
	}
	if secondOrder {
		if s.store.Reinforce(from, to) == nil {
			b.staged = append(b.staged, stagedLink{from, to})
		}
		return
	}
	s.store.Connect(from, to)
}

func wikiPages(nodes []*graph.Node) []*graph.Node {
	var out []*graph.Node
	for _, n := range nodes {
		if n.IsWiki() && n.APIURL != "" {
			out = append(out, n)
		}
	}
	return out
}
