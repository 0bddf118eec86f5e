package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"viki/vikigraph/internal/graph"
	"viki/vikigraph/internal/hooks"
	"viki/vikigraph/internal/wiki"
)

// visit looks up whether n exists and which categories it belongs to. It
// reports whether n is in a hidden category. Only the first call for a node
// issues a lookup; the node is marked in flight before the lookup starts, so
// every later call, concurrent or not, returns false immediately.
func (s *Session) visit(ctx context.Context, n *graph.Node) bool {
	s.mu.Lock()
	s.dispatch(hooks.BeforeVisitNode, hooks.Params{Node: n})
	if n.Visit != graph.NotVisited || !n.IsWiki() || n.APIURL == "" {
		s.release("visit skipped")
		return false
	}
	n.Visit = graph.VisitInFlight
	src := s.sources.At(n.SourceIndex)
	title := n.PageTitle
	s.release("visit started")

	ctx, span := tracer.Start(ctx, "engine.Session.visit")
	span.SetAttributes(attribute.String("viki.title", title))
	defer span.End()

	var info wiki.PageInfo
	err := s.lookup(ctx, QueryVisit, src, title, func(ctx context.Context) (err error) {
		info, err = s.client.PageInfo(ctx, src, title)
		return err
	})

	s.mu.Lock()
	defer s.release("node visited")
	n.Visit = graph.Visited
	if err != nil {
		span.RecordError(err)
		return false
	}
	if info.Missing {
		n.Nonexistent = true
		s.markRedraw(false)
		s.dispatch(hooks.AfterVisitNode, hooks.Params{Node: n})
		return false
	}
	for _, c := range info.Categories {
		n.Categories = append(n.Categories, wiki.StripCategory(c))
	}
	hidden := s.store.HasHiddenCategory(n)
	s.dispatch(hooks.AfterVisitNode, hooks.Params{Node: n})
	return hidden
}

// visitBatch visits every node concurrently and, once all have reported,
// hides those in a hidden category.
func (s *Session) visitBatch(ctx context.Context, nodes []*graph.Node) {
	if len(nodes) == 0 {
		return
	}
	hide := make([]bool, len(nodes))
	var g errgroup.Group
	for i, n := range nodes {
		g.Go(func() error {
			hide[i] = s.visit(ctx, n)
			return nil
		})
	}
	g.Wait()

	s.mu.Lock()
	for i, n := range nodes {
		if hide[i] {
			s.store.HideNode(n, false)
		}
	}
	s.markRedraw(true)
	s.release("visit batch complete")
}
