package engine

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"viki/vikigraph/internal/graph"
)

// reconcile looks for links between pages that no first-order lookup could
// connect. Candidates are the batch's discovered pages that are still
// unvisited plus every visible page of a source other than the local one.
// Each searchable candidate gets a second-order elaboration; once all have
// resolved the staged links are merged.
func (s *Session) reconcile(ctx context.Context, b *batch) {
	ctx, span := tracer.Start(ctx, "engine.Session.reconcile")
	defer span.End()

	s.mu.Lock()
	seen := make(map[int]bool)
	var candidates []*graph.Node
	add := func(n *graph.Node) {
		if !seen[n.ID] {
			seen[n.ID] = true
			candidates = append(candidates, n)
		}
	}
	for _, n := range b.discovered {
		if n.Visit == graph.NotVisited {
			add(n)
		}
	}
	for _, n := range s.store.Nodes() {
		if n.IsWiki() && n.SourceIndex != 0 {
			add(n)
		}
	}
	s.mu.Unlock()

	total := len(candidates)
	span.SetAttributes(attribute.Int("viki.candidates", total))
	if total == 0 {
		return
	}

	var (
		progressMu sync.Mutex
		done       int
	)
	resolved := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		pct := float64(done) / float64(total) * 100
		s.log.Info("second order link search progress", "percent", strconv.FormatFloat(pct, 'g', 4, 64))
		if s.opts.Progress != nil {
			s.opts.Progress(done, total)
		}
	}

	var g errgroup.Group
	for _, n := range candidates {
		if !n.IsWiki() || !n.Searchable {
			resolved()
			continue
		}
		g.Go(func() error {
			_, _ = s.elaborate(ctx, n, b, true)
			resolved()
			return nil
		})
	}
	g.Wait()

	s.mu.Lock()
	for _, l := range b.staged {
		s.store.Connect(l.from, l.to)
	}
	merged := len(b.staged)
	b.staged = nil
	s.markRedraw(true)
	s.release("second order links merged")
	s.log.Debug("second order links merged", "count", merged)
}
