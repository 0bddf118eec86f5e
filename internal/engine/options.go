package engine

import (
	"context"
	"log/slog"
	"time"

	"viki/vikigraph/internal/graph"
	"viki/vikigraph/internal/hooks"
)

// DefaultThreshold is the number of references above which a full
// elaboration asks for confirmation.
const DefaultThreshold = 50

// Renderer is notified whenever the visible collections change. restart asks
// the layout to re-settle; false is a cosmetic refresh.
type Renderer interface {
	RequestRedraw(restart bool)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(restart bool)

func (f RendererFunc) RequestRedraw(restart bool) { f(restart) }

// Confirmer decides whether an elaboration that would add count references
// to node proceeds. It may block for a human decision.
type Confirmer interface {
	Confirm(ctx context.Context, node *graph.Node, count int) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, node *graph.Node, count int) bool

func (f ConfirmFunc) Confirm(ctx context.Context, node *graph.Node, count int) bool {
	return f(ctx, node, count)
}

type confirmedKey struct{}

// WithConfirmed records a caller's answer to any threshold confirmation
// raised while serving ctx.
func WithConfirmed(ctx context.Context, confirmed bool) context.Context {
	return context.WithValue(ctx, confirmedKey{}, confirmed)
}

// ContextConfirmer answers with the value stored by WithConfirmed, declining
// when none is stored.
var ContextConfirmer = ConfirmFunc(func(ctx context.Context, _ *graph.Node, _ int) bool {
	ok, _ := ctx.Value(confirmedKey{}).(bool)
	return ok
})

// Options configures a Session. The zero value is usable.
type Options struct {
	Logger    *slog.Logger
	Renderer  Renderer
	Hooks     *hooks.Dispatcher
	Confirmer Confirmer // nil accepts every elaboration

	// OnError receives every surfaced lookup failure.
	OnError func(error)
	// Progress is called after each second-order candidate resolves.
	Progress func(done, total int)

	SecondOrderLinks bool
	HiddenCategories []string

	// Threshold defaults to DefaultThreshold; negative disables it.
	Threshold int
	// NamespaceTimeout bounds each content namespace lookup. Defaults to 5s.
	NamespaceTimeout time.Duration

	TitleLimit int
	URLLimit   int
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Renderer == nil {
		o.Renderer = RendererFunc(func(bool) {})
	}
	if o.Hooks == nil {
		o.Hooks = hooks.NewDispatcher()
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.NamespaceTimeout == 0 {
		o.NamespaceTimeout = 5 * time.Second
	}
	if o.TitleLimit == 0 {
		o.TitleLimit = 50
	}
	if o.URLLimit == 0 {
		o.URLLimit = 20
	}
}
