// Package hooks dispatches lifecycle events to registered extension handlers.
package hooks

import (
	"viki/vikigraph/internal/graph"
	"viki/vikigraph/internal/wiki"
)

// Event names a lifecycle point.
type Event int

const (
	InitializationComplete Event = iota
	GetAllWikis
	BeforeVisitNode
	AfterVisitNode
	NewWikiNodeCreated
	NewExternalNodeCreated
	NewWikiNodeAdded
	NewExternalNodeAdded
	ExternalNodes
	IntraOutNodes
	IntraInNodes
	NodeElaborationComplete
)

var eventNames = [...]string{
	InitializationComplete:  "InitializationComplete",
	GetAllWikis:             "GetAllWikis",
	BeforeVisitNode:         "BeforeVisitNode",
	AfterVisitNode:          "AfterVisitNode",
	NewWikiNodeCreated:      "NewWikiNodeCreated",
	NewExternalNodeCreated:  "NewExternalNodeCreated",
	NewWikiNodeAdded:        "NewWikiNodeAdded",
	NewExternalNodeAdded:    "NewExternalNodeAdded",
	ExternalNodes:           "ExternalNodes",
	IntraOutNodes:           "IntraOutNodes",
	IntraInNodes:            "IntraInNodes",
	NodeElaborationComplete: "NodeElaborationComplete",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "Unknown"
	}
	return eventNames[e]
}

// Params carries the event-specific arguments.
//
//   - Node: the visited, created, added or elaborated node
//   - Origin: the node whose elaboration created Node
//   - Nodes: the batch for ExternalNodes, IntraOutNodes and IntraInNodes
//   - Sources: the registry for GetAllWikis, which may add sources
type Params struct {
	Node    *graph.Node
	Origin  *graph.Node
	Nodes   []*graph.Node
	Sources *wiki.Registry
}

// Completion tells the caller what a handler changed.
type Completion struct {
	Redraw     bool
	RedrawNode *graph.Node
}

// Merge combines two completions.
func (c Completion) Merge(o Completion) Completion {
	c.Redraw = c.Redraw || o.Redraw
	if o.RedrawNode != nil {
		c.RedrawNode = o.RedrawNode
	}
	return c
}

// Handler reacts to an event. It runs with exclusive access to the store and
// may set Params.Node.Unadded on a creation event to veto the node.
type Handler func(g *graph.Store, p Params, e Event) Completion

// Dispatcher maps events to ordered handler lists.
type Dispatcher struct {
	handlers map[Event][]Handler
}

// NewDispatcher returns a dispatcher with no handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Event][]Handler)}
}

// Register appends h to the handlers of every listed event.
func (d *Dispatcher) Register(h Handler, events ...Event) {
	for _, e := range events {
		d.handlers[e] = append(d.handlers[e], h)
	}
}

// Has reports whether any handler is registered for e.
func (d *Dispatcher) Has(e Event) bool {
	return d != nil && len(d.handlers[e]) > 0
}

// Dispatch runs the handlers for e in registration order and merges their
// completions. It reports false when no handler is registered.
func (d *Dispatcher) Dispatch(g *graph.Store, e Event, p Params) (Completion, bool) {
	if !d.Has(e) {
		return Completion{}, false
	}
	var c Completion
	for _, h := range d.handlers[e] {
		c = c.Merge(h(g, p, e))
	}
	return c, true
}
