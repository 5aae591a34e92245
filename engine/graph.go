// Package engine implements the GraphModel (C5), ExecutionState (C6), and
// ExecutionEngine (C7) — the heart of the workflow system.
package engine

import "github.com/flowloom/rivulet/model"

// Graph is the in-memory adjacency view of a workflow built once per run
// (§4.5). incomingEdges is kept as full edge records, not just ids,
// because handle-aware filtering (conditional routing) needs the
// SourceHandle/TargetHandle on every edge.
type Graph struct {
	wf model.Workflow

	incoming      map[model.ID]map[model.ID]bool
	outgoing      map[model.ID]map[model.ID]bool
	incomingEdges map[model.ID][]model.Edge
	outgoingEdges map[model.ID][]model.Edge
}

// BuildGraph constructs a Graph from a workflow snapshot.
func BuildGraph(wf model.Workflow) *Graph {
	g := &Graph{
		wf:            wf,
		incoming:      make(map[model.ID]map[model.ID]bool),
		outgoing:      make(map[model.ID]map[model.ID]bool),
		incomingEdges: make(map[model.ID][]model.Edge),
		outgoingEdges: make(map[model.ID][]model.Edge),
	}
	for _, n := range wf.Nodes {
		g.incoming[n.ID] = map[model.ID]bool{}
		g.outgoing[n.ID] = map[model.ID]bool{}
	}
	for _, e := range wf.Edges {
		g.incoming[e.Target][e.Source] = true
		g.outgoing[e.Source][e.Target] = true
		g.incomingEdges[e.Target] = append(g.incomingEdges[e.Target], e)
		g.outgoingEdges[e.Source] = append(g.outgoingEdges[e.Source], e)
	}
	return g
}

// StartNodes returns every node with no incoming edges.
func (g *Graph) StartNodes() []model.ID {
	var out []model.ID
	for _, n := range g.wf.Nodes {
		if len(g.incoming[n.ID]) == 0 {
			out = append(out, n.ID)
		}
	}
	return out
}

// Upstream returns the set of node ids with an edge into id.
func (g *Graph) Upstream(id model.ID) map[model.ID]bool { return g.incoming[id] }

// Downstream returns the set of node ids id has an edge into.
func (g *Graph) Downstream(id model.ID) map[model.ID]bool { return g.outgoing[id] }

// IncomingEdges returns the full edge records terminating at id.
func (g *Graph) IncomingEdges(id model.ID) []model.Edge { return g.incomingEdges[id] }

// OutgoingEdges returns the full edge records originating at id.
func (g *Graph) OutgoingEdges(id model.ID) []model.Edge { return g.outgoingEdges[id] }

// TopoOrder returns a topological ordering via DFS post-order reversed,
// and reports whether the graph is acyclic. A cyclic graph yields
// ok=false; ExecutionEngine.Run surfaces this as model.ErrCycleDetected
// when acyclicity is checked explicitly (§3: "the engine does not
// enforce acyclicity structurally but cycle detection is a testable
// property").
func (g *Graph) TopoOrder() (order []model.ID, ok bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[model.ID]int, len(g.wf.Nodes))
	for _, n := range g.wf.Nodes {
		color[n.ID] = white
	}
	var post []model.ID
	acyclic := true

	var visit func(id model.ID)
	visit = func(id model.ID) {
		color[id] = gray
		for next := range g.outgoing[id] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				acyclic = false
			}
		}
		color[id] = black
		post = append(post, id)
	}
	for _, n := range g.wf.Nodes {
		if color[n.ID] == white {
			visit(n.ID)
		}
	}
	if !acyclic {
		return nil, false
	}
	order = make([]model.ID, len(post))
	for i, id := range post {
		order[len(post)-1-i] = id
	}
	return order, true
}
