// Package workflowstore implements the C10 WorkflowStore: CRUD over a
// workflow's nodes and edges with the uniqueness invariants from §3,
// plus the graph selectors callers (the scheduler, httpapi, the ReAct
// tool-discovery path) need without re-deriving adjacency themselves.
package workflowstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowloom/rivulet/format/wire"
	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

// PersistKey is the literal key §6 names for the canonical document when
// persistence is enabled: "the canonical document above is stored under
// the key `iosans-workflow`." Both Persist and LoadPersisted key off this
// constant rather than a per-workflow id, since the spec names one fixed
// key, not a namespaced one.
const PersistKey = "iosans-workflow"

// Store holds exactly one workflow, mutated atomically under a single
// mutex — matching the spec's per-workflow CRUD surface rather than a
// multi-tenant document store (callers wanting many workflows keep one
// Store per id, as Collection below does).
type Store struct {
	mu sync.RWMutex
	wf model.Workflow
}

func New(wf model.Workflow) *Store {
	return &Store{wf: wf}
}

func (s *Store) Load() model.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wf
}

// edgeKey is the uniqueness tuple from §3: (source, sourceHandle,
// target, targetHandle) must be unique within a workflow.
func edgeKey(e model.Edge) string {
	return fmt.Sprintf("%s|%s|%s|%s", e.Source, e.SourceHandle, e.Target, e.TargetHandle)
}

func validate(wf model.Workflow) error {
	ids := make(map[model.ID]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if ids[n.ID] {
			return fmt.Errorf("duplicate node id: %s", n.ID)
		}
		ids[n.ID] = true
	}
	keys := make(map[string]bool, len(wf.Edges))
	for _, e := range wf.Edges {
		if !ids[e.Source] {
			return fmt.Errorf("edge %s references unknown source %s", e.ID, e.Source)
		}
		if !ids[e.Target] {
			return fmt.Errorf("edge %s references unknown target %s", e.ID, e.Target)
		}
		if e.Source == e.Target {
			return fmt.Errorf("edge %s is a self-loop", e.ID)
		}
		k := edgeKey(e)
		if keys[k] {
			return fmt.Errorf("duplicate edge (source,sourceHandle,target,targetHandle): %s", k)
		}
		keys[k] = true
	}
	return nil
}

// SetNodes atomically replaces the node list, rejecting the change if it
// would break a uniqueness invariant or strand an existing edge.
func (s *Store) SetNodes(nodes []model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidate := s.wf
	candidate.Nodes = nodes
	if err := validate(candidate); err != nil {
		return err
	}
	s.wf = candidate
	return nil
}

// SetEdges atomically replaces the edge list.
func (s *Store) SetEdges(edges []model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidate := s.wf
	candidate.Edges = edges
	if err := validate(candidate); err != nil {
		return err
	}
	s.wf = candidate
	return nil
}

// AddNode appends a single node, rejecting a duplicate id.
func (s *Store) AddNode(n model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidate := s.wf
	candidate.Nodes = append(append([]model.Node{}, s.wf.Nodes...), n)
	if err := validate(candidate); err != nil {
		return err
	}
	s.wf = candidate
	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (s *Store) RemoveNode(id model.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes := make([]model.Node, 0, len(s.wf.Nodes))
	for _, n := range s.wf.Nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	edges := make([]model.Edge, 0, len(s.wf.Edges))
	for _, e := range s.wf.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	s.wf.Nodes = nodes
	s.wf.Edges = edges
}

// AddEdge appends a single edge, rejecting duplicates, self-loops, and
// dangling references.
func (s *Store) AddEdge(e model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidate := s.wf
	candidate.Edges = append(append([]model.Edge{}, s.wf.Edges...), e)
	if err := validate(candidate); err != nil {
		return err
	}
	s.wf = candidate
	return nil
}

func (s *Store) RemoveEdge(id model.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edges := make([]model.Edge, 0, len(s.wf.Edges))
	for _, e := range s.wf.Edges {
		if e.ID != id {
			edges = append(edges, e)
		}
	}
	s.wf.Edges = edges
}

// --- Selectors ---

func (s *Store) GetIncomingEdges(id model.ID) []model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Edge
	for _, e := range s.wf.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) GetOutgoingEdges(id model.ID) []model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Edge
	for _, e := range s.wf.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) GetUpstreamNodes(id model.ID) []model.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[model.ID]bool{}
	var out []model.ID
	for _, e := range s.wf.Edges {
		if e.Target == id && !seen[e.Source] {
			seen[e.Source] = true
			out = append(out, e.Source)
		}
	}
	return out
}

func (s *Store) GetDownstreamNodes(id model.ID) []model.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[model.ID]bool{}
	var out []model.ID
	for _, e := range s.wf.Edges {
		if e.Source == id && !seen[e.Target] {
			seen[e.Target] = true
			out = append(out, e.Target)
		}
	}
	return out
}

// Export renders the current workflow as its canonical wire document.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return wire.Encode(s.wf)
}

// Import replaces the whole workflow from a wire document, validating
// node-id uniqueness and edge-reference integrity (wire.Decode already
// enforces this; Store re-validates so direct SetNodes/SetEdges callers
// and Import share one invariant check).
func (s *Store) Import(doc []byte) error {
	wf, err := wire.Decode(doc)
	if err != nil {
		return err
	}
	if err := validate(wf); err != nil {
		return err
	}
	s.mu.Lock()
	s.wf = wf
	s.mu.Unlock()
	return nil
}

// Persist writes the current workflow to files under the literal
// PersistKey, using the injected FileStore as the persistence backend —
// this is what "when persistence is enabled" means here, since the
// teacher never had a config flag for it and FileStore is already the
// one durable-storage seam the rest of the module goes through.
func (s *Store) Persist(ctx context.Context, files plugin.FileStore) error {
	doc, err := s.Export()
	if err != nil {
		return err
	}
	_, err = files.Put(ctx, PersistKey, PersistKey, doc, "application/json")
	return err
}

// LoadPersisted reads back the most recently persisted workflow stored
// under PersistKey, if any. ok is false with a nil error when nothing
// has been persisted yet.
func LoadPersisted(ctx context.Context, files plugin.FileStore) (wf model.Workflow, ok bool, err error) {
	metas, err := files.List(ctx, PersistKey)
	if err != nil {
		return model.Workflow{}, false, err
	}
	if len(metas) == 0 {
		return model.Workflow{}, false, nil
	}
	latest := metas[0]
	for _, m := range metas {
		if m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	_, _, data, err := files.Get(ctx, PersistKey, latest.ID)
	if err != nil {
		return model.Workflow{}, false, err
	}
	wf, err = wire.Decode(data)
	if err != nil {
		return model.Workflow{}, false, err
	}
	return wf, true, nil
}

// Collection keys multiple workflows by id, for the httpapi's multi-
// workflow CRUD surface.
type Collection struct {
	mu    sync.RWMutex
	byID  map[model.ID]*Store
}

func NewCollection() *Collection {
	return &Collection{byID: make(map[model.ID]*Store)}
}

func (c *Collection) Put(wf model.Workflow) error {
	if err := validate(wf); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[wf.ID] = New(wf)
	return nil
}

func (c *Collection) Get(id model.ID) (*Store, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	return s, ok
}

func (c *Collection) Delete(id model.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

func (c *Collection) List() []model.Workflow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Workflow, 0, len(c.byID))
	for _, s := range c.byID {
		out = append(out, s.Load())
	}
	return out
}
