// Package wire implements the native workflow JSON document format (§6):
// {"nodes":[{"id","type","position":{"x","y"},"data":{...}}],
//  "edges":[{"id","source","target","sourceHandle?","targetHandle?","type?","animated?"}]}.
// Unknown top-level node keys round-trip via model.Node.Extra so a
// document produced by a newer client doesn't lose node fields passing
// through a run it doesn't otherwise touch. Unknown edge keys are not
// preserved: Edge decodes only the fields listed above and drops the rest.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowloom/rivulet/model"
)

// Document is the canonical on-disk/over-the-wire shape.
type Document struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Position    position       `json:"position"`
	Data        map[string]any `json:"data"`
	Name        string         `json:"name,omitempty"`
	Timeout     float64        `json:"timeoutMs,omitempty"`
	Credentials string         `json:"credentials,omitempty"`

	extra map[string]any
}

type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Type         string `json:"type,omitempty"`
	Animated     bool   `json:"animated,omitempty"`
}

// known node keys the wire struct already accounts for; anything else
// in the raw object is preserved in model.Node.Extra on decode and
// re-emitted on encode.
var knownNodeKeys = map[string]bool{
	"id": true, "type": true, "position": true, "data": true,
	"name": true, "timeoutMs": true, "credentials": true,
}

func (n *Node) UnmarshalJSON(b []byte) error {
	type alias Node
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*n = Node(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	extra := map[string]any{}
	for k, v := range raw {
		if knownNodeKeys[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		extra[k] = val
	}
	if len(extra) > 0 {
		n.extra = extra
	}
	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	type alias Node
	out := map[string]any{}
	b, err := json.Marshal(alias(n))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	for k, v := range n.extra {
		out[k] = v
	}
	return json.Marshal(out)
}

// ToWorkflow converts a decoded Document into the engine's native
// model.Workflow, validating node-id uniqueness and edge-reference
// integrity per §6 ("reject on violation").
func ToWorkflow(doc Document) (model.Workflow, error) {
	seen := make(map[model.ID]bool, len(doc.Nodes))
	nodes := make([]model.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		id := model.ID(n.ID)
		if id == "" {
			return model.Workflow{}, fmt.Errorf("node %d: missing id", i)
		}
		if seen[id] {
			return model.Workflow{}, fmt.Errorf("duplicate node id: %s", n.ID)
		}
		seen[id] = true

		data := n.Data
		if data == nil {
			data = map[string]any{}
		}
		nodes[i] = model.Node{
			ID:          id,
			Type:        model.NodeType(n.Type),
			Name:        n.Name,
			Data:        data,
			Timeout:     time.Duration(n.Timeout) * time.Millisecond,
			Credentials: n.Credentials,
			PositionX:   n.Position.X,
			PositionY:   n.Position.Y,
			Extra:       n.extra,
		}
	}

	edgeKeys := make(map[string]bool, len(doc.Edges))
	edges := make([]model.Edge, len(doc.Edges))
	for i, e := range doc.Edges {
		if !seen[model.ID(e.Source)] {
			return model.Workflow{}, fmt.Errorf("edge %s: unknown source node %q", e.ID, e.Source)
		}
		if !seen[model.ID(e.Target)] {
			return model.Workflow{}, fmt.Errorf("edge %s: unknown target node %q", e.ID, e.Target)
		}
		if e.Source == e.Target {
			return model.Workflow{}, fmt.Errorf("edge %s: self-loop rejected", e.ID)
		}
		key := fmt.Sprintf("%s|%s|%s|%s", e.Source, e.SourceHandle, e.Target, e.TargetHandle)
		if edgeKeys[key] {
			return model.Workflow{}, fmt.Errorf("duplicate edge (source,sourceHandle,target,targetHandle): %s", key)
		}
		edgeKeys[key] = true

		edges[i] = model.Edge{
			ID:           model.ID(e.ID),
			Source:       model.ID(e.Source),
			Target:       model.ID(e.Target),
			SourceHandle: model.Port(e.SourceHandle),
			TargetHandle: model.Port(e.TargetHandle),
			Type:         e.Type,
			Animated:     e.Animated,
		}
	}

	return model.Workflow{ID: model.ID(doc.ID), Name: doc.Name, Nodes: nodes, Edges: edges}, nil
}

// FromWorkflow converts a model.Workflow back into its canonical wire
// Document, for export and persistence.
func FromWorkflow(wf model.Workflow) Document {
	doc := Document{ID: string(wf.ID), Name: wf.Name}
	doc.Nodes = make([]Node, len(wf.Nodes))
	for i, n := range wf.Nodes {
		doc.Nodes[i] = Node{
			ID:          string(n.ID),
			Type:        string(n.Type),
			Position:    position{X: n.PositionX, Y: n.PositionY},
			Data:        n.Data,
			Name:        n.Name,
			Credentials: n.Credentials,
			extra:       n.Extra,
		}
		if n.Timeout > 0 {
			doc.Nodes[i].Timeout = float64(n.Timeout.Milliseconds())
		}
	}
	doc.Edges = make([]Edge, len(wf.Edges))
	for i, e := range wf.Edges {
		doc.Edges[i] = Edge{
			ID:           string(e.ID),
			Source:       string(e.Source),
			Target:       string(e.Target),
			SourceHandle: string(e.SourceHandle),
			TargetHandle: string(e.TargetHandle),
			Type:         e.Type,
			Animated:     e.Animated,
		}
	}
	return doc
}

// Decode parses a JSON document and converts it to a model.Workflow.
func Decode(b []byte) (model.Workflow, error) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return model.Workflow{}, err
	}
	return ToWorkflow(doc)
}

// Encode renders a model.Workflow as its canonical JSON document.
func Encode(wf model.Workflow) ([]byte, error) {
	return json.MarshalIndent(FromWorkflow(wf), "", "  ")
}
