// Package model holds the data shapes shared across the workflow engine:
// nodes, edges, workflows, per-run execution state, artifacts, and the
// error taxonomy. Nothing here depends on the engine, the executors, or
// any transport — it is the vocabulary the rest of the module speaks.
package model

import "time"

type ID string

// Port names a handle on a node. An edge connects a source handle on one
// node to a target handle on another; routing executors (branch,
// condition) emit a subset of outgoing handles to steer traversal.
type Port string

const (
	PortMain Port = "main"
)

// NodeType is the closed set of node kinds the engine understands.
type NodeType string

const (
	NodeManualTrigger   NodeType = "manualTrigger"
	NodeScheduleTrigger NodeType = "scheduleTrigger"
	NodeAIAgent         NodeType = "aiAgent"
	NodeLLM             NodeType = "llm"
	NodeCodeExecutor    NodeType = "codeExecutor"
	NodeHTTPRequest     NodeType = "httpRequest"
	NodeIfElse          NodeType = "ifElse"
	NodeSwitch          NodeType = "switch"
	NodeMerge           NodeType = "merge"
	NodeDelay           NodeType = "delay"
	NodeTransform       NodeType = "transform"
	NodePython          NodeType = "python"
	NodeTextToSpeech    NodeType = "textToSpeech"
	NodeImageGeneration NodeType = "imageGeneration"
	NodeOutput          NodeType = "output"
	NodeStart           NodeType = "start"
	NodeEnd             NodeType = "end"
)

// Edge connects a source node's handle to a target node's handle.
// (source, sourceHandle, target, targetHandle) is unique within a
// workflow — enforced by workflowstore, not by this type.
type Edge struct {
	ID           ID
	Source       ID
	Target       ID
	SourceHandle Port
	TargetHandle Port
	Type         string
	Animated     bool
}

// Node is an immutable identity plus a mutable configuration map (Data).
// Position is UI-only: round-tripped by format/wire, never read by the
// engine. Timeout, when set, bounds a single execute() call the way the
// teacher's engine.Run already did with context.WithTimeout.
type Node struct {
	ID      ID
	Type    NodeType
	Name    string
	Data    map[string]any
	Timeout time.Duration // 0 = none

	PositionX, PositionY float64

	// Credentials names a secret in services.Credentials; empty means the
	// node supplies no secret of its own: nodes/http adds no Authorization
	// header and nodes/llm leaves the WebLLM backend's configured key in use.
	Credentials string

	// Extra preserves unknown top-level keys from an imported document so
	// format/wire can round-trip workflows it doesn't fully understand.
	Extra map[string]any
}

// Workflow is the full graph: nodes plus the edges between them.
type Workflow struct {
	ID    ID
	Name  string
	Nodes []Node
	Edges []Edge
}

// NodeByID returns the node with the given id, if present.
func (w Workflow) NodeByID(id ID) (Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Item is a single unit of data flowing through the graph; Items is a
// batch. Kept from the teacher's n8n-flavored item model; only format/n8n
// (ParseInputData, ToRivulet) uses it, and every executor in this module
// returns a single scalar/object rather than a batch.
type Item = map[string]any

type Items = []Item

// FileMeta describes an attachment stored by a FileStore (nodes/files,
// nodes/fs). The ArtifactStore does not use it; its list entries are
// ArtifactMetadata.
type FileMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MediaType string    `json:"media_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is a content-addressed-by-uuid binary payload. Blob and
// MimeType are immutable after creation — see artifact.Store.
type Artifact struct {
	ID        string
	Blob      []byte
	MimeType  string
	Category  string
	Size      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArtifactMetadata is the list()-safe projection of an Artifact (no blob).
type ArtifactMetadata struct {
	ID        string    `json:"id"`
	MimeType  string    `json:"mime_type"`
	Category  string    `json:"category"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArtifactStats summarizes the store's contents.
type ArtifactStats struct {
	Count     int `json:"count"`
	TotalSize int `json:"total_size"`
}

// ToolSchema describes a node advertised to an LLM as a callable tool.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  ToolParameters
}

// ToolParameters is a JSON-Schema-shaped object description.
type ToolParameters struct {
	Type       string                    `json:"type"`
	Properties map[string]ToolParamField `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

type ToolParamField struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}
