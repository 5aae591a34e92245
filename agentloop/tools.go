package agentloop

import (
	"sort"
	"strings"

	"github.com/flowloom/rivulet/model"
)

// Tool is one node exposed to an agent as a callable action: its
// identity plus the schema the system prompt advertises to the LLM.
type Tool struct {
	NodeID   model.ID
	NodeType model.NodeType
	Schema   model.ToolSchema
}

// IsResourceHandle is the handle-naming predicate §4.8 calls for: any
// target handle whose name contains "resource" marks the edge as wiring
// a tool into an agent rather than carrying ordinary data.
func IsResourceHandle(handle model.Port) bool {
	return strings.Contains(strings.ToLower(string(handle)), "resource")
}

// DiscoverTools walks wf.Edges for every resource-handle edge terminating
// at agentID and returns the source node of each as a Tool.
func DiscoverTools(wf model.Workflow, agentID model.ID) []Tool {
	var tools []Tool
	for _, e := range wf.Edges {
		if e.Target != agentID || !IsResourceHandle(e.TargetHandle) {
			continue
		}
		node, ok := wf.NodeByID(e.Source)
		if !ok {
			continue
		}
		tools = append(tools, Tool{NodeID: node.ID, NodeType: node.Type, Schema: SchemaFor(node)})
	}
	return tools
}

// invocationName is "<type>_<id-with-dashes-replaced-by-underscores>".
func invocationName(node model.Node) string {
	return string(node.Type) + "_" + strings.ReplaceAll(string(node.ID), "-", "_")
}

// SchemaFor synthesizes the ToolSchema a node type advertises to an
// agent, per the type-specific rules in §4.8.
func SchemaFor(node model.Node) model.ToolSchema {
	name := invocationName(node)
	switch node.Type {
	case model.NodeImageGeneration:
		return model.ToolSchema{
			Name:        name,
			Description: "Generate an image from a text prompt.",
			Parameters: model.ToolParameters{
				Type: "object",
				Properties: map[string]model.ToolParamField{
					"prompt": {Type: "string", Description: "what to draw"},
					"style":  {Type: "string", Description: "visual style"},
				},
				Required: []string{"prompt"},
			},
		}
	case model.NodePython:
		return model.ToolSchema{
			Name:        name,
			Description: "Run a python computation and return its result.",
			Parameters: model.ToolParameters{
				Type: "object",
				Properties: map[string]model.ToolParamField{
					"inputs": {Type: "object", Description: "values passed to the script as `inputs`"},
				},
			},
		}
	case model.NodeHTTPRequest:
		return model.ToolSchema{
			Name:        name,
			Description: "Issue an HTTP request.",
			Parameters: model.ToolParameters{
				Type: "object",
				Properties: map[string]model.ToolParamField{
					"body":        {Type: "object", Description: "request body"},
					"queryParams": {Type: "object", Description: "query string parameters"},
				},
			},
		}
	case model.NodeTextToSpeech:
		return model.ToolSchema{
			Name:        name,
			Description: "Synthesize speech audio from text.",
			Parameters: model.ToolParameters{
				Type: "object",
				Properties: map[string]model.ToolParamField{
					"text":  {Type: "string", Description: "text to speak"},
					"voice": {Type: "string", Description: "voice id"},
				},
				Required: []string{"text"},
			},
		}
	default:
		return model.ToolSchema{
			Name:        name,
			Description: "Invoke the " + string(node.Type) + " node.",
			Parameters: model.ToolParameters{
				Type: "object",
				Properties: map[string]model.ToolParamField{
					"input": {Type: "object", Description: "node input"},
				},
			},
		}
	}
}

// BuildSystemPrompt renders the tool preamble plus the ReAct protocol
// instructions, with deterministic property ordering so prompts (and
// tests asserting on them) don't flap across runs.
func BuildSystemPrompt(tools []Tool) string {
	var b strings.Builder
	b.WriteString("You can call the following tools. Use at most one per turn.\n\n")
	for _, t := range tools {
		b.WriteString("### " + t.Schema.Name + "\n")
		if t.Schema.Description != "" {
			b.WriteString(t.Schema.Description + "\n")
		}
		names := make([]string, 0, len(t.Schema.Parameters.Properties))
		for n := range t.Schema.Parameters.Properties {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			b.WriteString("- " + n + ": " + t.Schema.Parameters.Properties[n].Description + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Respond using exactly this protocol, one directive per line:\n")
	b.WriteString("Thought: <your reasoning>\n")
	b.WriteString("Action: <tool name>\n")
	b.WriteString("Action Input: <JSON object>\n")
	b.WriteString("(after you receive an Observation, continue the loop)\n")
	b.WriteString("Thought: <your reasoning>\n")
	b.WriteString("Final Answer: <the final answer text>\n")
	return b.String()
}
