// Package n8n imports workflows exported from n8n's JSON format into the
// native model.Workflow shape. Kept as a bonus import path from the
// teacher; adapted onto the current Node/Edge field layout (Data instead
// of Config, Source/Target instead of FromNode/ToNode).
package n8n

import (
	"github.com/flowloom/rivulet/model"
)

// N8nWorkflow represents the n8n workflow format.
type N8nWorkflow struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Active      bool                      `json:"active"`
	Nodes       []N8nNode                 `json:"nodes"`
	Connections map[string]N8nConnections `json:"connections"`
	Settings    map[string]interface{}    `json:"settings"`
}

// N8nNode represents an n8n node.
type N8nNode struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	TypeVersion float64                `json:"typeVersion"`
	Position    []float64              `json:"position"`
	Parameters  map[string]interface{} `json:"parameters"`
	Credentials map[string]interface{} `json:"credentials"`
}

// N8nConnections represents n8n node connections.
type N8nConnections struct {
	Main [][]N8nConnection `json:"main"`
}

// N8nConnection represents a single connection.
type N8nConnection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// N8nRequest represents the full n8n API request.
type N8nRequest struct {
	Workflow N8nWorkflow            `json:"workflow"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ParseWorkflow converts an n8n workflow into the native graph shape.
func ParseWorkflow(n8nWF N8nWorkflow) model.Workflow {
	nodes := make([]model.Node, len(n8nWF.Nodes))

	for i, n8nNode := range n8nWF.Nodes {
		data := n8nNode.Parameters
		if data == nil {
			data = map[string]interface{}{}
		}
		data["_n8n_typeVersion"] = n8nNode.TypeVersion

		var credName string
		if len(n8nNode.Credentials) > 0 {
			data["_n8n_credentials"] = n8nNode.Credentials
			for name := range n8nNode.Credentials {
				credName = name
				break
			}
		}

		node := model.Node{
			ID:          model.ID(n8nNode.ID),
			Type:        model.NodeType(n8nNode.Type),
			Name:        n8nNode.Name,
			Data:        data,
			Credentials: credName,
		}
		if len(n8nNode.Position) == 2 {
			node.PositionX, node.PositionY = n8nNode.Position[0], n8nNode.Position[1]
		}
		nodes[i] = node
	}

	var edges []model.Edge
	for fromNodeID, connections := range n8nWF.Connections {
		for _, connGroup := range connections.Main {
			for _, conn := range connGroup {
				edges = append(edges, model.Edge{
					ID:           model.ID(fromNodeID + "->" + conn.Node),
					Source:       model.ID(fromNodeID),
					SourceHandle: model.PortMain,
					Target:       model.ID(conn.Node),
					TargetHandle: model.PortMain,
				})
			}
		}
	}

	return model.Workflow{
		ID:    model.ID(n8nWF.ID),
		Name:  n8nWF.Name,
		Nodes: nodes,
		Edges: edges,
	}
}

// ParseInputData converts n8n's per-node input arrays into model.Items
// keyed by node id.
func ParseInputData(data map[string]interface{}) map[model.ID]model.Items {
	result := make(map[model.ID]model.Items)
	for nodeID, nodeData := range data {
		items, ok := nodeData.([]interface{})
		if !ok {
			continue
		}
		rivuletItems := make(model.Items, 0, len(items))
		for _, item := range items {
			if itemMap, ok := item.(map[string]interface{}); ok {
				rivuletItems = append(rivuletItems, model.Item(itemMap))
			}
		}
		result[model.ID(nodeID)] = rivuletItems
	}
	return result
}

// ToRivulet converts a full n8n request into a workflow plus its initial
// per-node input data, defaulting to a manual trigger item when the
// request carries none.
func ToRivulet(n8nReq N8nRequest) (model.Workflow, map[model.ID]model.Items) {
	workflow := ParseWorkflow(n8nReq.Workflow)
	inputData := ParseInputData(n8nReq.Data)

	if len(inputData) == 0 {
		for _, node := range workflow.Nodes {
			inputData[node.ID] = model.Items{{"trigger": "manual"}}
		}
	}

	return workflow, inputData
}

// GetN8nMetadata extracts n8n-specific metadata stashed in a node's Data
// by ParseWorkflow, for round-tripping back to n8n's export format.
func GetN8nMetadata(node model.Node) (typeVersion float64, position []float64, credentials map[string]interface{}) {
	if node.Data != nil {
		if tv, ok := node.Data["_n8n_typeVersion"].(float64); ok {
			typeVersion = tv
		}
		if creds, ok := node.Data["_n8n_credentials"].(map[string]interface{}); ok {
			credentials = creds
		}
	}
	position = []float64{node.PositionX, node.PositionY}
	return typeVersion, position, credentials
}
