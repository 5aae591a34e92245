package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowloom/rivulet/model"
)

func TestRoundTripPreservesUnknownKeys(t *testing.T) {
	raw := []byte(`{
		"id": "wf1",
		"name": "Demo",
		"nodes": [
			{"id":"n1","type":"start","position":{"x":10,"y":20},"data":{},"color":"blue"}
		],
		"edges": []
	}`)

	wf, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, model.ID("wf1"), wf.ID)
	require.Len(t, wf.Nodes, 1)
	require.Equal(t, "blue", wf.Nodes[0].Extra["color"])

	out, err := Encode(wf)
	require.NoError(t, err)

	wf2, err := Decode(out)
	require.NoError(t, err)
	require.Equal(t, "blue", wf2.Nodes[0].Extra["color"])
}

func TestDecodeRejectsDuplicateNodeIDs(t *testing.T) {
	raw := []byte(`{"nodes":[{"id":"n1","type":"start","data":{}},{"id":"n1","type":"end","data":{}}],"edges":[]}`)
	_, err := Decode(raw)
	require.Error(t, err)
}

func TestDecodeRejectsUnknownEdgeReference(t *testing.T) {
	raw := []byte(`{"nodes":[{"id":"n1","type":"start","data":{}}],"edges":[{"id":"e1","source":"n1","target":"missing"}]}`)
	_, err := Decode(raw)
	require.Error(t, err)
}

func TestDecodeRejectsSelfLoop(t *testing.T) {
	raw := []byte(`{"nodes":[{"id":"n1","type":"start","data":{}}],"edges":[{"id":"e1","source":"n1","target":"n1"}]}`)
	_, err := Decode(raw)
	require.Error(t, err)
}

func TestEncodeDecodeEdgeHandles(t *testing.T) {
	wf := model.Workflow{
		ID: "wf2",
		Nodes: []model.Node{
			{ID: "a", Type: model.NodeIfElse, Data: map[string]any{}},
			{ID: "b", Type: model.NodeEnd, Data: map[string]any{}},
		},
		Edges: []model.Edge{
			{ID: "e1", Source: "a", Target: "b", SourceHandle: "a-true"},
		},
	}
	b, err := Encode(wf)
	require.NoError(t, err)

	wf2, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, model.Port("a-true"), wf2.Edges[0].SourceHandle)
}
