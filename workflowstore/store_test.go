package workflowstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowloom/rivulet/model"
)

func baseWorkflow() model.Workflow {
	return model.Workflow{
		ID: "wf1",
		Nodes: []model.Node{
			{ID: "a", Type: model.NodeStart},
			{ID: "b", Type: model.NodeEnd},
		},
		Edges: []model.Edge{
			{ID: "e1", Source: "a", Target: "b"},
		},
	}
}

func TestAddEdgeRejectsDuplicateQuadKey(t *testing.T) {
	s := New(baseWorkflow())
	err := s.AddEdge(model.Edge{ID: "e2", Source: "a", Target: "b"})
	require.Error(t, err)
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	s := New(baseWorkflow())
	err := s.AddEdge(model.Edge{ID: "e3", Source: "a", Target: "a"})
	require.Error(t, err)
}

func TestAddEdgeRejectsDanglingReference(t *testing.T) {
	s := New(baseWorkflow())
	err := s.AddEdge(model.Edge{ID: "e4", Source: "a", Target: "ghost"})
	require.Error(t, err)
}

func TestRemoveNodeDropsIncidentEdges(t *testing.T) {
	s := New(baseWorkflow())
	s.RemoveNode("b")
	wf := s.Load()
	require.Len(t, wf.Nodes, 1)
	require.Empty(t, wf.Edges)
}

func TestSelectors(t *testing.T) {
	s := New(baseWorkflow())
	require.Equal(t, []model.ID{"a"}, s.GetUpstreamNodes("b"))
	require.Equal(t, []model.ID{"b"}, s.GetDownstreamNodes("a"))
	require.Len(t, s.GetIncomingEdges("b"), 1)
	require.Len(t, s.GetOutgoingEdges("a"), 1)
}

func TestExportImportRoundTrip(t *testing.T) {
	s := New(baseWorkflow())
	doc, err := s.Export()
	require.NoError(t, err)

	s2 := New(model.Workflow{})
	require.NoError(t, s2.Import(doc))
	require.Equal(t, s.Load().ID, s2.Load().ID)
	require.Len(t, s2.Load().Nodes, 2)
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	s := New(model.Workflow{})
	bad := []byte(`{"nodes":[{"id":"n1","type":"start","data":{}}],"edges":[{"id":"e1","source":"n1","target":"missing"}]}`)
	require.Error(t, s.Import(bad))
}

func TestCollectionCRUD(t *testing.T) {
	c := NewCollection()
	require.NoError(t, c.Put(baseWorkflow()))

	s, ok := c.Get("wf1")
	require.True(t, ok)
	require.Equal(t, model.ID("wf1"), s.Load().ID)

	require.Len(t, c.List(), 1)
	c.Delete("wf1")
	require.Empty(t, c.List())
}
