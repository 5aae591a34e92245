package agentloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type scriptedLLM struct {
	replies []string
	calls   int
}

func (s *scriptedLLM) Chat(ctx context.Context, req plugin.ChatRequest) (plugin.ChatResponse, error) {
	i := s.calls
	s.calls++
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return plugin.ChatResponse{Content: s.replies[i]}, nil
}

type recordingEngine struct {
	calls []struct {
		node   model.ID
		inputs any
	}
}

func (r *recordingEngine) ExecuteNode(ctx context.Context, nodeID model.ID, inputs any) (any, error) {
	r.calls = append(r.calls, struct {
		node   model.ID
		inputs any
	}{nodeID, inputs})
	m, _ := inputs.(map[string]any)
	x, _ := m["x"].(float64)
	return x * 2, nil
}

// S5 — Agent tool call.
func TestAgentToolCall(t *testing.T) {
	pNode := model.Node{ID: "P", Type: model.NodePython}
	tool := Tool{NodeID: pNode.ID, NodeType: pNode.Type, Schema: SchemaFor(pNode)}

	llm := &scriptedLLM{replies: []string{
		"Thought: I must call python.\nAction: " + tool.Schema.Name + "\nAction Input: {\"x\":21}\n",
		"Thought: Got 42.\nFinal Answer: 42",
	}}
	eng := &recordingEngine{}
	svc := New(llm, eng, func(string, model.LogLevel) {})

	answer, trace, err := svc.Run(context.Background(), "test-model",
		BuildSystemPrompt([]Tool{tool}), "Double 21 then give the final answer.", []Tool{tool})

	require.NoError(t, err)
	require.Equal(t, "42", answer)
	require.Len(t, trace, 4)
	require.Equal(t, "thought", trace[0].Type)
	require.Equal(t, "action", trace[1].Type)
	require.Equal(t, "observation", trace[2].Type)
	require.Equal(t, "answer", trace[3].Type)

	require.Len(t, eng.calls, 1)
	require.Equal(t, model.ID("P"), eng.calls[0].node)
}

func TestAgentMaxIterations(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"Thought: thinking forever\n"}}
	svc := New(llm, &recordingEngine{}, func(string, model.LogLevel) {})
	svc.MaxIterations = 3

	answer, trace, err := svc.Run(context.Background(), "test-model", "system", "go", nil)
	require.NoError(t, err)
	require.Contains(t, answer, "Max iterations reached")
	require.Equal(t, "answer", trace[len(trace)-1].Type)
}

func TestParseReplyBoundaries(t *testing.T) {
	r := parseReply("Thought: step one\nAction: foo_bar\nAction Input: {\"a\":1}\n")
	require.Equal(t, "step one", r.thought)
	require.True(t, r.hasAction)
	require.Equal(t, "foo_bar", r.action)
	require.Equal(t, `{"a":1}`, r.actionInput)
	require.False(t, r.hasFinal)

	r2 := parseReply("Thought: almost done\nFinal Answer: the answer\nspans two lines")
	require.Equal(t, "almost done", r2.thought)
	require.True(t, r2.hasFinal)
	require.Equal(t, "the answer\nspans two lines", r2.finalAnswer)
}

func TestParseActionInputFallback(t *testing.T) {
	v := parseActionInput("not json")
	require.Equal(t, map[string]any{"input": "not json"}, v)

	v2 := parseActionInput(`{"x":1}`)
	require.Equal(t, map[string]any{"x": 1.0}, v2)
}
