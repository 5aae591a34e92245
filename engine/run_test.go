package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

// The fakes below are minimal stand-ins for the real nodes/* executors —
// engine tests exercise scheduling, routing and synchronization, not any
// particular node's business logic, so they stay deliberately dumb.

type fakeTrigger struct{}

func (fakeTrigger) Validate(*plugin.ExecutionContext) error { return nil }
func (fakeTrigger) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	return plugin.ExecutorResult{Output: map[string]any{"triggered": true, "timestamp": time.Now().Unix()}}, nil
}

type fakeCode struct{}

func (fakeCode) Validate(*plugin.ExecutionContext) error { return nil }
func (fakeCode) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	if ms, ok := ec.Node.Data["delayMs"].(int); ok && ms > 0 {
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-ec.Ctx.Done():
		}
	}
	if emit, ok := ec.Node.Data["emit"]; ok {
		return plugin.ExecutorResult{Output: emit}, nil
	}
	if m, ok := ec.Inputs.(map[string]any); ok {
		if _, has := m["timestamp"]; has {
			return plugin.ExecutorResult{Output: "ok"}, nil
		}
	}
	return plugin.ExecutorResult{Output: ec.Inputs}, nil
}

type fakeOutput struct{}

func (fakeOutput) Validate(*plugin.ExecutionContext) error { return nil }
func (fakeOutput) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	return plugin.ExecutorResult{Output: ec.Inputs}, nil
}

type fakeIfElse struct{}

func (fakeIfElse) Validate(*plugin.ExecutionContext) error { return nil }
func (fakeIfElse) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	field, _ := ec.Node.Data["field"].(string)
	threshold, _ := ec.Node.Data["value"].(float64)
	m, _ := ec.Inputs.(map[string]any)
	var v float64
	switch x := m[field].(type) {
	case float64:
		v = x
	case int:
		v = float64(x)
	}
	handle := model.Port("false")
	result := v > threshold
	if result {
		handle = model.Port("true")
	}
	return plugin.ExecutorResult{Output: result, ActiveHandles: []model.Port{handle}}, nil
}

type fakeMerge struct{}

func (fakeMerge) Validate(*plugin.ExecutionContext) error { return nil }
func (fakeMerge) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	return plugin.ExecutorResult{Output: ec.Inputs}, nil
}

type fakeDelay struct{}

func (fakeDelay) Validate(*plugin.ExecutionContext) error { return nil }
func (fakeDelay) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	ms, _ := ec.Node.Data["ms"].(int)
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return plugin.ExecutorResult{Output: "done"}, nil
	case <-ec.Ctx.Done():
		return plugin.ExecutorResult{}, model.NewError(model.ErrCancelled, "Execution aborted")
	}
}

func init() {
	plugin.Register(model.NodeManualTrigger, func() plugin.Executor { return fakeTrigger{} })
	plugin.Register(model.NodeCodeExecutor, func() plugin.Executor { return fakeCode{} })
	plugin.Register(model.NodeOutput, func() plugin.Executor { return fakeOutput{} })
	plugin.Register(model.NodeIfElse, func() plugin.Executor { return fakeIfElse{} })
	plugin.Register(model.NodeMerge, func() plugin.Executor { return fakeMerge{} })
	plugin.Register(model.NodeDelay, func() plugin.Executor { return fakeDelay{} })
}

func edge(id, src, tgt string, handle model.Port) model.Edge {
	return model.Edge{ID: model.ID(id), Source: model.ID(src), Target: model.ID(tgt), SourceHandle: handle, TargetHandle: model.PortMain}
}

// S1 — Linear flow.
func TestLinearFlow(t *testing.T) {
	wf := model.Workflow{
		ID: "wf1",
		Nodes: []model.Node{
			{ID: "T", Type: model.NodeManualTrigger},
			{ID: "C", Type: model.NodeCodeExecutor},
			{ID: "O", Type: model.NodeOutput},
		},
		Edges: []model.Edge{
			edge("e1", "T", "C", model.PortMain),
			edge("e2", "C", "O", model.PortMain),
		},
	}

	eng := New(plugin.Deps{})
	state, err := eng.Run(context.Background(), wf)
	require.NoError(t, err)

	require.Equal(t, model.StatusSuccess, state.Status("T"))
	require.Equal(t, model.StatusSuccess, state.Status("C"))
	require.Equal(t, model.StatusSuccess, state.Status("O"))
	require.Equal(t, "ok", state.GetResult("C").Output)
	require.Equal(t, "ok", state.GetResult("O").Output)

	tOutput, ok := state.GetResult("T").Output.(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, tOutput["triggered"])
}

// S2 — IfElse branching.
func TestIfElseBranching(t *testing.T) {
	wf := model.Workflow{
		ID: "wf2",
		Nodes: []model.Node{
			{ID: "T", Type: model.NodeManualTrigger},
			{ID: "C", Type: model.NodeCodeExecutor, Data: map[string]any{"emit": map[string]any{"value": 42.0}}},
			{ID: "I", Type: model.NodeIfElse, Data: map[string]any{"field": "value", "operator": "greaterThan", "value": 10.0}},
			{ID: "A", Type: model.NodeOutput},
			{ID: "B", Type: model.NodeOutput},
		},
		Edges: []model.Edge{
			edge("e1", "T", "C", model.PortMain),
			edge("e2", "C", "I", model.PortMain),
			edge("e3", "I", "A", model.Port("true")),
			edge("e4", "I", "B", model.Port("false")),
		},
	}

	eng := New(plugin.Deps{})
	state, err := eng.Run(context.Background(), wf)
	require.NoError(t, err)

	require.Equal(t, model.StatusSuccess, state.Status("I"))
	require.Equal(t, model.StatusSuccess, state.Status("A"))
	require.Equal(t, model.StatusPending, state.Status("B"))
}

// S3 — Merge wait-all.
func TestMergeWaitAll(t *testing.T) {
	wf := model.Workflow{
		ID: "wf3",
		Nodes: []model.Node{
			{ID: "T", Type: model.NodeManualTrigger},
			{ID: "X", Type: model.NodeCodeExecutor, Data: map[string]any{"delayMs": 80, "emit": map[string]any{"a": 1}}},
			{ID: "Y", Type: model.NodeCodeExecutor, Data: map[string]any{"delayMs": 160, "emit": map[string]any{"b": 2}}},
			{ID: "M", Type: model.NodeMerge, Data: map[string]any{"mergeStrategy": "object"}},
			{ID: "O", Type: model.NodeOutput},
		},
		Edges: []model.Edge{
			edge("e1", "T", "X", model.PortMain),
			edge("e2", "T", "Y", model.PortMain),
			edge("e3", "X", "M", model.PortMain),
			edge("e4", "Y", "M", model.PortMain),
			edge("e5", "M", "O", model.PortMain),
		},
	}

	eng := New(plugin.Deps{})
	state, err := eng.Run(context.Background(), wf)
	require.NoError(t, err)

	require.Equal(t, model.StatusSuccess, state.Status("M"))
	out, ok := state.GetResult("M").Output.(map[string]any)
	require.True(t, ok)
	require.Equal(t, map[string]any{"a": 1}, out["X"])
	require.Equal(t, map[string]any{"b": 2}, out["Y"])
}

// S4 — Cancellation.
func TestCancellation(t *testing.T) {
	wf := model.Workflow{
		ID: "wf4",
		Nodes: []model.Node{
			{ID: "T", Type: model.NodeManualTrigger},
			{ID: "D", Type: model.NodeDelay, Data: map[string]any{"ms": 5000}},
			{ID: "O", Type: model.NodeOutput},
		},
		Edges: []model.Edge{
			edge("e1", "T", "D", model.PortMain),
			edge("e2", "D", "O", model.PortMain),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	eng := New(plugin.Deps{})
	start := time.Now()
	state, err := eng.Run(ctx, wf)
	elapsed := time.Since(start)

	require.Error(t, err)
	require.Less(t, elapsed, 500*time.Millisecond)
	require.False(t, state.IsRunning())
	require.False(t, state.AnyRunning())

	res := state.GetResult("D")
	require.Equal(t, model.StatusError, res.Status)
	require.EqualError(t, res.Err, "Cancelled: Execution aborted")
	require.Equal(t, model.StatusPending, state.Status("O"))
}
