package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowloom/rivulet/engine"
	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type memBus struct{}

func (memBus) Emit(context.Context, string, map[string]any) error { return nil }

type memState struct{}

func (memState) SaveNodeState(context.Context, string, model.ID, map[string]any) error { return nil }
func (memState) LoadNodeState(context.Context, string, model.ID) (map[string]any, error) {
	return map[string]any{}, nil
}

type fixedSource struct{ wfs []model.Workflow }

func (f fixedSource) List() []model.Workflow { return f.wfs }

func everyMinuteExpr() string { return "* * * * *" }

func TestTickFiresFirstMatchingTrigger(t *testing.T) {
	now := time.Now()
	wf := model.Workflow{
		ID: "wf1",
		Nodes: []model.Node{
			{ID: "trig", Type: model.NodeScheduleTrigger, Data: map[string]any{
				"enabled": true, "cronExpression": everyMinuteExpr(),
			}},
			{ID: "end", Type: model.NodeEnd, Data: map[string]any{}},
		},
		Edges: []model.Edge{{ID: "e1", Source: "trig", Target: "end"}},
	}

	eng := engine.New(plugin.Deps{State: memState{}, Bus: memBus{}})
	sched := New(fixedSource{[]model.Workflow{wf}}, eng)

	var mu sync.Mutex
	var firedNode model.ID
	sched.OnFire(func(_ model.Workflow, nodeID model.ID) {
		mu.Lock()
		firedNode = nodeID
		mu.Unlock()
	})

	ok := sched.scanAndFire(context.Background(), now)
	require.True(t, ok)
	mu.Lock()
	require.Equal(t, model.ID("trig"), firedNode)
	mu.Unlock()
}

func TestTickSkipsDisabledTrigger(t *testing.T) {
	now := time.Now()
	wf := model.Workflow{
		ID: "wf1",
		Nodes: []model.Node{
			{ID: "trig", Type: model.NodeScheduleTrigger, Data: map[string]any{
				"enabled": false, "cronExpression": everyMinuteExpr(),
			}},
		},
	}
	eng := engine.New(plugin.Deps{State: memState{}, Bus: memBus{}})
	sched := New(fixedSource{[]model.Workflow{wf}}, eng)

	ok := sched.scanAndFire(context.Background(), now)
	require.False(t, ok)
}

func TestMinuteAdvancesUnconditionally(t *testing.T) {
	eng := engine.New(plugin.Deps{State: memState{}, Bus: memBus{}})
	sched := New(fixedSource{nil}, eng)

	now := time.Now()
	sched.tick(context.Background())
	sched.mu.Lock()
	first := sched.lastMinute
	sched.mu.Unlock()
	require.Equal(t, now.Unix()/60, first)

	sched.tick(context.Background())
	sched.mu.Lock()
	second := sched.lastMinute
	sched.mu.Unlock()
	require.Equal(t, first, second)
}
