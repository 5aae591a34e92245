// Package start implements the two trigger node types that may open a
// run: manualTrigger (fired directly by a run request) and
// scheduleTrigger (fired by the cron-driven scheduler). Both are
// grounded on the teacher's nodes/echo/echo.go shape — a no-op pass
// that stamps a little metadata onto its output — since the teacher had
// no trigger concept of its own (n8n workflows start implicitly at
// whichever node has no incoming connection).
package start

import (
	"time"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

// ManualTrigger has nothing to validate and nothing to wait on; its
// output just records that the run started and when.
type ManualTrigger struct{}

func (ManualTrigger) Validate(*plugin.ExecutionContext) error { return nil }

func (ManualTrigger) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	return plugin.ExecutorResult{Output: map[string]any{
		"triggered": true,
		"timestamp": time.Now().Unix(),
	}}, nil
}

// ScheduleTrigger is the node a run carries when the scheduler fires it.
// Its own Execute is identical to ManualTrigger's — the schedule match
// itself happens in the scheduler, before the engine ever sees the node
// — but it reports which cron expression fired it so downstream nodes
// (and the run log) can tell a scheduled run from a manual one.
type ScheduleTrigger struct{}

func (ScheduleTrigger) Validate(ec *plugin.ExecutionContext) error {
	if _, ok := ec.Node.Data["cronExpression"].(string); !ok {
		return model.NewError(model.ErrValidationFailed, "scheduleTrigger requires a cronExpression string")
	}
	return nil
}

func (ScheduleTrigger) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	cronExpr, _ := ec.Node.Data["cronExpression"].(string)
	return plugin.ExecutorResult{Output: map[string]any{
		"triggered": true,
		"timestamp": time.Now().Unix(),
		"cron":      cronExpr,
	}}, nil
}

// Start is a bare entry marker some imported graphs use instead of a
// trigger node; it has no inputs by construction (it must have zero
// incoming edges to ever run) and passes nothing but its own presence
// downstream.
type Start struct{}

func (Start) Validate(*plugin.ExecutionContext) error { return nil }

func (Start) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	return plugin.ExecutorResult{Output: map[string]any{"started": true}}, nil
}

func init() {
	plugin.Register(model.NodeManualTrigger, func() plugin.Executor { return ManualTrigger{} })
	plugin.Register(model.NodeScheduleTrigger, func() plugin.Executor { return ScheduleTrigger{} })
	plugin.Register(model.NodeStart, func() plugin.Executor { return Start{} })
}
