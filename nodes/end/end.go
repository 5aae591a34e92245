// Package end implements the two terminal node types, output and end:
// both are pure pass-through sinks that exist to give a run a named
// final value, grounded on the same no-op shape as the teacher's
// nodes/echo/echo.go.
package end

import (
	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

// Output returns its gathered inputs unchanged; it is the conventional
// place to read a run's result from.
type Output struct{}

func (Output) Validate(*plugin.ExecutionContext) error { return nil }

func (Output) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	return plugin.ExecutorResult{Output: ec.Inputs}, nil
}

// End is the same pass-through behavior under the alternate node type
// some imported graphs use to mark graph exits explicitly.
type End struct{}

func (End) Validate(*plugin.ExecutionContext) error { return nil }

func (End) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	return plugin.ExecutorResult{Output: ec.Inputs}, nil
}

func init() {
	plugin.Register(model.NodeOutput, func() plugin.Executor { return Output{} })
	plugin.Register(model.NodeEnd, func() plugin.Executor { return End{} })
}
