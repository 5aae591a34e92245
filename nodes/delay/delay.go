// Package delay implements the delay node: a pure pass-through that
// waits before forwarding its inputs, honoring cancellation at its one
// suspension point the way §5 requires for every node that can block.
package delay

import (
	"time"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

const defaultDelayMs = 1000

type Delay struct{}

func (Delay) Validate(*plugin.ExecutionContext) error { return nil }

func (Delay) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	ms := defaultDelayMs
	if v, ok := ec.Node.Data["delay"].(int); ok {
		ms = v
	} else if v, ok := ec.Node.Data["delay"].(float64); ok {
		ms = int(v)
	}

	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return plugin.ExecutorResult{Output: ec.Inputs}, nil
	case <-ec.Ctx.Done():
		return plugin.ExecutorResult{}, model.NewError(model.ErrCancelled, "Execution aborted")
	}
}

func init() {
	plugin.Register(model.NodeDelay, func() plugin.Executor { return Delay{} })
}
