// Package branch implements the switch node: N-way routing on the
// string-coerced value of a configured key, generalizing condition's
// two-way routing the same way the teacher never had to (n8n's switch
// node picks by index, not by named case match).
package branch

import (
	"fmt"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type Switch struct{}

func (Switch) Validate(ec *plugin.ExecutionContext) error {
	if _, ok := ec.Node.Data["switchKey"].(string); !ok {
		return model.NewError(model.ErrValidationFailed, "switch requires a switchKey")
	}
	return nil
}

func (Switch) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	key, _ := ec.Node.Data["switchKey"].(string)
	m, _ := ec.Inputs.(map[string]any)
	value := fmt.Sprint(m[key])

	cases, _ := ec.Node.Data["cases"].([]any)
	match := ""
	for _, c := range cases {
		if s := fmt.Sprint(c); s == value {
			match = s
			break
		}
	}
	if match == "" {
		if _, hasDefault := ec.Node.Data["default"]; hasDefault {
			match = "default"
		}
	}
	if match == "" {
		// No case matched and no default configured: every outgoing edge is
		// gated off, so downstream nodes stay pending this run.
		return plugin.ExecutorResult{Output: value, ActiveHandles: []model.Port{}}, nil
	}

	handle := model.Port(string(ec.NodeID) + "-case-" + match)
	return plugin.ExecutorResult{Output: value, ActiveHandles: []model.Port{handle}}, nil
}

func init() {
	plugin.Register(model.NodeSwitch, func() plugin.Executor { return Switch{} })
}
