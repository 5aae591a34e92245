// Package merge implements the merge node's four synchronization
// strategies (object, array, concat, first — §4.4/§5). The engine
// already enforces *when* a merge node runs (wait-all for object/array/
// concat, first-success-wins for first); this package only shapes the
// gathered inputs into the strategy's output value. Grounded on the
// teacher's nodes/merge/merge.go Concat type, generalized from a single
// pass-through strategy into the full set.
package merge

import (
	"sort"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type Merge struct{}

func (Merge) Validate(ec *plugin.ExecutionContext) error {
	switch strategy(ec.Node) {
	case "object", "array", "concat", "first":
		return nil
	default:
		return model.NewError(model.ErrValidationFailed, "unknown mergeStrategy: "+strategy(ec.Node))
	}
}

func (Merge) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	switch strategy(ec.Node) {
	case "first":
		// The engine schedules a "first" merge the instant any one upstream
		// succeeds; there is exactly one value to report, already unwrapped.
		return plugin.ExecutorResult{Output: ec.Inputs}, nil
	case "array":
		return plugin.ExecutorResult{Output: toOrderedSlice(gatherBySource(ec))}, nil
	case "concat":
		return plugin.ExecutorResult{Output: concatValues(toOrderedSlice(gatherBySource(ec)))}, nil
	default: // "object"
		return plugin.ExecutorResult{Output: gatherBySource(ec)}, nil
	}
}

func strategy(node model.Node) string {
	if node.Data != nil {
		if v, ok := node.Data["mergeStrategy"].(string); ok && v != "" {
			return v
		}
	}
	return "object"
}

// gatherBySource recovers {sourceId -> value} for the node's active
// inputs. When the engine's input-gathering rule unwrapped a single
// active edge to its bare value, the source id is re-derived from the
// workflow's own edge list rather than the engine special-casing merge
// nodes out of that rule.
func gatherBySource(ec *plugin.ExecutionContext) map[string]any {
	if m, ok := ec.Inputs.(map[string]any); ok {
		return m
	}
	for _, e := range ec.Workflow.Edges {
		if e.Target == ec.NodeID {
			return map[string]any{string(e.Source): ec.Inputs}
		}
	}
	return map[string]any{}
}

func toOrderedSlice(bySource map[string]any) []any {
	keys := make([]string, 0, len(bySource))
	for k := range bySource {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, bySource[k])
	}
	return out
}

// concatValues flattens each gathered value one level: a value that is
// itself a slice contributes its elements, anything else contributes
// itself.
func concatValues(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if sub, ok := v.([]any); ok {
			out = append(out, sub...)
			continue
		}
		out = append(out, v)
	}
	return out
}

func init() {
	plugin.Register(model.NodeMerge, func() plugin.Executor { return Merge{} })
}
