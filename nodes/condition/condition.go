// Package condition implements the ifElse node: a two-way conditional
// router driven by a single operator comparison (§4.4). Generalizes the
// teacher's nodes/logic/if.go, which only supported a Go-template
// expression rendering to the literal string "true"/"false"; this
// reworks that into the operator-table comparison the spec names
// (equals/notEquals/contains/greaterThan/lessThan/regex) while keeping
// the teacher's "route by emitting a named handle" idea.
package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type Condition struct{}

func (Condition) Validate(ec *plugin.ExecutionContext) error {
	if _, ok := ec.Node.Data["field"].(string); !ok {
		return model.NewError(model.ErrValidationFailed, "ifElse requires a field name")
	}
	if _, ok := ec.Node.Data["operator"].(string); !ok {
		return model.NewError(model.ErrValidationFailed, "ifElse requires an operator")
	}
	return nil
}

func (Condition) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	field, _ := ec.Node.Data["field"].(string)
	op, _ := ec.Node.Data["operator"].(string)
	threshold := ec.Node.Data["value"]

	result, err := evaluate(op, fieldValue(ec.Inputs, field), threshold)
	if err != nil {
		// §4.4: evaluation errors yield false and log a warning; the node
		// itself never fails.
		ec.Log("ifElse evaluation error: "+err.Error(), model.LogError)
		result = false
	}

	handle := model.Port(string(ec.NodeID) + "-false")
	if result {
		handle = model.Port(string(ec.NodeID) + "-true")
	}
	return plugin.ExecutorResult{Output: result, ActiveHandles: []model.Port{handle}}, nil
}

// fieldValue resolves inputs[field]; a map is the normal shape once the
// engine's input-gathering rule has merged upstream data, but a bare
// scalar input with field == "" (or "value") refers to the input itself.
func fieldValue(inputs any, field string) any {
	if m, ok := inputs.(map[string]any); ok {
		return m[field]
	}
	if field == "" || field == "value" {
		return inputs
	}
	return nil
}

func evaluate(op string, left, right any) (bool, error) {
	switch op {
	case "equals":
		return fmt.Sprint(left) == fmt.Sprint(right), nil
	case "notEquals":
		return fmt.Sprint(left) != fmt.Sprint(right), nil
	case "contains":
		return strings.Contains(fmt.Sprint(left), fmt.Sprint(right)), nil
	case "greaterThan":
		l, r, err := asNumbers(left, right)
		if err != nil {
			return false, err
		}
		return l > r, nil
	case "lessThan":
		l, r, err := asNumbers(left, right)
		if err != nil {
			return false, err
		}
		return l < r, nil
	case "regex":
		pattern, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("regex operator requires a string value")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(fmt.Sprint(left)), nil
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

func asNumbers(left, right any) (float64, float64, error) {
	l, err := toFloat(left)
	if err != nil {
		return 0, 0, err
	}
	r, err := toFloat(right)
	if err != nil {
		return 0, 0, err
	}
	return l, r, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}

func init() {
	plugin.Register(model.NodeIfElse, func() plugin.Executor { return Condition{} })
}
