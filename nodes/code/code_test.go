package code

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

func ctxFor(code string, inputs any) *plugin.ExecutionContext {
	return &plugin.ExecutionContext{
		Ctx:    context.Background(),
		NodeID: "n1",
		Node:   model.Node{ID: "n1", Type: model.NodeCodeExecutor, Data: map[string]any{"code": code}},
		Inputs: inputs,
		Log:    func(string, model.LogLevel) {},
	}
}

func TestValidateRejectsEmptyCode(t *testing.T) {
	err := CodeExecutor{}.Validate(ctxFor("", nil))
	require.Error(t, err)
}

func TestValidateRejectsMalformedCode(t *testing.T) {
	err := CodeExecutor{}.Validate(ctxFor("1 +", nil))
	require.Error(t, err)
}

func TestExecuteArithmetic(t *testing.T) {
	res, err := CodeExecutor{}.Execute(ctxFor("2 + 3 * 4", nil))
	require.NoError(t, err)
	require.Equal(t, float64(14), res.Output)
}

func TestExecuteFieldAccessOnInputs(t *testing.T) {
	inputs := map[string]any{"user": map[string]any{"name": "ada"}}
	res, err := CodeExecutor{}.Execute(ctxFor("inputs.user.name", inputs))
	require.NoError(t, err)
	require.Equal(t, "ada", res.Output)
}

func TestExecuteIndexOnArray(t *testing.T) {
	inputs := map[string]any{"items": []any{"a", "b", "c"}}
	res, err := CodeExecutor{}.Execute(ctxFor("inputs.items[1]", inputs))
	require.NoError(t, err)
	require.Equal(t, "b", res.Output)
}

func TestExecuteAssignmentUsesLastStatement(t *testing.T) {
	res, err := CodeExecutor{}.Execute(ctxFor("x = 5\ny = x * 2\ny", nil))
	require.NoError(t, err)
	require.Equal(t, float64(10), res.Output)
}

func TestExecuteExplicitOutputWins(t *testing.T) {
	res, err := CodeExecutor{}.Execute(ctxFor("output = 1\n99", nil))
	require.NoError(t, err)
	require.Equal(t, float64(1), res.Output)
}

func TestExecuteStringConcatenation(t *testing.T) {
	res, err := CodeExecutor{}.Execute(ctxFor(`"hello " + "world"`, nil))
	require.NoError(t, err)
	require.Equal(t, "hello world", res.Output)
}

func TestExecuteComparisonAndLogical(t *testing.T) {
	res, err := CodeExecutor{}.Execute(ctxFor("1 < 2 && 3 >= 3", nil))
	require.NoError(t, err)
	require.Equal(t, true, res.Output)
}

func TestExecuteBuiltinLen(t *testing.T) {
	inputs := map[string]any{"items": []any{1, 2, 3}}
	res, err := CodeExecutor{}.Execute(ctxFor("len(inputs.items)", inputs))
	require.NoError(t, err)
	require.Equal(t, float64(3), res.Output)
}

func TestExecuteDivisionByZeroErrors(t *testing.T) {
	_, err := CodeExecutor{}.Execute(ctxFor("1 / 0", nil))
	require.Error(t, err)
}

func TestExecuteUndefinedVariableErrors(t *testing.T) {
	_, err := CodeExecutor{}.Execute(ctxFor("missing + 1", nil))
	require.Error(t, err)
}

func TestExecuteUnaryNegationAndNot(t *testing.T) {
	res, err := CodeExecutor{}.Execute(ctxFor("!(false) && -5 == -5", nil))
	require.NoError(t, err)
	require.Equal(t, true, res.Output)
}

// The language deliberately has no return keyword and no ternary
// operator (see the package doc in code.go); code written against a
// richer scripting surface, e.g. `return inputs.timestamp ? 'ok' :
// 'no'`, fails to parse here rather than silently misinterpreting it.
func TestValidateRejectsReturnAndTernary(t *testing.T) {
	err := CodeExecutor{}.Validate(ctxFor("return inputs.timestamp ? 'ok' : 'no'", nil))
	require.Error(t, err)
}

