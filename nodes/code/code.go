// Package code implements the codeExecutor node: a small expression
// language sandboxed to pure data manipulation over `inputs`, with no
// access to the network, filesystem, or process table (Design Note §9
// rules out embedding a general scripting runtime for exactly that
// reason). Grounded on generalizing the teacher's nodes/logic/if.go
// template mini-language into a real recursive-descent grammar; the
// evaluator itself lives in eval.go.
//
// The language has no return keyword, no ternary operator, and no
// if/else statement: a program's value is simply its last statement's
// value (or an explicit `output = ...` assignment), and && / || always
// evaluate to a bool rather than either operand's value, so they cannot
// stand in for `cond ? a : b` either. Conditional branching belongs to
// the ifElse node type: a workflow authored against a richer scripting
// surface that writes `return cond ? a : b` inline needs restructuring
// into an ifElse node feeding two codeExecutor branches before it will
// run here — that restriction is the sandbox's tradeoff.
package code

import (
	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type CodeExecutor struct{}

func (CodeExecutor) Validate(ec *plugin.ExecutionContext) error {
	src, ok := ec.Node.Data["code"].(string)
	if !ok || src == "" {
		return model.NewError(model.ErrValidationFailed, "codeExecutor requires non-empty code")
	}
	if _, err := parseProgram(src); err != nil {
		return model.NewError(model.ErrValidationFailed, "code parse error: "+err.Error())
	}
	return nil
}

func (CodeExecutor) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	src, _ := ec.Node.Data["code"].(string)
	prog, err := parseProgram(src)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrValidationFailed, "code parse error: "+err.Error())
	}

	env := map[string]any{"inputs": ec.Inputs}
	result, err := prog.run(env)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "code execution error: "+err.Error())
	}
	return plugin.ExecutorResult{Output: result}, nil
}

func init() {
	plugin.Register(model.NodeCodeExecutor, func() plugin.Executor { return CodeExecutor{} })
}
