// Package transform implements the transform node's four transformType
// variants (json-parse, json-stringify, extract, template — §4.4).
// template generalizes the teacher's nodes/logic/if.go template
// rendering (text/template over a bytesBuffer) from a boolean-returning
// expression into a general `{{name}}` substitution; json-parse/
// json-stringify reuse encoding/json the way nodes/http/http_get.go
// already decodes response bodies.
package transform

import (
	"bytes"
	"encoding/json"
	"regexp"
	"text/template"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

// bareKey matches the spec's mustache-flavored `{{name}}` substitution
// syntax, which text/template itself would read as a zero-arg function
// call rather than a field lookup; renderTemplate rewrites each match to
// `{{.name}}` before handing the string to text/template.
var bareKey = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

type Transform struct{}

func (Transform) Validate(ec *plugin.ExecutionContext) error {
	if _, ok := ec.Node.Data["transformType"].(string); !ok {
		return model.NewError(model.ErrValidationFailed, "transform requires a transformType")
	}
	return nil
}

func (Transform) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	kind, _ := ec.Node.Data["transformType"].(string)
	switch kind {
	case "json-parse":
		return jsonParse(ec)
	case "json-stringify":
		return jsonStringify(ec)
	case "extract":
		return extract(ec)
	case "template":
		return renderTemplate(ec)
	default:
		// Unknown transformType: pass through unchanged.
		return plugin.ExecutorResult{Output: ec.Inputs}, nil
	}
}

func jsonParse(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	s, ok := ec.Inputs.(string)
	if !ok {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "json-parse requires a string input")
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "invalid json: "+err.Error())
	}
	return plugin.ExecutorResult{Output: v}, nil
}

func jsonStringify(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	b, err := json.Marshal(ec.Inputs)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "cannot stringify input: "+err.Error())
	}
	return plugin.ExecutorResult{Output: string(b)}, nil
}

func extract(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	key, _ := ec.Node.Data["key"].(string)
	m, ok := ec.Inputs.(map[string]any)
	if !ok {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "extract requires an object input")
	}
	return plugin.ExecutorResult{Output: m[key]}, nil
}

func renderTemplate(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	tpl, _ := ec.Node.Data["template"].(string)
	data, _ := ec.Inputs.(map[string]any)

	rewritten := bareKey.ReplaceAllString(tpl, "{{.$1}}")
	t, err := template.New("transform").Option("missingkey=zero").Parse(rewritten)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "bad template: "+err.Error())
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "template render failed: "+err.Error())
	}
	return plugin.ExecutorResult{Output: buf.String()}, nil
}

func init() {
	plugin.Register(model.NodeTransform, func() plugin.Executor { return Transform{} })
}
