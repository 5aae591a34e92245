// Package fs implements fs:write, a bonus node type inherited from the
// teacher (outside the spec's closed NodeType set) that writes a field
// of its input to a local file at a templated path. Adapted from the
// teacher's nodes/fs/write.go onto the new Executor interface, keeping
// its text/template path-rendering idiom.
package fs

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"text/template"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

const TypeWrite model.NodeType = "fs:write"

type Write struct{}

func (Write) Validate(ec *plugin.ExecutionContext) error {
	if s, ok := ec.Node.Data["path_template"].(string); !ok || s == "" {
		return model.NewError(model.ErrValidationFailed, "fs:write requires a path_template")
	}
	return nil
}

func (Write) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	pathTpl, _ := ec.Node.Data["path_template"].(string)
	field, _ := ec.Node.Data["field"].(string)
	if field == "" {
		field = "body"
	}
	mkdirs := true
	if b, ok := ec.Node.Data["mkdirs"].(bool); ok {
		mkdirs = b
	}

	m, _ := ec.Inputs.(map[string]any)

	tpl, err := template.New("path").Parse(pathTpl)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "bad path_template: "+err.Error())
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, m); err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "path render failed: "+err.Error())
	}
	path := buf.String()

	if mkdirs {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return plugin.ExecutorResult{}, model.NewError(model.ErrStorageFailure, err.Error())
		}
	}

	var data []byte
	switch v := m[field].(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, err.Error())
		}
		data = b
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrStorageFailure, err.Error())
	}

	out := map[string]any{}
	for k, v := range m {
		out[k] = v
	}
	out["written_path"] = path
	return plugin.ExecutorResult{Output: out}, nil
}

func init() {
	plugin.Register(TypeWrite, func() plugin.Executor { return Write{} })
}
