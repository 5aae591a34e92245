// Package files implements files:load, a bonus node type inherited from
// the teacher (outside the spec's closed NodeType set, kept as an extra
// capability rather than a required node family) that reads a
// previously uploaded attachment out of the FileStore and attaches its
// bytes/metadata to the node's output. Adapted from the teacher's
// nodes/files/load.go onto the new Executor interface.
package files

import (
	"encoding/base64"
	"path/filepath"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

const TypeLoad model.NodeType = "files:load"

type Load struct{}

func (Load) Validate(ec *plugin.ExecutionContext) error {
	if ec.Services.Files == nil {
		return model.NewError(model.ErrServiceUnavailable, "files store not configured")
	}
	return nil
}

func (Load) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	idField := "file_id"
	if v, ok := ec.Node.Data["file_id_field"].(string); ok && v != "" {
		idField = v
	}
	prefix := "file_"
	if v, ok := ec.Node.Data["out_prefix"].(string); ok && v != "" {
		prefix = v
	}

	m, _ := ec.Inputs.(map[string]any)
	fileID, _ := m[idField].(string)
	if fileID == "" {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "missing "+idField)
	}

	name, mediaType, data, err := ec.Services.Files.Get(ec.Ctx, string(ec.Workflow.ID), fileID)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrStorageFailure, err.Error())
	}

	out := map[string]any{}
	for k, v := range m {
		out[k] = v
	}
	out[prefix+"name"] = name
	out[prefix+"base"] = filepath.Base(name)
	out[prefix+"ext"] = filepath.Ext(name)
	out[prefix+"media_type"] = mediaType
	out[prefix+"b64"] = base64.StdEncoding.EncodeToString(data)
	return plugin.ExecutorResult{Output: out}, nil
}

func init() {
	plugin.Register(TypeLoad, func() plugin.Executor { return Load{} })
}
