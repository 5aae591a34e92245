// Package python implements the python node: a thin Executor over
// plugin.PythonRunner (services/python), replacing the teacher's
// nodes/python/pyexec.go direct os/exec.CommandContext call against a
// FileStore-fetched script file. Scalar results pass through unchanged;
// non-trivial object/array results are persisted to the ArtifactStore
// and returned by reference (§4.4), or returned inline when no
// ArtifactStore is wired, matching the same by-reference
// pattern textToSpeech/imageGeneration use for their binary outputs.
package python

import (
	"encoding/json"
	"time"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

const defaultTimeout = 30 * time.Second

type Python struct{}

func (Python) Validate(ec *plugin.ExecutionContext) error {
	if ec.Services.Python == nil {
		return model.NewError(model.ErrServiceUnavailable, "no python runner configured")
	}
	if code, ok := ec.Node.Data["code"].(string); !ok || code == "" {
		return model.NewError(model.ErrValidationFailed, "python requires non-empty code")
	}
	return nil
}

func (Python) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	code, _ := ec.Node.Data["code"].(string)
	timeout := defaultTimeout
	if ec.Node.Timeout > 0 {
		timeout = ec.Node.Timeout
	}

	result, err := ec.Services.Python.Run(ec.Ctx, code, ec.Inputs, timeout)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrExternalError, err.Error())
	}

	if !isTrivial(result) {
		if ec.Services.Artifacts == nil {
			return plugin.ExecutorResult{Output: result}, nil
		}
		raw, err := json.Marshal(result)
		if err != nil {
			return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "cannot serialize python result: "+err.Error())
		}
		artifact, err := ec.Services.Artifacts.Save(ec.Ctx, raw, "python-result", "application/json")
		if err != nil {
			return plugin.ExecutorResult{}, model.NewError(model.ErrStorageFailure, err.Error())
		}
		return plugin.ExecutorResult{Output: map[string]any{"artifactId": artifact.ID, "type": "json"}}, nil
	}

	return plugin.ExecutorResult{Output: result}, nil
}

// isTrivial reports whether v is a scalar simple enough to return
// inline rather than persist as an artifact.
func isTrivial(v any) bool {
	switch v.(type) {
	case nil, bool, float64, string:
		return true
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

func init() {
	plugin.Register(model.NodePython, func() plugin.Executor { return Python{} })
}
