// Package image implements the imageGeneration node (§4.4): resolves a
// prompt, generates an image through plugin.ImageGen, and persists the
// result by reference through the ArtifactStore. New package — the
// teacher had no image generation node.
package image

import (
	"strings"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type ImageGeneration struct{}

func (ImageGeneration) Validate(ec *plugin.ExecutionContext) error {
	if ec.Services.ImageGen == nil {
		return model.NewError(model.ErrServiceUnavailable, "no image generation service configured")
	}
	return nil
}

func (ImageGeneration) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	prompt := resolvePrompt(ec)
	if strings.TrimSpace(prompt) == "" {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "MissingInput: no prompt provided")
	}

	opts := plugin.ImageOptions{}
	if v, ok := ec.Node.Data["width"].(float64); ok {
		opts.Width = int(v)
	}
	if v, ok := ec.Node.Data["height"].(float64); ok {
		opts.Height = int(v)
	}
	if v, ok := ec.Node.Data["style"].(string); ok {
		opts.Style = v
	}

	blob, mimeType, err := ec.Services.ImageGen.Generate(ec.Ctx, prompt, opts)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrExternalError, err.Error())
	}

	if ec.Services.Artifacts == nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrServiceUnavailable, "no artifact store configured")
	}
	artifact, err := ec.Services.Artifacts.Save(ec.Ctx, blob, "image", mimeType)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrStorageFailure, err.Error())
	}

	return plugin.ExecutorResult{Output: map[string]any{"artifactId": artifact.ID, "type": "image/png"}}, nil
}

func resolvePrompt(ec *plugin.ExecutionContext) string {
	if s, ok := ec.Inputs.(string); ok {
		return s
	}
	if m, ok := ec.Inputs.(map[string]any); ok {
		if s, ok := m["prompt"].(string); ok {
			return s
		}
	}
	if s, ok := ec.Node.Data["prompt"].(string); ok {
		return s
	}
	return ""
}

func init() {
	plugin.Register(model.NodeImageGeneration, func() plugin.Executor { return ImageGeneration{} })
}
