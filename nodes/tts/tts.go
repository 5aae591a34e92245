// Package tts implements the textToSpeech node (§4.4): resolves input
// text, synthesizes audio through plugin.Speech, and persists the
// result by reference through the ArtifactStore, the same
// persist-then-reference pattern nodes/python uses for non-trivial
// results. New package — the teacher had no audio synthesis node.
package tts

import (
	"strings"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type TextToSpeech struct{}

func (TextToSpeech) Validate(ec *plugin.ExecutionContext) error {
	if ec.Services.Speech == nil {
		return model.NewError(model.ErrServiceUnavailable, "no speech service configured")
	}
	return nil
}

func (TextToSpeech) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	text := resolveText(ec)
	if strings.TrimSpace(text) == "" {
		return plugin.ExecutorResult{}, model.NewError(model.ErrInvalidInput, "MissingInput: no text provided")
	}

	opts := plugin.SpeechOptions{}
	if v, ok := ec.Node.Data["voice"].(string); ok {
		opts.Voice = v
	}
	if v, ok := ec.Node.Data["rate"].(float64); ok {
		opts.Rate = v
	}
	if v, ok := ec.Node.Data["pitch"].(float64); ok {
		opts.Pitch = v
	}

	audio, mimeType, err := ec.Services.Speech.Synthesize(ec.Ctx, text, opts)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrExternalError, err.Error())
	}

	if ec.Services.Artifacts == nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrServiceUnavailable, "no artifact store configured")
	}
	artifact, err := ec.Services.Artifacts.Save(ec.Ctx, audio, "speech", mimeType)
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrStorageFailure, err.Error())
	}

	return plugin.ExecutorResult{Output: map[string]any{"artifactId": artifact.ID, "type": "audio/wav"}}, nil
}

// resolveText follows §4.4's lookup order: bare string input, then
// inputs.text, then nodeData.text.
func resolveText(ec *plugin.ExecutionContext) string {
	if s, ok := ec.Inputs.(string); ok {
		return s
	}
	if m, ok := ec.Inputs.(map[string]any); ok {
		if s, ok := m["text"].(string); ok {
			return s
		}
	}
	if s, ok := ec.Node.Data["text"].(string); ok {
		return s
	}
	return ""
}

func init() {
	plugin.Register(model.NodeTextToSpeech, func() plugin.Executor { return TextToSpeech{} })
}
