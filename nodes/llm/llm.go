// Package llm implements the llm node: a thin Executor that hands a
// chat request to whatever plugin.WebLLM backend is wired in
// (services/openai, services/ollama, a test stub). Replaces the
// teacher's nodes/llm (shared LLMNodeBase), nodes/ollama, and
// nodes/openai packages, which each built and sent their own HTTP
// request directly — that responsibility now lives behind the WebLLM
// interface so this executor stays backend-agnostic.
package llm

import (
	"fmt"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type LLM struct{}

func (LLM) Validate(ec *plugin.ExecutionContext) error {
	if ec.Services.WebLLM == nil {
		return model.NewError(model.ErrServiceUnavailable, "no WebLLM service configured")
	}
	return nil
}

func (LLM) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	messages := gatherMessages(ec.Inputs)

	modelID, _ := ec.Node.Data["modelId"].(string)
	temperature, _ := ec.Node.Data["temperature"].(float64)
	topP, _ := ec.Node.Data["top_p"].(float64)
	maxTokens := 0
	if v, ok := ec.Node.Data["maxTokens"].(float64); ok {
		maxTokens = int(v)
	}

	var apiKey string
	if ec.Node.Credentials != "" && ec.Services.Credentials != nil {
		apiKey, _ = ec.Services.Credentials.Get(ec.Node.Credentials)
	}

	resp, err := ec.Services.WebLLM.Chat(ec.Ctx, plugin.ChatRequest{
		Model:       modelID,
		Messages:    messages,
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		APIKey:      apiKey,
	})
	if err != nil {
		return plugin.ExecutorResult{}, model.NewError(model.ErrExternalError, err.Error())
	}

	return plugin.ExecutorResult{Output: map[string]any{
		"response": resp.Content,
		"model":    resp.Model,
		"usage": map[string]any{
			"promptTokens":     resp.PromptTokens,
			"completionTokens": resp.CompletionTokens,
			"totalTokens":      resp.TotalTokens,
		},
	}}, nil
}

// gatherMessages accepts either a plain string prompt or a message list
// (each entry a {role, content} map) per §4.4's "message list or plain
// string" input shape.
func gatherMessages(inputs any) []plugin.ChatMessage {
	switch v := inputs.(type) {
	case string:
		return []plugin.ChatMessage{{Role: "user", Content: v}}
	case []any:
		out := make([]plugin.ChatMessage, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			role, _ := m["role"].(string)
			if role == "" {
				role = "user"
			}
			out = append(out, plugin.ChatMessage{Role: role, Content: fmt.Sprint(m["content"])})
		}
		return out
	case map[string]any:
		if content, ok := v["prompt"].(string); ok {
			return []plugin.ChatMessage{{Role: "user", Content: content}}
		}
		return []plugin.ChatMessage{{Role: "user", Content: fmt.Sprint(v)}}
	default:
		return []plugin.ChatMessage{{Role: "user", Content: fmt.Sprint(v)}}
	}
}

func init() {
	plugin.Register(model.NodeLLM, func() plugin.Executor { return LLM{} })
}
