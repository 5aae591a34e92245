// Package agent implements the aiAgent node (§4.7/§4.8): it discovers
// which sibling nodes are wired in as tools, builds the system prompt,
// and drives the ReAct loop through agentloop.Service, forwarding tool
// calls back through the engine's re-entrant ExecuteNode. New package —
// the teacher had no agent/tool-calling concept at all.
package agent

import (
	"encoding/json"
	"fmt"

	"github.com/flowloom/rivulet/agentloop"
	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

type Agent struct{}

func (Agent) Validate(ec *plugin.ExecutionContext) error {
	if ec.Services.WebLLM == nil {
		return model.NewError(model.ErrServiceUnavailable, "no WebLLM service configured")
	}
	if ec.Services.Engine == nil {
		return model.NewError(model.ErrServiceUnavailable, "no engine re-entry configured")
	}
	return nil
}

func (Agent) Execute(ec *plugin.ExecutionContext) (plugin.ExecutorResult, error) {
	tools := agentloop.DiscoverTools(ec.Workflow, ec.NodeID)
	systemPrompt := agentloop.BuildSystemPrompt(tools)
	if extra, ok := ec.Node.Data["systemPrompt"].(string); ok && extra != "" {
		systemPrompt = extra + "\n\n" + systemPrompt
	}

	userPrompt := resolvePrompt(ec.Inputs)
	modelID, _ := ec.Node.Data["modelId"].(string)

	svc := agentloop.New(ec.Services.WebLLM, ec.Services.Engine, ec.Log)
	if v, ok := ec.Node.Data["maxIterations"].(float64); ok && v > 0 {
		svc.MaxIterations = int(v)
	}

	answer, trace, err := svc.Run(ec.Ctx, modelID, systemPrompt, userPrompt, tools)
	if err != nil {
		return plugin.ExecutorResult{}, err
	}

	return plugin.ExecutorResult{Output: map[string]any{
		"response": answer,
		"trace":    traceToOutput(trace),
	}}, nil
}

func resolvePrompt(inputs any) string {
	switch v := inputs.(type) {
	case string:
		return v
	case map[string]any:
		if p, ok := v["prompt"].(string); ok {
			return p
		}
		b, _ := json.Marshal(v)
		return string(b)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func traceToOutput(trace []agentloop.Step) []map[string]any {
	out := make([]map[string]any, len(trace))
	for i, s := range trace {
		out[i] = map[string]any{
			"type":     s.Type,
			"content":  s.Content,
			"toolCall": s.ToolCall,
			"result":   s.Result,
		}
	}
	return out
}

func init() {
	plugin.Register(model.NodeAIAgent, func() plugin.Executor { return Agent{} })
}
