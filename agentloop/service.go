// Package agentloop implements the C8 ToolCallingService: tool
// discovery, system-prompt assembly, and the ReAct text-protocol loop the
// aiAgent executor drives. Grounded on the tool-calling iteration shape
// in stephanoumenos-go-agent-framework's
// nodes/openai/middleware/tools.go (a bounded for-loop around one LLM
// call, accumulating messages, dispatching by tool name) — reworked from
// OpenAI's native function-calling onto the spec's own Thought/Action/
// Observation/Final Answer text wire format, since the loop here talks
// to ToolCallingService.Run, not directly to an OpenAI client.
package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

const defaultMaxIterations = 10

// Step is one entry in the trace the agent executor returns alongside
// its final response.
type Step struct {
	Type     string // thought | action | observation | answer
	Content  string
	ToolCall string
	Result   any
}

// Service drives one ReAct loop for one agent invocation.
type Service struct {
	LLM           plugin.WebLLM
	Engine        plugin.EngineReentry
	MaxIterations int
	Log           func(message string, level model.LogLevel)
}

// New builds a Service with the default iteration bound.
func New(llm plugin.WebLLM, engine plugin.EngineReentry, log func(string, model.LogLevel)) *Service {
	return &Service{LLM: llm, Engine: engine, MaxIterations: defaultMaxIterations, Log: log}
}

// Run executes the loop until a Final Answer, an unrecoverable LLM
// error, or MaxIterations. modelName is passed through to every chat
// call unmodified.
func (s *Service) Run(ctx context.Context, modelName, systemPrompt, userPrompt string, tools []Tool) (answer string, trace []Step, err error) {
	toolByName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		toolByName[t.Schema.Name] = t
	}

	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	var scratchpad strings.Builder
	lastThought := ""

	for i := 0; i < maxIter; i++ {
		messages := []plugin.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt + scratchpad.String()},
		}
		resp, chatErr := s.LLM.Chat(ctx, plugin.ChatRequest{Model: modelName, Messages: messages})
		if chatErr != nil {
			return "", trace, model.NewError(model.ErrExternalError, chatErr.Error())
		}

		reply := parseReply(resp.Content)

		if reply.thought != "" {
			lastThought = reply.thought
			s.log("Thought: " + reply.thought)
			scratchpad.WriteString("\nThought: " + reply.thought)
			// A thought that immediately precedes the final answer is folded
			// into the answer step rather than traced separately, so the
			// trace reads as one action per turn instead of two.
			if !reply.hasFinal {
				trace = append(trace, Step{Type: "thought", Content: reply.thought})
			}
		}

		if reply.hasFinal {
			trace = append(trace, Step{Type: "answer", Content: reply.finalAnswer})
			return reply.finalAnswer, trace, nil
		}

		if !reply.hasAction {
			// Neither directive recognized: feed the raw reply back so the
			// model sees its own malformed turn and can self-correct.
			scratchpad.WriteString("\nThought: " + resp.Content)
			continue
		}

		toolName := strings.TrimSpace(reply.action)
		scratchpad.WriteString("\nAction: " + toolName + "\nAction Input: " + reply.actionInput)
		trace = append(trace, Step{Type: "action", Content: reply.actionInput, ToolCall: toolName})

		parsedInput := parseActionInput(reply.actionInput)
		observation, dispatchErr := s.dispatch(ctx, toolByName, toolName, parsedInput)

		var obsText string
		if dispatchErr != nil {
			obsText = "Error: " + dispatchErr.Error()
		} else {
			obsText = serializeObservation(observation)
		}
		trace = append(trace, Step{Type: "observation", Content: obsText, Result: observation})
		s.log("Observation: " + obsText)
		scratchpad.WriteString("\nObservation: " + obsText)
	}

	s.log(fmt.Sprintf("agent reached the %d-iteration limit", maxIter))
	answer = "Max iterations reached. Last thought: " + lastThought
	trace = append(trace, Step{Type: "answer", Content: answer})
	return answer, trace, nil
}

func (s *Service) log(message string) {
	if s.Log != nil {
		s.Log(message, model.LogAction)
	}
}

func (s *Service) dispatch(ctx context.Context, byName map[string]Tool, name string, input any) (any, error) {
	t, ok := byName[name]
	if !ok {
		return nil, model.NewError(model.ErrInvalidInput, "unknown tool: "+name)
	}
	return s.Engine.ExecuteNode(ctx, t.NodeID, input)
}

// parseActionInput parses Action Input as strict JSON; on failure it
// falls back to wrapping the raw text, exactly as §4.8 requires.
func parseActionInput(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return map[string]any{"input": raw}
}

// serializeObservation turns a tool's result into the text appended
// after "Observation: ". An object carrying an artifactId is summarized
// rather than dumped as raw JSON (the blob itself never appears in the
// scratchpad).
func serializeObservation(v any) string {
	if m, ok := v.(map[string]any); ok {
		if id, ok := m["artifactId"]; ok {
			mimeType, _ := m["type"].(string)
			return fmt.Sprintf("Success. Artifact created: %v (type: %s)", id, mimeType)
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
