// Package openai implements plugin.WebLLM against the OpenAI chat
// completions API using the official community SDK client, replacing
// the teacher's nodes/openai/chatgpt.go raw net/http POST (which built
// the request body and Authorization header by hand) with
// github.com/sashabaranov/go-openai's typed client, the way
// stephanoumenos-go-agent-framework's nodes/openai package calls
// client.CreateChatCompletion through a thin interface boundary.
package openai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flowloom/rivulet/plugin"
)

const defaultModel = "gpt-3.5-turbo"

// Client adapts an *openai.Client to plugin.WebLLM.
type Client struct {
	sdk     *openai.Client
	baseURL string
}

// New builds a Client from an API key; baseURL overrides the default
// OpenAI endpoint when set (pointing at an OpenAI-compatible gateway).
func New(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{sdk: openai.NewClientWithConfig(cfg), baseURL: cfg.BaseURL}
}

func (c *Client) Chat(ctx context.Context, req plugin.ChatRequest) (plugin.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	sdk := c.sdk
	if req.APIKey != "" {
		// A node-scoped credential overrides the instance-wide key for
		// this one call, via a fresh client against the same base URL.
		cfg := openai.DefaultConfig(req.APIKey)
		cfg.BaseURL = c.baseURL
		sdk = openai.NewClientWithConfig(cfg)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	sdkReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
	}
	if req.MaxTokens > 0 {
		sdkReq.MaxTokens = req.MaxTokens
	}

	resp, err := sdk.CreateChatCompletion(ctx, sdkReq)
	if err != nil {
		return plugin.ChatResponse{}, err
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return plugin.ChatResponse{
		Content:          content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

var _ plugin.WebLLM = (*Client)(nil)
