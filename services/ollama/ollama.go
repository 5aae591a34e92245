// Package ollama implements plugin.WebLLM against a local Ollama
// server's /api/chat endpoint, adapted from the teacher's
// nodes/ollama/ollama.go (raw net/http POST to /api/generate with a
// single-prompt body) onto the chat-messages shape WebLLM expects.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/flowloom/rivulet/plugin"
)

const defaultEndpoint = "http://localhost:11434/api/chat"

type Client struct {
	endpoint string
	http     *http.Client
}

func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: 60 * time.Second}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Model   string      `json:"model"`
}

func (c *Client) Chat(ctx context.Context, req plugin.ChatRequest) (plugin.ChatResponse, error) {
	messages := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(chatRequest{Model: req.Model, Messages: messages, Stream: false})
	if err != nil {
		return plugin.ChatResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return plugin.ChatResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.APIKey != "" {
		// Plain Ollama needs no auth, but a node-scoped credential is
		// honored for gateways fronting Ollama's /api/chat with one.
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return plugin.ChatResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return plugin.ChatResponse{}, fmt.Errorf("ollama error: status %s", resp.Status)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return plugin.ChatResponse{}, err
	}
	return plugin.ChatResponse{Content: strings.TrimSpace(parsed.Message.Content), Model: parsed.Model}, nil
}

var _ plugin.WebLLM = (*Client)(nil)
