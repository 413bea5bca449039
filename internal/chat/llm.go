// Package chat drives the two-phase tool-use conversation: the model is
// offered the search_logs tool, its arguments are validated and normalized,
// the search runs, and a second model call turns the structured result into
// a natural-language answer.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lokilens-mcp/internal/models"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Message roles used on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation turn. Assistant messages may carry tool
// calls; tool messages carry the ToolCallID they answer.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a model request to invoke a named tool. Arguments is the raw
// JSON-encoded argument object; it is decoded into typed arguments at the
// orchestrator boundary.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSpec describes one callable tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// LanguageModel is the completion capability the orchestrator needs. The
// returned message is either plain text or carries tool calls.
type LanguageModel interface {
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*Message, error)
}

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	APIKey  string
	BaseURL string
	Model   string

	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewOpenAIClient builds a client from config.
func NewOpenAIClient(cfg models.Config) *OpenAIClient {
	return &OpenAIClient{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    strings.TrimSuffix(cfg.OpenAIBaseURL, "/"),
		Model:      cfg.Model,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestRateLimit), cfg.RequestRateBurst),
	}
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolSpec struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

// Complete implements LanguageModel.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*Message, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	payload := map[string]any{
		"model":    c.Model,
		"messages": toWireMessages(messages),
	}
	if len(tools) > 0 {
		payload["tools"] = toWireTools(tools)
		payload["tool_choice"] = "auto"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return parseCompletion(respBody)
}

func toWireMessages(messages []Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wm := wireMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: wireFunction{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, wm)
	}
	return out
}

func toWireTools(tools []ToolSpec) []wireToolSpec {
	out := make([]wireToolSpec, 0, len(tools))
	for _, t := range tools {
		var w wireToolSpec
		w.Type = "function"
		w.Function.Name = t.Name
		w.Function.Description = t.Description
		w.Function.Parameters = t.Parameters
		out = append(out, w)
	}
	return out
}

func parseCompletion(body []byte) (*Message, error) {
	choice := gjson.GetBytes(body, "choices.0.message")
	if !choice.Exists() {
		return nil, fmt.Errorf("completion response has no choices: %s", strings.TrimSpace(string(body)))
	}

	msg := &Message{
		Role:    RoleAssistant,
		Content: choice.Get("content").String(),
	}
	for _, tc := range choice.Get("tool_calls").Array() {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:        tc.Get("id").String(),
			Name:      tc.Get("function.name").String(),
			Arguments: tc.Get("function.arguments").String(),
		})
	}
	return msg, nil
}
