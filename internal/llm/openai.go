package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/eldtechnologies/faqbot/internal/models"
)

const maxRetries = 3

// OpenAIClient talks to an OpenAI-compatible API for both chat completions
// and embeddings. It implements Embedder and Completer.
type OpenAIClient struct {
	baseURL        string
	apiKey         string
	chatModel      string
	embeddingModel string
	dimensions     int
	client         *http.Client
}

// OpenAIConfig configures the client.
type OpenAIConfig struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Dimensions     int
	Timeout        time.Duration
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIClient{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		dimensions:     cfg.Dimensions,
		client:         &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Dimension returns the fixed embedding dimensionality.
func (c *OpenAIClient) Dimension() int { return c.dimensions }

// Embed generates an embedding for the given text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body := map[string]any{
		"model":      c.embeddingModel,
		"input":      text,
		"dimensions": c.dimensions,
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/embeddings", body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}
	if len(out.Data[0].Embedding) != c.dimensions {
		return nil, fmt.Errorf("openai: expected %d dimensions, got %d", c.dimensions, len(out.Data[0].Embedding))
	}
	return out.Data[0].Embedding, nil
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// Complete sends a chat completion request. With opts.ForceTool set, the
// provider is constrained to emit exactly one call of that tool.
func (c *OpenAIClient) Complete(ctx context.Context, messages []models.Message, opts CompleteOptions) (*Completion, error) {
	apiMsgs := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		cm := chatMessage{Role: apiRole(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			call := chatToolCall{ID: tc.ID, Type: "function"}
			call.Function.Name = tc.Name
			call.Function.Arguments = tc.Arguments
			cm.ToolCalls = append(cm.ToolCalls, call)
		}
		apiMsgs = append(apiMsgs, cm)
	}

	body := map[string]any{
		"model":    c.chatModel,
		"messages": apiMsgs,
	}
	if opts.ForceTool != nil {
		body["tools"] = []map[string]any{{
			"type": "function",
			"function": map[string]any{
				"name":        opts.ForceTool.Name,
				"description": opts.ForceTool.Description,
				"parameters":  opts.ForceTool.Parameters,
			},
		}}
		body["tool_choice"] = map[string]any{
			"type":     "function",
			"function": map[string]any{"name": opts.ForceTool.Name},
		}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content   string         `json:"content"`
				ToolCalls []chatToolCall `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	msg := out.Choices[0].Message
	completion := &Completion{Content: msg.Content}
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		completion.ToolCall = &models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return completion, nil
}

// post sends a JSON request, retrying on 429 and 5xx with backoff.
func (c *OpenAIClient) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt < maxRetries {
				time.Sleep(retryDelay(attempt, ""))
				continue
			}
			return lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			ra := resp.Header.Get("Retry-After")
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("openai: %s %s", path, resp.Status)
			if attempt < maxRetries {
				time.Sleep(retryDelay(attempt, ra))
				continue
			}
			return lastErr
		}

		payload, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("openai: %s %s: %s", path, resp.Status, truncate(payload, 200))
		}
		return json.Unmarshal(payload, out)
	}
	return lastErr
}

func retryDelay(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// apiRole maps internal roles to OpenAI wire roles.
func apiRole(role string) string {
	switch role {
	case models.RoleHuman:
		return "user"
	case models.RoleAI:
		return "assistant"
	default:
		return role // system, tool
	}
}
